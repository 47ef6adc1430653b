package domain

import "time"

// Customer is the domain model for end-users who submit tickets. TotalSpend
// accumulates settled payments and drives loyalty-rule priority.
type Customer struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	TotalSpend   int64
	PlanID       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SupportPlan is a purchasable tier granting a fixed priority level. Plans
// are read-only to this engine; a customer's effective level is the maximum
// of the loyalty-rule level and the active plan level.
type SupportPlan struct {
	ID            string
	Name          string
	PriorityLevel PriorityLevel
	PriceCents    int64
	IsActive      bool
	CreatedAt     time.Time
}
