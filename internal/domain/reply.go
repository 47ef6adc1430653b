package domain

import "time"

// Reply is a single message in a ticket thread. Replies are append-only and
// owned by their ticket; they are totally ordered by SentAt with Seq breaking
// ties for messages stamped in the same instant.
type Reply struct {
	ID           string
	TicketID     string
	SenderID     string
	IsStaffReply bool
	Message      string
	SentAt       time.Time
	Seq          int64
}
