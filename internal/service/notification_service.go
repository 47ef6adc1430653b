package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/events"
)

// NotificationService observes domain events and hands them to delivery
// collaborators. Delivery itself (email, websocket fan-out) lives outside
// this engine; the handlers here log the intent.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handle("TicketCreated"))
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handle("TicketAssigned"))
	n.dispatcher.Subscribe(events.EventTicketTransferred, n.handle("TicketTransferred"))
	n.dispatcher.Subscribe(events.EventTicketCompleted, n.handle("TicketCompleted"))
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handle("TicketClosed"))
	n.dispatcher.Subscribe(events.EventTicketReplied, n.handleReply)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handle("TicketEscalated"))
	n.dispatcher.Subscribe(events.EventSLABreached, n.handle("SLABreached"))
}

// handleReply honors the sender's send_email choice: the email intent is only
// recorded when the flag was set.
func (n *NotificationService) handleReply(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketRepliedPayload)
	if !ok {
		return n.handle("TicketReplied")(ctx, event)
	}
	if payload.SendEmail {
		n.logger.Info("TicketRepliedEmail",
			zap.String("ticket_id", event.TicketID),
			zap.String("reply_id", payload.ReplyID))
	}
	n.logger.Info("TicketReplied",
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", payload))
	return nil
}

func (n *NotificationService) handle(name string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		n.logger.Info(name,
			zap.String("ticket_id", event.TicketID),
			zap.Any("payload", event.Payload))
		return nil
	}
}
