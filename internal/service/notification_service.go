package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/plantops/finding-service/internal/config"
	"github.com/plantops/finding-service/internal/events"
)

// NotificationService pushes chat-bot messages for lifecycle events.
// Strictly best-effort: it runs after commit and its failures are logged,
// never surfaced to the caller of the lifecycle action.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventFindingReported, n.handleFindingReported)
	n.dispatcher.Subscribe(events.EventStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventAssignmentChanged, n.handleAssignmentChanged)
	n.dispatcher.Subscribe(events.EventEscalated, n.handleEscalated)
	n.dispatcher.Subscribe(events.EventFindingDeleted, n.handleFindingDeleted)
}

func (n *NotificationService) handleFindingReported(ctx context.Context, event events.Event) error {
	n.logger.Info("FindingReported", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendChatNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("FindingStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendChatNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAssignmentChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("FindingAssignmentChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendChatNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleEscalated(ctx context.Context, event events.Event) error {
	n.logger.Info("FindingEscalated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendChatNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleFindingDeleted(ctx context.Context, event events.Event) error {
	n.logger.Info("FindingDeleted", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendChatNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendChatNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.ChatWebhookURL) == "" {
		return
	}
	n.logger.Debug("sendChatNotificationStub",
		zap.String("url", n.cfg.ChatWebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
