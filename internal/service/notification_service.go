package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/mediconnect/clinic-queue/internal/broadcast"
	"github.com/mediconnect/clinic-queue/internal/config"
	"github.com/mediconnect/clinic-queue/internal/events"
)

// NotificationService bridges coordinator events onto the broadcast
// gateway so patients and dispensary dashboards see queue movement live.
type NotificationService struct {
	dispatcher events.Dispatcher
	gateway    broadcast.Gateway
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, gateway broadcast.Gateway, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		gateway:    gateway,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventQueueUpdated, n.handleQueueUpdated)
	n.dispatcher.Subscribe(events.EventPatientNotified, n.handlePatientNotified)
	n.dispatcher.Subscribe(events.EventQueueStatusChanged, n.handleStatusChanged)
}

func (n *NotificationService) handleQueueUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.QueueUpdatedPayload)
	if !ok {
		n.logger.Warn("unexpected queue_updated payload", zap.String("event_id", event.ID))
		return nil
	}
	if err := n.gateway.PublishQueue(ctx, payload.ScopeKind, payload.ScopeID, payload.Entries); err != nil {
		n.logger.Warn("queue snapshot broadcast failed",
			zap.String("scope", payload.ScopeKind+":"+payload.ScopeID),
			zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handlePatientNotified(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PatientNotifiedPayload)
	if !ok {
		n.logger.Warn("unexpected patient_notified payload", zap.String("event_id", event.ID))
		return nil
	}
	n.logger.Info("patient almost up",
		zap.String("patient_id", payload.PatientID),
		zap.String("entry_id", payload.Entry.ID),
		zap.Int("position", payload.Entry.Position))
	if err := n.gateway.NotifyPatient(ctx, payload.PatientID, payload.Entry); err != nil {
		n.logger.Warn("patient notification failed",
			zap.String("patient_id", payload.PatientID),
			zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.QueueStatusChangedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("visit status changed",
		zap.String("entry_id", payload.Entry.ID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)))
	return nil
}
