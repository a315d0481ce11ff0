package broadcast

import (
	"context"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// Gateway delivers queue state to interested parties outside the
// process: websocket subscribers, Redis channels, or both.
type Gateway interface {
	// PublishQueue pushes an ordered scope snapshot to subscribers of
	// that dispensary or doctor line.
	PublishQueue(ctx context.Context, scopeKind, scopeID string, entries []domain.QueueEntry) error
	// NotifyPatient delivers an almost-up signal to a single patient.
	NotifyPatient(ctx context.Context, patientID string, entry domain.QueueEntry) error
}

type composite struct {
	gateways []Gateway
}

// NewComposite fans deliveries out to every gateway; the first error is
// returned after all gateways have been attempted.
func NewComposite(gateways ...Gateway) Gateway {
	return &composite{gateways: gateways}
}

func (c *composite) PublishQueue(ctx context.Context, scopeKind, scopeID string, entries []domain.QueueEntry) error {
	var firstErr error
	for _, g := range c.gateways {
		if err := g.PublishQueue(ctx, scopeKind, scopeID, entries); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *composite) NotifyPatient(ctx context.Context, patientID string, entry domain.QueueEntry) error {
	var firstErr error
	for _, g := range c.gateways {
		if err := g.NotifyPatient(ctx, patientID, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
