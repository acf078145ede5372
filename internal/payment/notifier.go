package payment

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	VariantDefault     = "default"
	VariantDestructive = "destructive"
)

// Notification is the human-readable message emitted after a ledger mutation.
type Notification struct {
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Variant   string    `json:"variant"`
	BatchID   uuid.UUID `json:"batch_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier delivers notifications. Delivery is fire-and-forget: the ledger
// logs failures and never undoes the mutation.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	log.Printf("notification kind=%s batch_id=%s title=%q message=%q", n.Kind, n.BatchID, n.Title, n.Message)
	return nil
}

// MultiNotifier fans out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Publisher interface {
	Publish(ctx context.Context, payload any) error
}

// PublishingNotifier forwards notifications to a message channel.
type PublishingNotifier struct {
	pub Publisher
}

func NewPublishingNotifier(pub Publisher) *PublishingNotifier {
	return &PublishingNotifier{pub: pub}
}

func (p *PublishingNotifier) Notify(ctx context.Context, n Notification) error {
	return p.pub.Publish(ctx, n)
}
