package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type capturePublisher struct {
	payloads []any
}

func (c *capturePublisher) Publish(_ context.Context, payload any) error {
	c.payloads = append(c.payloads, payload)
	return nil
}

func TestMultiNotifierJoinsErrors(t *testing.T) {
	first := &recordingNotifier{err: errors.New("first down")}
	second := &recordingNotifier{}
	m := MultiNotifier{first, second}

	err := m.Notify(context.Background(), Notification{Kind: EventBatchPaid})
	if err == nil || err.Error() != "first down" {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(second.sent) != 1 {
		t.Fatalf("expected later notifiers to still run")
	}
}

func TestPublishingNotifier(t *testing.T) {
	pub := &capturePublisher{}
	n := Notification{Kind: EventBatchCreated, BatchID: uuid.New()}

	if err := NewPublishingNotifier(pub).Notify(context.Background(), n); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(pub.payloads) != 1 || pub.payloads[0].(Notification).BatchID != n.BatchID {
		t.Fatalf("unexpected payloads: %+v", pub.payloads)
	}
}
