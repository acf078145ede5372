package redisclient

import (
	"context"
	"errors"
	"testing"
)

func TestLocalLockerRejectsReentry(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	err := l.WithLock(ctx, "payments:psychologist:1", func(ctx context.Context) error {
		inner := l.WithLock(ctx, "payments:psychologist:1", func(context.Context) error { return nil })
		if !errors.Is(inner, ErrLockNotAcquired) {
			t.Fatalf("expected ErrLockNotAcquired for held key, got %v", inner)
		}
		return l.WithLock(ctx, "payments:psychologist:2", func(context.Context) error { return nil })
	})
	if err != nil {
		t.Fatalf("outer lock: %v", err)
	}

	if err := l.WithLock(ctx, "payments:psychologist:1", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected key released after fn returned, got %v", err)
	}
}

func TestLocalLockerPropagatesError(t *testing.T) {
	l := NewLocalLocker()
	boom := errors.New("boom")

	if err := l.WithLock(context.Background(), "k", func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
}
