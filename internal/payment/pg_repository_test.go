package payment

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-payment-ledger/internal/appointment"
	"github.com/hackgods/clinic-payment-ledger/internal/db"
)

// newPgRepository connects to POSTGRES_DSN and skips the test when it is unset.
func newPgRepository(t *testing.T) *PgRepository {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewPgRepository(pool)
}

func pgAppointments(psychID uuid.UUID, values ...int64) []appointment.Appointment {
	out := make([]appointment.Appointment, 0, len(values))
	for i, v := range values {
		out = append(out, appointment.Appointment{
			ID:               uuid.New(),
			PsychologistID:   psychID,
			PsychologistName: "Dr. Silva",
			PatientName:      "Patient " + string(rune('A'+i)),
			Date:             "2026-10-15",
			Value:            decimal.NewFromInt(v),
			Status:           appointment.StatusCompleted,
		})
	}
	return out
}

func TestPgRepositoryKeepsInsertionOrder(t *testing.T) {
	repo := newPgRepository(t)
	ctx := context.Background()
	psych := uuid.New()
	now := time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)

	var want []uuid.UUID
	for i := 0; i < 3; i++ {
		// Same CreatedAt on purpose: ordering must come from seq.
		b, items := buildBatch(psych, pgAppointments(psych, 100, 250, 80), decimal.NewFromInt(50), admin, now)
		if err := repo.InsertBatch(ctx, b, items); err != nil {
			t.Fatalf("insert batch %d: %v", i, err)
		}
		want = append(want, b.ID)

		got, err := repo.ListItemsByBatch(ctx, b.ID)
		if err != nil {
			t.Fatalf("list items: %v", err)
		}
		if len(got) != len(items) {
			t.Fatalf("expected %d items, got %d", len(items), len(got))
		}
		for j := range items {
			if got[j].ID != items[j].ID || !got[j].NetValue.Equal(items[j].NetValue) {
				t.Fatalf("item %d out of order or altered: %+v", j, got[j])
			}
		}
	}

	batches, err := repo.ListBatchesByPsychologist(ctx, psych)
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches) != len(want) {
		t.Fatalf("expected %d batches, got %d", len(want), len(batches))
	}
	for i, b := range batches {
		if b.ID != want[i] {
			t.Fatalf("batch %d: got %s, want %s", i, b.ID, want[i])
		}
		if len(b.AppointmentIDs) != 3 {
			t.Fatalf("expected 3 appointment ids, got %d", len(b.AppointmentIDs))
		}
	}
}

func TestPgRepositoryUpdateBatchStatusCompareAndSet(t *testing.T) {
	repo := newPgRepository(t)
	ctx := context.Background()
	psych := uuid.New()
	now := time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)

	b, items := buildBatch(psych, pgAppointments(psych, 100), decimal.NewFromInt(50), admin, now)
	if err := repo.InsertBatch(ctx, b, items); err != nil {
		t.Fatalf("insert batch: %v", err)
	}

	at := now.Add(time.Hour)
	approved, err := repo.UpdateBatchStatus(ctx, b.ID, StatusPending, StatusApproved, at, nil)
	if err != nil {
		t.Fatalf("pending -> approved: %v", err)
	}
	if approved.Status != StatusApproved || approved.ApprovedAt == nil || !approved.ApprovedAt.Equal(at) {
		t.Fatalf("unexpected approved batch: %+v", approved)
	}
	if !approved.TotalNetValue.Equal(b.TotalNetValue) {
		t.Fatalf("net total changed: %s -> %s", b.TotalNetValue, approved.TotalNetValue)
	}

	if _, err := repo.UpdateBatchStatus(ctx, b.ID, StatusPending, StatusApproved, at, nil); !errors.Is(err, ErrBatchStatusChanged) {
		t.Fatalf("expected ErrBatchStatusChanged for stale from-status, got %v", err)
	}

	reason := "late"
	if _, err := repo.UpdateBatchStatus(ctx, uuid.New(), StatusPending, StatusContested, at, &reason); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}

	got, err := repo.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if got.Status != StatusApproved || got.ContestedAt != nil || got.ContestationReason != nil {
		t.Fatalf("unexpected stored batch: %+v", got)
	}
}
