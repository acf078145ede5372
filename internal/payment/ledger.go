package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-payment-ledger/internal/appointment"
	"github.com/hackgods/clinic-payment-ledger/internal/metrics"
	redisclient "github.com/hackgods/clinic-payment-ledger/internal/redis"
)

const (
	EventBatchCreated   = "PAYMENT_BATCH_CREATED"
	EventBatchApproved  = "PAYMENT_BATCH_APPROVED"
	EventBatchContested = "PAYMENT_BATCH_CONTESTED"
	EventBatchPaid      = "PAYMENT_BATCH_PAID"
)

var (
	ErrEmptyBatch                = errors.New("payment batch needs at least one appointment")
	ErrMixedPsychologists        = errors.New("appointments belong to a different psychologist")
	ErrDuplicateAppointment      = errors.New("appointment listed twice")
	ErrAppointmentNotCompleted   = errors.New("appointment is not completed")
	ErrAppointmentAlreadyClaimed = errors.New("appointment already belongs to an active payment batch")
	ErrInvalidStatusTransition   = errors.New("invalid payment batch status transition")
	ErrBatchBeingCreated         = errors.New("a payment batch for this psychologist is being created, please retry")
)

// CommissionResolver looks up the percentage of gross value paid to a psychologist.
type CommissionResolver interface {
	CommissionPercentage(ctx context.Context, psychologistID uuid.UUID) (decimal.Decimal, error)
}

// AppointmentSource lists appointments for eligibility and finance queries.
type AppointmentSource interface {
	List(ctx context.Context, f appointment.Filter) ([]appointment.Appointment, error)
}

type Options struct {
	// StrictTransitions rejects moves outside pending->approved|contested,
	// contested->approved and approved->paid.
	StrictTransitions bool
	// RecomputeOnRead rebuilds the dashboard on every read. Set it when
	// several processes write to the same store.
	RecomputeOnRead bool
	Now             func() time.Time
}

// Ledger owns payment batches and their items. Every mutation and the
// dashboard refresh that follows it run as one step under mu.
type Ledger struct {
	repo         Repository
	appointments AppointmentSource
	commissions  CommissionResolver
	locker       redisclient.Locker
	notifier     Notifier
	strict       bool
	recompute    bool
	now          func() time.Time

	mu        sync.Mutex
	dashboard Dashboard
}

func NewLedger(repo Repository, appointments AppointmentSource, commissions CommissionResolver, locker redisclient.Locker, notifier Notifier, opts Options) *Ledger {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		repo:         repo,
		appointments: appointments,
		commissions:  commissions,
		locker:       locker,
		notifier:     notifier,
		strict:       opts.StrictTransitions,
		recompute:    opts.RecomputeOnRead,
		now:          now,
		dashboard:    ComputeDashboard(nil),
	}
}

// CreateBatch groups completed appointments of one psychologist into a new
// pending batch. Each item's net value is gross * percentage / 100 and the
// batch totals are the exact sums of the item values.
func (l *Ledger) CreateBatch(ctx context.Context, psychologistID uuid.UUID, appts []appointment.Appointment, creator Actor) (*Batch, error) {
	if len(appts) == 0 {
		return nil, ErrEmptyBatch
	}

	seen := make(map[uuid.UUID]bool, len(appts))
	for _, a := range appts {
		if a.PsychologistID != psychologistID {
			return nil, fmt.Errorf("%w: appointment %s", ErrMixedPsychologists, a.ID)
		}
		if a.Status != appointment.StatusCompleted {
			return nil, fmt.Errorf("%w: appointment %s is %s", ErrAppointmentNotCompleted, a.ID, a.Status)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAppointment, a.ID)
		}
		seen[a.ID] = true
	}

	pct, err := l.commissions.CommissionPercentage(ctx, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("resolve commission: %w", err)
	}

	var created *Batch

	err = l.locker.WithLock(ctx, psychologistLockKey(psychologistID), func(lockCtx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()

		existing, err := l.repo.ListBatchesByPsychologist(lockCtx, psychologistID)
		if err != nil {
			return fmt.Errorf("load psychologist batches: %w", err)
		}
		claimed := ClaimedAppointments(existing)
		for _, a := range appts {
			if batchID, ok := claimed[a.ID]; ok {
				return fmt.Errorf("%w: appointment %s is in batch %s", ErrAppointmentAlreadyClaimed, a.ID, batchID)
			}
		}

		batch, items := buildBatch(psychologistID, appts, pct, creator, l.now())
		if err := l.repo.InsertBatch(lockCtx, batch, items); err != nil {
			return fmt.Errorf("insert payment batch: %w", err)
		}
		created = &batch

		return l.refreshLocked(lockCtx)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBatchBeingCreated
		}
		if created == nil {
			return nil, err
		}
		// The batch is stored; only the dashboard refresh failed.
		log.Printf("dashboard refresh after batch %s failed: %v", created.ID, err)
	}

	metrics.ObserveBatchCreated()
	l.logEvent(ctx, created.ID, EventBatchCreated, map[string]any{
		"psychologist_id":   psychologistID.String(),
		"appointment_count": len(created.AppointmentIDs),
		"total_gross_value": created.TotalGrossValue.String(),
		"total_net_value":   created.TotalNetValue.String(),
		"created_by":        creator.ID,
	})
	l.notify(ctx, Notification{
		Kind:    EventBatchCreated,
		Title:   "Payment batch created",
		Message: fmt.Sprintf("Payment of R$ %s created for %s", created.TotalNetValue.StringFixed(2), created.PsychologistName),
		Variant: VariantDefault,
		BatchID: created.ID,
	})

	out := created.Clone()
	return &out, nil
}

func buildBatch(psychologistID uuid.UUID, appts []appointment.Appointment, pct decimal.Decimal, creator Actor, now time.Time) (Batch, []Item) {
	batch := Batch{
		ID:               uuid.New(),
		PsychologistID:   psychologistID,
		PsychologistName: appts[0].PsychologistName,
		CreatedBy:        creator.ID,
		CreatedByName:    creator.Name,
		CreatedAt:        now,
		TotalGrossValue:  decimal.Zero,
		TotalNetValue:    decimal.Zero,
		Status:           StatusPending,
		AppointmentIDs:   make([]uuid.UUID, 0, len(appts)),
	}

	items := make([]Item, 0, len(appts))
	for _, a := range appts {
		net := NetValue(a.Value, pct)
		items = append(items, Item{
			ID:                   uuid.New(),
			BatchID:              batch.ID,
			AppointmentID:        a.ID,
			AppointmentDate:      a.Date,
			PatientName:          a.PatientName,
			GrossValue:           a.Value,
			CommissionPercentage: pct,
			NetValue:             net,
		})
		batch.TotalGrossValue = batch.TotalGrossValue.Add(a.Value)
		batch.TotalNetValue = batch.TotalNetValue.Add(net)
		batch.AppointmentIDs = append(batch.AppointmentIDs, a.ID)
	}

	return batch, items
}

// Approve records the psychologist's acceptance of a batch.
func (l *Ledger) Approve(ctx context.Context, batchID uuid.UUID) (*Batch, error) {
	return l.transition(ctx, batchID, StatusApproved, nil)
}

// Contest rejects a batch with a free-text reason. The reason is stored as
// given; rejecting blank reasons is left to the caller.
func (l *Ledger) Contest(ctx context.Context, batchID uuid.UUID, reason string) (*Batch, error) {
	return l.transition(ctx, batchID, StatusContested, &reason)
}

// MarkPaid settles an approved batch. Paid is terminal.
func (l *Ledger) MarkPaid(ctx context.Context, batchID uuid.UUID) (*Batch, error) {
	return l.transition(ctx, batchID, StatusPaid, nil)
}

func (l *Ledger) transition(ctx context.Context, batchID uuid.UUID, to Status, reason *string) (*Batch, error) {
	current, err := l.repo.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load payment batch: %w", err)
	}

	var (
		updated *Batch
		from    Status
	)
	apply := func(ctx context.Context) error {
		var err error
		updated, from, err = l.applyTransition(ctx, batchID, to, reason)
		return err
	}

	// A contested batch released its appointments; taking them back must not
	// race a CreateBatch for the same psychologist.
	if current.Status == StatusContested && to.ClaimsAppointments() {
		err = l.locker.WithLock(ctx, psychologistLockKey(current.PsychologistID), apply)
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBatchBeingCreated
		}
	} else {
		err = apply(ctx)
	}
	if err != nil {
		return nil, err
	}

	metrics.ObserveTransition(string(to))
	l.afterTransition(ctx, updated, from)

	return updated, nil
}

func (l *Ledger) applyTransition(ctx context.Context, batchID uuid.UUID, to Status, reason *string) (*Batch, Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.repo.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("load payment batch: %w", err)
	}

	if !CanTransition(current.Status, to, l.strict) {
		return nil, "", fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, to)
	}

	if !current.Status.ClaimsAppointments() && to.ClaimsAppointments() {
		if err := l.checkUnclaimed(ctx, current); err != nil {
			return nil, "", err
		}
	}

	updated, err := l.repo.UpdateBatchStatus(ctx, batchID, current.Status, to, l.now(), reason)
	if err != nil {
		if errors.Is(err, ErrBatchStatusChanged) || errors.Is(err, ErrBatchNotFound) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("update payment batch status: %w", err)
	}

	if err := l.refreshLocked(ctx); err != nil {
		log.Printf("dashboard refresh after batch %s -> %s failed: %v", batchID, to, err)
	}

	return updated, current.Status, nil
}

// checkUnclaimed fails when another pending, approved or paid batch of the
// same psychologist already holds one of b's appointments.
func (l *Ledger) checkUnclaimed(ctx context.Context, b *Batch) error {
	batches, err := l.repo.ListBatchesByPsychologist(ctx, b.PsychologistID)
	if err != nil {
		return fmt.Errorf("load psychologist batches: %w", err)
	}

	others := make([]Batch, 0, len(batches))
	for _, other := range batches {
		if other.ID != b.ID {
			others = append(others, other)
		}
	}

	claimed := ClaimedAppointments(others)
	for _, id := range b.AppointmentIDs {
		if holder, ok := claimed[id]; ok {
			return fmt.Errorf("%w: appointment %s is in batch %s", ErrAppointmentAlreadyClaimed, id, holder)
		}
	}
	return nil
}

func psychologistLockKey(psychologistID uuid.UUID) string {
	return "payments:psychologist:" + psychologistID.String()
}

func (l *Ledger) afterTransition(ctx context.Context, b *Batch, from Status) {
	payload := map[string]any{
		"from": string(from),
		"to":   string(b.Status),
	}

	n := Notification{BatchID: b.ID, Variant: VariantDefault}
	switch b.Status {
	case StatusApproved:
		n.Kind = EventBatchApproved
		n.Title = "Payment approved"
		n.Message = "The payment batch was approved by the psychologist"
	case StatusContested:
		n.Kind = EventBatchContested
		n.Title = "Payment contested"
		n.Message = "The payment batch was contested and returns for review"
		n.Variant = VariantDestructive
		if b.ContestationReason != nil {
			payload["reason"] = *b.ContestationReason
		}
	case StatusPaid:
		n.Kind = EventBatchPaid
		n.Title = "Payment settled"
		n.Message = fmt.Sprintf("Payment of R$ %s was marked as paid", b.TotalNetValue.StringFixed(2))
	}

	l.logEvent(ctx, b.ID, n.Kind, payload)
	l.notify(ctx, n)
}

// Batch returns one batch.
func (l *Ledger) Batch(ctx context.Context, batchID uuid.UUID) (*Batch, error) {
	b, err := l.repo.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get payment batch: %w", err)
	}
	return b, nil
}

// Batches returns every batch in creation order.
func (l *Ledger) Batches(ctx context.Context) ([]Batch, error) {
	list, err := l.repo.ListBatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payment batches: %w", err)
	}
	return list, nil
}

// ItemsForBatch returns the items of a batch in insertion order. Unknown
// batch ids yield an empty list.
func (l *Ledger) ItemsForBatch(ctx context.Context, batchID uuid.UUID) ([]Item, error) {
	items, err := l.repo.ListItemsByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("list payment items: %w", err)
	}
	return items, nil
}

// BatchesForPsychologist returns the psychologist's batches in creation order.
func (l *Ledger) BatchesForPsychologist(ctx context.Context, psychologistID uuid.UUID) ([]Batch, error) {
	list, err := l.repo.ListBatchesByPsychologist(ctx, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("list psychologist batches: %w", err)
	}
	return list, nil
}

// RecentBatches returns up to limit batches, newest first.
func (l *Ledger) RecentBatches(ctx context.Context, limit int) ([]Batch, error) {
	list, err := l.Batches(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// PsychologistSummary totals one psychologist's batches per status.
func (l *Ledger) PsychologistSummary(ctx context.Context, psychologistID uuid.UUID) (Summary, error) {
	list, err := l.BatchesForPsychologist(ctx, psychologistID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(psychologistID, list), nil
}

// RefreshDashboard recomputes the dashboard from the full batch list.
func (l *Ledger) RefreshDashboard(ctx context.Context) (Dashboard, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.refreshLocked(ctx); err != nil {
		return Dashboard{}, err
	}
	d := l.dashboard
	d.MonthlyPayments = append([]MonthlyPayment{}, d.MonthlyPayments...)
	d.PsychologistPayments = append([]PsychologistPayment{}, d.PsychologistPayments...)
	return d, nil
}

// Dashboard returns the snapshot taken by the last refresh.
func (l *Ledger) Dashboard() Dashboard {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.dashboard
	d.MonthlyPayments = append([]MonthlyPayment{}, d.MonthlyPayments...)
	d.PsychologistPayments = append([]PsychologistPayment{}, d.PsychologistPayments...)
	return d
}

// CurrentDashboard serves the cached snapshot, or a fresh one when the
// ledger was built with RecomputeOnRead.
func (l *Ledger) CurrentDashboard(ctx context.Context) (Dashboard, error) {
	if l.recompute {
		return l.RefreshDashboard(ctx)
	}
	return l.Dashboard(), nil
}

func (l *Ledger) refreshLocked(ctx context.Context) error {
	batches, err := l.repo.ListBatches(ctx)
	if err != nil {
		return fmt.Errorf("list payment batches: %w", err)
	}
	l.dashboard = ComputeDashboard(batches)

	paid, _ := l.dashboard.TotalPaidAmount.Float64()
	metrics.SetDashboard(
		l.dashboard.TotalPendingPayments,
		l.dashboard.TotalApprovedPayments,
		l.dashboard.TotalContestedPayments,
		paid,
	)
	return nil
}

// EligibilityFilter selects candidate appointments for a new batch.
type EligibilityFilter struct {
	PsychologistID uuid.UUID
	From           string
	To             string
}

// EligibleAppointments lists completed appointments of a psychologist that
// no pending, approved or paid batch holds.
func (l *Ledger) EligibleAppointments(ctx context.Context, f EligibilityFilter) ([]appointment.Appointment, error) {
	appts, err := l.appointments.List(ctx, appointment.Filter{
		PsychologistID: &f.PsychologistID,
		From:           f.From,
		To:             f.To,
		Status:         appointment.StatusCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	batches, err := l.BatchesForPsychologist(ctx, f.PsychologistID)
	if err != nil {
		return nil, err
	}

	return Eligible(appts, batches), nil
}

// FinanceSummary aggregates completed appointments matching f into revenue,
// commission and clinic share.
func (l *Ledger) FinanceSummary(ctx context.Context, f appointment.Filter) (FinanceSummary, error) {
	f.Status = appointment.StatusCompleted
	appts, err := l.appointments.List(ctx, f)
	if err != nil {
		return FinanceSummary{}, fmt.Errorf("list appointments: %w", err)
	}

	rates := make(map[uuid.UUID]decimal.Decimal)
	for _, a := range appts {
		if _, ok := rates[a.PsychologistID]; ok {
			continue
		}
		pct, err := l.commissions.CommissionPercentage(ctx, a.PsychologistID)
		if err != nil {
			return FinanceSummary{}, fmt.Errorf("resolve commission: %w", err)
		}
		rates[a.PsychologistID] = pct
	}

	return ComputeFinance(appts, rates), nil
}

func (l *Ledger) notify(ctx context.Context, n Notification) {
	n.CreatedAt = l.now()
	if err := l.notifier.Notify(ctx, n); err != nil {
		metrics.ObserveNotificationFailure()
		log.Printf("failed to deliver notification %s for batch %s: %v", n.Kind, n.BatchID, err)
	}
}

func (l *Ledger) logEvent(ctx context.Context, batchID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	id := batchID

	ev := EventLog{
		EventType: eventType,
		BatchID:   &id,
		Payload:   data,
		CreatedAt: l.now(),
	}

	if err := l.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for batch %s: %v", eventType, batchID, err)
	}
}
