package payment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-payment-ledger/internal/appointment"
)

func batchFor(name string, status Status, net int64, paidAt *time.Time) Batch {
	return Batch{
		ID:               uuid.New(),
		PsychologistID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)),
		PsychologistName: name,
		Status:           status,
		TotalGrossValue:  decimal.NewFromInt(net * 2),
		TotalNetValue:    decimal.NewFromInt(net),
		PaidAt:           paidAt,
	}
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestComputeDashboardEmpty(t *testing.T) {
	d := ComputeDashboard(nil)
	if d.TotalPendingPayments != 0 || d.TotalApprovedPayments != 0 || d.TotalContestedPayments != 0 {
		t.Fatalf("expected zero counts, got %+v", d)
	}
	if !d.TotalPaidAmount.IsZero() {
		t.Fatalf("expected zero paid amount, got %s", d.TotalPaidAmount)
	}
	if d.MonthlyPayments == nil || d.PsychologistPayments == nil {
		t.Fatalf("expected empty, non-nil breakdowns")
	}
}

func TestComputeDashboardCountsAndBreakdown(t *testing.T) {
	batches := []Batch{
		batchFor("Dr. Silva", StatusPending, 100, nil),
		batchFor("Dr. Lima", StatusApproved, 80, nil),
		batchFor("Dr. Silva", StatusContested, 40, nil),
		batchFor("Dr. Silva", StatusApproved, 60, nil),
		batchFor("Dr. Lima", StatusPaid, 200, at("2026-09-03T12:00:00Z")),
	}

	d := ComputeDashboard(batches)

	if d.TotalPendingPayments != 1 || d.TotalApprovedPayments != 2 || d.TotalContestedPayments != 1 {
		t.Fatalf("unexpected counts: %+v", d)
	}
	if !d.TotalPaidAmount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected paid 200, got %s", d.TotalPaidAmount)
	}

	if len(d.PsychologistPayments) != 2 {
		t.Fatalf("expected 2 psychologists, got %d", len(d.PsychologistPayments))
	}
	silva, lima := d.PsychologistPayments[0], d.PsychologistPayments[1]
	if silva.PsychologistName != "Dr. Silva" || lima.PsychologistName != "Dr. Lima" {
		t.Fatalf("expected first-appearance order, got %s, %s", silva.PsychologistName, lima.PsychologistName)
	}
	if !silva.TotalPending.Equal(decimal.NewFromInt(100)) ||
		!silva.TotalApproved.Equal(decimal.NewFromInt(60)) ||
		!silva.TotalContested.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected Dr. Silva totals: %+v", silva)
	}
	if !lima.TotalApproved.Equal(decimal.NewFromInt(80)) || !lima.TotalPending.IsZero() {
		t.Fatalf("unexpected Dr. Lima totals: %+v", lima)
	}
}

func TestComputeDashboardMonthlyPayments(t *testing.T) {
	batches := []Batch{
		batchFor("Dr. Silva", StatusPaid, 100, at("2026-10-02T10:00:00Z")),
		batchFor("Dr. Lima", StatusPaid, 50, at("2026-08-20T10:00:00Z")),
		batchFor("Dr. Silva", StatusPaid, 30, at("2026-10-28T10:00:00Z")),
		// 2026-09-30 23:30 in UTC-3 is already October in UTC.
		batchFor("Dr. Lima", StatusPaid, 10, at("2026-09-30T23:30:00-03:00")),
	}

	d := ComputeDashboard(batches)

	want := []MonthlyPayment{
		{Month: "2026-08", Psychologist: "Dr. Lima", Amount: decimal.NewFromInt(50)},
		{Month: "2026-10", Psychologist: "Dr. Silva", Amount: decimal.NewFromInt(130)},
		{Month: "2026-10", Psychologist: "Dr. Lima", Amount: decimal.NewFromInt(10)},
	}
	if len(d.MonthlyPayments) != len(want) {
		t.Fatalf("expected %d monthly rows, got %+v", len(want), d.MonthlyPayments)
	}
	for i, w := range want {
		got := d.MonthlyPayments[i]
		if got.Month != w.Month || got.Psychologist != w.Psychologist || !got.Amount.Equal(w.Amount) {
			t.Fatalf("row %d: got %+v, want %+v", i, got, w)
		}
	}
}

func TestComputeDashboardIsIdempotent(t *testing.T) {
	batches := []Batch{
		batchFor("Dr. Silva", StatusPending, 100, nil),
		batchFor("Dr. Lima", StatusPaid, 200, at("2026-09-03T12:00:00Z")),
	}
	a := ComputeDashboard(batches)
	b := ComputeDashboard(batches)

	if a.TotalPendingPayments != b.TotalPendingPayments || !a.TotalPaidAmount.Equal(b.TotalPaidAmount) ||
		len(a.MonthlyPayments) != len(b.MonthlyPayments) || len(a.PsychologistPayments) != len(b.PsychologistPayments) {
		t.Fatalf("dashboard differs between runs: %+v vs %+v", a, b)
	}
}

func TestSummarizeIgnoresOtherPsychologists(t *testing.T) {
	mine := batchFor("Dr. Silva", StatusPaid, 70, at("2026-09-03T12:00:00Z"))
	batches := []Batch{
		mine,
		batchFor("Dr. Lima", StatusPending, 500, nil),
	}

	s := Summarize(mine.PsychologistID, batches)
	if s.Batches != 1 || !s.TotalPaid.Equal(decimal.NewFromInt(70)) || !s.TotalPending.IsZero() {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestComputeFinance(t *testing.T) {
	silva, lima := uuid.New(), uuid.New()
	appts := []appointment.Appointment{
		{PsychologistID: silva, PsychologistName: "Dr. Silva", Value: decimal.NewFromInt(200), Status: appointment.StatusCompleted},
		{PsychologistID: lima, PsychologistName: "Dr. Lima", Value: decimal.NewFromInt(100), Status: appointment.StatusCompleted},
		{PsychologistID: silva, PsychologistName: "Dr. Silva", Value: decimal.NewFromInt(999), Status: appointment.StatusCancelled},
	}
	rates := map[uuid.UUID]decimal.Decimal{
		silva: decimal.NewFromInt(60),
		lima:  decimal.NewFromInt(40),
	}

	f := ComputeFinance(appts, rates)

	if f.Appointments != 2 {
		t.Fatalf("expected 2 completed appointments, got %d", f.Appointments)
	}
	if !f.TotalRevenue.Equal(decimal.NewFromInt(300)) ||
		!f.PsychologistCommission.Equal(decimal.NewFromInt(160)) ||
		!f.ClinicRevenue.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("unexpected totals: %+v", f)
	}
	if len(f.ByPsychologist) != 2 || f.ByPsychologist[0].PsychologistID != silva {
		t.Fatalf("unexpected rows: %+v", f.ByPsychologist)
	}
	if !f.ByPsychologist[1].ClinicRevenue.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected Dr. Lima clinic share: %+v", f.ByPsychologist[1])
	}
}

func TestEligibleReleasesContestedAppointments(t *testing.T) {
	psych := uuid.New()
	a1 := appointment.Appointment{ID: uuid.New(), PsychologistID: psych, Status: appointment.StatusCompleted}
	a2 := appointment.Appointment{ID: uuid.New(), PsychologistID: psych, Status: appointment.StatusCompleted}
	a3 := appointment.Appointment{ID: uuid.New(), PsychologistID: psych, Status: appointment.StatusCompleted}

	batches := []Batch{
		{ID: uuid.New(), Status: StatusPaid, AppointmentIDs: []uuid.UUID{a1.ID}},
		{ID: uuid.New(), Status: StatusContested, AppointmentIDs: []uuid.UUID{a2.ID}},
	}

	got := Eligible([]appointment.Appointment{a1, a2, a3}, batches)
	if len(got) != 2 || got[0].ID != a2.ID || got[1].ID != a3.ID {
		t.Fatalf("unexpected eligible set: %+v", got)
	}

	if got := Eligible(nil, nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestNetValue(t *testing.T) {
	tests := []struct {
		gross, pct, want string
	}{
		{"100", "50", "50"},
		{"180", "65", "117"},
		{"99.99", "0", "0"},
		{"99.99", "100", "99.99"},
		{"150.10", "37.5", "56.2875"},
	}
	for _, tc := range tests {
		got := NetValue(decimal.RequireFromString(tc.gross), decimal.RequireFromString(tc.pct))
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("NetValue(%s, %s) = %s, want %s", tc.gross, tc.pct, got, tc.want)
		}
	}
}
