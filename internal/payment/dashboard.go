package payment

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-payment-ledger/internal/appointment"
)

type Dashboard struct {
	TotalPendingPayments   int
	TotalApprovedPayments  int
	TotalContestedPayments int
	TotalPaidAmount        decimal.Decimal
	MonthlyPayments        []MonthlyPayment
	PsychologistPayments   []PsychologistPayment
}

// MonthlyPayment is the net amount paid to one psychologist in one calendar
// month (YYYY-MM, UTC, taken from the batch's paid timestamp).
type MonthlyPayment struct {
	Month        string
	Psychologist string
	Amount       decimal.Decimal
}

type PsychologistPayment struct {
	PsychologistName string
	TotalPending     decimal.Decimal
	TotalApproved    decimal.Decimal
	TotalContested   decimal.Decimal
}

// ComputeDashboard derives the statistics snapshot from the full batch list.
// It keeps no state, so calling it twice on the same input gives the same result.
// Psychologists are grouped by their display-name snapshot, in order of first appearance.
func ComputeDashboard(batches []Batch) Dashboard {
	d := Dashboard{
		TotalPaidAmount:      decimal.Zero,
		MonthlyPayments:      []MonthlyPayment{},
		PsychologistPayments: []PsychologistPayment{},
	}

	byName := make(map[string]int)
	type monthKey struct{ month, name string }
	byMonth := make(map[monthKey]int)

	for _, b := range batches {
		i, ok := byName[b.PsychologistName]
		if !ok {
			i = len(d.PsychologistPayments)
			byName[b.PsychologistName] = i
			d.PsychologistPayments = append(d.PsychologistPayments, PsychologistPayment{
				PsychologistName: b.PsychologistName,
				TotalPending:     decimal.Zero,
				TotalApproved:    decimal.Zero,
				TotalContested:   decimal.Zero,
			})
		}
		row := &d.PsychologistPayments[i]

		switch b.Status {
		case StatusPending:
			d.TotalPendingPayments++
			row.TotalPending = row.TotalPending.Add(b.TotalNetValue)
		case StatusApproved:
			d.TotalApprovedPayments++
			row.TotalApproved = row.TotalApproved.Add(b.TotalNetValue)
		case StatusContested:
			d.TotalContestedPayments++
			row.TotalContested = row.TotalContested.Add(b.TotalNetValue)
		case StatusPaid:
			d.TotalPaidAmount = d.TotalPaidAmount.Add(b.TotalNetValue)
			if b.PaidAt == nil {
				continue
			}
			key := monthKey{month: b.PaidAt.UTC().Format("2006-01"), name: b.PsychologistName}
			j, ok := byMonth[key]
			if !ok {
				j = len(d.MonthlyPayments)
				byMonth[key] = j
				d.MonthlyPayments = append(d.MonthlyPayments, MonthlyPayment{
					Month:        key.month,
					Psychologist: key.name,
					Amount:       decimal.Zero,
				})
			}
			d.MonthlyPayments[j].Amount = d.MonthlyPayments[j].Amount.Add(b.TotalNetValue)
		}
	}

	sort.SliceStable(d.MonthlyPayments, func(i, j int) bool {
		return d.MonthlyPayments[i].Month < d.MonthlyPayments[j].Month
	})

	return d
}

// Summary holds one psychologist's net totals per batch status.
type Summary struct {
	PsychologistID uuid.UUID
	Batches        int
	TotalPending   decimal.Decimal
	TotalApproved  decimal.Decimal
	TotalContested decimal.Decimal
	TotalPaid      decimal.Decimal
}

func Summarize(psychologistID uuid.UUID, batches []Batch) Summary {
	s := Summary{
		PsychologistID: psychologistID,
		TotalPending:   decimal.Zero,
		TotalApproved:  decimal.Zero,
		TotalContested: decimal.Zero,
		TotalPaid:      decimal.Zero,
	}
	for _, b := range batches {
		if b.PsychologistID != psychologistID {
			continue
		}
		s.Batches++
		switch b.Status {
		case StatusPending:
			s.TotalPending = s.TotalPending.Add(b.TotalNetValue)
		case StatusApproved:
			s.TotalApproved = s.TotalApproved.Add(b.TotalNetValue)
		case StatusContested:
			s.TotalContested = s.TotalContested.Add(b.TotalNetValue)
		case StatusPaid:
			s.TotalPaid = s.TotalPaid.Add(b.TotalNetValue)
		}
	}
	return s
}

// FinanceSummary splits completed-appointment revenue between psychologist
// commission and what the clinic keeps.
type FinanceSummary struct {
	Appointments           int
	TotalRevenue           decimal.Decimal
	PsychologistCommission decimal.Decimal
	ClinicRevenue          decimal.Decimal
	ByPsychologist         []FinanceRow
}

type FinanceRow struct {
	PsychologistID       uuid.UUID
	PsychologistName     string
	Appointments         int
	CommissionPercentage decimal.Decimal
	Revenue              decimal.Decimal
	Commission           decimal.Decimal
	ClinicRevenue        decimal.Decimal
}

// ComputeFinance aggregates completed appointments using the commission
// percentage in rates for each psychologist.
func ComputeFinance(appts []appointment.Appointment, rates map[uuid.UUID]decimal.Decimal) FinanceSummary {
	f := FinanceSummary{
		TotalRevenue:           decimal.Zero,
		PsychologistCommission: decimal.Zero,
		ClinicRevenue:          decimal.Zero,
		ByPsychologist:         []FinanceRow{},
	}
	index := make(map[uuid.UUID]int)

	for _, a := range appts {
		if a.Status != appointment.StatusCompleted {
			continue
		}
		pct := rates[a.PsychologistID]
		commission := NetValue(a.Value, pct)
		clinic := a.Value.Sub(commission)

		f.Appointments++
		f.TotalRevenue = f.TotalRevenue.Add(a.Value)
		f.PsychologistCommission = f.PsychologistCommission.Add(commission)
		f.ClinicRevenue = f.ClinicRevenue.Add(clinic)

		i, ok := index[a.PsychologistID]
		if !ok {
			i = len(f.ByPsychologist)
			index[a.PsychologistID] = i
			f.ByPsychologist = append(f.ByPsychologist, FinanceRow{
				PsychologistID:       a.PsychologistID,
				PsychologistName:     a.PsychologistName,
				CommissionPercentage: pct,
				Revenue:              decimal.Zero,
				Commission:           decimal.Zero,
				ClinicRevenue:        decimal.Zero,
			})
		}
		row := &f.ByPsychologist[i]
		row.Appointments++
		row.Revenue = row.Revenue.Add(a.Value)
		row.Commission = row.Commission.Add(commission)
		row.ClinicRevenue = row.ClinicRevenue.Add(clinic)
	}

	return f
}
