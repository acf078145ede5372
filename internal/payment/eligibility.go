package payment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-payment-ledger/internal/appointment"
)

var hundred = decimal.NewFromInt(100)

// NetValue is the psychologist's share of gross at the given percentage.
func NetValue(gross, percentage decimal.Decimal) decimal.Decimal {
	return gross.Mul(percentage).Div(hundred)
}

// ClaimedAppointments maps every appointment held by a pending, approved or
// paid batch to that batch.
func ClaimedAppointments(batches []Batch) map[uuid.UUID]uuid.UUID {
	claimed := make(map[uuid.UUID]uuid.UUID)
	for _, b := range batches {
		if !b.Status.ClaimsAppointments() {
			continue
		}
		for _, id := range b.AppointmentIDs {
			claimed[id] = b.ID
		}
	}
	return claimed
}

// Eligible keeps the completed appointments that no claiming batch holds.
// Appointments referenced only by contested batches are eligible again.
func Eligible(appts []appointment.Appointment, batches []Batch) []appointment.Appointment {
	claimed := ClaimedAppointments(batches)
	out := []appointment.Appointment{}
	for _, a := range appts {
		if a.Status != appointment.StatusCompleted {
			continue
		}
		if _, taken := claimed[a.ID]; taken {
			continue
		}
		out = append(out, a)
	}
	return out
}
