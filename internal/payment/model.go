package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusContested Status = "contested"
	StatusPaid      Status = "paid"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusContested, StatusPaid:
		return true
	}
	return false
}

// ClaimsAppointments reports whether a batch in this status holds on to its
// appointments. Contested batches release them for a new batch.
func (s Status) ClaimsAppointments() bool {
	return s == StatusPending || s == StatusApproved || s == StatusPaid
}

// Batch groups completed appointments of one psychologist into a single
// commission payout. PsychologistName and CreatedByName are snapshots taken
// at creation time and are not kept in sync with the source records.
type Batch struct {
	ID                 uuid.UUID
	PsychologistID     uuid.UUID
	PsychologistName   string
	CreatedBy          string
	CreatedByName      string
	CreatedAt          time.Time
	TotalGrossValue    decimal.Decimal
	TotalNetValue      decimal.Decimal
	Status             Status
	ContestationReason *string
	ContestedAt        *time.Time
	ApprovedAt         *time.Time
	PaidAt             *time.Time
	AppointmentIDs     []uuid.UUID
}

// Clone returns a copy that shares no mutable state with b.
func (b Batch) Clone() Batch {
	out := b
	out.AppointmentIDs = append([]uuid.UUID(nil), b.AppointmentIDs...)
	out.ContestationReason = clonePtr(b.ContestationReason)
	out.ContestedAt = clonePtr(b.ContestedAt)
	out.ApprovedAt = clonePtr(b.ApprovedAt)
	out.PaidAt = clonePtr(b.PaidAt)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// apply sets the status and stamps the timestamp that belongs to it.
// Membership and totals are never touched.
func (b *Batch) apply(to Status, at time.Time, reason *string) {
	b.Status = to
	switch to {
	case StatusApproved:
		b.ApprovedAt = &at
	case StatusContested:
		b.ContestedAt = &at
		b.ContestationReason = clonePtr(reason)
	case StatusPaid:
		b.PaidAt = &at
	}
}

// Item is one appointment inside a batch. Items are created together with
// their batch and never change afterwards.
type Item struct {
	ID                   uuid.UUID
	BatchID              uuid.UUID
	AppointmentID        uuid.UUID
	AppointmentDate      string
	PatientName          string
	GrossValue           decimal.Decimal
	CommissionPercentage decimal.Decimal
	NetValue             decimal.Decimal
}

// Actor is the user performing a ledger operation.
type Actor struct {
	ID   string
	Name string
	Role string
}

type EventLog struct {
	ID        int64
	EventType string
	BatchID   *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}
