package appointment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentPrivate   PaymentMethod = "private"
	PaymentInsurance PaymentMethod = "insurance"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentPrivate || m == PaymentInsurance
}

// DateLayout is the calendar-date format used for Appointment.Date.
const DateLayout = "2006-01-02"

type Psychologist struct {
	ID                   uuid.UUID
	Name                 string
	CommissionPercentage decimal.Decimal
	CreatedAt            time.Time
}

type Appointment struct {
	ID               uuid.UUID
	PsychologistID   uuid.UUID
	PsychologistName string
	PatientName      string
	Date             string // YYYY-MM-DD
	StartTime        string // HH:MM
	EndTime          string // HH:MM
	Value            decimal.Decimal
	Status           AppointmentStatus
	PaymentMethod    PaymentMethod
	InsuranceType    *string
	InsuranceToken   *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Filter narrows List results. Zero values match everything; From and To
// are inclusive YYYY-MM-DD bounds.
type Filter struct {
	PsychologistID *uuid.UUID
	From           string
	To             string
	Status         AppointmentStatus
}

func (f Filter) Match(a Appointment) bool {
	if f.PsychologistID != nil && a.PsychologistID != *f.PsychologistID {
		return false
	}
	if f.From != "" && a.Date < f.From {
		return false
	}
	if f.To != "" && a.Date > f.To {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}
