package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPsychologistNotFound = errors.New("psychologist not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
)

// Repository contains all storage interactions needed by the service.
type Repository interface {
	CreatePsychologist(ctx context.Context, p Psychologist) (*Psychologist, error)
	GetPsychologistByID(ctx context.Context, id uuid.UUID) (*Psychologist, error)
	ListPsychologists(ctx context.Context) ([]Psychologist, error)

	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, f Filter) ([]Appointment, error)

	// UpdateAppointment replaces the stored record with the same ID.
	UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
}
