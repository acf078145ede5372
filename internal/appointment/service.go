package appointment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInsuranceTokenRequired  = errors.New("insurance appointments need a token before completion")
	ErrInvalidAppointment      = errors.New("invalid appointment")
)

var hundred = decimal.NewFromInt(100)

type Service struct {
	repo              Repository
	defaultCommission decimal.Decimal
}

func NewService(repo Repository, defaultCommission decimal.Decimal) *Service {
	return &Service{
		repo:              repo,
		defaultCommission: defaultCommission,
	}
}

func (s *Service) RegisterPsychologist(ctx context.Context, name string, commission decimal.Decimal) (*Psychologist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: psychologist name is required", ErrInvalidAppointment)
	}
	if commission.IsNegative() || commission.GreaterThan(hundred) {
		return nil, fmt.Errorf("%w: commission must be within 0..100", ErrInvalidAppointment)
	}

	p, err := s.repo.CreatePsychologist(ctx, Psychologist{Name: name, CommissionPercentage: commission})
	if err != nil {
		return nil, fmt.Errorf("create psychologist: %w", err)
	}
	return p, nil
}

func (s *Service) ListPsychologists(ctx context.Context) ([]Psychologist, error) {
	list, err := s.repo.ListPsychologists(ctx)
	if err != nil {
		return nil, fmt.Errorf("list psychologists: %w", err)
	}
	return list, nil
}

// RegisterAppointment records an appointment for a known psychologist. The
// psychologist's display name is copied onto the record as a snapshot.
func (s *Service) RegisterAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if err := validate(a); err != nil {
		return nil, err
	}

	p, err := s.repo.GetPsychologistByID(ctx, a.PsychologistID)
	if err != nil {
		if errors.Is(err, ErrPsychologistNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load psychologist: %w", err)
	}
	a.PsychologistName = p.Name
	if a.Status == "" {
		a.Status = StatusPending
	}

	created, err := s.repo.CreateAppointment(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return created, nil
}

func validate(a Appointment) error {
	if strings.TrimSpace(a.PatientName) == "" {
		return fmt.Errorf("%w: patient name is required", ErrInvalidAppointment)
	}
	if _, err := time.Parse(DateLayout, a.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidAppointment)
	}
	if a.Value.IsNegative() {
		return fmt.Errorf("%w: value must not be negative", ErrInvalidAppointment)
	}
	if a.Status != "" && !a.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidAppointment, a.Status)
	}
	if !a.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidAppointment, a.PaymentMethod)
	}
	if a.Status == StatusCompleted && a.PaymentMethod == PaymentInsurance && !hasToken(a) {
		return ErrInsuranceTokenRequired
	}
	return nil
}

func hasToken(a Appointment) bool {
	return a.InsuranceToken != nil && strings.TrimSpace(*a.InsuranceToken) != ""
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]Appointment, error) {
	list, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return list, nil
}

// Confirm moves a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusConfirmed, StatusPending)
}

// Complete marks an attended appointment as completed, which is what makes
// it eligible for a payment batch.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted, StatusPending, StatusConfirmed)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCancelled, StatusPending, StatusConfirmed)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to AppointmentStatus, from ...AppointmentStatus) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	allowed := false
	for _, st := range from {
		if appt.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, appt.Status, to)
	}

	if to == StatusCompleted && appt.PaymentMethod == PaymentInsurance && !hasToken(*appt) {
		return nil, ErrInsuranceTokenRequired
	}

	appt.Status = to
	updated, err := s.repo.UpdateAppointment(ctx, *appt)
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	log.Printf("appointment status changed id=%s status=%s", updated.ID, updated.Status)
	return updated, nil
}

// SetInsuranceToken stores the insurer authorization token on an insurance appointment.
func (s *Service) SetInsuranceToken(ctx context.Context, id uuid.UUID, token string) (*Appointment, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidAppointment)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.PaymentMethod != PaymentInsurance {
		return nil, fmt.Errorf("%w: appointment is not paid by insurance", ErrInvalidAppointment)
	}

	appt.InsuranceToken = &token
	updated, err := s.repo.UpdateAppointment(ctx, *appt)
	if err != nil {
		return nil, fmt.Errorf("update insurance token: %w", err)
	}
	return updated, nil
}

// CommissionPercentage resolves the psychologist's configured rate, falling
// back to the default when the psychologist is unknown or has no rate.
func (s *Service) CommissionPercentage(ctx context.Context, psychologistID uuid.UUID) (decimal.Decimal, error) {
	p, err := s.repo.GetPsychologistByID(ctx, psychologistID)
	if err != nil {
		if errors.Is(err, ErrPsychologistNotFound) {
			return s.defaultCommission, nil
		}
		return decimal.Decimal{}, fmt.Errorf("load psychologist: %w", err)
	}
	if p.CommissionPercentage.IsZero() {
		return s.defaultCommission, nil
	}
	return p.CommissionPercentage, nil
}

type StatusSummary struct {
	From      string
	To        string
	Pending   int
	Confirmed int
	Cancelled int
	Completed int
	Total     int
}

// Summarize counts appointments per status inside the given period.
func (s *Service) Summarize(ctx context.Context, period Period, psychologistID *uuid.UUID, now time.Time) (StatusSummary, error) {
	from, to := period.Range(now)
	list, err := s.repo.ListAppointments(ctx, Filter{PsychologistID: psychologistID, From: from, To: to})
	if err != nil {
		return StatusSummary{}, fmt.Errorf("list appointments: %w", err)
	}

	sum := StatusSummary{From: from, To: to, Total: len(list)}
	for _, a := range list {
		switch a.Status {
		case StatusPending:
			sum.Pending++
		case StatusConfirmed:
			sum.Confirmed++
		case StatusCancelled:
			sum.Cancelled++
		case StatusCompleted:
			sum.Completed++
		}
	}
	return sum, nil
}
