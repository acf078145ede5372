package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps psychologists and appointments in process memory,
// in insertion order.
type MemoryRepository struct {
	mu            sync.RWMutex
	psychologists []Psychologist
	appointments  []Appointment
	index         map[uuid.UUID]int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{index: make(map[uuid.UUID]int)}
}

func (r *MemoryRepository) CreatePsychologist(_ context.Context, p Psychologist) (*Psychologist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	r.psychologists = append(r.psychologists, p)
	return &p, nil
}

func (r *MemoryRepository) GetPsychologistByID(_ context.Context, id uuid.UUID) (*Psychologist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.psychologists {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, ErrPsychologistNotFound
}

func (r *MemoryRepository) ListPsychologists(_ context.Context) ([]Psychologist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Psychologist, len(r.psychologists))
	copy(out, r.psychologists)
	return out, nil
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	r.index[a.ID] = len(r.appointments)
	r.appointments = append(r.appointments, a)
	return &a, nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a := r.appointments[i]
	return &a, nil
}

func (r *MemoryRepository) ListAppointments(_ context.Context, f Filter) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, a := range r.appointments {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryRepository) UpdateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[a.ID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.CreatedAt = r.appointments[i].CreatedAt
	a.UpdatedAt = time.Now()
	r.appointments[i] = a
	return &a, nil
}
