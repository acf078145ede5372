package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, psychologist_id, psychologist_name, patient_name, date, start_time, end_time,
	value, status, payment_method, insurance_type, insurance_token, created_at, updated_at`

// Helpers

func scanPsychologist(row pgx.Row) (*Psychologist, error) {
	var p Psychologist

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.CommissionPercentage,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPsychologistNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PsychologistID,
		&a.PsychologistName,
		&a.PatientName,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Value,
		&a.Status,
		&a.PaymentMethod,
		&a.InsuranceType,
		&a.InsuranceToken,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

// Interface methods

func (r *PgRepository) CreatePsychologist(ctx context.Context, p Psychologist) (*Psychologist, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO psychologists (id, name, commission_percentage, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, name, commission_percentage, created_at
	`, p.ID, p.Name, p.CommissionPercentage)
	return scanPsychologist(row)
}

func (r *PgRepository) GetPsychologistByID(ctx context.Context, id uuid.UUID) (*Psychologist, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, commission_percentage, created_at
		FROM psychologists
		WHERE id = $1
	`, id)
	return scanPsychologist(row)
}

func (r *PgRepository) ListPsychologists(ctx context.Context) ([]Psychologist, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, commission_percentage, created_at
		FROM psychologists
		ORDER BY created_at, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Psychologist
	for rows.Next() {
		p, err := scanPsychologist(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.PsychologistID, a.PsychologistName, a.PatientName, a.Date, a.StartTime, a.EndTime,
		a.Value, a.Status, a.PaymentMethod, a.InsuranceType, a.InsuranceToken)

	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f Filter) ([]Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.PsychologistID != nil {
		add("psychologist_id = $%d", *f.PsychologistID)
	}
	if f.From != "" {
		add("date >= $%d", f.From)
	}
	if f.To != "" {
		add("date <= $%d", f.To)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, start_time, created_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET psychologist_id = $2,
		    psychologist_name = $3,
		    patient_name = $4,
		    date = $5,
		    start_time = $6,
		    end_time = $7,
		    value = $8,
		    status = $9,
		    payment_method = $10,
		    insurance_type = $11,
		    insurance_token = $12,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		a.ID, a.PsychologistID, a.PsychologistName, a.PatientName, a.Date, a.StartTime, a.EndTime,
		a.Value, a.Status, a.PaymentMethod, a.InsuranceType, a.InsuranceToken)

	return scanAppointment(row)
}
