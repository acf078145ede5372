package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const batchColumns = `id, psychologist_id, psychologist_name, created_by, created_by_name, created_at,
	total_gross_value, total_net_value, status, contestation_reason, contested_at, approved_at, paid_at,
	appointment_ids`

const itemColumns = `id, payment_batch_id, appointment_id, appointment_date, patient_name,
	gross_value, commission_percentage, net_value`

// Helpers

func scanBatch(row pgx.Row) (*Batch, error) {
	var (
		b      Batch
		apptID []string
	)

	err := row.Scan(
		&b.ID,
		&b.PsychologistID,
		&b.PsychologistName,
		&b.CreatedBy,
		&b.CreatedByName,
		&b.CreatedAt,
		&b.TotalGrossValue,
		&b.TotalNetValue,
		&b.Status,
		&b.ContestationReason,
		&b.ContestedAt,
		&b.ApprovedAt,
		&b.PaidAt,
		&apptID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}

	b.AppointmentIDs = make([]uuid.UUID, 0, len(apptID))
	for _, raw := range apptID {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("batch %s has malformed appointment id %q: %w", b.ID, raw, err)
		}
		b.AppointmentIDs = append(b.AppointmentIDs, id)
	}

	return &b, nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var it Item

	err := row.Scan(
		&it.ID,
		&it.BatchID,
		&it.AppointmentID,
		&it.AppointmentDate,
		&it.PatientName,
		&it.GrossValue,
		&it.CommissionPercentage,
		&it.NetValue,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func collectBatches(rows pgx.Rows) ([]Batch, error) {
	defer rows.Close()

	result := []Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) InsertBatch(ctx context.Context, b Batch, items []Item) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	apptIDs := make([]string, len(b.AppointmentIDs))
	for i, id := range b.AppointmentIDs {
		apptIDs[i] = id.String()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payment_batches (`+batchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, b.ID, b.PsychologistID, b.PsychologistName, b.CreatedBy, b.CreatedByName, b.CreatedAt,
		b.TotalGrossValue, b.TotalNetValue, b.Status, b.ContestationReason, b.ContestedAt, b.ApprovedAt, b.PaidAt,
		apptIDs)
	if err != nil {
		return fmt.Errorf("insert payment batch: %w", err)
	}

	for _, it := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO payment_items (`+itemColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, it.ID, it.BatchID, it.AppointmentID, it.AppointmentDate, it.PatientName,
			it.GrossValue, it.CommissionPercentage, it.NetValue)
		if err != nil {
			return fmt.Errorf("insert payment item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+batchColumns+`
		FROM payment_batches
		WHERE id = $1
	`, id)
	return scanBatch(row)
}

func (r *PgRepository) ListBatches(ctx context.Context) ([]Batch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+batchColumns+`
		FROM payment_batches
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	return collectBatches(rows)
}

func (r *PgRepository) ListBatchesByPsychologist(ctx context.Context, psychologistID uuid.UUID) ([]Batch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+batchColumns+`
		FROM payment_batches
		WHERE psychologist_id = $1
		ORDER BY seq
	`, psychologistID)
	if err != nil {
		return nil, err
	}
	return collectBatches(rows)
}

func (r *PgRepository) ListItemsByBatch(ctx context.Context, batchID uuid.UUID) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM payment_items
		WHERE payment_batch_id = $1
		ORDER BY seq
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) UpdateBatchStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time, reason *string) (*Batch, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE payment_batches
		SET status = $3::text,
		    approved_at = CASE WHEN $3::text = 'approved' THEN $4 ELSE approved_at END,
		    contested_at = CASE WHEN $3::text = 'contested' THEN $4 ELSE contested_at END,
		    contestation_reason = CASE WHEN $3::text = 'contested' THEN $5 ELSE contestation_reason END,
		    paid_at = CASE WHEN $3::text = 'paid' THEN $4 ELSE paid_at END
		WHERE id = $1
		  AND status = $2
		RETURNING `+batchColumns,
		id, from, to, at, reason)

	b, err := scanBatch(row)
	if errors.Is(err, ErrBatchNotFound) {
		// The row may exist with a different status.
		if _, getErr := r.GetBatch(ctx, id); getErr == nil {
			return nil, ErrBatchStatusChanged
		}
	}
	return b, err
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, batch_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.BatchID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
