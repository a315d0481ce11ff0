package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// QueueRepository defines persistence access for queue entries. The
// in-memory ledger is the ordering authority; rows here are the durable
// record used for recovery and patient history.
type QueueRepository interface {
	Save(ctx context.Context, entry *domain.QueueEntry) error
	GetByID(ctx context.Context, id string) (*domain.QueueEntry, error)
	FindActiveByPatient(ctx context.Context, patientID, dispensaryID string) (*domain.QueueEntry, error)
	ListActiveByDispensary(ctx context.Context, dispensaryID string) ([]domain.QueueEntry, error)
	ListByPatient(ctx context.Context, patientID string, limit int) ([]domain.QueueEntry, error)
	CountWaiting(ctx context.Context, dispensaryID string) (int, error)
}

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository returns a Postgres-backed implementation.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

const queueColumns = `id, patient_id, dispensary_id, doctor_id, queue_number, position,
    doctor_position, revision, status, chief_complaint, notes, joined_at, called_at,
    consultation_started_at, completed_at, cancelled_at, estimated_wait_minutes,
    estimated_call_time, notification_sent, notification_sent_at,
    cancellation_reason, cancelled_by, created_at, updated_at`

// Save upserts on id so post-transition snapshots overwrite the joined
// row instead of duplicating it. Saves race once the scope lock is
// released, so the update is guarded on revision: a write that is not
// newer than the stored row is silently discarded.
func (r *queueRepository) Save(ctx context.Context, entry *domain.QueueEntry) error {
	const query = `
        INSERT INTO queue_entries (id, patient_id, dispensary_id, doctor_id, queue_number,
            position, doctor_position, revision, status, chief_complaint, notes, joined_at,
            called_at, consultation_started_at, completed_at, cancelled_at,
            estimated_wait_minutes, estimated_call_time, notification_sent,
            notification_sent_at, cancellation_reason, cancelled_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
        ON CONFLICT (id) DO UPDATE SET
            position=EXCLUDED.position,
            doctor_position=EXCLUDED.doctor_position,
            revision=EXCLUDED.revision,
            status=EXCLUDED.status,
            notes=EXCLUDED.notes,
            called_at=EXCLUDED.called_at,
            consultation_started_at=EXCLUDED.consultation_started_at,
            completed_at=EXCLUDED.completed_at,
            cancelled_at=EXCLUDED.cancelled_at,
            estimated_wait_minutes=EXCLUDED.estimated_wait_minutes,
            estimated_call_time=EXCLUDED.estimated_call_time,
            notification_sent=EXCLUDED.notification_sent,
            notification_sent_at=EXCLUDED.notification_sent_at,
            cancellation_reason=EXCLUDED.cancellation_reason,
            cancelled_by=EXCLUDED.cancelled_by,
            updated_at=NOW()
        WHERE EXCLUDED.revision > queue_entries.revision
        RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.PatientID,
		entry.DispensaryID,
		entry.DoctorID,
		entry.QueueNumber,
		entry.Position,
		entry.DoctorPosition,
		entry.Revision,
		entry.Status,
		entry.ChiefComplaint,
		entry.Notes,
		entry.JoinedAt,
		entry.CalledAt,
		entry.ConsultationStartedAt,
		entry.CompletedAt,
		entry.CancelledAt,
		entry.EstimatedWaitMinutes,
		entry.EstimatedCallTime,
		entry.NotificationSent,
		entry.NotificationSentAt,
		entry.CancellationReason,
		entry.CancelledBy,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Stale revision: a newer write already landed. Not an error.
		return nil
	}
	return err
}

func (r *queueRepository) GetByID(ctx context.Context, id string) (*domain.QueueEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+queueColumns+` FROM queue_entries WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return firstQueueEntry(rows)
}

func (r *queueRepository) FindActiveByPatient(ctx context.Context, patientID, dispensaryID string) (*domain.QueueEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+queueColumns+` FROM queue_entries
         WHERE patient_id=$1 AND dispensary_id=$2
           AND status IN ('WAITING','CALLED','IN_CONSULTATION')
         ORDER BY joined_at DESC LIMIT 1`, patientID, dispensaryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return firstQueueEntry(rows)
}

func (r *queueRepository) ListActiveByDispensary(ctx context.Context, dispensaryID string) ([]domain.QueueEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+queueColumns+` FROM queue_entries
         WHERE dispensary_id=$1 AND status IN ('WAITING','CALLED','IN_CONSULTATION')
         ORDER BY queue_number`, dispensaryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQueueEntries(rows)
}

func (r *queueRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]domain.QueueEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+queueColumns+` FROM queue_entries
         WHERE patient_id=$1 ORDER BY joined_at DESC LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQueueEntries(rows)
}

func (r *queueRepository) CountWaiting(ctx context.Context, dispensaryID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM queue_entries WHERE dispensary_id=$1 AND status='WAITING'`,
		dispensaryID).Scan(&count)
	return count, err
}

func firstQueueEntry(rows pgx.Rows) (*domain.QueueEntry, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	return scanQueueEntry(rows)
}

func collectQueueEntries(rows pgx.Rows) ([]domain.QueueEntry, error) {
	var entries []domain.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanQueueEntry(rows pgx.Rows) (*domain.QueueEntry, error) {
	var entry domain.QueueEntry
	if err := rows.Scan(
		&entry.ID,
		&entry.PatientID,
		&entry.DispensaryID,
		&entry.DoctorID,
		&entry.QueueNumber,
		&entry.Position,
		&entry.DoctorPosition,
		&entry.Revision,
		&entry.Status,
		&entry.ChiefComplaint,
		&entry.Notes,
		&entry.JoinedAt,
		&entry.CalledAt,
		&entry.ConsultationStartedAt,
		&entry.CompletedAt,
		&entry.CancelledAt,
		&entry.EstimatedWaitMinutes,
		&entry.EstimatedCallTime,
		&entry.NotificationSent,
		&entry.NotificationSentAt,
		&entry.CancellationReason,
		&entry.CancelledBy,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}
