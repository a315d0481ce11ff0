package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// MedicalRecordRepository defines persistence access for visit records.
type MedicalRecordRepository interface {
	Create(ctx context.Context, record *domain.MedicalRecord) error
	GetByID(ctx context.Context, id string) (*domain.MedicalRecord, error)
	ListByPatient(ctx context.Context, patientID string) ([]domain.MedicalRecord, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]domain.MedicalRecord, error)
}

type medicalRecordRepository struct {
	pool *pgxpool.Pool
}

// NewMedicalRecordRepository returns a Postgres-backed implementation.
func NewMedicalRecordRepository(pool *pgxpool.Pool) MedicalRecordRepository {
	return &medicalRecordRepository{pool: pool}
}

const recordColumns = `id, patient_id, doctor_id, dispensary_id, queue_entry_id,
    diagnosis, prescriptions, notes, visit_date, created_at, updated_at`

func (r *medicalRecordRepository) Create(ctx context.Context, record *domain.MedicalRecord) error {
	const query = `
        INSERT INTO medical_records (patient_id, doctor_id, dispensary_id, queue_entry_id,
            diagnosis, prescriptions, notes, visit_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		record.PatientID,
		record.DoctorID,
		record.DispensaryID,
		record.QueueEntryID,
		record.Diagnosis,
		record.Prescriptions,
		record.Notes,
		record.VisitDate,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
}

func (r *medicalRecordRepository) GetByID(ctx context.Context, id string) (*domain.MedicalRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM medical_records WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	return scanMedicalRecord(rows)
}

func (r *medicalRecordRepository) ListByPatient(ctx context.Context, patientID string) ([]domain.MedicalRecord, error) {
	return r.fetchMany(ctx, `WHERE patient_id=$1 ORDER BY visit_date DESC`, patientID)
}

func (r *medicalRecordRepository) ListByDoctor(ctx context.Context, doctorID string) ([]domain.MedicalRecord, error) {
	return r.fetchMany(ctx, `WHERE doctor_id=$1 ORDER BY visit_date DESC`, doctorID)
}

func (r *medicalRecordRepository) fetchMany(ctx context.Context, where string, arg any) ([]domain.MedicalRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordColumns+` FROM medical_records `+where, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.MedicalRecord
	for rows.Next() {
		record, err := scanMedicalRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanMedicalRecord(rows pgx.Rows) (*domain.MedicalRecord, error) {
	var record domain.MedicalRecord
	if err := rows.Scan(
		&record.ID,
		&record.PatientID,
		&record.DoctorID,
		&record.DispensaryID,
		&record.QueueEntryID,
		&record.Diagnosis,
		&record.Prescriptions,
		&record.Notes,
		&record.VisitDate,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
