package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// PatientRepository defines persistence access for patient profiles.
type PatientRepository interface {
	Create(ctx context.Context, patient *domain.Patient) error
	Update(ctx context.Context, patient *domain.Patient) error
	GetByID(ctx context.Context, id string) (*domain.Patient, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Patient, error)
}

type patientRepository struct {
	pool *pgxpool.Pool
}

// NewPatientRepository returns a Postgres-backed implementation.
func NewPatientRepository(pool *pgxpool.Pool) PatientRepository {
	return &patientRepository{pool: pool}
}

func (r *patientRepository) Create(ctx context.Context, patient *domain.Patient) error {
	const query = `
        INSERT INTO patients (user_id, date_of_birth, gender, blood_group, address, city,
            allergies, chronic_conditions, current_medications,
            emergency_contact_name, emergency_contact_phone)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		patient.UserID,
		patient.DateOfBirth,
		patient.Gender,
		patient.BloodGroup,
		patient.Address,
		patient.City,
		patient.Allergies,
		patient.ChronicConditions,
		patient.CurrentMedications,
		patient.EmergencyContactName,
		patient.EmergencyContactPhone,
	).Scan(&patient.ID, &patient.CreatedAt, &patient.UpdatedAt)
}

func (r *patientRepository) Update(ctx context.Context, patient *domain.Patient) error {
	const query = `
        UPDATE patients SET date_of_birth=$1, gender=$2, blood_group=$3, address=$4, city=$5,
            allergies=$6, chronic_conditions=$7, current_medications=$8,
            emergency_contact_name=$9, emergency_contact_phone=$10, updated_at=NOW()
        WHERE id=$11`

	cmd, err := r.pool.Exec(ctx, query,
		patient.DateOfBirth,
		patient.Gender,
		patient.BloodGroup,
		patient.Address,
		patient.City,
		patient.Allergies,
		patient.ChronicConditions,
		patient.CurrentMedications,
		patient.EmergencyContactName,
		patient.EmergencyContactPhone,
		patient.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *patientRepository) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	return r.fetchSingle(ctx, `WHERE id=$1`, id)
}

func (r *patientRepository) GetByUserID(ctx context.Context, userID string) (*domain.Patient, error) {
	return r.fetchSingle(ctx, `WHERE user_id=$1`, userID)
}

func (r *patientRepository) fetchSingle(ctx context.Context, where string, arg any) (*domain.Patient, error) {
	query := `
        SELECT id, user_id, date_of_birth, gender, blood_group, address, city,
            allergies, chronic_conditions, current_medications,
            emergency_contact_name, emergency_contact_phone, created_at, updated_at
        FROM patients ` + where

	var patient domain.Patient
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&patient.ID,
		&patient.UserID,
		&patient.DateOfBirth,
		&patient.Gender,
		&patient.BloodGroup,
		&patient.Address,
		&patient.City,
		&patient.Allergies,
		&patient.ChronicConditions,
		&patient.CurrentMedications,
		&patient.EmergencyContactName,
		&patient.EmergencyContactPhone,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &patient, nil
}
