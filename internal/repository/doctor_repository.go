package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// DoctorRepository defines persistence access for doctor profiles.
type DoctorRepository interface {
	Create(ctx context.Context, doctor *domain.Doctor) error
	Update(ctx context.Context, doctor *domain.Doctor) error
	GetByID(ctx context.Context, id string) (*domain.Doctor, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Doctor, error)
	ListByDispensary(ctx context.Context, dispensaryID string) ([]domain.Doctor, error)
	ListBySpecialization(ctx context.Context, specialization string) ([]domain.Doctor, error)
	UpdateAvailability(ctx context.Context, id string, availability domain.DoctorAvailability) error
	AssignDispensary(ctx context.Context, id string, dispensaryID *string) error
	AverageConsultationMinutes(ctx context.Context, id string) (*int, error)
}

type doctorRepository struct {
	pool *pgxpool.Pool
}

// NewDoctorRepository returns a Postgres-backed implementation.
func NewDoctorRepository(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepository{pool: pool}
}

const doctorColumns = `id, user_id, dispensary_id, qualification, specialization, license_number,
    years_experience, bio, availability, avg_consultation_minutes, total_consultations,
    created_at, updated_at`

func (r *doctorRepository) Create(ctx context.Context, doctor *domain.Doctor) error {
	const query = `
        INSERT INTO doctors (user_id, dispensary_id, qualification, specialization, license_number,
            years_experience, bio, availability, avg_consultation_minutes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		doctor.UserID,
		doctor.DispensaryID,
		doctor.Qualification,
		doctor.Specialization,
		doctor.LicenseNumber,
		doctor.YearsExperience,
		doctor.Bio,
		doctor.Availability,
		doctor.AvgConsultationMinutes,
	).Scan(&doctor.ID, &doctor.CreatedAt, &doctor.UpdatedAt)
}

func (r *doctorRepository) Update(ctx context.Context, doctor *domain.Doctor) error {
	const query = `
        UPDATE doctors SET dispensary_id=$1, qualification=$2, specialization=$3,
            license_number=$4, years_experience=$5, bio=$6, availability=$7,
            avg_consultation_minutes=$8, total_consultations=$9, updated_at=NOW()
        WHERE id=$10`

	cmd, err := r.pool.Exec(ctx, query,
		doctor.DispensaryID,
		doctor.Qualification,
		doctor.Specialization,
		doctor.LicenseNumber,
		doctor.YearsExperience,
		doctor.Bio,
		doctor.Availability,
		doctor.AvgConsultationMinutes,
		doctor.TotalConsultations,
		doctor.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *doctorRepository) GetByID(ctx context.Context, id string) (*domain.Doctor, error) {
	return r.fetchSingle(ctx, `WHERE id=$1`, id)
}

func (r *doctorRepository) GetByUserID(ctx context.Context, userID string) (*domain.Doctor, error) {
	return r.fetchSingle(ctx, `WHERE user_id=$1`, userID)
}

func (r *doctorRepository) ListByDispensary(ctx context.Context, dispensaryID string) ([]domain.Doctor, error) {
	return r.fetchMany(ctx, `WHERE dispensary_id=$1 ORDER BY created_at`, dispensaryID)
}

func (r *doctorRepository) ListBySpecialization(ctx context.Context, specialization string) ([]domain.Doctor, error) {
	return r.fetchMany(ctx, `WHERE LOWER(specialization)=LOWER($1) ORDER BY created_at`, specialization)
}

func (r *doctorRepository) UpdateAvailability(ctx context.Context, id string, availability domain.DoctorAvailability) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE doctors SET availability=$1, updated_at=NOW() WHERE id=$2`, availability, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AssignDispensary moves the doctor onto a dispensary's roster; nil
// removes the rostering.
func (r *doctorRepository) AssignDispensary(ctx context.Context, id string, dispensaryID *string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE doctors SET dispensary_id=$1, updated_at=NOW() WHERE id=$2`, dispensaryID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AverageConsultationMinutes derives the doctor's mean consultation
// duration from completed visits. Returns nil when no history exists.
func (r *doctorRepository) AverageConsultationMinutes(ctx context.Context, id string) (*int, error) {
	const query = `
        SELECT ROUND(AVG(EXTRACT(EPOCH FROM (completed_at - consultation_started_at)) / 60))::int
        FROM queue_entries
        WHERE doctor_id=$1 AND status='COMPLETED'
          AND consultation_started_at IS NOT NULL AND completed_at IS NOT NULL`

	var avg *int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&avg); err != nil {
		return nil, err
	}
	return avg, nil
}

func (r *doctorRepository) fetchSingle(ctx context.Context, where string, arg any) (*domain.Doctor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+doctorColumns+` FROM doctors `+where, arg)
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
	doctor, err := scanDoctor(rows)
	if err != nil {
		return nil, err
	}
	return doctor, nil
}

func (r *doctorRepository) fetchMany(ctx context.Context, where string, arg any) ([]domain.Doctor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+doctorColumns+` FROM doctors `+where, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doctors []domain.Doctor
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, *doctor)
	}
	return doctors, rows.Err()
}

func scanDoctor(rows pgx.Rows) (*domain.Doctor, error) {
	var doctor domain.Doctor
	if err := rows.Scan(
		&doctor.ID,
		&doctor.UserID,
		&doctor.DispensaryID,
		&doctor.Qualification,
		&doctor.Specialization,
		&doctor.LicenseNumber,
		&doctor.YearsExperience,
		&doctor.Bio,
		&doctor.Availability,
		&doctor.AvgConsultationMinutes,
		&doctor.TotalConsultations,
		&doctor.CreatedAt,
		&doctor.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &doctor, nil
}
