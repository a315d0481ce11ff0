package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

// DispensaryRepository defines persistence access for clinic locations.
type DispensaryRepository interface {
	Create(ctx context.Context, dispensary *domain.Dispensary) error
	Update(ctx context.Context, dispensary *domain.Dispensary) error
	GetByID(ctx context.Context, id string) (*domain.Dispensary, error)
	GetByAdminUserID(ctx context.Context, adminUserID string) (*domain.Dispensary, error)
	List(ctx context.Context) ([]domain.Dispensary, error)
	SearchByCity(ctx context.Context, city string) ([]domain.Dispensary, error)
	FindNearby(ctx context.Context, lat, lon, radiusKm float64) ([]domain.Dispensary, error)
	SetOpen(ctx context.Context, id string, open bool) error
}

type dispensaryRepository struct {
	pool *pgxpool.Pool
}

// NewDispensaryRepository returns a Postgres-backed implementation.
func NewDispensaryRepository(pool *pgxpool.Pool) DispensaryRepository {
	return &dispensaryRepository{pool: pool}
}

const dispensaryColumns = `id, name, license_number, admin_user_id, address, city, phone_number,
    email, latitude, longitude, services, operating_hours, is_open, max_queue_capacity, created_at, updated_at`

func (r *dispensaryRepository) Create(ctx context.Context, dispensary *domain.Dispensary) error {
	const query = `
        INSERT INTO dispensaries (name, license_number, admin_user_id, address, city, phone_number,
            email, latitude, longitude, services, operating_hours, is_open, max_queue_capacity)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		dispensary.Name,
		dispensary.LicenseNumber,
		dispensary.AdminUserID,
		dispensary.Address,
		dispensary.City,
		dispensary.PhoneNumber,
		dispensary.Email,
		dispensary.Latitude,
		dispensary.Longitude,
		dispensary.Services,
		dispensary.OperatingHours,
		dispensary.IsOpen,
		dispensary.MaxQueueCapacity,
	).Scan(&dispensary.ID, &dispensary.CreatedAt, &dispensary.UpdatedAt)
}

func (r *dispensaryRepository) Update(ctx context.Context, dispensary *domain.Dispensary) error {
	const query = `
        UPDATE dispensaries SET name=$1, address=$2, city=$3, phone_number=$4, email=$5,
            latitude=$6, longitude=$7, services=$8, operating_hours=$9, is_open=$10,
            max_queue_capacity=$11, updated_at=NOW()
        WHERE id=$12`

	cmd, err := r.pool.Exec(ctx, query,
		dispensary.Name,
		dispensary.Address,
		dispensary.City,
		dispensary.PhoneNumber,
		dispensary.Email,
		dispensary.Latitude,
		dispensary.Longitude,
		dispensary.Services,
		dispensary.OperatingHours,
		dispensary.IsOpen,
		dispensary.MaxQueueCapacity,
		dispensary.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *dispensaryRepository) GetByID(ctx context.Context, id string) (*domain.Dispensary, error) {
	return r.fetchSingle(ctx, `WHERE id=$1`, id)
}

func (r *dispensaryRepository) GetByAdminUserID(ctx context.Context, adminUserID string) (*domain.Dispensary, error) {
	return r.fetchSingle(ctx, `WHERE admin_user_id=$1`, adminUserID)
}

func (r *dispensaryRepository) List(ctx context.Context) ([]domain.Dispensary, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+dispensaryColumns+` FROM dispensaries ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDispensaries(rows)
}

func (r *dispensaryRepository) SearchByCity(ctx context.Context, city string) ([]domain.Dispensary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+dispensaryColumns+` FROM dispensaries WHERE LOWER(city)=LOWER($1) ORDER BY name`, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDispensaries(rows)
}

// FindNearby orders open dispensaries by haversine distance from the
// given point and keeps those within radiusKm.
func (r *dispensaryRepository) FindNearby(ctx context.Context, lat, lon, radiusKm float64) ([]domain.Dispensary, error) {
	const query = `
        SELECT ` + dispensaryColumns + `
        FROM dispensaries
        WHERE latitude IS NOT NULL AND longitude IS NOT NULL
          AND 6371 * 2 * ASIN(SQRT(
                POWER(SIN(RADIANS(latitude - $1) / 2), 2) +
                COS(RADIANS($1)) * COS(RADIANS(latitude)) *
                POWER(SIN(RADIANS(longitude - $2) / 2), 2)
              )) <= $3
        ORDER BY 6371 * 2 * ASIN(SQRT(
                POWER(SIN(RADIANS(latitude - $1) / 2), 2) +
                COS(RADIANS($1)) * COS(RADIANS(latitude)) *
                POWER(SIN(RADIANS(longitude - $2) / 2), 2)
              ))`

	rows, err := r.pool.Query(ctx, query, lat, lon, radiusKm)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDispensaries(rows)
}

func (r *dispensaryRepository) SetOpen(ctx context.Context, id string, open bool) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE dispensaries SET is_open=$1, updated_at=NOW() WHERE id=$2`, open, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *dispensaryRepository) fetchSingle(ctx context.Context, where string, arg any) (*domain.Dispensary, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+dispensaryColumns+` FROM dispensaries `+where, arg)
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
	dispensary, err := scanDispensary(rows)
	if err != nil {
		return nil, err
	}
	return dispensary, nil
}

func collectDispensaries(rows pgx.Rows) ([]domain.Dispensary, error) {
	var dispensaries []domain.Dispensary
	for rows.Next() {
		dispensary, err := scanDispensary(rows)
		if err != nil {
			return nil, err
		}
		dispensaries = append(dispensaries, *dispensary)
	}
	return dispensaries, rows.Err()
}

func scanDispensary(rows pgx.Rows) (*domain.Dispensary, error) {
	var dispensary domain.Dispensary
	if err := rows.Scan(
		&dispensary.ID,
		&dispensary.Name,
		&dispensary.LicenseNumber,
		&dispensary.AdminUserID,
		&dispensary.Address,
		&dispensary.City,
		&dispensary.PhoneNumber,
		&dispensary.Email,
		&dispensary.Latitude,
		&dispensary.Longitude,
		&dispensary.Services,
		&dispensary.OperatingHours,
		&dispensary.IsOpen,
		&dispensary.MaxQueueCapacity,
		&dispensary.CreatedAt,
		&dispensary.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &dispensary, nil
}
