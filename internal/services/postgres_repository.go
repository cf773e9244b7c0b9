package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// db is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores the treatments catalog in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("services: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const serviceColumns = `id, nombre, zona, precio_base, duracion_minutos, sesiones_recomendadas, tecnologia, activo, created_at`

// Create inserts a new catalog row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateServiceRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO services (id, nombre, zona, precio_base, duracion_minutos, sesiones_recomendadas, tecnologia, activo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.Name,
		req.Zone,
		req.BasePrice,
		req.DurationMinutes,
		req.RecommendedSessions,
		req.Technology,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("services: insert failed: %w", err)
	}

	return &Service{
		ID:                  id.String(),
		Name:                req.Name,
		Zone:                req.Zone,
		BasePrice:           req.BasePrice,
		DurationMinutes:     req.DurationMinutes,
		RecommendedSessions: req.RecommendedSessions,
		Technology:          req.Technology,
		Active:              true,
		CreatedAt:           createdAt,
	}, nil
}

// GetByID fetches a catalog entry by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// List returns all catalog entries, oldest first.
func (r *PostgresRepository) List(ctx context.Context) ([]Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("services: list failed: %w", err)
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var s Service
		if err := scanService(rows, &s); err != nil {
			return nil, fmt.Errorf("services: scan failed: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SearchActiveByName returns the oldest active service whose name contains the
// fragment, case-insensitive. First match wins.
func (r *PostgresRepository) SearchActiveByName(ctx context.Context, name string) (*Service, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM services
		WHERE activo AND nombre ILIKE '%' || $1 || '%'
		ORDER BY created_at
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, name))
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*Service, error) {
	var s Service
	if err := scanService(row, &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("services: select failed: %w", err)
	}
	return &s, nil
}

func scanService(row pgx.Row, s *Service) error {
	return row.Scan(
		&s.ID,
		&s.Name,
		&s.Zone,
		&s.BasePrice,
		&s.DurationMinutes,
		&s.RecommendedSessions,
		&s.Technology,
		&s.Active,
		&s.CreatedAt,
	)
}
