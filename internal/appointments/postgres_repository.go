package appointments

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

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const appointmentColumns = `id, patient_id, service_id, fecha_hora, numero_sesion, estado, precio_sesion, operadora, created_at`

// Create inserts a new appointment row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO appointments (id, patient_id, service_id, fecha_hora, numero_sesion, estado, precio_sesion, operadora)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.PatientID,
		req.ServiceID,
		req.ScheduledAt,
		req.SessionNumber,
		req.Status,
		req.SessionPrice,
		req.OperatorID,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}

	return &Appointment{
		ID:            id.String(),
		PatientID:     req.PatientID,
		ServiceID:     req.ServiceID,
		ScheduledAt:   req.ScheduledAt,
		SessionNumber: req.SessionNumber,
		Status:        req.Status,
		SessionPrice:  req.SessionPrice,
		OperatorID:    req.OperatorID,
		CreatedAt:     createdAt,
	}, nil
}

// GetByID fetches an appointment by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var a Appointment
	if err := scanAppointment(r.db.QueryRow(ctx, query, id), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return &a, nil
}

// ListByDay returns appointments scheduled on the given calendar day.
func (r *PostgresRepository) ListByDay(ctx context.Context, day time.Time) ([]Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE fecha_hora >= $1 AND fecha_hora < $2
		ORDER BY fecha_hora
	`
	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := scanAppointment(rows, &a); err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row, a *Appointment) error {
	return row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ServiceID,
		&a.ScheduledAt,
		&a.SessionNumber,
		&a.Status,
		&a.SessionPrice,
		&a.OperatorID,
		&a.CreatedAt,
	)
}
