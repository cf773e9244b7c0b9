package payments

import (
	"context"
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

// PostgresRepository stores payments in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("payments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new payment row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreatePaymentRequest) (*Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO payments (id, patient_id, monto, metodo_pago, fecha_pago, cajero, concepto)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.PatientID,
		req.Amount,
		req.Method,
		req.PaidAt,
		req.CashierID,
		req.Concept,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("payments: insert failed: %w", err)
	}

	return &Payment{
		ID:        id.String(),
		PatientID: req.PatientID,
		Amount:    req.Amount,
		Method:    req.Method,
		PaidAt:    req.PaidAt,
		CashierID: req.CashierID,
		Concept:   req.Concept,
		CreatedAt: createdAt,
	}, nil
}

// ListByDay returns payments received on the given calendar day.
func (r *PostgresRepository) ListByDay(ctx context.Context, day time.Time) ([]Payment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	query := `
		SELECT id, patient_id, monto, metodo_pago, fecha_pago, cajero, concepto, created_at
		FROM payments
		WHERE fecha_pago >= $1 AND fecha_pago < $2
		ORDER BY fecha_pago
	`
	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("payments: list failed: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(
			&p.ID,
			&p.PatientID,
			&p.Amount,
			&p.Method,
			&p.PaidAt,
			&p.CashierID,
			&p.Concept,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("payments: scan failed: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DailyTotal sums payments received on the given calendar day.
func (r *PostgresRepository) DailyTotal(ctx context.Context, day time.Time) (float64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	query := `SELECT COALESCE(SUM(monto), 0) FROM payments WHERE fecha_pago >= $1 AND fecha_pago < $2`
	var total float64
	if err := r.db.QueryRow(ctx, query, start, end).Scan(&total); err != nil {
		return 0, fmt.Errorf("payments: daily total: %w", err)
	}
	return total, nil
}
