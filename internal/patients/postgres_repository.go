package patients

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

// PostgresRepository stores patients in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const patientColumns = `id, nombre_completo, telefono, sexo, cumpleanos, zonas_tratamiento, notas, created_at`

// Create inserts a new patient row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreatePatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO patients (id, nombre_completo, telefono, sexo, cumpleanos, zonas_tratamiento, notas)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.FullName,
		req.Phone,
		req.Sex,
		req.BirthDate,
		req.TreatmentZones,
		req.Notes,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("patients: insert failed: %w", err)
	}

	return &Patient{
		ID:             id.String(),
		FullName:       req.FullName,
		Phone:          req.Phone,
		Sex:            req.Sex,
		BirthDate:      req.BirthDate,
		TreatmentZones: req.TreatmentZones,
		Notes:          req.Notes,
		CreatedAt:      createdAt,
	}, nil
}

// GetByID fetches a patient by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// List returns all patients, oldest first.
func (r *PostgresRepository) List(ctx context.Context) ([]Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		var p Patient
		if err := scanPatient(rows, &p); err != nil {
			return nil, fmt.Errorf("patients: scan failed: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SearchByName returns the oldest patient whose name contains the fragment,
// case-insensitive. First match wins.
func (r *PostgresRepository) SearchByName(ctx context.Context, name string) (*Patient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE nombre_completo ILIKE '%' || $1 || '%'
		ORDER BY created_at
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, name))
}

// GetByPhone returns the patient with exactly this phone number.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE telefono = $1
		ORDER BY created_at
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, phone))
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := scanPatient(row, &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: select failed: %w", err)
	}
	return &p, nil
}

func scanPatient(row pgx.Row, p *Patient) error {
	var sex *string
	if err := row.Scan(
		&p.ID,
		&p.FullName,
		&p.Phone,
		&sex,
		&p.BirthDate,
		&p.TreatmentZones,
		&p.Notes,
		&p.CreatedAt,
	); err != nil {
		return err
	}
	if sex != nil {
		p.Sex = *sex
	}
	return nil
}
