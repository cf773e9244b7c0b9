package patients

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func patientRows(id, name, phone string) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "nombre_completo", "telefono", "sexo", "cumpleanos",
		"zonas_tratamiento", "notas", "created_at",
	}).AddRow(id, name, phone, nil, (*time.Time)(nil), []string{}, "", time.Now().UTC())
}

func TestPostgresSearchByName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`ILIKE '%' \|\| \$1 \|\| '%'`).
		WithArgs("ana").
		WillReturnRows(patientRows("id-1", "Ana Pérez", "9841234567"))

	repo := NewPostgresRepositoryWithDB(mock)
	p, err := repo.SearchByName(context.Background(), "ana")
	if err != nil {
		t.Fatalf("SearchByName failed: %v", err)
	}
	if p.FullName != "Ana Pérez" {
		t.Errorf("FullName = %q, want %q", p.FullName, "Ana Pérez")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresSearchByNameNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`ILIKE '%' \|\| \$1 \|\| '%'`).
		WithArgs("nadie").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "nombre_completo", "telefono", "sexo", "cumpleanos",
			"zonas_tratamiento", "notas", "created_at",
		}))

	repo := NewPostgresRepositoryWithDB(mock)
	if _, err := repo.SearchByName(context.Background(), "nadie"); err != ErrPatientNotFound {
		t.Errorf("err = %v, want ErrPatientNotFound", err)
	}
}

func TestPostgresGetByPhone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`WHERE telefono = \$1`).
		WithArgs("5512345678").
		WillReturnRows(patientRows("id-2", "Laura Soto", "5512345678"))

	repo := NewPostgresRepositoryWithDB(mock)
	p, err := repo.GetByPhone(context.Background(), "5512345678")
	if err != nil {
		t.Fatalf("GetByPhone failed: %v", err)
	}
	if p.ID != "id-2" {
		t.Errorf("ID = %q, want id-2", p.ID)
	}
}

func TestPostgresCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO patients`).
		WithArgs(pgxmock.AnyArg(), "Ana Pérez", "9841234567", "F", (*time.Time)(nil), []string{"axilas"}, "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))

	repo := NewPostgresRepositoryWithDB(mock)
	p, err := repo.Create(context.Background(), &CreatePatientRequest{
		FullName:       "Ana Pérez",
		Phone:          "9841234567",
		Sex:            "F",
		TreatmentZones: []string{"axilas"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.FullName != "Ana Pérez" {
		t.Errorf("FullName = %q", p.FullName)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
