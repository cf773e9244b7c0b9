package importer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmoran/clinica-backend/internal/appointments"
	"github.com/dmoran/clinica-backend/internal/patients"
	"github.com/dmoran/clinica-backend/internal/payments"
	"github.com/dmoran/clinica-backend/internal/services"
)

func newTestManager(t *testing.T) (*Manager, *patients.InMemoryRepository) {
	t.Helper()
	patientRepo := patients.NewInMemoryRepository()
	exec := NewExecutor(
		patientRepo,
		services.NewInMemoryRepository(),
		appointments.NewInMemoryRepository(),
		payments.NewInMemoryRepository(),
		nil, 0, nil,
	)
	return NewManager(exec, nil, time.Hour, 0, nil), patientRepo
}

func waitForState(t *testing.T, m *Manager, id string, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s, err := m.Get(id)
		require.NoError(t, err)
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session %s never reached state %s", id, want)
}

func TestSessionLifecycle(t *testing.T) {
	m, patientRepo := newTestManager(t)

	s := m.Create(EntityPatients)
	assert.Equal(t, StateUpload, s.State())

	grid, findings, err := m.Upload(s.ID, "nombre_completo,telefono\nAna Pérez,9841234567\nLuis Gómez,9847654321\n")
	require.NoError(t, err)
	assert.Equal(t, StateEdit, s.State())
	assert.Len(t, grid.Rows, 2)
	assert.Empty(t, findings)

	// A second upload on the same session is rejected.
	_, _, err = m.Upload(s.ID, "nombre_completo\nOtra\n")
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, m.StartImport(s.ID, Operator{ID: "op-1", Name: "Claudia"}))
	waitForState(t, m, s.ID, StateCompleted)

	result, state, err := m.Result(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, result.TotalCount, result.SuccessCount+len(result.ErrorMessages))

	all, err := patientRepo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	progress, log, _, err := m.Progress(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Total)
	assert.NotEmpty(t, log)
}

func TestStartImportBlockedByErrors(t *testing.T) {
	m, _ := newTestManager(t)

	s := m.Create(EntityPayments)
	_, findings, err := m.Upload(s.ID, "cliente,monto,metodo_pago\nAna,abc,efectivo\n")
	require.NoError(t, err)
	require.NotEmpty(t, findings)

	err = m.StartImport(s.ID, Operator{ID: "op-1"})
	assert.ErrorIs(t, err, ErrValidationBlocked)
	assert.Equal(t, StateEdit, s.State())

	// Fixing the cell unblocks the start.
	_, err = m.EditCell(s.ID, 0, 1, "350")
	require.NoError(t, err)
	require.NoError(t, m.StartImport(s.ID, Operator{ID: "op-1"}))
	waitForState(t, m, s.ID, StateCompleted)
}

func TestStartImportAllowedWithWarnings(t *testing.T) {
	m, _ := newTestManager(t)

	s := m.Create(EntityPatients)
	_, findings, err := m.Upload(s.ID, "nombre_completo,telefono\nAna Pérez,123\n")
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.Equal(t, SeverityWarning, findings[0].Severity)

	require.NoError(t, m.StartImport(s.ID, Operator{ID: "op-1"}))
	waitForState(t, m, s.ID, StateCompleted)
}

func TestGridMutationsRequireEditState(t *testing.T) {
	m, _ := newTestManager(t)
	s := m.Create(EntityPatients)

	_, err := m.EditCell(s.ID, 0, 0, "x")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = m.AddRow(s.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = m.DeleteRow(s.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = m.ResetEdits(s.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestResetReturnsToUpload(t *testing.T) {
	m, _ := newTestManager(t)

	s := m.Create(EntityPatients)
	_, _, err := m.Upload(s.ID, "nombre_completo\nAna\n")
	require.NoError(t, err)
	require.NoError(t, m.StartImport(s.ID, Operator{ID: "op-1"}))
	waitForState(t, m, s.ID, StateCompleted)

	require.NoError(t, m.Reset(s.ID))
	assert.Equal(t, StateUpload, s.State())

	result, _, err := m.Result(s.ID)
	require.NoError(t, err)
	assert.Nil(t, result)

	// The session accepts a fresh file after reset.
	grid, _, err := m.Upload(s.ID, "nombre_completo\nLuis\n")
	require.NoError(t, err)
	assert.Len(t, grid.Rows, 1)
}

func TestUploadTruncatesToMaxRows(t *testing.T) {
	patientRepo := patients.NewInMemoryRepository()
	exec := NewExecutor(patientRepo, services.NewInMemoryRepository(),
		appointments.NewInMemoryRepository(), payments.NewInMemoryRepository(), nil, 0, nil)
	m := NewManager(exec, nil, time.Hour, 2, nil)

	s := m.Create(EntityPatients)
	grid, _, err := m.Upload(s.ID, "nombre_completo\nAna\nLuis\nMaría\n")
	require.NoError(t, err)
	assert.Len(t, grid.Rows, 2)
}

func TestSessionNotFound(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, _, err = m.Upload("missing", "nombre_completo\nAna\n")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.StartImport("missing", Operator{ID: "op"}), ErrSessionNotFound)
	_, _, _, err = m.Grid("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExpiredSessionsAreEvicted(t *testing.T) {
	m, _ := newTestManager(t)
	m.ttl = time.Millisecond

	s := m.Create(EntityPatients)
	time.Sleep(5 * time.Millisecond)
	m.Create(EntityServices) // triggers lazy eviction

	_, err := m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestActiveSessionSurvivesEviction(t *testing.T) {
	m, _ := newTestManager(t)
	m.ttl = time.Hour

	// A session created long ago but looked up recently stays alive; only
	// the one idle past the TTL goes away.
	active := m.Create(EntityPatients)
	active.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)

	stale := m.Create(EntityServices)
	stale.mu.Lock()
	stale.lastAccess = time.Now().UTC().Add(-2 * time.Hour)
	stale.mu.Unlock()

	m.Create(EntityPayments) // triggers lazy eviction

	_, err := m.Get(active.ID)
	assert.NoError(t, err)
	_, err = m.Get(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRunRecordPersistedToStore(t *testing.T) {
	store := NewMemoryRunStore()
	patientRepo := patients.NewInMemoryRepository()
	exec := NewExecutor(patientRepo, services.NewInMemoryRepository(),
		appointments.NewInMemoryRepository(), payments.NewInMemoryRepository(), nil, 0, nil)
	m := NewManager(exec, store, time.Hour, 0, nil)

	s := m.Create(EntityPatients)
	_, _, err := m.Upload(s.ID, "nombre_completo\nAna Pérez\n")
	require.NoError(t, err)
	require.NoError(t, m.StartImport(s.ID, Operator{ID: "op-1"}))
	waitForState(t, m, s.ID, StateCompleted)

	rec, err := m.LoadRun(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, rec.RunID)
	assert.Equal(t, EntityPatients, rec.Entity)
	require.NotNil(t, rec.Result)
	assert.Equal(t, 1, rec.Result.SuccessCount)
	require.NotNil(t, rec.FinishedAt)
	assert.False(t, rec.StartedAt.IsZero())
}
