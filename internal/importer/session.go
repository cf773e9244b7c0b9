package importer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmoran/clinica-backend/pkg/logging"
)

// State is the import session's position in its linear lifecycle:
// upload → edit → importing → completed, with an explicit reset back to
// upload as the only backward transition.
type State string

const (
	StateUpload    State = "upload"
	StateEdit      State = "edit"
	StateImporting State = "importing"
	StateCompleted State = "completed"
)

// Session owns one staging grid and its run artifacts. Nothing here is
// persisted: discarding the session discards all staged edits.
type Session struct {
	ID        string
	Entity    Entity
	CreatedAt time.Time

	mu         sync.Mutex
	state      State
	grid       *Grid
	reporter   *Reporter
	result     *Result
	lastAccess time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Manager owns all live import sessions and drives runs through the
// executor. Sessions expire after a TTL of inactivity; any lookup refreshes
// the clock, and eviction is lazy.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	executor *Executor
	runs     RunStore
	logger   *logging.Logger
	ttl      time.Duration
	maxRows  int
}

// NewManager creates a session manager.
func NewManager(executor *Executor, runs RunStore, ttl time.Duration, maxRows int, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if maxRows <= 0 {
		maxRows = 5000
	}
	if runs == nil {
		runs = NewMemoryRunStore()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		executor: executor,
		runs:     runs,
		logger:   logger,
		ttl:      ttl,
		maxRows:  maxRows,
	}
}

// Create opens a new session in the upload state.
func (m *Manager) Create(entity Entity) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:         uuid.New().String(),
		Entity:     entity,
		CreatedAt:  now,
		state:      StateUpload,
		lastAccess: now,
	}
	m.mu.Lock()
	m.evictExpiredLocked()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.logger.Info("import session created", "session_id", s.ID, "entity", entity)
	return s
}

// Get returns a live session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictExpiredLocked()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(time.Now().UTC())
	return s, nil
}

// Upload parses file text into the session's staging grid and moves the
// session to the edit state. A failed parse leaves the grid empty and the
// session in upload.
func (m *Manager) Upload(id, fileText string) (*Grid, []ValidationError, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUpload {
		return nil, nil, ErrInvalidState
	}

	doc, err := Parse(fileText)
	if err != nil {
		return nil, nil, err
	}
	if len(doc.Rows) > m.maxRows {
		doc.Rows = doc.Rows[:m.maxRows]
	}

	s.grid = NewGrid(s.Entity, doc)
	s.state = StateEdit
	findings := s.grid.Validate()
	m.logger.Info("file staged",
		"session_id", s.ID,
		"entity", s.Entity,
		"rows", len(s.grid.Rows),
		"findings", len(findings),
	)
	return s.grid, findings, nil
}

// Grid returns the staging grid and current validation findings.
func (m *Manager) Grid(id string) (*Grid, []ValidationError, State, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, nil, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grid == nil {
		return nil, nil, s.state, nil
	}
	return s.grid, s.grid.Validate(), s.state, nil
}

// EditCell applies one cell edit and returns the recomputed findings.
func (m *Manager) EditCell(id string, row, col int, value string) ([]ValidationError, error) {
	return m.mutateGrid(id, func(g *Grid) error {
		return g.EditCell(row, col, value)
	})
}

// AddRow appends an empty row to the grid.
func (m *Manager) AddRow(id string) ([]ValidationError, error) {
	return m.mutateGrid(id, func(g *Grid) error {
		g.AddRow()
		return nil
	})
}

// DeleteRow removes a row from the grid.
func (m *Manager) DeleteRow(id string, row int) ([]ValidationError, error) {
	return m.mutateGrid(id, func(g *Grid) error {
		return g.DeleteRow(row)
	})
}

// ResetEdits restores every cell to its parsed value.
func (m *Manager) ResetEdits(id string) ([]ValidationError, error) {
	return m.mutateGrid(id, func(g *Grid) error {
		g.ResetAll()
		return nil
	})
}

func (m *Manager) mutateGrid(id string, fn func(*Grid) error) ([]ValidationError, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEdit || s.grid == nil {
		return nil, ErrInvalidState
	}
	if err := fn(s.grid); err != nil {
		return nil, err
	}
	return s.grid.Validate(), nil
}

// StartImport snapshots the grid and launches the run. The session moves to
// importing immediately; the run itself proceeds row by row on its own
// goroutine so progress polls observe it advancing.
func (m *Manager) StartImport(id string, op Operator) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEdit || s.grid == nil {
		return ErrInvalidState
	}
	if s.grid.HasBlockingErrors() {
		return ErrValidationBlocked
	}

	snapshot := s.grid.Snapshot()
	s.reporter = NewReporter()
	s.state = StateImporting

	obs := MultiObserver{
		s.reporter,
		NewStoreObserver(m.runs, s.ID, s.Entity, m.logger),
	}

	go func() {
		// The run outlives the HTTP request that started it. There is no
		// cancel surface: rows already inserted stay inserted.
		result := m.executor.Run(context.Background(), s.Entity, snapshot, op, obs)
		s.mu.Lock()
		s.result = result
		s.state = StateCompleted
		s.mu.Unlock()
	}()

	return nil
}

// Progress returns the current progress record and log for a session.
func (m *Manager) Progress(id string) (Progress, []LogEntry, State, error) {
	s, err := m.Get(id)
	if err != nil {
		return Progress{}, nil, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reporter == nil {
		return Progress{}, nil, s.state, nil
	}
	p, log := s.reporter.Snapshot()
	return p, log, s.state, nil
}

// Result returns the final accounting, or nil while the run is in flight.
func (m *Manager) Result(id string) (*Result, State, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.state, nil
}

// Reset discards the staged grid and any finished run, returning the session
// to the upload state so the user can pick a new file.
func (m *Manager) Reset(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateImporting {
		return ErrInvalidState
	}
	s.grid = nil
	s.reporter = nil
	s.result = nil
	s.state = StateUpload
	return nil
}

// LoadRun serves run records straight from the run store, for pollers that
// hit an instance other than the one executing the run.
func (m *Manager) LoadRun(ctx context.Context, runID string) (*RunRecord, error) {
	return m.runs.Load(ctx, runID)
}

func (m *Manager) evictExpiredLocked() {
	cutoff := time.Now().UTC().Add(-m.ttl)
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := s.lastAccess.Before(cutoff) && s.state != StateImporting
		s.mu.Unlock()
		if idle {
			delete(m.sessions, id)
		}
	}
}
