package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmoran/clinica-backend/pkg/logging"
)

// RunRecord is the externally visible state of one import run. The in-memory
// session remains the source of truth; the run store is a read model other
// instances can poll.
type RunRecord struct {
	RunID      string     `json:"run_id"`
	Entity     Entity     `json:"entity"`
	Progress   Progress   `json:"progress"`
	Log        []LogEntry `json:"log"`
	Result     *Result    `json:"result,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunStore persists run records for external consumers.
type RunStore interface {
	Save(ctx context.Context, rec *RunRecord) error
	Load(ctx context.Context, runID string) (*RunRecord, error)
}

// MemoryRunStore keeps run records in process memory.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

// NewMemoryRunStore creates an empty in-memory run store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]*RunRecord)}
}

// Save stores a deep copy of the record.
func (s *MemoryRunStore) Save(ctx context.Context, rec *RunRecord) error {
	cp := *rec
	cp.Log = append([]LogEntry(nil), rec.Log...)
	s.mu.Lock()
	s.runs[rec.RunID] = &cp
	s.mu.Unlock()
	return nil
}

// Load fetches a record by run id.
func (s *MemoryRunStore) Load(ctx context.Context, runID string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	cp := *rec
	cp.Log = append([]LogEntry(nil), rec.Log...)
	return &cp, nil
}

// RedisRunStore publishes run records to Redis as JSON so any instance
// behind the load balancer can serve progress polls.
type RedisRunStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisRunStore creates a run store backed by Redis.
func NewRedisRunStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisRunStore {
	if client == nil {
		panic("importer: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if tracer == nil {
		tracer = otel.Tracer("clinica.internal.importer.runstore")
	}
	return &RedisRunStore{redis: client, ttl: ttl, tracer: tracer}
}

// Save implements RunStore.
func (s *RedisRunStore) Save(ctx context.Context, rec *RunRecord) error {
	ctx, span := s.tracer.Start(ctx, "importer.save_run")
	defer span.End()

	data, err := json.Marshal(rec)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("importer: failed to marshal run record: %w", err)
	}
	if err := s.redis.Set(ctx, runKey(rec.RunID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("importer: failed to persist run record: %w", err)
	}
	return nil
}

// Load implements RunStore.
func (s *RedisRunStore) Load(ctx context.Context, runID string) (*RunRecord, error) {
	ctx, span := s.tracer.Start(ctx, "importer.load_run")
	defer span.End()

	data, err := s.redis.Get(ctx, runKey(runID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrRunNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("importer: failed to load run record: %w", err)
	}

	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("importer: failed to decode run record: %w", err)
	}
	return &rec, nil
}

func runKey(id string) string {
	return fmt.Sprintf("import_run:%s", id)
}

// StoreObserver mirrors executor events into a RunStore. Persistence is
// best-effort: a store outage never disturbs the run itself.
type StoreObserver struct {
	store  RunStore
	rec    RunRecord
	logger *logging.Logger
	now    func() time.Time
}

// NewStoreObserver creates an observer that mirrors one run into the store.
func NewStoreObserver(store RunStore, runID string, entity Entity, logger *logging.Logger) *StoreObserver {
	if logger == nil {
		logger = logging.Default()
	}
	return &StoreObserver{
		store:  store,
		rec:    RunRecord{RunID: runID, Entity: entity},
		logger: logger,
		now:    time.Now,
	}
}

// RunStarted implements Observer.
func (o *StoreObserver) RunStarted(entity Entity, total int) {
	o.rec.StartedAt = o.now().UTC()
	o.rec.Progress = Progress{Total: total, Status: StatusProcessing}
	o.append(fmt.Sprintf("Importación de %s iniciada (%d filas)", entity, total))
	o.flush()
}

// RowStarted implements Observer.
func (o *StoreObserver) RowStarted(index, total int, label string) {
	o.rec.Progress = Progress{
		CurrentIndex: index,
		Total:        total,
		CurrentItem:  label,
		Status:       StatusProcessing,
	}
	o.flush()
}

// RowFinished implements Observer.
func (o *StoreObserver) RowFinished(index, total int, label string, err error) {
	status := StatusSuccess
	msg := fmt.Sprintf("Importado: %s", label)
	if err != nil {
		status = StatusError
		msg = fmt.Sprintf("Error: %s - %s", label, err.Error())
	}
	o.rec.Progress = Progress{
		CurrentIndex: index,
		Total:        total,
		CurrentItem:  label,
		Status:       status,
		Message:      msg,
	}
	o.append(msg)
	o.flush()
}

// RunCompleted implements Observer.
func (o *StoreObserver) RunCompleted(result *Result) {
	finished := o.now().UTC()
	o.rec.Result = result
	o.rec.FinishedAt = &finished
	o.append(fmt.Sprintf("Importación terminada: %d correctos, %d errores de %d",
		result.SuccessCount, len(result.ErrorMessages), result.TotalCount))
	o.flush()
}

func (o *StoreObserver) append(msg string) {
	o.rec.Log = append(o.rec.Log, LogEntry{At: o.now().UTC(), Message: msg})
}

func (o *StoreObserver) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.store.Save(ctx, &o.rec); err != nil {
		o.logger.Warn("failed to persist run record", "run_id", o.rec.RunID, "error", err)
	}
}
