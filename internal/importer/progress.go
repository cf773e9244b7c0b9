package importer

import (
	"fmt"
	"sync"
	"time"
)

// Status describes what the executor is doing with the current row.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Progress is the single current-progress record the UI polls during a run.
// It is overwritten on every row event and superseded by the Result once the
// run completes.
type Progress struct {
	CurrentIndex int    `json:"current_index"`
	Total        int    `json:"total"`
	CurrentItem  string `json:"current_item"`
	Status       Status `json:"status"`
	Message      string `json:"message"`
}

// LogEntry is one timestamped line in the import log.
type LogEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Reporter collects progress and log lines from executor events. It is
// purely observational and safe for concurrent reads while a run advances.
type Reporter struct {
	mu       sync.Mutex
	progress Progress
	log      []LogEntry
	result   *Result
	now      func() time.Time
}

// NewReporter creates an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{now: time.Now}
}

// RunStarted implements Observer.
func (r *Reporter) RunStarted(entity Entity, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = Progress{Total: total, Status: StatusProcessing, Message: "Iniciando importación"}
	r.result = nil
	r.appendLocked(fmt.Sprintf("Importación de %s iniciada (%d filas)", entity, total))
}

// RowStarted implements Observer.
func (r *Reporter) RowStarted(index, total int, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = Progress{
		CurrentIndex: index,
		Total:        total,
		CurrentItem:  label,
		Status:       StatusProcessing,
		Message:      fmt.Sprintf("Procesando %d de %d", index+1, total),
	}
	r.appendLocked(fmt.Sprintf("Procesando: %s", label))
}

// RowFinished implements Observer.
func (r *Reporter) RowFinished(index, total int, label string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.progress = Progress{
			CurrentIndex: index,
			Total:        total,
			CurrentItem:  label,
			Status:       StatusError,
			Message:      err.Error(),
		}
		r.appendLocked(fmt.Sprintf("Error: %s - %s", label, err.Error()))
		return
	}
	r.progress = Progress{
		CurrentIndex: index,
		Total:        total,
		CurrentItem:  label,
		Status:       StatusSuccess,
		Message:      fmt.Sprintf("%s importado", label),
	}
	r.appendLocked(fmt.Sprintf("Importado: %s", label))
}

// RunCompleted implements Observer.
func (r *Reporter) RunCompleted(result *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = result
	r.appendLocked(fmt.Sprintf("Importación terminada: %d correctos, %d errores de %d",
		result.SuccessCount, len(result.ErrorMessages), result.TotalCount))
}

// Snapshot returns the current progress record and a copy of the log.
func (r *Reporter) Snapshot() (Progress, []LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log := make([]LogEntry, len(r.log))
	copy(log, r.log)
	return r.progress, log
}

// Result returns the final accounting, or nil while the run is in flight.
func (r *Reporter) Result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

func (r *Reporter) appendLocked(msg string) {
	r.log = append(r.log, LogEntry{At: r.now().UTC(), Message: msg})
}

// MultiObserver fans executor events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) RunStarted(entity Entity, total int) {
	for _, o := range m {
		o.RunStarted(entity, total)
	}
}

func (m MultiObserver) RowStarted(index, total int, label string) {
	for _, o := range m {
		o.RowStarted(index, total, label)
	}
}

func (m MultiObserver) RowFinished(index, total int, label string, err error) {
	for _, o := range m {
		o.RowFinished(index, total, label, err)
	}
}

func (m MultiObserver) RunCompleted(result *Result) {
	for _, o := range m {
		o.RunCompleted(result)
	}
}
