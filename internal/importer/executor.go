package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmoran/clinica-backend/internal/appointments"
	"github.com/dmoran/clinica-backend/internal/observability/metrics"
	"github.com/dmoran/clinica-backend/internal/patients"
	"github.com/dmoran/clinica-backend/internal/payments"
	"github.com/dmoran/clinica-backend/internal/services"
	"github.com/dmoran/clinica-backend/pkg/logging"
)

// Operator identifies the logged-in employee running the import. It is
// threaded explicitly into the run so inserted records carry the right
// cashier/operator stamp.
type Operator struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Observer receives import lifecycle events. The progress reporter is one
// subscriber; a test harness can be another.
type Observer interface {
	RunStarted(entity Entity, total int)
	RowStarted(index, total int, label string)
	RowFinished(index, total int, label string, err error)
	RunCompleted(result *Result)
}

// Result accumulates one run's accounting. Every row ends up either in the
// success count or in the error list, never both and never neither.
type Result struct {
	SuccessCount  int      `json:"success_count"`
	ErrorMessages []string `json:"error_messages"`
	TotalCount    int      `json:"total_count"`
}

// PatientDirectory is the patient store surface the executor needs.
type PatientDirectory interface {
	Create(ctx context.Context, req *patients.CreatePatientRequest) (*patients.Patient, error)
	SearchByName(ctx context.Context, name string) (*patients.Patient, error)
	GetByPhone(ctx context.Context, phone string) (*patients.Patient, error)
}

// ServiceCatalog is the treatments catalog surface the executor needs.
type ServiceCatalog interface {
	Create(ctx context.Context, req *services.CreateServiceRequest) (*services.Service, error)
	SearchActiveByName(ctx context.Context, name string) (*services.Service, error)
}

// AppointmentBook persists imported appointments.
type AppointmentBook interface {
	Create(ctx context.Context, req *appointments.CreateAppointmentRequest) (*appointments.Appointment, error)
}

// CashRegister persists imported payments.
type CashRegister interface {
	Create(ctx context.Context, req *payments.CreatePaymentRequest) (*payments.Payment, error)
}

// Executor converts staged rows into store inserts, one entity type per run.
// Rows are processed strictly in order with at most one insert attempt each;
// a row failure never aborts the run.
type Executor struct {
	patients     PatientDirectory
	services     ServiceCatalog
	appointments AppointmentBook
	payments     CashRegister
	logger       *logging.Logger
	metrics      *metrics.ImportMetrics

	// rowPause keeps the UI responsive between rows; it carries no
	// correctness guarantee.
	rowPause time.Duration
}

// NewExecutor wires the executor to its stores.
func NewExecutor(
	patientDir PatientDirectory,
	catalog ServiceCatalog,
	book AppointmentBook,
	register CashRegister,
	m *metrics.ImportMetrics,
	rowPause time.Duration,
	logger *logging.Logger,
) *Executor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Executor{
		patients:     patientDir,
		services:     catalog,
		appointments: book,
		payments:     register,
		metrics:      m,
		rowPause:     rowPause,
		logger:       logger,
	}
}

// Run processes all staged rows for one entity type and returns the run's
// accounting. The observer is invoked synchronously between store calls.
func (e *Executor) Run(ctx context.Context, entity Entity, rows []RowData, op Operator, obs Observer) *Result {
	start := time.Now()
	result := &Result{TotalCount: len(rows)}
	obs.RunStarted(entity, len(rows))
	e.logger.Info("import run started", "entity", entity, "rows", len(rows), "operator", op.ID)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			// Account for every remaining row so the summary still adds up.
			for _, left := range rows[i:] {
				result.ErrorMessages = append(result.ErrorMessages,
					fmt.Sprintf("Fila %d: importación interrumpida", left.SourceRow))
			}
			e.logger.Error("import run interrupted", "entity", entity, "row", i, "error", err)
			break
		}

		label := e.rowLabel(entity, row)
		obs.RowStarted(i, len(rows), label)

		err := e.importRow(ctx, entity, row, op)
		if err != nil {
			result.ErrorMessages = append(result.ErrorMessages,
				fmt.Sprintf("Fila %d: %s", row.SourceRow, err.Error()))
			e.logger.Warn("import row failed", "entity", entity, "source_row", row.SourceRow, "error", err)
		} else {
			result.SuccessCount++
		}
		e.metrics.ObserveRow(string(entity), err == nil)
		obs.RowFinished(i, len(rows), label, err)

		if e.rowPause > 0 && i < len(rows)-1 {
			select {
			case <-time.After(e.rowPause):
			case <-ctx.Done():
			}
		}
	}

	obs.RunCompleted(result)
	e.metrics.ObserveRun(string(entity), time.Since(start))
	e.logger.Info("import run completed",
		"entity", entity,
		"success", result.SuccessCount,
		"errors", len(result.ErrorMessages),
		"total", result.TotalCount,
	)
	return result
}

func (e *Executor) rowLabel(entity Entity, row RowData) string {
	var label string
	switch entity {
	case EntityPatients:
		label = row.First(patientNameAliases...)
	case EntityPayments, EntityAppointments:
		label = row.First(clientAliases...)
	case EntityServices:
		label = row.First("nombre", "servicio")
	}
	if label == "" {
		label = fmt.Sprintf("fila %d", row.SourceRow)
	}
	return label
}

func (e *Executor) importRow(ctx context.Context, entity Entity, row RowData, op Operator) error {
	switch entity {
	case EntityPatients:
		return e.importPatient(ctx, row)
	case EntityPayments:
		return e.importPayment(ctx, row, op)
	case EntityAppointments:
		return e.importAppointment(ctx, row, op)
	case EntityServices:
		return e.importService(ctx, row)
	}
	return ErrUnknownEntity
}

func (e *Executor) importPatient(ctx context.Context, row RowData) error {
	name := row.First(patientNameAliases...)
	if name == "" {
		return fmt.Errorf("el nombre del paciente es obligatorio")
	}

	req := &patients.CreatePatientRequest{
		FullName:       name,
		Phone:          row.First("telefono"),
		Sex:            normalizeSex(row.First("sexo")),
		TreatmentZones: splitZones(row.First(zoneListAliases...)),
		Notes:          row.First("notas"),
	}
	if t, ok := parseDate(row.First(birthDateAliases...)); ok {
		birth := t.Truncate(24 * time.Hour)
		req.BirthDate = &birth
	}

	if _, err := e.patients.Create(ctx, req); err != nil {
		return fmt.Errorf("no se pudo guardar el paciente: %s", err.Error())
	}
	return nil
}

func (e *Executor) importPayment(ctx context.Context, row RowData, op Operator) error {
	patient, err := e.resolvePatient(ctx, row)
	if err != nil {
		return err
	}

	amount, ok := parseAmount(row.First("monto"))
	if !ok {
		return fmt.Errorf("el monto debe ser un número mayor a 0")
	}

	method := strings.ToLower(row.First("metodo_pago"))
	if !payments.ValidMethod(method) {
		return fmt.Errorf("método de pago inválido: %s", row.First("metodo_pago"))
	}

	req := &payments.CreatePaymentRequest{
		PatientID: patient.ID,
		Amount:    amount,
		Method:    method,
		Concept:   row.First("concepto"),
		CashierID: op.ID,
	}
	if t, ok := parseDate(row.First("fecha_pago")); ok {
		req.PaidAt = t
	}

	if _, err := e.payments.Create(ctx, req); err != nil {
		return fmt.Errorf("no se pudo guardar el pago: %s", err.Error())
	}
	return nil
}

func (e *Executor) importAppointment(ctx context.Context, row RowData, op Operator) error {
	patient, err := e.resolvePatient(ctx, row)
	if err != nil {
		return err
	}

	svcName := row.First(serviceAliases...)
	if svcName == "" {
		return fmt.Errorf("el servicio es obligatorio")
	}
	svc, err := e.services.SearchActiveByName(ctx, svcName)
	if err != nil {
		return fmt.Errorf("no se encontró el servicio \"%s\"", svcName)
	}

	when, ok := parseDate(row.First(dateTimeAliases...))
	if !ok {
		return fmt.Errorf("fecha inválida: %s", row.First(dateTimeAliases...))
	}

	req := &appointments.CreateAppointmentRequest{
		PatientID:    patient.ID,
		ServiceID:    svc.ID,
		ScheduledAt:  when,
		SessionPrice: svc.BasePrice,
		OperatorID:   op.ID,
	}
	if n, err := strconv.Atoi(row.First("numero_sesion")); err == nil && n >= 1 {
		req.SessionNumber = n
	}
	if p, ok := parseAmount(row.First("precio_sesion")); ok {
		req.SessionPrice = p
	}

	if _, err := e.appointments.Create(ctx, req); err != nil {
		return fmt.Errorf("no se pudo guardar la cita: %s", err.Error())
	}
	return nil
}

func (e *Executor) importService(ctx context.Context, row RowData) error {
	name := row.First("nombre", "servicio")
	zone := row.First("zona")
	if name == "" || zone == "" {
		return fmt.Errorf("el nombre y la zona son obligatorios")
	}

	price, ok := parseAmount(row.First(basePriceAliases...))
	if !ok {
		return fmt.Errorf("el precio base debe ser un número mayor a 0")
	}

	req := &services.CreateServiceRequest{
		Name:       name,
		Zone:       zone,
		BasePrice:  price,
		Technology: row.First("tecnologia"),
	}
	if n, err := strconv.Atoi(row.First("duracion_minutos")); err == nil && n >= 1 {
		req.DurationMinutes = n
	}
	if n, err := strconv.Atoi(row.First("sesiones_recomendadas")); err == nil && n >= 1 {
		req.RecommendedSessions = n
	}

	if _, err := e.services.Create(ctx, req); err != nil {
		return fmt.Errorf("no se pudo guardar el servicio: %s", err.Error())
	}
	return nil
}

// resolvePatient finds the target patient by case-insensitive partial match
// on the name columns, falling back to an exact phone match. First match
// wins; ambiguity is resolved by record age, matching how the booking pages
// behave.
func (e *Executor) resolvePatient(ctx context.Context, row RowData) (*patients.Patient, error) {
	name := row.First(clientAliases...)
	if name != "" {
		if p, err := e.patients.SearchByName(ctx, name); err == nil {
			return p, nil
		}
	}
	if phone := row.First("telefono"); phone != "" {
		if p, err := e.patients.GetByPhone(ctx, phone); err == nil {
			return p, nil
		}
	}
	if name == "" {
		name = row.First("telefono")
	}
	return nil, fmt.Errorf("no se encontró el paciente \"%s\"", name)
}

func normalizeSex(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M":
		return "M"
	case "F":
		return "F"
	}
	return ""
}

// splitZones parses a semicolon-delimited zone list, trimming entries and
// dropping empties.
func splitZones(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
