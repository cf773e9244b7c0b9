package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmoran/clinica-backend/internal/appointments"
	"github.com/dmoran/clinica-backend/internal/patients"
	"github.com/dmoran/clinica-backend/internal/payments"
	"github.com/dmoran/clinica-backend/internal/services"
)

// recordingObserver captures the event stream for ordering assertions.
type recordingObserver struct {
	events []string
	result *Result
}

func (r *recordingObserver) RunStarted(entity Entity, total int) {
	r.events = append(r.events, fmt.Sprintf("run_started:%d", total))
}

func (r *recordingObserver) RowStarted(index, total int, label string) {
	r.events = append(r.events, fmt.Sprintf("row_started:%d:%s", index, label))
}

func (r *recordingObserver) RowFinished(index, total int, label string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "err"
	}
	r.events = append(r.events, fmt.Sprintf("row_finished:%d:%s", index, outcome))
}

func (r *recordingObserver) RunCompleted(result *Result) {
	r.events = append(r.events, "run_completed")
	r.result = result
}

type fixture struct {
	patients     *patients.InMemoryRepository
	services     *services.InMemoryRepository
	appointments *appointments.InMemoryRepository
	payments     *payments.InMemoryRepository
	executor     *Executor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		patients:     patients.NewInMemoryRepository(),
		services:     services.NewInMemoryRepository(),
		appointments: appointments.NewInMemoryRepository(),
		payments:     payments.NewInMemoryRepository(),
	}
	f.executor = NewExecutor(f.patients, f.services, f.appointments, f.payments, nil, 0, nil)
	return f
}

func (f *fixture) seedPatient(t *testing.T, name, phone string) *patients.Patient {
	t.Helper()
	p, err := f.patients.Create(context.Background(), &patients.CreatePatientRequest{FullName: name, Phone: phone})
	require.NoError(t, err)
	return p
}

func (f *fixture) seedService(t *testing.T, name string, price float64) *services.Service {
	t.Helper()
	s, err := f.services.Create(context.Background(), &services.CreateServiceRequest{
		Name: name, Zone: "axilas", BasePrice: price,
	})
	require.NoError(t, err)
	return s
}

func rowsFrom(values ...map[string]string) []RowData {
	out := make([]RowData, len(values))
	for i, v := range values {
		out[i] = RowData{SourceRow: i + 2, Values: v}
	}
	return out
}

func TestRunImportsPatients(t *testing.T) {
	f := newFixture(t)
	obs := &recordingObserver{}

	rows := rowsFrom(
		map[string]string{
			"nombre_completo":   "Ana Pérez",
			"telefono":          "9841234567",
			"sexo":              "f",
			"cumpleanos":        "1992-04-15",
			"zonas_tratamiento": "axilas; piernas ;",
			"notas":             "frecuente",
		},
		map[string]string{"nombre": "Luis Gómez"},
	)

	result := f.executor.Run(context.Background(), EntityPatients, rows, Operator{ID: "op-1"}, obs)

	require.Equal(t, 2, result.SuccessCount)
	require.Empty(t, result.ErrorMessages)
	assert.Equal(t, result.TotalCount, result.SuccessCount+len(result.ErrorMessages))

	all, err := f.patients.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)

	ana := all[0]
	assert.Equal(t, "Ana Pérez", ana.FullName)
	assert.Equal(t, "F", ana.Sex)
	assert.Equal(t, []string{"axilas", "piernas"}, ana.TreatmentZones)
	require.NotNil(t, ana.BirthDate)
	assert.Equal(t, 1992, ana.BirthDate.Year())

	// The short header alias works for the name too.
	assert.Equal(t, "Luis Gómez", all[1].FullName)
}

func TestRunContinuesAfterRowFailure(t *testing.T) {
	f := newFixture(t)
	f.seedPatient(t, "Ana Pérez", "9841234567")
	obs := &recordingObserver{}

	rows := rowsFrom(
		map[string]string{"cliente": "Ana", "monto": "350", "metodo_pago": "efectivo"},
		map[string]string{"cliente": "Desconocida", "monto": "500", "metodo_pago": "clip"},
		map[string]string{"cliente": "Pérez", "monto": "600", "metodo_pago": "bbva"},
	)

	result := f.executor.Run(context.Background(), EntityPayments, rows, Operator{ID: "op-1"}, obs)

	assert.Equal(t, 2, result.SuccessCount)
	require.Len(t, result.ErrorMessages, 1)
	assert.Equal(t, result.TotalCount, result.SuccessCount+len(result.ErrorMessages))

	// The failure carries the 1-based file row, counting the header line.
	assert.Contains(t, result.ErrorMessages[0], "Fila 3")
	assert.Contains(t, result.ErrorMessages[0], `no se encontró el paciente "Desconocida"`)

	// Every row got its start/finish pair in order, failure included.
	assert.Equal(t, []string{
		"run_started:3",
		"row_started:0:Ana", "row_finished:0:ok",
		"row_started:1:Desconocida", "row_finished:1:err",
		"row_started:2:Pérez", "row_finished:2:ok",
		"run_completed",
	}, obs.events)
	assert.Same(t, result, obs.result)
}

func TestRunResolvesPatientByPhoneFallback(t *testing.T) {
	f := newFixture(t)
	seeded := f.seedPatient(t, "Ana Pérez", "9841234567")

	rows := rowsFrom(map[string]string{
		"cliente":     "A. Perez",
		"telefono":    "9841234567",
		"monto":       "350",
		"metodo_pago": "Efectivo",
		"fecha_pago":  "2026-03-15",
	})

	result := f.executor.Run(context.Background(), EntityPayments, rows, Operator{ID: "caja-1"}, &recordingObserver{})
	require.Equal(t, 1, result.SuccessCount)

	day, err := f.payments.ListByDay(context.Background(), time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, seeded.ID, day[0].PatientID)
	assert.Equal(t, "efectivo", day[0].Method)
	assert.Equal(t, "caja-1", day[0].CashierID)
}

func TestRunRejectsNonFiniteAmounts(t *testing.T) {
	f := newFixture(t)
	f.seedPatient(t, "Ana Pérez", "9841234567")

	rows := rowsFrom(
		map[string]string{"cliente": "Ana", "monto": "NaN", "metodo_pago": "efectivo", "fecha_pago": "2026-03-15"},
		map[string]string{"cliente": "Ana", "monto": "+Inf", "metodo_pago": "efectivo", "fecha_pago": "2026-03-15"},
	)

	result := f.executor.Run(context.Background(), EntityPayments, rows, Operator{ID: "caja-1"}, &recordingObserver{})

	assert.Equal(t, 0, result.SuccessCount)
	require.Len(t, result.ErrorMessages, 2)
	for _, msg := range result.ErrorMessages {
		assert.Contains(t, msg, "el monto debe ser un número mayor a 0")
	}
	assert.Equal(t, result.TotalCount, result.SuccessCount+len(result.ErrorMessages))

	day, err := f.payments.ListByDay(context.Background(), time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, day)

	svcResult := f.executor.Run(context.Background(), EntityServices, rowsFrom(
		map[string]string{"nombre": "Depilación axilas", "zona": "axilas", "precio_base": "Infinity"},
	), Operator{ID: "op-1"}, &recordingObserver{})
	assert.Equal(t, 0, svcResult.SuccessCount)
	require.Len(t, svcResult.ErrorMessages, 1)
	assert.Contains(t, svcResult.ErrorMessages[0], "el precio base debe ser un número mayor a 0")
}

func TestRunImportsAppointmentsWithDefaults(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient(t, "Ana Pérez", "9841234567")
	svc := f.seedService(t, "Depilación axilas", 350)

	rows := rowsFrom(
		map[string]string{"cliente": "Ana", "servicio": "axilas", "fecha_hora": "2026-03-15 10:30"},
		map[string]string{"cliente": "Ana", "servicio": "Depilación", "fecha_hora": "15/03/2026 12:00", "numero_sesion": "4", "precio_sesion": "300"},
		map[string]string{"cliente": "Ana", "servicio": "masaje", "fecha_hora": "2026-03-16"},
	)

	result := f.executor.Run(context.Background(), EntityAppointments, rows, Operator{ID: "op-7"}, &recordingObserver{})

	assert.Equal(t, 2, result.SuccessCount)
	require.Len(t, result.ErrorMessages, 1)
	assert.Contains(t, result.ErrorMessages[0], `no se encontró el servicio "masaje"`)

	day, err := f.appointments.ListByDay(context.Background(), time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, day, 2)

	first := day[0]
	assert.Equal(t, patient.ID, first.PatientID)
	assert.Equal(t, svc.ID, first.ServiceID)
	assert.Equal(t, 1, first.SessionNumber)
	assert.Equal(t, appointments.StatusScheduled, first.Status)
	assert.Equal(t, svc.BasePrice, first.SessionPrice)
	assert.Equal(t, "op-7", first.OperatorID)

	assert.Equal(t, 4, day[1].SessionNumber)
	assert.Equal(t, 300.0, day[1].SessionPrice)
}

func TestRunImportsServicesWithDefaults(t *testing.T) {
	f := newFixture(t)

	rows := rowsFrom(
		map[string]string{"nombre": "Depilación piernas", "zona": "piernas", "precio_base": "600"},
		map[string]string{"nombre": "Depilación brazos", "zona": "brazos", "precio": "400", "duracion_minutos": "45", "sesiones_recomendadas": "8", "tecnologia": "Diodo"},
		map[string]string{"nombre": "Sin precio", "zona": "espalda", "precio_base": "-1"},
	)

	result := f.executor.Run(context.Background(), EntityServices, rows, Operator{ID: "op-1"}, &recordingObserver{})

	assert.Equal(t, 2, result.SuccessCount)
	require.Len(t, result.ErrorMessages, 1)
	assert.Contains(t, result.ErrorMessages[0], "precio base")

	all, err := f.services.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, services.DefaultDurationMinutes, all[0].DurationMinutes)
	assert.Equal(t, services.DefaultRecommendedSessions, all[0].RecommendedSessions)
	assert.Equal(t, services.DefaultTechnology, all[0].Technology)
	assert.True(t, all[0].Active)

	assert.Equal(t, 45, all[1].DurationMinutes)
	assert.Equal(t, 8, all[1].RecommendedSessions)
	assert.Equal(t, "Diodo", all[1].Technology)
}

func TestRunCancelledContextAccountsAllRows(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := rowsFrom(
		map[string]string{"nombre_completo": "Ana"},
		map[string]string{"nombre_completo": "Luis"},
	)

	result := f.executor.Run(ctx, EntityPatients, rows, Operator{ID: "op-1"}, &recordingObserver{})

	assert.Equal(t, 0, result.SuccessCount)
	require.Len(t, result.ErrorMessages, 2)
	assert.Equal(t, result.TotalCount, result.SuccessCount+len(result.ErrorMessages))
	for _, msg := range result.ErrorMessages {
		assert.True(t, strings.Contains(msg, "interrumpida"), msg)
	}

	all, err := f.patients.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRunEmptyRowSetCompletesCleanly(t *testing.T) {
	f := newFixture(t)
	obs := &recordingObserver{}

	result := f.executor.Run(context.Background(), EntityPatients, nil, Operator{ID: "op-1"}, obs)

	assert.Equal(t, 0, result.TotalCount)
	assert.Equal(t, []string{"run_started:0", "run_completed"}, obs.events)
}
