package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmoran/clinica-backend/internal/appointments"
	"github.com/dmoran/clinica-backend/internal/http/middleware"
	"github.com/dmoran/clinica-backend/internal/importer"
	"github.com/dmoran/clinica-backend/internal/patients"
	"github.com/dmoran/clinica-backend/internal/payments"
	"github.com/dmoran/clinica-backend/internal/services"
)

const testSecret = "test-secret"

func signToken(t *testing.T, subject string) string {
	t.Helper()
	claims := middleware.OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: "Claudia",
		Role: "recepcion",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	patientRepo := patients.NewInMemoryRepository()
	serviceRepo := services.NewInMemoryRepository()
	appointmentRepo := appointments.NewInMemoryRepository()
	paymentRepo := payments.NewInMemoryRepository()

	exec := importer.NewExecutor(patientRepo, serviceRepo, appointmentRepo, paymentRepo, nil, 0, nil)
	manager := importer.NewManager(exec, nil, time.Hour, 0, nil)

	return New(&Config{
		PatientsHandler:     patients.NewHandler(patientRepo, nil),
		ServicesHandler:     services.NewHandler(serviceRepo, nil),
		AppointmentsHandler: appointments.NewHandler(appointmentRepo, nil),
		PaymentsHandler:     payments.NewHandler(paymentRepo, nil),
		ImportHandler:       importer.NewHandler(manager, nil),
		OperatorJWTSecret:   testSecret,
		MetricsHandler:      promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  []string{"http://localhost:5173"},
	})
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTemplateDownloadIsPublic(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/import/templates/patients", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "plantilla_pacientes.csv")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/patients", "/services", "/appointments", "/payments", "/import/sessions/x"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	// A token signed with the wrong key is rejected too.
	bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "op"}).
		SignedString([]byte("other-secret"))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set("Authorization", "Bearer "+bad)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestImportFlowThroughRouter(t *testing.T) {
	r := newTestRouter(t)
	token := signToken(t, "op-1")

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/import/sessions", map[string]string{
		"entity":  "patients",
		"content": "nombre_completo,telefono\nAna Pérez,9841234567\n",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)

	rec = do(http.MethodPost, "/import/sessions/"+created.SessionID+"/import", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Poll until the run finishes and the patient shows up in the directory.
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = do(http.MethodGet, "/import/sessions/"+created.SessionID+"/result", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Result *importer.Result `json:"result"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		if body.Result != nil {
			assert.Equal(t, 1, body.Result.SuccessCount)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("import never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec = do(http.MethodGet, "/patients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []patients.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Ana Pérez", list[0].FullName)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/patients", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
