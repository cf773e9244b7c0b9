package importer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmoran/clinica-backend/internal/payments"
)

// Severity classifies a validation finding. Errors block the import start,
// warnings are advisory only.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// CellValidation is the verdict for a single cell.
type CellValidation struct {
	Valid    bool     `json:"valid"`
	Message  string   `json:"message,omitempty"`
	Severity Severity `json:"severity,omitempty"`
}

// ValidationError locates one invalid cell in the staging grid.
type ValidationError struct {
	Row      int      `json:"row"`
	Column   string   `json:"column"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

var validCell = CellValidation{Valid: true}

func invalidCell(severity Severity, format string, args ...any) CellValidation {
	return CellValidation{Valid: false, Message: fmt.Sprintf(format, args...), Severity: severity}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateCell applies the field rule for one cell. Column name dispatch
// picks the rule; the entity type only determines which columns are required.
// Non-required blank cells are always valid.
func ValidateCell(entity Entity, column, value string) CellValidation {
	value = strings.TrimSpace(value)

	if value == "" {
		if isRequired(entity, column) {
			return invalidCell(SeverityError, "El campo %s es obligatorio", column)
		}
		return validCell
	}

	switch column {
	case "telefono":
		digits := countDigits(value)
		if digits < 10 || digits > 15 {
			return invalidCell(SeverityWarning, "El teléfono debe tener entre 10 y 15 dígitos")
		}
	case "sexo":
		switch value {
		case "M", "F", "m", "f":
		default:
			return invalidCell(SeverityError, "Sexo debe ser M o F")
		}
	case "monto", "precio_base", "precio_total", "precio_sesion":
		if _, ok := parseAmount(value); !ok {
			return invalidCell(SeverityError, "%s debe ser un número mayor a 0", column)
		}
	case "metodo_pago":
		if !payments.ValidMethod(value) {
			return invalidCell(SeverityWarning, "Método de pago no reconocido: %s", value)
		}
	case "fecha_hora", "fecha_pago", "cumpleanos":
		if _, ok := parseDate(value); !ok {
			return invalidCell(SeverityError, "Fecha inválida: %s", value)
		}
	case "numero_sesion", "duracion_minutos", "sesiones_recomendadas":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return invalidCell(SeverityError, "%s debe ser un entero mayor o igual a 1", column)
		}
	case "email":
		if !emailPattern.MatchString(value) {
			return invalidCell(SeverityError, "Correo electrónico inválido: %s", value)
		}
	}

	return validCell
}

// ValidateGrid runs the field validator over every cell and returns the full
// list of findings. It recomputes from scratch on every call and stamps
// blocking errors back onto the cells for inline display.
func ValidateGrid(g *Grid) []ValidationError {
	var out []ValidationError
	for ri := range g.Rows {
		row := &g.Rows[ri]
		for ci, header := range g.Headers {
			if ci >= len(row.Cells) {
				break
			}
			cell := &row.Cells[ci]
			v := ValidateCell(g.Entity, header, cell.Value)
			if v.Valid {
				cell.HasError = false
				cell.ErrorMessage = ""
				continue
			}
			if v.Severity == SeverityError {
				cell.HasError = true
				cell.ErrorMessage = v.Message
			} else {
				cell.HasError = false
				cell.ErrorMessage = ""
			}
			out = append(out, ValidationError{
				Row:      ri,
				Column:   header,
				Message:  v.Message,
				Severity: v.Severity,
			})
		}
	}
	return out
}

// parseAmount parses a money value, accepting only finite numbers greater
// than zero. strconv.ParseFloat admits "NaN" and "Inf" spellings, which must
// never reach the stores or a SUM over them.
func parseAmount(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0, false
	}
	return n, true
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// dateLayouts covers the formats clinic staff actually paste into the grid.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02T15:04",
}

// parseDate tries each accepted layout in order.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
