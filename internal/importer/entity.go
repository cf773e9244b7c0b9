package importer

import "strings"

// Entity selects which header set, validation rules and row importer apply to
// an import session.
type Entity string

const (
	EntityPatients     Entity = "patients"
	EntityPayments     Entity = "payments"
	EntityAppointments Entity = "appointments"
	EntityServices     Entity = "services"
)

// ParseEntity maps a request string to a known entity type.
func ParseEntity(s string) (Entity, error) {
	switch Entity(strings.ToLower(strings.TrimSpace(s))) {
	case EntityPatients:
		return EntityPatients, nil
	case EntityPayments:
		return EntityPayments, nil
	case EntityAppointments:
		return EntityAppointments, nil
	case EntityServices:
		return EntityServices, nil
	}
	return "", ErrUnknownEntity
}

// requiredColumns lists the headers that must be non-blank for each entity.
var requiredColumns = map[Entity][]string{
	EntityPatients:     {"nombre_completo"},
	EntityPayments:     {"cliente", "monto", "metodo_pago"},
	EntityAppointments: {"cliente", "servicio", "fecha_hora"},
	EntityServices:     {"nombre", "zona", "precio_base"},
}

// Field alias tables: ordered candidate headers tried in priority order when
// the executor reads a logical field off a row. Legacy exports used shorter
// header names, so each logical field accepts several spellings.
var (
	patientNameAliases = []string{"nombre_completo", "nombre"}
	clientAliases      = []string{"cliente", "paciente", "nombre_completo"}
	serviceAliases     = []string{"servicio", "tratamiento"}
	dateTimeAliases    = []string{"fecha_hora", "fecha"}
	birthDateAliases   = []string{"cumpleanos", "fecha_nacimiento"}
	zoneListAliases    = []string{"zonas_tratamiento", "zonas"}
	basePriceAliases   = []string{"precio_base", "precio"}
)

// RowData is one staging row flattened to header-keyed values, tagged with the
// row number it occupied in the uploaded file (header line is row 1).
type RowData struct {
	SourceRow int
	Values    map[string]string
}

// First returns the first non-blank value among the candidate headers.
func (r RowData) First(candidates ...string) string {
	for _, c := range candidates {
		if v := strings.TrimSpace(r.Values[c]); v != "" {
			return v
		}
	}
	return ""
}

func isRequired(entity Entity, column string) bool {
	for _, c := range requiredColumns[entity] {
		if c == column {
			return true
		}
	}
	return false
}
