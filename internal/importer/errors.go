package importer

import "errors"

var (
	// ErrEmptyFile is returned when the uploaded file has no content lines
	ErrEmptyFile = errors.New("el archivo está vacío")

	// ErrNoDataRows is returned when the file has a header but no data rows
	ErrNoDataRows = errors.New("el archivo no contiene filas de datos")

	// ErrUnknownEntity is returned for an unrecognized import target
	ErrUnknownEntity = errors.New("unknown import entity")

	// ErrSessionNotFound is returned when no import session matches the id
	ErrSessionNotFound = errors.New("import session not found")

	// ErrInvalidState is returned when an operation does not apply to the
	// session's current state
	ErrInvalidState = errors.New("operation not allowed in current session state")

	// ErrValidationBlocked is returned when an import start is attempted
	// while blocking validation errors remain
	ErrValidationBlocked = errors.New("resolve validation errors before importing")

	// ErrRowOutOfRange is returned for an edit targeting a missing row or column
	ErrRowOutOfRange = errors.New("row or column out of range")

	// ErrRunNotFound is returned when no import run matches the id
	ErrRunNotFound = errors.New("import run not found")
)
