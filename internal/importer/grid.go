package importer

// Cell is one editable value in the staging grid. The original parse value is
// kept so edits can be reverted without re-reading the file.
type Cell struct {
	Value         string `json:"value"`
	OriginalValue string `json:"original_value"`
	HasError      bool   `json:"has_error"`
	ErrorMessage  string `json:"error_message,omitempty"`
	IsEdited      bool   `json:"is_edited"`
}

// Row is an ordered sequence of cells, one per header column.
type Row struct {
	Cells []Cell `json:"cells"`
}

// Grid is the in-memory staging table built from a parsed file. It is owned
// by a single import session and never persisted.
type Grid struct {
	Entity  Entity   `json:"entity"`
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// NewGrid builds a staging grid from a parsed document, one cell per
// (row, column) with value == original value.
func NewGrid(entity Entity, doc *Document) *Grid {
	g := &Grid{Entity: entity, Headers: doc.Headers}
	g.Rows = make([]Row, len(doc.Rows))
	for ri, raw := range doc.Rows {
		cells := make([]Cell, len(doc.Headers))
		for ci := range doc.Headers {
			var v string
			if ci < len(raw) {
				v = raw[ci]
			}
			cells[ci] = Cell{Value: v, OriginalValue: v}
		}
		g.Rows[ri] = Row{Cells: cells}
	}
	return g
}

// EditCell sets a new value, recomputes the edited flag and validates the
// cell in place. Callers re-run Validate for the aggregate view.
func (g *Grid) EditCell(row, col int, value string) error {
	if row < 0 || row >= len(g.Rows) || col < 0 || col >= len(g.Headers) {
		return ErrRowOutOfRange
	}
	cell := &g.Rows[row].Cells[col]
	cell.Value = value
	cell.IsEdited = value != cell.OriginalValue

	v := ValidateCell(g.Entity, g.Headers[col], value)
	if !v.Valid && v.Severity == SeverityError {
		cell.HasError = true
		cell.ErrorMessage = v.Message
	} else {
		cell.HasError = false
		cell.ErrorMessage = ""
	}
	return nil
}

// AddRow appends a row of empty cells matching the current header count.
// The new cells count as unedited: their original value is the empty string.
func (g *Grid) AddRow() {
	g.Rows = append(g.Rows, Row{Cells: make([]Cell, len(g.Headers))})
}

// DeleteRow removes the row at the given index.
func (g *Grid) DeleteRow(row int) error {
	if row < 0 || row >= len(g.Rows) {
		return ErrRowOutOfRange
	}
	g.Rows = append(g.Rows[:row], g.Rows[row+1:]...)
	return nil
}

// ResetAll restores every cell to its original value and clears the error
// and edited flags.
func (g *Grid) ResetAll() {
	for ri := range g.Rows {
		for ci := range g.Rows[ri].Cells {
			cell := &g.Rows[ri].Cells[ci]
			cell.Value = cell.OriginalValue
			cell.HasError = false
			cell.ErrorMessage = ""
			cell.IsEdited = false
		}
	}
}

// Validate recomputes the full finding list for the current grid content.
func (g *Grid) Validate() []ValidationError {
	return ValidateGrid(g)
}

// HasBlockingErrors reports whether any finding of error severity remains.
func (g *Grid) HasBlockingErrors() bool {
	for _, e := range g.Validate() {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Snapshot flattens the grid into header-keyed row maps for the executor.
// Source row numbers count from the original file: the header is line 1, so
// data row i maps to line i+2.
func (g *Grid) Snapshot() []RowData {
	out := make([]RowData, len(g.Rows))
	for ri := range g.Rows {
		values := make(map[string]string, len(g.Headers))
		for ci, header := range g.Headers {
			if ci < len(g.Rows[ri].Cells) {
				values[header] = g.Rows[ri].Cells[ci].Value
			}
		}
		out[ri] = RowData{SourceRow: ri + 2, Values: values}
	}
	return out
}
