package importer

import "strings"

// Document is the output of the CSV splitter: a fixed header row plus data
// rows already padded or truncated to the header length.
type Document struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Parse splits raw file text into a header row and data rows.
//
// This is the naive splitter the clinic's exports need: cells are separated
// by commas, trimmed, and stripped of surrounding double quotes. Commas or
// line breaks embedded inside quoted fields are NOT supported; substituting a
// full CSV tokenizer behind this contract would not change any downstream
// shape.
func Parse(text string) (*Document, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyFile
	}

	headers := splitCells(lines[0])

	var rows [][]string
	for _, line := range lines[1:] {
		cells := splitCells(line)
		if allBlank(cells) {
			continue
		}
		rows = append(rows, fitToWidth(cells, len(headers)))
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}

	return &Document{Headers: headers, Rows: rows}, nil
}

func splitCells(line string) []string {
	parts := strings.Split(line, ",")
	cells := make([]string, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimPrefix(p, `"`)
		p = strings.TrimSuffix(p, `"`)
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// fitToWidth pads missing trailing cells with empty strings and drops cells
// beyond the header width.
func fitToWidth(cells []string, width int) []string {
	if len(cells) == width {
		return cells
	}
	out := make([]string, width)
	copy(out, cells)
	return out
}
