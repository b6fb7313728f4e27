// Package model is the passive, non-evaluating store behind a sheet (§4.9):
// raw cell content, per-cell display format, column/row geometry, the
// current selection, and a single-slot clipboard. It never parses or
// evaluates a formula — that is the Engine's job.
package model

import (
	"encoding/json"
	"fmt"
	"sort"

	"karl/address"
)

// Format is the display hint attached to a cell, independent of its
// underlying CellValue kind.
type Format string

const (
	FormatRaw        Format = "Raw"
	FormatNumber     Format = "Number"
	FormatCurrency   Format = "Currency"
	FormatPercentage Format = "Percentage"
	FormatDate       Format = "Date"
	FormatTime       Format = "Time"
	FormatBoolean    Format = "Boolean"
)

// Clipboard is the single-slot copy buffer: the raw content and format of
// whatever cell was last copied, plus the cell it came from (needed to
// compute the relative offset on paste/fill).
type Clipboard struct {
	Content string
	Format  Format
	Source  address.CellID
	Valid   bool
}

// Model is a fixed-dimension grid store; the grid itself has no implicit
// resize. InBounds and ImportState check coordinates against Rows and
// Cols; SetContent checks only identifier syntax, and the geometry setters
// accept any index.
type Model struct {
	rows, cols int

	content map[address.CellID]string
	formats map[address.CellID]Format

	columnWidths map[int]int
	rowHeights   map[int]int

	selected  address.CellID
	hasSelect bool

	clipboard Clipboard
}

// New creates an empty model with the given fixed dimensions.
func New(rows, cols int) *Model {
	return &Model{
		rows:         rows,
		cols:         cols,
		content:      make(map[address.CellID]string),
		formats:      make(map[address.CellID]Format),
		columnWidths: make(map[int]int),
		rowHeights:   make(map[int]int),
	}
}

// Rows and Cols report the grid's fixed dimensions.
func (m *Model) Rows() int { return m.rows }
func (m *Model) Cols() int { return m.cols }

// InBounds reports whether a 0-based (row, col) falls within the grid.
func (m *Model) InBounds(row, col int) bool {
	return row >= 0 && row < m.rows && col >= 0 && col < m.cols
}

// GetContent returns id's raw content, or "" if never set.
func (m *Model) GetContent(id address.CellID) string {
	return m.content[id]
}

// SetContent stores raw content for id. The caller (Engine) is responsible
// for invoking on_cell_changed afterward; the Model itself never triggers
// evaluation.
func (m *Model) SetContent(id address.CellID, raw string) error {
	if !address.Valid(string(id)) {
		return fmt.Errorf("model: %q is not a valid cell identifier", id)
	}
	if raw == "" {
		delete(m.content, id)
		return nil
	}
	m.content[id] = raw
	return nil
}

// GetFormat returns id's display format, defaulting to Raw.
func (m *Model) GetFormat(id address.CellID) Format {
	if f, ok := m.formats[id]; ok {
		return f
	}
	return FormatRaw
}

// SetFormat records id's display format.
func (m *Model) SetFormat(id address.CellID, f Format) {
	if f == FormatRaw {
		delete(m.formats, id)
		return
	}
	m.formats[id] = f
}

// Clear removes id's content and format, restoring it to the empty state.
func (m *Model) Clear(id address.CellID) {
	delete(m.content, id)
	delete(m.formats, id)
}

// ColumnWidth returns col's width in pixels, or def if never set.
func (m *Model) ColumnWidth(col, def int) int {
	if w, ok := m.columnWidths[col]; ok {
		return w
	}
	return def
}

// SetColumnWidth records col's width in pixels.
func (m *Model) SetColumnWidth(col, width int) {
	m.columnWidths[col] = width
}

// RowHeight returns row's height in pixels, or def if never set.
func (m *Model) RowHeight(row, def int) int {
	if h, ok := m.rowHeights[row]; ok {
		return h
	}
	return def
}

// SetRowHeight records row's height in pixels.
func (m *Model) SetRowHeight(row, height int) {
	m.rowHeights[row] = height
}

// Selected returns the current selection, if any.
func (m *Model) Selected() (address.CellID, bool) {
	return m.selected, m.hasSelect
}

// SetSelected updates the current selection.
func (m *Model) SetSelected(id address.CellID) {
	m.selected = id
	m.hasSelect = true
}

// ClearSelection drops the current selection.
func (m *Model) ClearSelection() {
	m.hasSelect = false
	m.selected = ""
}

// Copy snapshots id's content and format into the single clipboard slot.
func (m *Model) Copy(id address.CellID) {
	m.clipboard = Clipboard{
		Content: m.content[id],
		Format:  m.GetFormat(id),
		Source:  id,
		Valid:   true,
	}
}

// Paste returns the clipboard contents, ok is false if nothing was copied.
func (m *Model) Paste() (Clipboard, bool) {
	return m.clipboard, m.clipboard.Valid
}

// NonEmptyCells returns every CellID with non-empty content, sorted for
// deterministic iteration (used by refresh_all and export_state).
func (m *Model) NonEmptyCells() []address.CellID {
	ids := make([]address.CellID, 0, len(m.content))
	for id := range m.content {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// exportedState mirrors the persistence format in §6 exactly.
type exportedState struct {
	Cells        map[string]exportedCell `json:"cells"`
	ColumnWidths [][2]int                `json:"columnWidths"`
	RowHeights   [][2]int                `json:"rowHeights"`
	CellFormats  [][2]string             `json:"cellFormats"`
	SelectedCell *string                 `json:"selectedCell"`
}

type exportedCell struct {
	Content string `json:"content"`
}

// ExportState serializes the model to the JSON persistence format.
func (m *Model) ExportState() ([]byte, error) {
	state := exportedState{
		Cells: make(map[string]exportedCell, len(m.content)),
	}
	for id, raw := range m.content {
		state.Cells[string(id)] = exportedCell{Content: raw}
	}

	cols := make([]int, 0, len(m.columnWidths))
	for c := range m.columnWidths {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	for _, c := range cols {
		state.ColumnWidths = append(state.ColumnWidths, [2]int{c, m.columnWidths[c]})
	}

	rows := make([]int, 0, len(m.rowHeights))
	for r := range m.rowHeights {
		rows = append(rows, r)
	}
	sort.Ints(rows)
	for _, r := range rows {
		state.RowHeights = append(state.RowHeights, [2]int{r, m.rowHeights[r]})
	}

	for _, id := range m.formatKeysSorted() {
		state.CellFormats = append(state.CellFormats, [2]string{string(id), string(m.formats[id])})
	}

	if m.hasSelect {
		s := string(m.selected)
		state.SelectedCell = &s
	}

	return json.Marshal(state)
}

func (m *Model) formatKeysSorted() []address.CellID {
	ids := make([]address.CellID, 0, len(m.formats))
	for id := range m.formats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ImportState replaces the model's content, formats, geometry, and
// selection from the JSON persistence format. Dimensions are not part of
// the serialized format; out-of-bounds cells are rejected.
func (m *Model) ImportState(data []byte) error {
	var state exportedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("model: invalid state: %w", err)
	}

	content := make(map[address.CellID]string, len(state.Cells))
	for k, v := range state.Cells {
		id := address.CellID(k)
		if !address.Valid(k) {
			return fmt.Errorf("model: invalid cell identifier %q in saved state", k)
		}
		if row, col, _ := address.Parse(k); !m.InBounds(row, col) {
			return fmt.Errorf("model: cell %q in saved state is outside the %dx%d grid", k, m.rows, m.cols)
		}
		content[id] = v.Content
	}

	formats := make(map[address.CellID]Format, len(state.CellFormats))
	for _, pair := range state.CellFormats {
		formats[address.CellID(pair[0])] = Format(pair[1])
	}

	columnWidths := make(map[int]int, len(state.ColumnWidths))
	for _, pair := range state.ColumnWidths {
		columnWidths[pair[0]] = pair[1]
	}

	rowHeights := make(map[int]int, len(state.RowHeights))
	for _, pair := range state.RowHeights {
		rowHeights[pair[0]] = pair[1]
	}

	m.content = content
	m.formats = formats
	m.columnWidths = columnWidths
	m.rowHeights = rowHeights

	if state.SelectedCell != nil {
		m.selected = address.CellID(*state.SelectedCell)
		m.hasSelect = true
	} else {
		m.hasSelect = false
		m.selected = ""
	}

	return nil
}
