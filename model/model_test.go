package model

import (
	"testing"

	"karl/address"
)

func TestSetContentAndClear(t *testing.T) {
	m := New(10, 10)
	if err := m.SetContent("A1", "10"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.GetContent("A1"); got != "10" {
		t.Errorf("GetContent = %q, want %q", got, "10")
	}

	m.Clear("A1")
	if got := m.GetContent("A1"); got != "" {
		t.Errorf("GetContent after Clear = %q, want empty", got)
	}
}

func TestSetContentRejectsInvalidID(t *testing.T) {
	m := New(10, 10)
	if err := m.SetContent("not-a-cell", "x"); err == nil {
		t.Error("expected error for invalid cell identifier")
	}
}

func TestSetContentEmptyDeletes(t *testing.T) {
	m := New(10, 10)
	_ = m.SetContent("A1", "10")
	_ = m.SetContent("A1", "")
	ids := m.NonEmptyCells()
	if len(ids) != 0 {
		t.Errorf("expected no non-empty cells, got %v", ids)
	}
}

func TestFormatDefaultsToRaw(t *testing.T) {
	m := New(10, 10)
	if got := m.GetFormat("A1"); got != FormatRaw {
		t.Errorf("default format = %v, want Raw", got)
	}
	m.SetFormat("A1", FormatCurrency)
	if got := m.GetFormat("A1"); got != FormatCurrency {
		t.Errorf("format = %v, want Currency", got)
	}
	m.SetFormat("A1", FormatRaw)
	if got := m.GetFormat("A1"); got != FormatRaw {
		t.Errorf("setting Raw should clear the override, got %v", got)
	}
}

func TestGeometryDefaults(t *testing.T) {
	m := New(10, 10)
	if w := m.ColumnWidth(2, 80); w != 80 {
		t.Errorf("ColumnWidth default = %d, want 80", w)
	}
	m.SetColumnWidth(2, 120)
	if w := m.ColumnWidth(2, 80); w != 120 {
		t.Errorf("ColumnWidth = %d, want 120", w)
	}
	if h := m.RowHeight(3, 20); h != 20 {
		t.Errorf("RowHeight default = %d, want 20", h)
	}
	m.SetRowHeight(3, 30)
	if h := m.RowHeight(3, 20); h != 30 {
		t.Errorf("RowHeight = %d, want 30", h)
	}
}

func TestSelection(t *testing.T) {
	m := New(10, 10)
	if _, ok := m.Selected(); ok {
		t.Error("expected no selection initially")
	}
	m.SetSelected("B2")
	if id, ok := m.Selected(); !ok || id != "B2" {
		t.Errorf("Selected = %v, %v; want B2, true", id, ok)
	}
	m.ClearSelection()
	if _, ok := m.Selected(); ok {
		t.Error("expected no selection after ClearSelection")
	}
}

func TestClipboardSurvivesMultiplePastes(t *testing.T) {
	m := New(10, 10)
	_ = m.SetContent("A1", "=B1*2")
	m.SetFormat("A1", FormatCurrency)
	m.Copy("A1")

	first, ok := m.Paste()
	if !ok || first.Content != "=B1*2" || first.Format != FormatCurrency || first.Source != address.CellID("A1") {
		t.Fatalf("unexpected first paste: %+v, %v", first, ok)
	}
	second, ok := m.Paste()
	if !ok || second != first {
		t.Fatalf("expected a second paste to return the same clipboard slot, got %+v", second)
	}
}

func TestPasteWithoutCopy(t *testing.T) {
	m := New(10, 10)
	if _, ok := m.Paste(); ok {
		t.Error("expected Paste to report nothing copied yet")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	m := New(10, 10)
	_ = m.SetContent("A1", "10")
	_ = m.SetContent("B1", "=A1*2")
	m.SetFormat("A1", FormatNumber)
	m.SetColumnWidth(0, 100)
	m.SetRowHeight(0, 22)
	m.SetSelected("B1")

	data, err := m.ExportState()
	if err != nil {
		t.Fatalf("ExportState failed: %v", err)
	}

	m2 := New(10, 10)
	if err := m2.ImportState(data); err != nil {
		t.Fatalf("ImportState failed: %v", err)
	}

	if m2.GetContent("A1") != "10" || m2.GetContent("B1") != "=A1*2" {
		t.Errorf("content did not round-trip: A1=%q B1=%q", m2.GetContent("A1"), m2.GetContent("B1"))
	}
	if m2.GetFormat("A1") != FormatNumber {
		t.Errorf("format did not round-trip: %v", m2.GetFormat("A1"))
	}
	if m2.ColumnWidth(0, -1) != 100 {
		t.Errorf("column width did not round-trip: %d", m2.ColumnWidth(0, -1))
	}
	if m2.RowHeight(0, -1) != 22 {
		t.Errorf("row height did not round-trip: %d", m2.RowHeight(0, -1))
	}
	if sel, ok := m2.Selected(); !ok || sel != "B1" {
		t.Errorf("selection did not round-trip: %v, %v", sel, ok)
	}
}

func TestImportStateRejectsInvalidCellID(t *testing.T) {
	m := New(10, 10)
	bad := []byte(`{"cells":{"not-a-cell":{"content":"x"}}}`)
	if err := m.ImportState(bad); err == nil {
		t.Error("expected error for invalid cell identifier in saved state")
	}
}

func TestNonEmptyCellsSorted(t *testing.T) {
	m := New(10, 10)
	_ = m.SetContent("B2", "2")
	_ = m.SetContent("A1", "1")
	ids := m.NonEmptyCells()
	if len(ids) != 2 || ids[0] != "A1" || ids[1] != "B2" {
		t.Errorf("expected sorted [A1 B2], got %v", ids)
	}
}
