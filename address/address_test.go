package address

import "testing"

func TestToLettersBoundaries(t *testing.T) {
	cases := []struct {
		col  int
		want string
	}{
		{1, "A"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{53, "BA"},
		{702, "ZZ"},
	}
	for _, c := range cases {
		if got := ToLetters(c.col); got != c.want {
			t.Errorf("ToLetters(%d) = %q, want %q", c.col, got, c.want)
		}
	}
}

func TestToNumberRoundTrip(t *testing.T) {
	for _, letters := range []string{"A", "Z", "AA", "AZ", "BA", "ZZ"} {
		n := ToNumber(letters)
		if got := ToLetters(n); got != letters {
			t.Errorf("ToLetters(ToNumber(%q)) = %q", letters, got)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for row := 0; row < 5; row++ {
		for col := 0; col < 730; col += 37 {
			id := Format(row, col)
			gotRow, gotCol, ok := Parse(string(id))
			if !ok {
				t.Fatalf("Parse(%q) failed", id)
			}
			if gotRow != row || gotCol != col {
				t.Errorf("Parse(Format(%d,%d)) = (%d,%d)", row, col, gotRow, gotCol)
			}
		}
	}
}

func TestParseBoundaryIdentifiers(t *testing.T) {
	cases := []struct {
		id       string
		row, col int
	}{
		{"A1", 0, 0},
		{"Z1", 0, 25},
		{"AA1", 0, 26},
		{"AZ1", 0, 51},
		{"BA1", 0, 52},
		{"ZZ701", 700, 701},
	}
	for _, c := range cases {
		row, col, ok := Parse(c.id)
		if !ok {
			t.Fatalf("Parse(%q) failed", c.id)
		}
		if row != c.row || col != c.col {
			t.Errorf("Parse(%q) = (%d,%d), want (%d,%d)", c.id, row, col, c.row, c.col)
		}
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, id := range []string{"", "1A", "A", "1", "A-1", "a1"} {
		if _, _, ok := Parse(id); ok {
			t.Errorf("Parse(%q) unexpectedly succeeded", id)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid("A1") || !Valid("ZZ999") {
		t.Error("expected valid identifiers to pass Valid")
	}
	if Valid("a1") || Valid("1A") || Valid("") {
		t.Error("expected invalid identifiers to fail Valid")
	}
}
