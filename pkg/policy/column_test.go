package policy

import "testing"

func TestParseColumnKey(t *testing.T) {
	tests := []struct {
		input  string
		want   ColumnKey
		wantOk bool
	}{
		{"partnered_low", PartneredLow, true},
		{"PARTNERED_HIGH", PartneredHigh, true},
		{"non-partnered-low", NonPartneredLow, true},
		{"social partnered high", SocialPartneredHigh, true},
		{"Partnered ≤ USD 125", PartneredLow, true},
		{"partnered <= usd 125", PartneredLow, true},
		{"Social Media  Non-Partnered > USD 125", SocialNonPartneredHigh, true},
		{"  Non-Partnered > USD 125  ", NonPartneredHigh, true},
		{"", "", false},
		{"partnered", "", false},
		{"notes", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseColumnKey(tt.input)
			if ok != tt.wantOk || got != tt.want {
				t.Errorf("ParseColumnKey(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestColumns(t *testing.T) {
	cols := Columns()
	if len(cols) != 8 {
		t.Fatalf("Columns() returned %d keys, want 8", len(cols))
	}

	seen := make(map[ColumnKey]bool)
	for _, c := range cols {
		if !c.Valid() {
			t.Errorf("%q is not Valid()", c)
		}
		if c.Header() == "" {
			t.Errorf("%q has no header", c)
		}
		if seen[c] {
			t.Errorf("duplicate column %q", c)
		}
		seen[c] = true

		back, ok := ParseColumnKey(c.Header())
		if !ok || back != c {
			t.Errorf("header %q does not round-trip to %q", c.Header(), c)
		}
	}

	cols[0] = "mutated"
	if Columns()[0] != PartneredLow {
		t.Error("Columns() must return a copy")
	}
}

func TestColumnKey_Invalid(t *testing.T) {
	k := ColumnKey("bogus")
	if k.Valid() {
		t.Error("bogus key reported valid")
	}
	if k.Header() != "" {
		t.Errorf("Header() = %q, want empty", k.Header())
	}
}

func TestRow_IsFallback(t *testing.T) {
	tests := []struct {
		l1, l2 string
		want   bool
	}{
		{"Other", "Anything", true},
		{"Cancel", "Unknown reason", true},
		{"DEFAULT", "", true},
		{"Otherwise", "Brother", false},
		{"Refund requested", "Partial refund approved", false},
	}
	for _, tt := range tests {
		r := Row{L1: tt.l1, L2: tt.l2}
		if got := r.IsFallback(); got != tt.want {
			t.Errorf("Row{%q, %q}.IsFallback() = %v, want %v", tt.l1, tt.l2, got, tt.want)
		}
	}
}
