package engine

import "testing"

func TestClassifyTier(t *testing.T) {
	tests := []struct {
		name string
		text string
		want ValueTier
	}{
		{"symbol low", "We refunded $50 today", TierLow},
		{"symbol at threshold", "Total was $125", TierLow},
		{"symbol threshold with cents", "Total was $125.00", TierLow},
		{"symbol just above", "Total was $125.01", TierHigh},
		{"symbol thousands", "Charged $1,250.75 for the tour", TierHigh},
		{"code form", "Booking value 90 USD", TierLow},
		{"code form no space", "Booking value 300USD", TierHigh},
		{"code form lower case", "about 99 usd in total", TierLow},
		{"code thousands", "about 2,500 USD", TierHigh},
		{"first match wins", "Paid $40, then another $400", TierLow},
		{"code before symbol", "200 USD was charged, $10 refunded", TierHigh},
		{"symbol and code same amount", "$300 USD", TierHigh},
		{"no amount", "Customer asked for a refund", TierUnknown},
		{"bare number", "Booking 4821 refund request", TierUnknown},
		{"symbol without number", "costs $ a lot", TierUnknown},
		{"empty", "", TierUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTier(tt.text); got != tt.want {
				t.Errorf("ClassifyTier(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestFirstAmount(t *testing.T) {
	tests := []struct {
		text   string
		want   float64
		wantOk bool
	}{
		{"$1,234.56", 1234.56, true},
		{"refund of $50.5 issued", 50.5, true},
		{"12 USD", 12, true},
		{"$50.123", 50.12, true},
		{"nothing here", 0, false},
	}

	for _, tt := range tests {
		got, ok := FirstAmount(tt.text)
		if ok != tt.wantOk || got != tt.want {
			t.Errorf("FirstAmount(%q) = (%v, %v), want (%v, %v)", tt.text, got, ok, tt.want, tt.wantOk)
		}
	}
}
