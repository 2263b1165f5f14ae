package currency

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		from   string
		to     string
		want   string
	}{
		{"identity", "123.456", "EUR", "EUR", "123.456"},
		{"eur to usd", "100", "EUR", "USD", "108"},
		{"usd to eur", "108", "USD", "EUR", "100"},
		{"eur to mkd", "10", "EUR", "MKD", "615"},
		{"gbp to chf", "100", "GBP", "CHF", "110.47"},
		{"rounds half up", "1", "MKD", "EUR", "0.02"},
		{"unknown source treated as base", "50", "XXX", "EUR", "50"},
		{"unknown target treated as base", "50", "EUR", "XXX", "50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.amount)
			got := Convert(amount, tt.from, tt.to)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Convert(%s, %s, %s) = %s, want %s", tt.amount, tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestConvertRoundTripStaysClose(t *testing.T) {
	amount := decimal.RequireFromString("250.00")
	there := Convert(amount, "EUR", "USD")
	back := Convert(there, "USD", "EUR")

	diff := back.Sub(amount).Abs()
	if diff.GreaterThan(decimal.RequireFromString("0.01")) {
		t.Errorf("round trip drifted by %s, want at most 0.01", diff)
	}
}

func TestSupported(t *testing.T) {
	codes := Supported()
	if len(codes) != 5 {
		t.Fatalf("Supported() returned %d codes, want 5", len(codes))
	}
	// Sorted, stable order.
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Errorf("Supported() not sorted: %v", codes)
		}
	}
}

func TestIsSupported(t *testing.T) {
	if !IsSupported("EUR") || !IsSupported("usd") {
		t.Error("known codes must be supported, case-insensitively")
	}
	if IsSupported("JPY") {
		t.Error("JPY has no rate and must not be supported")
	}
}
