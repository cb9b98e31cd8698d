package oddsmath_test

import (
	"testing"

	"github.com/fortuna/oddspipeline/pkg/oddsmath"
)

func TestEncodeMonacoPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		decimals int
		want     int32
	}{
		{name: "scenario 1 home leg", price: 1.95, decimals: 3, want: 1940},
		{name: "scenario 1 draw leg", price: 3.40, decimals: 3, want: 3376},
		{name: "scenario 1 away leg", price: 4.20, decimals: 3, want: 4168},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := oddsmath.EncodeMonacoPrice(tc.price, tc.decimals)
			if got != tc.want {
				t.Errorf("EncodeMonacoPrice(%v, %d) = %d, want %d", tc.price, tc.decimals, got, tc.want)
			}
		})
	}
}

func TestEncodeDecimal(t *testing.T) {
	got := oddsmath.EncodeDecimal(1.9, 3)
	if got != 1900 {
		t.Errorf("EncodeDecimal(1.9, 3) = %d, want 1900", got)
	}
}
