package session

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToInt(t *testing.T) {
	tests := []struct {
		in     string
		digits int32
		want   int64
	}{
		{"1.2345", 4, 12345},
		{"0.01", 2, 1},
		{"1.23456", 4, 12345}, // truncated, not rounded
		{"1.99999", 0, 1},
		{"0.29", 2, 29},   // 0.29*100 is 28.999... in binary floating point
		{"1.005", 2, 100}, // and 1.005*100 is 100.4999...
		{"-0.015", 2, -2}, // floor goes toward negative infinity
		{"100", 3, 100000},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s@%d", tt.in, tt.digits), func(t *testing.T) {
			assert.Equal(t, tt.want, ToInt(decimal.RequireFromString(tt.in), tt.digits))
		})
	}
}

func TestToDecimal(t *testing.T) {
	assert.Equal(t, "1.2345", ToDecimal(12345, 4).String())
	assert.Equal(t, "0.01", ToDecimal(1, 2).String())
	assert.Equal(t, "42", ToDecimal(42, 0).String())
	assert.Equal(t, 1.2345, toFloat(12345, 4))
	assert.Equal(t, 0.01, toFloat(1, 2))
}

func TestRoundTrip(t *testing.T) {
	values := []string{"0", "0.1", "0.29", "1.2345", "99999.99999", "-3.14159", "123456789.12345678"}
	for _, v := range values {
		d := decimal.RequireFromString(v)
		for digits := int32(0); digits <= 8; digits++ {
			if -d.Exponent() > digits {
				continue // not representable at this precision
			}
			got := ToDecimal(ToInt(d, digits), digits)
			assert.Truef(t, got.Equal(d), "round trip %s at %d digits gave %s", v, digits, got)
		}
	}
}

func TestRoundTripTruncatesExtraDigits(t *testing.T) {
	d := decimal.RequireFromString("1.23456789")
	got := ToDecimal(ToInt(d, 4), 4)
	assert.Equal(t, "1.2345", got.String())
}
