package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"0.125", "0.13"},
		{"12.5", "12.50"},
		{"0", "0.00"},
	}
	for _, tt := range tests {
		got := Round(decimal.RequireFromString(tt.in))
		assert.Equal(t, tt.want, got.StringFixed(Places), "Round(%s)", tt.in)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3.25", "3.25"},
		{" $4 ", "4.00"},
		{"abc", "0.00"},
		{"", "0.00"},
		{"-2", "0.00"},
		{"1.2.3", "0.00"},
		{"1e3", "0.00"},
		{"1e999999", "0.00"},
		{"1E2", "0.00"},
		{"+5", "0.00"},
		{"1,000", "0.00"},
		{"1234567890.12", "1234567890.12"},
		{"12345678901234", "0.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in).StringFixed(Places), "Sanitize(%q)", tt.in)
	}
}

func TestPlain(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"12.50", true},
		{"0", true},
		{"999999999999", true},
		{"1e3", false},
		{"1e10000000", false},
		{"0.000000001", false},
		{"1234567890123", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Plain(decimal.RequireFromString(tt.in)), "Plain(%s)", tt.in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$12.50", Format(decimal.RequireFromString("12.5")))
	assert.Equal(t, "-$0.30", Format(decimal.RequireFromString("-0.3")))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1250), MinorUnits(decimal.RequireFromString("12.50")))
	assert.Equal(t, int64(51), MinorUnits(decimal.RequireFromString("0.505")))
}

func TestPercent(t *testing.T) {
	got := Percent(decimal.RequireFromString("10.00"), decimal.NewFromInt(15))
	assert.True(t, got.Equal(decimal.RequireFromString("1.5")))
}
