package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatVE(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		minFrac int
		want    string
	}{
		{"45", 0, "45"},
		{"45", 2, "45,00"},
		{"45.5", 0, "45,5"},
		{"45.5", 2, "45,50"},
		{"1234.5", 2, "1.234,50"},
		{"1234567.891", 0, "1.234.567,891"},
		{"0.1234", 0, "0,123"},
		{"999", 2, "999,00"},
		{"-1500", 0, "-1.500"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatVE(decimal.RequireFromString(tt.in), tt.minFrac), tt.in)
	}
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	d, err := ParsePrice(" 19.99 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("19.99")))

	d, err = ParsePrice("7,5")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("7.5")))

	d, err = ParsePrice("0")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	for _, bad := range []string{"", "abc", "-1", "1.2.3"} {
		_, err := ParsePrice(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}
}
