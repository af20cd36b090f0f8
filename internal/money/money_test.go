package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRound_HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in       string
		currency string
		want     string
	}{
		{in: "10.005", currency: "INR", want: "10.01"},
		{in: "10.004", currency: "INR", want: "10"},
		{in: "-10.005", currency: "INR", want: "-10.01"},
		{in: "2.5", currency: "JPY", want: "3"},
		{in: "-2.5", currency: "JPY", want: "-3"},
		{in: "1.0005", currency: "KWD", want: "1.001"},
	}
	for _, tc := range cases {
		got := Round(decimal.RequireFromString(tc.in), tc.currency)
		assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "%s %s: got %s", tc.in, tc.currency, got)
	}
}

func TestPercentAndFraction(t *testing.T) {
	assert.True(t, decimal.NewFromInt(11700).Equal(Percent(decimal.NewFromInt(65000), decimal.NewFromInt(18))))
	assert.True(t, decimal.RequireFromString("0.09").Equal(Fraction(decimal.NewFromInt(9))))
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "USD", NormalizeCurrency(" usd ", "INR"))
	assert.Equal(t, "INR", NormalizeCurrency("", "inr"))
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange(decimal.NewFromInt(0), decimal.Zero, decimal.NewFromInt(100)))
	assert.True(t, InRange(decimal.NewFromInt(100), decimal.Zero, decimal.NewFromInt(100)))
	assert.False(t, InRange(decimal.NewFromInt(101), decimal.Zero, decimal.NewFromInt(100)))
}
