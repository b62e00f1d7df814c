package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"8884.8788", "8884.88"},
		{"10.005", "10.01"},
		{"10.004", "10"},
		{"-10.005", "-10.01"},
		{"0.125", "0.13"},
		{"42", "42"},
	}
	for _, tt := range tests {
		got := Round(MustParse(tt.in))
		assert.True(t, MustParse(tt.want).Equal(got), "Round(%s) = %s, want %s", tt.in, got, tt.want)
	}
}

func TestParse(t *testing.T) {
	d, err := Parse(" 1500.25 ")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1500.25").Equal(d))

	_, err = Parse("")
	assert.Error(t, err)

	_, err = Parse("12a")
	assert.Error(t, err)
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("nope") })
}

func TestPercent(t *testing.T) {
	got := Percent(MustParse("8884.88"), MustParse("0.05"))
	assert.Equal(t, "444.24", got.StringFixed(2))
}

func TestSumAndMin(t *testing.T) {
	total := Sum(MustParse("0.1"), MustParse("0.2"), MustParse("0.3"))
	assert.True(t, MustParse("0.6").Equal(total))
	assert.True(t, Sum().IsZero())

	assert.True(t, MustParse("1").Equal(Min(MustParse("1"), MustParse("2"))))
	assert.True(t, MustParse("1").Equal(Min(MustParse("2"), MustParse("1"))))
}

func TestIsCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0.005", false},
		{"0.004", false},
		{"99.9999", false},
		{"100.00", true},
		{"12.5", true},
		{"0", true},
		{"-3.01", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCurrency(MustParse(tt.in)))
		})
	}
}

func TestIsPositive(t *testing.T) {
	assert.True(t, IsPositive(MustParse("0.01")))
	assert.False(t, IsPositive(Zero))
	assert.False(t, IsPositive(MustParse("-1")))
}
