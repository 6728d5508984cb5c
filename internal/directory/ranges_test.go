package directory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestParseRange(t *testing.T) {
	tests := []struct {
		label string
		want  Range
	}{
		{label: "$1B+", want: Range{Min: 1e9}},
		{label: "$100M - $500M", want: Range{Min: 100e6, Max: ptr(500e6)}},
		{label: "$500M - $1B", want: Range{Min: 500e6, Max: ptr(1e9)}},
		{label: "$0 - $25M", want: Range{Min: 0, Max: ptr(25e6)}},
		{label: "$250K - $1M", want: Range{Min: 250e3, Max: ptr(1e6)}},
		{label: "$20M+", want: Range{Min: 20e6}},
		{label: "$100M+", want: Range{Min: 100e6}},
		{label: "1 - 10", want: Range{Min: 1, Max: ptr(10)}},
		{label: "30 - 40", want: Range{Min: 30, Max: ptr(40)}},
		{label: "1B_PLUS", want: Range{Min: 1e9}},
		{label: "100M_500M", want: Range{Min: 100e6, Max: ptr(500e6)}},
		{label: "0_25M", want: Range{Min: 0, Max: ptr(25e6)}},
		{label: "25K_250K", want: Range{Min: 25e3, Max: ptr(250e3)}},
		{label: "5m_plus", want: Range{Min: 5e6}},
		{label: "5-20M", want: Range{Min: 5e6, Max: ptr(20e6)}},
		{label: " $1,000 - $2,000 ", want: Range{Min: 1000, Max: ptr(2000)}},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseRange(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRangeInvalid(t *testing.T) {
	for _, label := range []string{"", "   ", "cheap", "$5M - $1M", "$5M - $5M", "$M - $5M", "-5", "$1M -", "INF+", "nan+", "NaN - 5", "$1M - Infinity", "inf"} {
		t.Run(label, func(t *testing.T) {
			_, err := ParseRange(label)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRange))
		})
	}
}

func TestRangeContainsIsHalfOpen(t *testing.T) {
	r, err := ParseRange("$1M - $5M")
	require.NoError(t, err)

	assert.False(t, r.Contains(999_999))
	assert.True(t, r.Contains(1e6))
	assert.True(t, r.Contains(4_999_999))
	assert.False(t, r.Contains(5e6))

	// Adjacent tiers never both match a boundary value.
	next, err := ParseRange("$5M - $20M")
	require.NoError(t, err)
	assert.True(t, next.Contains(5e6))

	open, err := ParseRange("$20M+")
	require.NoError(t, err)
	assert.False(t, open.Bounded())
	assert.True(t, open.Contains(1e12))
	assert.Equal(t, "[2e+07, +inf)", open.String())
}

func TestParseRangesStopsOnFirstError(t *testing.T) {
	_, err := ParseRanges([]string{"$1B+", "bogus"})
	assert.ErrorIs(t, err, ErrInvalidRange)

	got, err := ParseRanges([]string{"$1B+", "$0 - $25M"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
