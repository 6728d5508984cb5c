package directory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrubFloat(t *testing.T) {
	nan, inf, ninf, ok := math.NaN(), math.Inf(1), math.Inf(-1), 12.5

	assert.Nil(t, ScrubFloat(nil))
	assert.Nil(t, ScrubFloat(&nan))
	assert.Nil(t, ScrubFloat(&inf))
	assert.Nil(t, ScrubFloat(&ninf))
	assert.Equal(t, &ok, ScrubFloat(&ok))
}

func TestParseArrayLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "{}", want: nil},
		{in: "{Software,Biotechnology}", want: []string{"Software", "Biotechnology"}},
		{in: `{"Media & Entertainment","IT Services"}`, want: []string{"Media & Entertainment", "IT Services"}},
		{in: `{"a,b",c}`, want: []string{"a,b", "c"}},
		{in: `{"say \"hi\"",x}`, want: []string{`say "hi"`, "x"}},
		{in: `{NULL,"NULL",Seed}`, want: []string{"NULL", "Seed"}},
		{in: "{ Seed , ,Expansion }", want: []string{"Seed", "Expansion"}},
		{in: "not a literal", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseArrayLiteral(tt.in))
		})
	}
}

func TestNormalizeArray(t *testing.T) {
	assert.Nil(t, NormalizeArray(nil))
	assert.Nil(t, NormalizeArray([]string{"", "  ", "null"}))
	assert.Equal(t,
		[]string{"Seed", "Early Stage", "Expansion"},
		NormalizeArray([]string{`{Seed,"Early Stage"}`, ` "Expansion" `}))
}

func TestCleanListDedupesInOrder(t *testing.T) {
	assert.Equal(t,
		[]string{"Software", "Biotechnology"},
		CleanList([]string{"Software", " Biotechnology", "Software", ""}))
	assert.Nil(t, CleanList([]string{""}))
}
