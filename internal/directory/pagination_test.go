package directory

import (
	"encoding/json"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageRequest(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		perPage string
		want    PageRequest
		wantErr bool
	}{
		{name: "defaults", want: PageRequest{Page: 1, PerPage: 50}},
		{name: "explicit", page: "3", perPage: "20", want: PageRequest{Page: 3, PerPage: 20}},
		{name: "max per page", perPage: "100", want: PageRequest{Page: 1, PerPage: 100}},
		{name: "zero page", page: "0", wantErr: true},
		{name: "negative page", page: "-2", wantErr: true},
		{name: "zero per page", perPage: "0", wantErr: true},
		{name: "over max", perPage: "101", wantErr: true},
		{name: "not a number", page: "two", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageRequest(tt.page, tt.perPage)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPageRequestMath(t *testing.T) {
	req := PageRequest{Page: 3, PerPage: 25}
	assert.Equal(t, 50, req.Offset())
	assert.Equal(t, 0, req.TotalPages(0))
	assert.Equal(t, 1, req.TotalPages(1))
	assert.Equal(t, 1, req.TotalPages(25))
	assert.Equal(t, 2, req.TotalPages(26))
	assert.Equal(t, 40, req.TotalPages(1000))
}

func TestOffsetSaturates(t *testing.T) {
	req, err := ParsePageRequest(strconv.Itoa(math.MaxInt), "100")
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, req.Offset())

	req = PageRequest{Page: math.MaxInt/50 + 2, PerPage: 50}
	assert.Equal(t, math.MaxInt, req.Offset())

	req = PageRequest{Page: math.MaxInt/50 + 1, PerPage: 50}
	assert.Positive(t, req.Offset())
}

func TestNewPagePastTheEnd(t *testing.T) {
	req := PageRequest{Page: 9, PerPage: 10}
	p := NewPage[string](req, 42, nil)

	assert.Equal(t, int64(42), p.Total)
	assert.Equal(t, 5, p.TotalPages)
	assert.NotNil(t, p.Results)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":42,"page":9,"per_page":10,"total_pages":5,"results":[]}`, string(raw))
}

func TestMapKeepsCounters(t *testing.T) {
	p := NewPage(PageRequest{Page: 1, PerPage: 2}, 3, []int{1, 2})
	out := Map(p, func(i int) string { return string(rune('a' + i)) })
	assert.Equal(t, []string{"b", "c"}, out.Results)
	assert.Equal(t, 2, out.TotalPages)
}
