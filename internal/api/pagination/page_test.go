package pagination

import (
	"net/url"
	"testing"

	"github.com/Togather-Foundation/conflicts/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		page, limit int
		want        Page
	}{
		{1, 20, Page{1, 20}},
		{0, 0, Page{1, 1}},
		{-3, -10, Page{1, 1}},
		{2, 500, Page{2, MaxLimit}},
		{7, 100, Page{7, 100}},
	}
	for _, tt := range tests {
		got := Coerce(tt.page, tt.limit)
		assert.Equal(t, tt.want, got)
		assert.GreaterOrEqual(t, got.Page, 1)
		assert.GreaterOrEqual(t, got.Limit, 1)
		assert.GreaterOrEqual(t, got.Offset(), 0)
	}
}

func TestParse(t *testing.T) {
	page, err := Parse(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, Page{Page: 1, Limit: DefaultLimit}, page)

	page, err = Parse(url.Values{"page": {"3"}, "limit": {"0"}})
	require.NoError(t, err)
	assert.Equal(t, Page{Page: 3, Limit: 1}, page)

	_, err = Parse(url.Values{"page": {"two"}, "limit": {"1.5"}})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "page must be an integer", verrs["page"])
	assert.Equal(t, "limit must be an integer", verrs["limit"])
}

func TestOffsetAndMeta(t *testing.T) {
	p := Coerce(3, 10)
	assert.Equal(t, 20, p.Offset())

	assert.Equal(t, Meta{Page: 3, Limit: 10, Total: 21, Pages: 3}, p.Meta(21))
	assert.Equal(t, int64(0), TotalPages(0, 10))
	assert.Equal(t, int64(1), TotalPages(10, 10))
	assert.Equal(t, int64(2), TotalPages(11, 10))
}
