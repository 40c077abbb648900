package web

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	p := Paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, p.Items)
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasPrev())
	assert.True(t, p.HasNext())

	last := Paginate(items, 3, 2)
	assert.Equal(t, []int{5}, last.Items)
	assert.False(t, last.HasNext())

	past := Paginate(items, 9, 2)
	assert.Empty(t, past.Items)
	assert.Equal(t, 3, past.TotalPages)
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate([]string(nil), 1, 10)
	assert.Empty(t, p.Items)
	assert.Zero(t, p.TotalPages)
	assert.False(t, p.HasPrev())
	assert.False(t, p.HasNext())
}

func TestPageParams(t *testing.T) {
	page, size := pageParams(httptest.NewRequest("GET", "/x?page=3&page_size=5", nil))
	assert.Equal(t, 3, page)
	assert.Equal(t, 5, size)

	page, size = pageParams(httptest.NewRequest("GET", "/x?page=-1&page_size=1000", nil))
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultPageSize, size)
}
