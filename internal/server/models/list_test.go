package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFilter_Normalized(t *testing.T) {
	f, err := ListFilter{}.Normalized()
	require.NoError(t, err)
	assert.Equal(t, DefaultPage, f.Page)
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Equal(t, 0, f.Offset())

	f, err = ListFilter{Page: 3, Limit: 20}.Normalized()
	require.NoError(t, err)
	assert.Equal(t, 40, f.Offset())

	_, err = ListFilter{Page: -1, Limit: 101, Search: strings.Repeat("s", 256)}.Normalized()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Len(t, fe, 3)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(ListFilter{Page: 2, Limit: 10}, 25)
	assert.Equal(t, Pagination{CurrentPage: 2, TotalPages: 3, TotalItems: 25, ItemsPerPage: 10, HasNextPage: true, HasPrevPage: true}, p)

	p = NewPagination(ListFilter{Page: 1, Limit: 10}, 0)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNextPage)
	assert.False(t, p.HasPrevPage)

	p = NewPagination(ListFilter{Page: 3, Limit: 10}, 30)
	assert.False(t, p.HasNextPage)
}
