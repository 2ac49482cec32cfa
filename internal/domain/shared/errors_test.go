package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := NotFoundf("house %d not found", 7)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "house 7 not found", err.Error())

	wrapped := fmt.Errorf("lookup: %w", err)
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
}

func TestWrapComputationFailure(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WrapComputationFailure(nil))
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		in := InvalidInputf("bad month")
		assert.Same(t, in, WrapComputationFailure(in))
	})

	t.Run("other errors become COMPUTATION_FAILED and keep the cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := WrapComputationFailure(cause)

		assert.Equal(t, CodeComputationFailed, CodeOf(err))
		assert.ErrorIs(t, err, cause)
		assert.ErrorIs(t, err, ErrComputationFailed)
		assert.Equal(t, "connection reset", err.Error())
	})
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 500, OrderDir: "sideways"}.Normalize()

	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 100, f.PageSize)
	assert.Equal(t, "asc", f.OrderDir)
	assert.Equal(t, 0, f.Offset())

	f = Filter{Page: 3, PageSize: 10}.Normalize()
	assert.Equal(t, 20, f.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated[int](nil, 21, 1, 10)

	assert.Equal(t, 3, p.TotalPages)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
}
