package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallLimiter(t *testing.T) {
	l := NewCallLimiter(2)

	require.NoError(t, l.Acquire())
	require.NoError(t, l.Acquire())
	assert.Equal(t, 0, l.Remaining())

	err := l.Acquire()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded max backend calls")
	assert.Equal(t, 3, l.Count())
}

func TestCallLimiter_Unlimited(t *testing.T) {
	l := NewCallLimiter(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Acquire())
	}
	assert.Equal(t, 100, l.Count())
	assert.Equal(t, -1, l.Remaining())
}
