package workerpool

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIndexedExecutesAll(t *testing.T) {
	var count int64
	err := RunIndexed(New(2), 10, func(i int) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)
}

func TestRunReturnsFirstError(t *testing.T) {
	boom := assert.AnError
	err := RunIndexed(New(4), 5, func(i int) error {
		if i == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunUnboundedPool(t *testing.T) {
	var count int64
	err := RunIndexed(New(0), 50, func(i int) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), count)
}

func TestRunEmpty(t *testing.T) {
	assert.NoError(t, RunIndexed(New(4), 0, func(i int) error { return nil }))
}
