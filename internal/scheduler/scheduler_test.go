package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalReturnsSameInstance(t *testing.T) {
	a := Global()
	b := Global()
	assert.Same(t, a, b)
}

func TestRegisterFiresJobAndRemoveStopsIt(t *testing.T) {
	var calls int32
	id, err := Register("* * * * * *", func() { atomic.AddInt32(&calls, 1) })
	require.NoError(t, err)

	time.Sleep(1200 * time.Millisecond)
	Remove(id)
	after := atomic.LoadInt32(&calls)
	assert.GreaterOrEqual(t, after, int32(1))

	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&calls))
}
