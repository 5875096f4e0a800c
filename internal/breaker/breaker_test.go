package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New(3, 100*time.Millisecond)
	assert.Equal(t, StateClosed, b.CurrentState())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := New(3, 100*time.Millisecond)
	errFail := errors.New("fail")

	for i := 0; i < 3; i++ {
		err := b.Execute(func() error { return errFail })
		require.ErrorIs(t, err, errFail)
	}
	assert.Equal(t, StateOpen, b.CurrentState())

	err := b.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := New(2, 50*time.Millisecond)
	errFail := errors.New("fail")
	for i := 0; i < 2; i++ {
		b.Execute(func() error { return errFail })
	}
	require.Equal(t, StateOpen, b.CurrentState())

	time.Sleep(60 * time.Millisecond)

	err := b.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.CurrentState())
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	b := New(2, 30*time.Millisecond)
	errFail := errors.New("fail")
	for i := 0; i < 2; i++ {
		b.Execute(func() error { return errFail })
	}
	time.Sleep(40 * time.Millisecond)

	err := b.Execute(func() error { return errFail })
	require.ErrorIs(t, err, errFail)
	assert.Equal(t, StateOpen, b.CurrentState())
}

func TestBreakerOnStateChangeCallback(t *testing.T) {
	var transitions []State
	b := New(1, 10*time.Millisecond)
	b.OnStateChange = func(from, to State) { transitions = append(transitions, to) }

	b.Execute(func() error { return errors.New("fail") })
	assert.Equal(t, []State{StateOpen}, transitions)
}
