package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFailed = errors.New("failed")

func run(b *Breaker, success bool) error {
	_, err := Do(b, func() (string, error) {
		if success {
			return "ok", nil
		}
		return "", errFailed
	})
	return err
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		requests      []bool // true = success, false = failure
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			settings:      Settings{Timeout: time.Minute},
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name: "opens after consecutive failures",
			settings: Settings{
				Timeout: time.Minute,
				ReadyToTrip: func(counts Counts) bool {
					return counts.ConsecutiveFailures >= 3
				},
			},
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name: "success resets consecutive failures",
			settings: Settings{
				Timeout: time.Minute,
				ReadyToTrip: func(counts Counts) bool {
					return counts.ConsecutiveFailures >= 2
				},
			},
			requests:      []bool{false, true, false},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", tt.settings)
			for _, success := range tt.requests {
				_ = run(breaker, success)
			}
			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerFailsFastWhenOpen(t *testing.T) {
	breaker := New("transport", Settings{
		Timeout:     time.Minute,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	require.ErrorIs(t, run(breaker, false), errFailed)
	require.Equal(t, StateOpen, breaker.State())

	called := false
	_, err := Do(breaker, func() (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	var transitions []string
	breaker := New("transport", Settings{
		MaxRequests: 2,
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = run(breaker, false)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())

	require.NoError(t, run(breaker, true))
	require.NoError(t, run(breaker, true))
	assert.Equal(t, StateClosed, breaker.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	breaker := New("transport", Settings{
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	_ = run(breaker, false)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, breaker.State())

	_ = run(breaker, false)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerIsSuccessful(t *testing.T) {
	breaker := New("transport", Settings{
		Timeout:      time.Minute,
		ReadyToTrip:  func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, context.Canceled) },
	})

	done, err := breaker.Allow()
	require.NoError(t, err)
	done(context.Canceled)

	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, uint32(1), breaker.Counts().TotalSuccesses)
}

func TestBreakerCounts(t *testing.T) {
	breaker := New("test", Settings{Timeout: time.Minute})

	for i := 0; i < 3; i++ {
		_ = run(breaker, true)
	}
	_ = run(breaker, false)

	counts := breaker.Counts()
	assert.Equal(t, uint32(4), counts.Requests)
	assert.Equal(t, uint32(3), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveSuccesses)
}

func TestBreakerIntervalClearsCounts(t *testing.T) {
	breaker := New("test", Settings{Interval: 10 * time.Millisecond, Timeout: time.Minute})

	_ = run(breaker, false)
	require.Equal(t, uint32(1), breaker.Counts().TotalFailures)

	time.Sleep(20 * time.Millisecond)
	_ = breaker.State()
	assert.Equal(t, uint32(0), breaker.Counts().TotalFailures)
}

func TestBreakerConcurrentAccess(t *testing.T) {
	breaker := New("test", Settings{
		Timeout:     time.Minute,
		ReadyToTrip: func(c Counts) bool { return false },
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = run(breaker, i%2 == 0)
		}(i)
	}
	wg.Wait()

	counts := breaker.Counts()
	assert.Equal(t, uint32(50), counts.Requests)
	assert.Equal(t, uint32(50), counts.TotalSuccesses+counts.TotalFailures)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
