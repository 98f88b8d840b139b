package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingCall(err error) func(ctx context.Context) error {
	return func(ctx context.Context) error { return err }
}

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	for i := 0; i < 10; i++ {
		err := cb.Execute(context.Background(), failingCall(nil))
		require.NoError(t, err)
	}
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})
	boom := eris.New("backend down")

	for i := 0; i < 3; i++ {
		err := cb.Execute(context.Background(), failingCall(boom))
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, CircuitOpen, cb.State())

	err := cb.Execute(context.Background(), failingCall(nil))
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})
	boom := eris.New("backend down")

	_ = cb.Execute(context.Background(), failingCall(boom))
	_ = cb.Execute(context.Background(), failingCall(boom))
	require.NoError(t, cb.Execute(context.Background(), failingCall(nil)))

	_ = cb.Execute(context.Background(), failingCall(boom))
	_ = cb.Execute(context.Background(), failingCall(boom))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     10 * time.Second,
	})
	now := time.Now()
	cb.now = func() time.Time { return now }

	_ = cb.Execute(context.Background(), failingCall(eris.New("backend down")))
	require.Equal(t, CircuitOpen, cb.State())

	now = now.Add(11 * time.Second)
	assert.Equal(t, CircuitHalfOpen, cb.State())
}

func TestCircuitBreaker_ProbeSuccessCloses(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     10 * time.Second,
	})
	now := time.Now()
	cb.now = func() time.Time { return now }

	_ = cb.Execute(context.Background(), failingCall(eris.New("backend down")))
	now = now.Add(11 * time.Second)

	require.NoError(t, cb.Execute(context.Background(), failingCall(nil)))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     10 * time.Second,
	})
	now := time.Now()
	cb.now = func() time.Time { return now }

	_ = cb.Execute(context.Background(), failingCall(eris.New("backend down")))
	now = now.Add(11 * time.Second)

	_ = cb.Execute(context.Background(), failingCall(eris.New("still down")))
	assert.Equal(t, CircuitOpen, cb.State())

	err := cb.Execute(context.Background(), failingCall(nil))
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_ShouldTripFilters(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ShouldTrip:       IsTransient,
	})

	// Permanent errors pass through without tripping.
	_ = cb.Execute(context.Background(), failingCall(eris.New("invalid request")))
	assert.Equal(t, CircuitClosed, cb.State())

	_ = cb.Execute(context.Background(), failingCall(NewTransientError(eris.New("overloaded"), 503)))
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = cb.Execute(context.Background(), failingCall(eris.New("backend down")))
	cb.Reset()

	assert.Equal(t, []string{"closed->open", "open->closed"}, transitions)
}

func TestExecuteVal_PreservesValue(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	val, err := ExecuteVal(context.Background(), cb, func(ctx context.Context) (string, error) {
		return "completion", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "completion", val)
}

func TestExecuteVal_OpenCircuitSkipsCall(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	_ = cb.Execute(context.Background(), failingCall(eris.New("backend down")))

	called := false
	_, err := ExecuteVal(context.Background(), cb, func(ctx context.Context) (string, error) {
		called = true
		return "", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestProviderBreakers_IsolatesProviders(t *testing.T) {
	pb := NewProviderBreakers(CircuitBreakerConfig{FailureThreshold: 1})

	_ = pb.Get("primary-claude").Execute(context.Background(), failingCall(eris.New("backend down")))

	assert.Equal(t, CircuitOpen, pb.Get("primary-claude").State())
	assert.Equal(t, CircuitClosed, pb.Get("backup-gpt").State())
}

func TestProviderBreakers_SameBreakerPerName(t *testing.T) {
	pb := NewProviderBreakers(DefaultCircuitBreakerConfig())
	assert.Same(t, pb.Get("primary-claude"), pb.Get("primary-claude"))
}
