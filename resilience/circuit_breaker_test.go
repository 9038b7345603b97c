package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCircuitBreaker_StartsInClosedState(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestCircuitBreaker_AllowsRequestsWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	var called bool
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("function was not called")
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 3,
		Timeout:          time.Second,
	}
	cb := NewCircuitBreaker(config)

	testErr := errors.New("test error")

	// Two failures are not enough
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error {
			return testErr
		})
	}
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed after 2 failures, got %s", cb.State())
	}

	// The third opens the circuit
	_ = cb.Execute(func() error {
		return testErr
	})
	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}

	// Next request should fail immediately
	err := cb.Execute(func() error {
		t.Error("function should not have been called")
		return nil
	})

	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 3,
		Timeout:          time.Second,
	}
	cb := NewCircuitBreaker(config)

	testErr := errors.New("test error")

	_ = cb.Execute(func() error { return testErr })
	_ = cb.Execute(func() error { return testErr })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return testErr })
	_ = cb.Execute(func() error { return testErr })

	// Failures were never consecutive enough to trip
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}

	snap := cb.Snapshot()
	if snap.FailureCount != 2 {
		t.Errorf("expected failure count 2, got %d", snap.FailureCount)
	}
}

func TestCircuitBreaker_ClosesAfterSuccessesInHalfOpen(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          20 * time.Millisecond,
	}
	cb := NewCircuitBreaker(config)

	// Trip the breaker
	_ = cb.Execute(func() error {
		return errors.New("fail")
	})
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", cb.State())
	}

	// Wait for the open timeout, then probe
	time.Sleep(30 * time.Millisecond)

	err := cb.Execute(func() error { return nil })
	if err != nil {
		t.Errorf("expected probe to run, got %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Errorf("expected StateHalfOpen after 1 success, got %s", cb.State())
	}

	_ = cb.Execute(func() error { return nil })
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed after 2 successes, got %s", cb.State())
	}

	// Counters start fresh in closed state
	snap := cb.Snapshot()
	if snap.FailureCount != 0 || snap.SuccessCount != 0 {
		t.Errorf("expected zero counters, got failures=%d successes=%d",
			snap.FailureCount, snap.SuccessCount)
	}
}

func TestCircuitBreaker_ReopensOnFailureInHalfOpen(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		SuccessThreshold: 3,
		Timeout:          20 * time.Millisecond,
	}
	cb := NewCircuitBreaker(config)

	// Trip the breaker
	_ = cb.Execute(func() error {
		return errors.New("fail")
	})

	time.Sleep(30 * time.Millisecond)

	// Two successful probes, then one failure
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error {
		return errors.New("fail again")
	})

	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}

	// The full timeout applies again
	err := cb.Execute(func() error {
		t.Error("function should not have been called")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_OpenBlocksUntilTimeout(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		Timeout:          50 * time.Millisecond,
	}
	cb := NewCircuitBreaker(config)

	_ = cb.Execute(func() error {
		return errors.New("fail")
	})

	// Before the timeout elapses every call is rejected
	err := cb.Execute(func() error {
		t.Error("function should not have been called")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	// After the timeout a probe is admitted
	var called bool
	_ = cb.Execute(func() error {
		called = true
		return nil
	})
	if !called {
		t.Error("expected probe to be admitted after timeout")
	}
}

func TestCircuitBreaker_SnapshotIsIdempotent(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 3,
		Timeout:          time.Second,
	}
	cb := NewCircuitBreaker(config)

	_ = cb.Execute(func() error { return errors.New("fail") })

	first := cb.Snapshot()
	second := cb.Snapshot()

	if first != second {
		t.Errorf("snapshots differ: %+v vs %+v", first, second)
	}
	if first.State != StateClosed || first.FailureCount != 1 {
		t.Errorf("unexpected snapshot: %+v", first)
	}
	if first.StateName != "closed" {
		t.Errorf("expected state name closed, got %s", first.StateName)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		Timeout:          time.Hour, // Long timeout
	}
	cb := NewCircuitBreaker(config)

	// Trip the breaker
	_ = cb.Execute(func() error {
		return errors.New("fail")
	})

	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}

	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed after reset, got %s", cb.State())
	}

	snap := cb.Snapshot()
	if snap.FailureCount != 0 {
		t.Errorf("expected 0 failures after reset, got %d", snap.FailureCount)
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var stateChanges []struct{ from, to State }
	var mu sync.Mutex

	config := CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          20 * time.Millisecond,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			stateChanges = append(stateChanges, struct{ from, to State }{from, to})
			mu.Unlock()
		},
	}
	cb := NewCircuitBreaker(config)

	// Trip the breaker
	_ = cb.Execute(func() error {
		return errors.New("fail")
	})

	// Wait out the timeout, then probe successfully
	time.Sleep(30 * time.Millisecond)
	_ = cb.Execute(func() error { return nil })

	mu.Lock()
	defer mu.Unlock()

	want := []struct{ from, to State }{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(stateChanges) != len(want) {
		t.Fatalf("expected %d state changes, got %d", len(want), len(stateChanges))
	}
	for i, w := range want {
		if stateChanges[i] != w {
			t.Errorf("change %d: expected %s->%s, got %s->%s",
				i, w.from, w.to, stateChanges[i].from, stateChanges[i].to)
		}
	}
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	ignored := errors.New("not a dependency failure")

	config := CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		Timeout:          time.Second,
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, ignored)
		},
	}
	cb := NewCircuitBreaker(config)

	_ = cb.Execute(func() error { return ignored })
	if cb.State() != StateClosed {
		t.Errorf("expected ignored error to keep circuit closed, got %s", cb.State())
	}

	_ = cb.Execute(func() error { return errors.New("real failure") })
	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(func() error {
				return nil
			})
			_ = cb.State()
			_ = cb.Snapshot()
		}()
	}
	wg.Wait()

	// Should still be closed after all successes
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}
