package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func TestCircuitBreakerManager(t *testing.T) {
	cbm := NewCircuitBreakerManager(nil, nil)

	result, err := cbm.Execute(context.Background(), "telemetry", func() (interface{}, error) {
		return "success", nil
	})

	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected result 'success', got %v", result)
	}

	if !cbm.IsClosed("telemetry") {
		t.Error("Expected circuit breaker to be closed after success")
	}
}

func TestCircuitBreakerManagerWithFailures(t *testing.T) {
	var transitions []gobreaker.State
	cbm := NewCircuitBreakerManager(nil, func(name string, from, to gobreaker.State) {
		transitions = append(transitions, to)
	})

	for i := 0; i < 5; i++ {
		_, err := cbm.Execute(context.Background(), "actuator.cpu", func() (interface{}, error) {
			return nil, errors.New("simulated failure")
		})

		if err == nil {
			t.Error("Expected error for failing function")
		}
	}

	if !cbm.IsOpen("actuator.cpu") {
		t.Error("Expected circuit breaker to be open after failures")
	}
	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("Expected a single transition to open, got %v", transitions)
	}

	called := false
	_, err := cbm.Execute(context.Background(), "actuator.cpu", func() (interface{}, error) {
		called = true
		return "success", nil
	})

	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected ErrOpenState when circuit breaker is open, got %v", err)
	}
	if called {
		t.Error("Expected function not to run while the breaker is open")
	}
	if !IsRejected(err) {
		t.Error("Expected open-state error to count as rejected")
	}
}

func TestCircuitBreakerManagerRecovers(t *testing.T) {
	template := DefaultCircuitBreakerConfig("")
	template.Timeout = 20 * time.Millisecond
	template.MinRequests = 1
	template.FailureRate = 1
	cbm := NewCircuitBreakerManager(template, nil)

	_, _ = cbm.Execute(context.Background(), "telemetry", func() (interface{}, error) {
		return nil, errors.New("down")
	})
	if !cbm.IsOpen("telemetry") {
		t.Fatal("Expected breaker to open after one failure")
	}

	time.Sleep(40 * time.Millisecond)

	if _, err := cbm.Execute(context.Background(), "telemetry", func() (interface{}, error) {
		return "ok", nil
	}); err != nil {
		t.Fatalf("Expected half-open probe to succeed, got %v", err)
	}
	if !cbm.IsClosed("telemetry") {
		t.Errorf("Expected breaker to close, got %s", cbm.GetState("telemetry"))
	}
}

func TestCircuitBreakerManagerStats(t *testing.T) {
	cbm := NewCircuitBreakerManager(nil, nil)

	cbm.Execute(context.Background(), "stats", func() (interface{}, error) {
		return "success", nil
	})
	cbm.Execute(context.Background(), "stats", func() (interface{}, error) {
		return nil, errors.New("failure")
	})

	stats := cbm.GetStats("stats")

	if stats["name"] != "stats" {
		t.Errorf("Expected name to be stats, got %v", stats["name"])
	}
	if stats["requests"] != uint32(2) {
		t.Errorf("Expected 2 requests, got %v", stats["requests"])
	}
	if stats["total_failures"] != uint32(1) {
		t.Errorf("Expected 1 failure, got %v", stats["total_failures"])
	}
}

func TestCircuitBreakerManagerReset(t *testing.T) {
	cbm := NewCircuitBreakerManager(nil, nil)

	first := cbm.GetBreaker("reset")
	cbm.Reset("reset")
	second := cbm.GetBreaker("reset")

	if second == nil {
		t.Fatal("Expected new breaker to be created after reset")
	}
	if first == second {
		t.Error("Expected a fresh breaker after reset")
	}
	if len(cbm.Names()) != 1 {
		t.Errorf("Expected 1 breaker, got %v", cbm.Names())
	}
}
