package cachegate

import (
	"errors"
	"testing"
)

func TestExecuteWithResilience_NilConfigCallsDirect(t *testing.T) {
	var calls int
	resp, err := executeWithResilience(nil, func() (*Response, error) {
		calls++
		return &Response{StatusCode: 200}, nil
	})
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("executeWithResilience() = %v, %v", resp, err)
	}
	if calls != 1 {
		t.Errorf("expected exactly one call, got %d", calls)
	}
}

func TestExecuteWithResilience_EmptyConfigCallsDirect(t *testing.T) {
	var calls int
	_, err := executeWithResilience(&ResilienceConfig{}, func() (*Response, error) {
		calls++
		return &Response{StatusCode: 200}, nil
	})
	if err != nil {
		t.Fatalf("executeWithResilience() failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly one call with no policies configured, got %d", calls)
	}
}

func TestExecuteWithResilience_RetriesOn5xx(t *testing.T) {
	var calls int
	cfg := &ResilienceConfig{RetryPolicy: RetryPolicyBuilder().WithMaxRetries(2).Build()}

	resp, err := executeWithResilience(cfg, func() (*Response, error) {
		calls++
		if calls < 3 {
			return &Response{StatusCode: 503}, nil
		}
		return &Response{StatusCode: 200}, nil
	})
	if err != nil {
		t.Fatalf("executeWithResilience() failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("expected eventual success, got status %d", resp.StatusCode)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls (1 + 2 retries), got %d", calls)
	}
}

func TestExecuteWithResilience_RetriesOnError(t *testing.T) {
	var calls int
	cfg := &ResilienceConfig{RetryPolicy: RetryPolicyBuilder().WithMaxRetries(1).Build()}

	_, err := executeWithResilience(cfg, func() (*Response, error) {
		calls++
		return nil, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error to propagate after exhausting retries")
	}
	if calls != 2 {
		t.Errorf("expected 2 calls (1 + 1 retry), got %d", calls)
	}
}

func TestExecuteWithResilience_DoesNotRetrySuccess(t *testing.T) {
	var calls int
	cfg := &ResilienceConfig{RetryPolicy: RetryPolicyBuilder().Build()}

	_, err := executeWithResilience(cfg, func() (*Response, error) {
		calls++
		return &Response{StatusCode: 200}, nil
	})
	if err != nil {
		t.Fatalf("executeWithResilience() failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call for an immediate success, got %d", calls)
	}
}

func TestRetryPolicyBuilder_Builds(t *testing.T) {
	policy := RetryPolicyBuilder().Build()
	if policy == nil {
		t.Fatal("RetryPolicyBuilder().Build() returned nil")
	}
}

func TestCircuitBreakerBuilder_Builds(t *testing.T) {
	breaker := CircuitBreakerBuilder().Build()
	if breaker == nil {
		t.Fatal("CircuitBreakerBuilder().Build() returned nil")
	}
}
