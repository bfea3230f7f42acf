package cachegate

import (
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// RetryPolicyBuilder returns a retrypolicy.Builder pre-configured to
// retry on transport errors and 5xx responses from the backend handler,
// up to three retries (four attempts in all) with exponential backoff
// from 100ms to 10s.
func RetryPolicyBuilder() retrypolicy.Builder[*Response] {
	return retrypolicy.NewBuilder[*Response]().
		HandleIf(func(r *Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode >= 500
		}).
		WithMaxRetries(3).
		WithBackoff(100*time.Millisecond, 10*time.Second)
}

// CircuitBreakerBuilder returns a circuitbreaker.Builder pre-configured
// to open after 5 consecutive failures and probe again after 60s.
func CircuitBreakerBuilder() circuitbreaker.Builder[*Response] {
	return circuitbreaker.NewBuilder[*Response]().
		HandleIf(func(r *Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode >= 500
		}).
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(60 * time.Second)
}

// executeWithResilience runs fn directly, or through the Resilience
// policies in cfg when any are configured (retry is applied before the
// circuit breaker, matching the teacher's policy ordering).
func executeWithResilience(cfg *ResilienceConfig, fn func() (*Response, error)) (*Response, error) {
	if cfg == nil {
		return fn()
	}

	var policies []failsafe.Policy[*Response]
	if cfg.RetryPolicy != nil {
		policies = append(policies, cfg.RetryPolicy)
	}
	if cfg.CircuitBreaker != nil {
		policies = append(policies, cfg.CircuitBreaker)
	}
	if len(policies) == 0 {
		return fn()
	}

	return failsafe.With(policies...).Get(fn)
}
