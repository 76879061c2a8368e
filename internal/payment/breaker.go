package payment

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"eshop/internal/checkout"
	applog "eshop/internal/log"
)

// Breaker stops calling the provider after repeated failures and fails fast
// until the cool-down elapses.
type Breaker struct {
	next checkout.Gateway
	cb   *gobreaker.CircuitBreaker[any]
}

type BreakerConfig struct {
	Name      string
	Failures  uint32        // consecutive failures that open the breaker
	Cooldown  time.Duration // time spent open before a trial request
	Tolerated func(err error) bool
}

func NewBreaker(next checkout.Gateway, cfg BreakerConfig) *Breaker {
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || (cfg.Tolerated != nil && cfg.Tolerated(err))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			applog.Security(nil, "payment.breaker.state", map[string]any{
				"breaker": name, "from": from.String(), "to": to.String(),
			})
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[any](st)}
}

func (b *Breaker) CreateSession(ctx context.Context, req checkout.Request) (checkout.Session, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.CreateSession(ctx, req)
	})
	if err != nil {
		return checkout.Session{}, err
	}
	return v.(checkout.Session), nil
}

func (b *Breaker) Paid(ctx context.Context, sessionID string) (bool, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.Paid(ctx, sessionID)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }
