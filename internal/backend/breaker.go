package backend

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig tunes the per-resource circuit breaker. A zero MaxFailures keeps
// the breaker closed forever.
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max-failures"`
	OpenTimeout time.Duration `mapstructure:"open-timeout" validate:"gte=0"`
}

func (c *Client) breaker(resource string) *gobreaker.CircuitBreaker {
	c.breakersMu.Lock()
	defer c.breakersMu.Unlock()

	if cb, ok := c.breakers[resource]; ok {
		return cb
	}

	maxFailures := c.breakerCfg.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    resource,
		Timeout: c.breakerCfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return maxFailures > 0 && counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("backend circuit state changed",
				zap.String("resource", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	c.breakers[resource] = cb

	return cb
}
