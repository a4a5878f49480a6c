package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/jonathan/transaction-desk/internal/attachment"
)

// BreakerOptions configures the per-channel circuit breakers.
type BreakerOptions struct {
	// ConsecutiveFailures trips a channel's breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long a tripped breaker rejects calls before a
	// half-open probe.
	OpenTimeout time.Duration
}

func (o BreakerOptions) normalize() BreakerOptions {
	if o.ConsecutiveFailures == 0 {
		o.ConsecutiveFailures = 5
	}
	if o.OpenTimeout <= 0 {
		o.OpenTimeout = 30 * time.Second
	}
	return o
}

// channelBreakers shares one breaker per delivery channel across attempts.
type channelBreakers struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
	opts     BreakerOptions
	logger   *zap.Logger
}

func newChannelBreakers(opts BreakerOptions, logger *zap.Logger) *channelBreakers {
	return &channelBreakers{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		opts:     opts.normalize(),
		logger:   logger,
	}
}

func (c *channelBreakers) get(channel string) *gobreaker.CircuitBreaker {
	c.mu.RLock()
	cb, ok := c.breakers[channel]
	c.mu.RUnlock()
	if ok {
		return cb
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok = c.breakers[channel]; ok {
		return cb
	}

	threshold := c.opts.ConsecutiveFailures
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "channel-" + channel,
		MaxRequests: 1,
		Timeout:     c.opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("delivery channel breaker changed state",
				zap.String("channel", channel),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// Oversized documents and cancelled callers say nothing about the
		// health of the channel.
		IsSuccessful: func(err error) bool {
			var sizeErr *attachment.SizeLimitError
			return err == nil || errors.As(err, &sizeErr) || errors.Is(err, context.Canceled)
		},
	})
	c.breakers[channel] = cb
	return cb
}

// execute runs fn through the channel's breaker. A rejected call reports
// which channel is unavailable.
func (c *channelBreakers) execute(channel string, fn func() error) error {
	_, err := c.get(channel).Execute(func() (any, error) {
		return nil, fn()
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return fmt.Errorf("%s channel is currently unavailable (circuit breaker open): %w", channel, err)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%s channel is recovering (too many requests): %w", channel, err)
	}
	return err
}

func (c *channelBreakers) state(channel string) gobreaker.State {
	return c.get(channel).State()
}
