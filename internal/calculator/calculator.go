package calculator

import (
	"time"

	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

type Calculator struct {
	pricer   Pricer
	duration time.Duration
	now      func() time.Time
}

// Pricer prices a single usage event in USD.
type Pricer interface {
	Cost(event types.UsageEvent) float64
}

type Option func(*Calculator)

func WithDuration(d time.Duration) Option {
	return func(c *Calculator) { c.duration = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

func New(pricer Pricer, opts ...Option) *Calculator {
	c := &Calculator{
		pricer:   pricer,
		duration: DefaultBlockDuration,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.duration <= 0 {
		c.duration = DefaultBlockDuration
	}
	return c
}
