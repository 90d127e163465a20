package publisher

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// DefaultInterval is the notification period.
const DefaultInterval = time.Second

// Emitter delivers a notification to subscribers.
type Emitter interface {
	Emit(ctx context.Context, n Notification) error
}

// Publisher emits a randomly colored Notification on every tick.
//
// Run is the only goroutine touching the random source, so the source needs
// no locking. Stats is safe from any goroutine.
type Publisher struct {
	emitter  Emitter
	interval time.Duration
	ticks    <-chan time.Time
	rng      *rand.Rand
	logger   *slog.Logger

	emitted atomic.Int64
	failed  atomic.Int64
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithInterval sets the tick period. Ignored when WithTicks is used.
func WithInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithTicks replaces the wall-clock ticker with an external tick source.
// Run returns when the channel is closed.
func WithTicks(ticks <-chan time.Time) Option {
	return func(p *Publisher) {
		p.ticks = ticks
	}
}

// WithRand sets the random source used for colors.
func WithRand(rng *rand.Rand) Option {
	return func(p *Publisher) {
		p.rng = rng
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a publisher that emits through emitter.
func New(emitter Emitter, opts ...Option) *Publisher {
	p := &Publisher{
		emitter:  emitter,
		interval: DefaultInterval,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next draws the next color.
func (p *Publisher) Next() Notification {
	c := RGB{R: p.rng.Float32(), G: p.rng.Float32(), B: p.rng.Float32()}
	return Notification{Color: c.String()}
}

// Run emits one notification per tick until ctx is cancelled.
// A failed emission is logged and counted; the loop keeps going.
func (p *Publisher) Run(ctx context.Context) error {
	ticks := p.ticks
	if ticks == nil {
		t := time.NewTicker(p.interval)
		defer t.Stop()
		ticks = t.C
	}

	p.logger.Info("publisher started", "interval", p.interval)
	defer p.logger.Info("publisher stopped", "emitted", p.emitted.Load(), "failed", p.failed.Load())

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			p.publish(ctx)
		}
	}
}

func (p *Publisher) publish(ctx context.Context) {
	n := p.Next()
	if err := p.emitter.Emit(ctx, n); err != nil {
		p.failed.Add(1)
		p.logger.Warn("notification not sent", "color", n.Color, "error", err)
		return
	}
	p.emitted.Add(1)
	p.logger.Debug("notification sent", "color", n.Color)
}

// Stats counts emissions.
type Stats struct {
	Emitted int64
	Failed  int64
}

// Stats returns current counters.
func (p *Publisher) Stats() Stats {
	return Stats{Emitted: p.emitted.Load(), Failed: p.failed.Load()}
}
