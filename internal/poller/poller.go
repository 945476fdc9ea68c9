// Package poller drives the fetch-validate-apply cycle against the telemetry
// feed on a fixed wall-clock interval.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/banshee-data/flight.dashboard/internal/engine"
	"github.com/banshee-data/flight.dashboard/internal/monitoring"
	"github.com/banshee-data/flight.dashboard/internal/telemetry"
	"github.com/banshee-data/flight.dashboard/internal/timeutil"
)

// ErrStopped is returned by Cycle once the poller has been stopped.
var ErrStopped = errors.New("poller stopped")

// DefaultInterval is used when Options.Interval is not positive.
const DefaultInterval = time.Second

// Applier receives each successfully fetched and validated snapshot.
type Applier interface {
	Apply(snapshot []telemetry.Sample) engine.ApplyResult
}

// Options configures a Poller.
type Options struct {
	Interval time.Duration
	Clock    timeutil.Clock
	Logf     func(format string, args ...any)
}

// Stats counts poller activity.
type Stats struct {
	Cycles              int       `json:"cycles"`
	Successes           int       `json:"successes"`
	Failures            int       `json:"failures"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	Discarded           int       `json:"discarded"`
	LastAccepted        int       `json:"lastAccepted"`
	LastRejected        int       `json:"lastRejected"`
	HistoryLength       int       `json:"historyLength"`
	LastError           string    `json:"lastError,omitempty"`
	LastAttempt         time.Time `json:"lastAttempt"`
	LastSuccess         time.Time `json:"lastSuccess"`
	Stopped             bool      `json:"stopped"`
}

// Poller fetches the feed once per interval and applies the validated
// records. Cycles never overlap: a tick or trigger that arrives while a
// cycle is in flight is deferred until it completes.
type Poller struct {
	feed     FeedFetcher
	applier  Applier
	interval time.Duration
	clock    timeutil.Clock
	logf     func(format string, args ...any)
	trigger  chan struct{}

	// life is cancelled by Stop and aborts any in-flight fetch.
	life    context.Context
	cancel  context.CancelFunc
	cycleMu sync.Mutex

	mu      sync.Mutex // guards stopped and stats
	stopped bool
	stats   Stats
}

// New returns a poller that fetches from feed and applies to applier.
func New(feed FeedFetcher, applier Applier, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Logf == nil {
		opts.Logf = monitoring.Tagged("poller")
	}

	life, cancel := context.WithCancel(context.Background())
	return &Poller{
		feed:     feed,
		applier:  applier,
		interval: opts.Interval,
		clock:    opts.Clock,
		logf:     opts.Logf,
		trigger:  make(chan struct{}, 1),
		life:     life,
		cancel:   cancel,
	}
}

// Run runs one cycle immediately and then one per interval until ctx is
// done or Stop is called. It returns nil after Stop and ctx.Err() otherwise.
func (p *Poller) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.life, cancel)
	defer stop()

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.runCycle(runCtx)
	for {
		select {
		case <-runCtx.Done():
			if p.Stopped() {
				return nil
			}
			return ctx.Err()
		case <-ticker.C():
			p.runCycle(runCtx)
		case <-p.trigger:
			p.runCycle(runCtx)
		}
	}
}

func (p *Poller) runCycle(ctx context.Context) {
	// Cycle logs and records its own failures.
	_ = p.Cycle(ctx)
}

// Trigger requests an extra cycle from Run. Requests made while one is
// already pending coalesce.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Cycle runs one fetch-validate-apply pass. Concurrent calls are serialised.
// A fetch failure leaves the engine untouched. A response that arrives after
// Stop is discarded and ErrStopped returned.
func (p *Poller) Cycle(ctx context.Context) error {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	if p.Stopped() {
		return ErrStopped
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.life, cancel)
	defer stop()

	started := p.clock.Now()
	records, err := p.feed.Fetch(fetchCtx)

	// Holding mu across Apply means Stop cannot return while a result is
	// still being applied.
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Cycles++
	p.stats.LastAttempt = started

	if p.stopped {
		p.stats.Discarded++
		return ErrStopped
	}
	if err != nil && ctx.Err() != nil {
		// Shutting down; not a feed failure.
		p.stats.Discarded++
		return ctx.Err()
	}
	if err != nil {
		p.stats.Failures++
		p.stats.ConsecutiveFailures++
		p.stats.LastError = err.Error()
		p.logf("fetch failed (%d in a row): %v", p.stats.ConsecutiveFailures, err)
		return err
	}

	accepted, rejected, firstErr := telemetry.ValidateAll(records)
	if rejected > 0 {
		p.logf("dropped %d of %d feed records; first: %v", rejected, len(records), firstErr)
	}
	if len(accepted) == 0 && len(records) > 0 {
		// Every record was malformed; an empty snapshot would wipe history.
		p.stats.LastAccepted = 0
		p.stats.LastRejected = rejected
		return nil
	}
	res := p.applier.Apply(accepted)

	if p.stats.ConsecutiveFailures > 0 {
		p.logf("feed recovered after %d failures", p.stats.ConsecutiveFailures)
	}
	p.stats.Successes++
	p.stats.ConsecutiveFailures = 0
	p.stats.LastAccepted = len(accepted)
	p.stats.LastRejected = rejected
	p.stats.LastError = ""
	p.stats.LastSuccess = p.clock.Now()
	p.stats.HistoryLength = res.HistoryLength
	return nil
}

// Stop halts polling. After Stop returns no further cycle applies anything;
// a fetch still in flight is cancelled and its response discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	p.stats.Stopped = true
	p.cancel()
}

// Stopped reports whether Stop has been called.
func (p *Poller) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Interval returns the poll period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Stats returns a copy of the activity counters.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
