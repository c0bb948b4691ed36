// Package runner drives the simulation clock. It owns the state for the
// duration of Run: all external mutation is marshalled onto the loop
// goroutine through Apply, which keeps the single-writer discipline the
// engine's read-then-write call pairs depend on.
package runner

import (
	"context"
	"time"

	"packrat.gg/internal/persistence/snapshot"
	"packrat.gg/internal/sim/model"
)

// Advance is the per-tick extension hook. The base simulation does nothing on
// a tick beyond advancing counters; drivers hang spoilage, eviction and the
// like here.
type Advance func(s *model.State, tick uint64)

// TickEntry is one structured log record per simulated tick.
type TickEntry struct {
	Tick      uint64 `json:"tick"`
	Step      uint64 `json:"step"`
	Instances int    `json:"instances"`
	// Census is an optional compact encoding of the population by kind,
	// filled when a census function is installed.
	Census     string `json:"census,omitempty"`
	DurationUS int64  `json:"duration_us"`
}

// TickLogger receives tick entries; implementations live in
// internal/persistence.
type TickLogger interface {
	WriteTick(entry TickEntry) error
}

type Runner struct {
	state   *model.State
	advance Advance

	apply chan func(*model.State)
	stop  chan struct{}

	// Optional sinks (may be nil). Snapshot writing happens off-thread on
	// the channel's consumer side.
	tickLogger    TickLogger
	census        func(*model.State) string
	snapshotSink  chan<- snapshot.StateV1
	snapshotEvery uint64
}

func New(s *model.State, advance Advance) *Runner {
	return &Runner{
		state:   s,
		advance: advance,
		apply:   make(chan func(*model.State), 64),
		stop:    make(chan struct{}),
	}
}

func (r *Runner) SetTickLogger(l TickLogger) { r.tickLogger = l }

// SetCensusFunc installs the function producing TickEntry.Census. It runs on
// the loop goroutine once per logged tick.
func (r *Runner) SetCensusFunc(fn func(*model.State) string) { r.census = fn }

// SetSnapshotSink emits an exported snapshot every everyTicks simulated ticks.
func (r *Runner) SetSnapshotSink(ch chan<- snapshot.StateV1, everyTicks uint64) {
	r.snapshotSink = ch
	r.snapshotEvery = everyTicks
}

// Apply schedules fn onto the loop goroutine. fn runs before the next tick's
// hook, in submission order.
func (r *Runner) Apply(ctx context.Context, fn func(*model.State)) error {
	select {
	case r.apply <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run loops until ctx is cancelled or Stop is called. The interval comes from
// the state's configuration.
func (r *Runner) Run(ctx context.Context) error {
	interval := time.Duration(r.state.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []func(*model.State)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return nil
		case fn := <-r.apply:
			pending = append(pending, fn)
		case <-ticker.C:
			r.step(pending)
			pending = pending[:0]
		}
	}
}

func (r *Runner) Stop() { close(r.stop) }

// StepOnce advances the loop by a single iteration without a ticker, applying
// fns first. Intended for deterministic tests and replays.
func (r *Runner) StepOnce(fns ...func(*model.State)) (tick uint64) {
	r.step(fns)
	return r.state.Tick
}

func (r *Runner) step(pending []func(*model.State)) {
	started := time.Now()
	for _, fn := range pending {
		fn(r.state)
	}
	r.state.Step++
	// The running flag gates simulation, not command application.
	if !r.state.Running {
		return
	}
	r.state.Tick++
	if r.advance != nil {
		r.advance(r.state, r.state.Tick)
	}

	if r.tickLogger != nil {
		n := 0
		for _, st := range r.state.Stores {
			n += len(st.IDs)
		}
		entry := TickEntry{
			Tick:      r.state.Tick,
			Step:      r.state.Step,
			Instances: n,
		}
		if r.census != nil {
			entry.Census = r.census(r.state)
		}
		entry.DurationUS = time.Since(started).Microseconds()
		_ = r.tickLogger.WriteTick(entry)
	}

	if r.snapshotSink != nil && r.snapshotEvery > 0 && r.state.Tick%r.snapshotEvery == 0 {
		select {
		case r.snapshotSink <- snapshot.Export(r.state):
		default:
			// Drop rather than stall the loop.
		}
	}
}
