// Package detector converts a repeatedly-sampled process table into a
// stream of start/end/modify signals for processes matching a target
// application signature.
package detector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/meetwatch/meetwatch-agent/internal/logging"
	"github.com/meetwatch/meetwatch-agent/internal/snapshot"
)

var (
	// ErrAlreadyPolling is returned by Start when the detector is running.
	ErrAlreadyPolling = errors.New("detector: already polling")

	// ErrNotPolling is returned by TriggerScan when the detector has
	// stopped or faulted.
	ErrNotPolling = errors.New("detector: not polling")
)

// Options configures a Detector.
type Options struct {
	// Interval is the period between detection cycles.
	Interval time.Duration

	// TitleWorkers bounds concurrent window-title lookups within a cycle.
	TitleWorkers int

	// Buffer is the capacity of the event and title output channels.
	Buffer int
}

// Detector owns the polling timer and the retained process set. Cycles are
// serialized on a single run goroutine: ticks and manual triggers funnel
// into the same loop, so a slow cycle can never interleave its retained-set
// swap with another cycle's diff.
//
// A Detector is single-use. Once stopped or faulted its output channels are
// closed and a fresh Detector must be built to poll again.
type Detector struct {
	source snapshot.Source
	sig    *snapshot.Signature
	opts   Options
	log    *logging.Logger

	events  chan ProcessEvent
	titles  chan TitleUpdate
	trigger chan chan struct{}
	stop    chan struct{}
	done    chan struct{}

	retained map[string]snapshot.ProcessInfo

	running  atomic.Bool
	started  atomic.Bool
	stopOnce sync.Once

	mu    sync.Mutex
	fatal error

	dropped atomic.Int64
}

// New creates a detector over the given snapshot source.
func New(source snapshot.Source, sig *snapshot.Signature, opts Options, log *logging.Logger) *Detector {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.TitleWorkers <= 0 {
		opts.TitleWorkers = 4
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}

	return &Detector{
		source:   source,
		sig:      sig,
		opts:     opts,
		log:      log,
		events:   make(chan ProcessEvent, opts.Buffer),
		titles:   make(chan TitleUpdate, opts.Buffer),
		trigger:  make(chan chan struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		retained: make(map[string]snapshot.ProcessInfo),
	}
}

// Events returns the process event stream. Closed when polling ends.
func (d *Detector) Events() <-chan ProcessEvent {
	return d.events
}

// Titles returns the window-title update stream. Closed when polling ends.
func (d *Detector) Titles() <-chan TitleUpdate {
	return d.titles
}

// Running reports whether the poll loop is alive.
func (d *Detector) Running() bool {
	return d.running.Load()
}

// Err returns the fatal error that terminated polling, if any. Nil after a
// clean Stop.
func (d *Detector) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fatal
}

// Start begins firing detection cycles on the configured interval.
func (d *Detector) Start() error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyPolling
	}

	d.running.Store(true)
	go d.run()
	return nil
}

// Stop cancels the timer and completes the event streams. Idempotent;
// stopping twice or stopping a faulted detector is a no-op.
func (d *Detector) Stop() {
	if !d.started.Load() {
		return
	}
	d.stopOnce.Do(func() { close(d.stop) })
	<-d.done
}

// TriggerScan forces one extra detection cycle outside the regular timer
// and waits for it to complete. The regular schedule is not disturbed.
func (d *Detector) TriggerScan(ctx context.Context) error {
	reply := make(chan struct{})

	select {
	case d.trigger <- reply:
	case <-d.done:
		return ErrNotPolling
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-reply:
		return nil
	case <-d.done:
		return ErrNotPolling
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Detector) run() {
	ticker := time.NewTicker(d.opts.Interval)

	defer func() {
		if r := recover(); r != nil {
			d.mu.Lock()
			d.fatal = fmt.Errorf("detector: polling pipeline fault: %v", r)
			d.mu.Unlock()
			d.log.Error("polling pipeline fault", zap.Any("panic", r))
		}

		ticker.Stop()
		d.running.Store(false)
		close(d.events)
		close(d.titles)
		close(d.done)
	}()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.cycle()
		case reply := <-d.trigger:
			d.cycle()
			close(reply)
		}
	}
}

// cycle runs one detection pass: snapshot, filter, diff, swap, title scan.
// Runs only on the run goroutine, so retained needs no lock.
func (d *Detector) cycle() {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.Interval)
	defer cancel()

	procs, err := d.source.Processes(ctx)
	if err != nil {
		// A single failed cycle is never fatal; skip and keep polling.
		d.log.Warn("process snapshot failed, skipping cycle", zap.Error(err))
		return
	}

	now := time.Now()
	current := make(map[string]snapshot.ProcessInfo)
	for _, p := range d.sig.Filter(procs) {
		current[p.PID] = p
	}

	for pid, p := range current {
		prev, seen := d.retained[pid]
		if !seen {
			d.emit(ProcessEvent{PID: pid, Name: p.Name, Kind: ProcessStarted, Timestamp: now})
			continue
		}
		if prev.Name != p.Name || prev.Cmdline != p.Cmdline {
			d.emit(ProcessEvent{PID: pid, Name: p.Name, Kind: ProcessModified, Timestamp: now})
		}
	}

	forgetter, canForget := d.source.(snapshot.TitleForgetter)
	for pid, p := range d.retained {
		if _, alive := current[pid]; !alive {
			d.emit(ProcessEvent{PID: pid, Name: p.Name, Kind: ProcessEnded, Timestamp: now})
			if canForget {
				forgetter.Forget(pid)
			}
		}
	}

	// Replace, never merge: the next cycle diffs against this cycle's
	// result, not a mix.
	d.retained = current

	d.scanTitles(ctx, current)
}

// scanTitles fetches window titles for all live matched processes on a
// bounded worker pool and emits one update per title found.
func (d *Detector) scanTitles(ctx context.Context, current map[string]snapshot.ProcessInfo) {
	if len(current) == 0 {
		return
	}

	sem := make(chan struct{}, d.opts.TitleWorkers)
	var wg sync.WaitGroup

	for pid := range current {
		wg.Add(1)
		sem <- struct{}{}

		go func(pid string) {
			defer wg.Done()
			defer func() { <-sem }()

			title, found, err := d.source.WindowTitle(ctx, pid)
			if err != nil {
				// Timeouts and lookup failures mean "no new
				// information", never an escalation.
				d.log.Debug("window title lookup failed",
					zap.String("pid", pid), zap.Error(err))
				return
			}
			if !found {
				return
			}

			select {
			case d.titles <- TitleUpdate{PID: pid, Title: title, Timestamp: time.Now()}:
			default:
				d.dropped.Add(1)
			}
		}(pid)
	}

	wg.Wait()
}

func (d *Detector) emit(evt ProcessEvent) {
	select {
	case d.events <- evt:
	default:
		d.dropped.Add(1)
		d.log.Warn("event buffer full, dropping process event",
			zap.String("pid", evt.PID), zap.String("kind", string(evt.Kind)))
	}
}

// Dropped returns how many signals were discarded due to full buffers.
func (d *Detector) Dropped() int64 {
	return d.dropped.Load()
}
