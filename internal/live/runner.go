package live

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TruWeaveTrader/statarb/internal/simulator"
	"go.uber.org/zap"
)

// Stepper advances a simulation one trading date at a time
type Stepper interface {
	Step(ctx context.Context, date string) (simulator.StepResult, error)
	Snapshot() simulator.State
}

// Publisher receives every status snapshot
type Publisher interface {
	Publish(ctx context.Context, status Status) error
}

// Options configure a live runner
type Options struct {
	RunID      string
	Interval   time.Duration
	Schedule   *Schedule
	StatusFile string // empty disables the status file
	Publishers []Publisher
}

// ReplayWindow returns the most recent n dates of a calendar
func ReplayWindow(dates []string, n int) []string {
	if n <= 0 || n >= len(dates) {
		return dates
	}
	return dates[len(dates)-n:]
}

// Runner replays a calendar through a simulator, one date per tick
type Runner struct {
	sim    Stepper
	dates  []string
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	started   bool
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	done      chan struct{}
	startedAt time.Time
	next      int

	latest atomic.Pointer[Status]

	subsMu  sync.Mutex
	subs    map[int]chan Status
	nextSub int
}

// NewRunner creates a runner for the given replay dates
func NewRunner(sim Stepper, dates []string, opts Options, logger *zap.Logger) *Runner {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	return &Runner{
		sim:    sim,
		dates:  dates,
		opts:   opts,
		logger: logger.With(zap.String("component", "live_runner"), zap.String("run_id", opts.RunID)),
		now:    time.Now,
		done:   make(chan struct{}),
		subs:   make(map[int]chan Status),
	}
}

// Start launches the background loop. A runner is started at most once.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("live runner is already active")
	}
	if r.started {
		return fmt.Errorf("live runner cannot be restarted")
	}
	if len(r.dates) == 0 {
		return fmt.Errorf("nothing to replay")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.started = true
	r.running = true
	r.startedAt = r.now()

	r.publish(ctx, r.status(true, "started"))

	r.wg.Add(1)
	go r.loop(loopCtx)

	r.logger.Info("live runner started",
		zap.Int("dates", len(r.dates)),
		zap.Duration("interval", r.opts.Interval),
		zap.Bool("scheduled", r.opts.Schedule != nil))
	return nil
}

// Stop cancels the loop, waits for it to exit and then publishes the stopped status
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}

	r.cancel()
	r.wg.Wait()
	r.running = false

	r.publish(context.Background(), r.status(false, "stopped"))
	r.logger.Info("live runner stopped", zap.Int("steps", r.next))
	return nil
}

// Done is closed once every replay date has been stepped or the loop failed
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Latest returns the most recent status, nil before Start
func (r *Runner) Latest() *Status {
	return r.latest.Load()
}

// Subscribe returns a channel of status snapshots. Slow subscribers miss snapshots
// rather than block the loop.
func (r *Runner) Subscribe() (<-chan Status, func()) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan Status, 16)
	r.subs[id] = ch

	return ch, func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()
		if c, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(c)
		}
	}
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.opts.Schedule.Allows(r.now()) {
				r.logger.Debug("outside trading window, skipping tick")
				continue
			}

			// A step that has started runs to completion even if Stop cancels ctx meanwhile
			date := r.dates[r.next]
			res, err := r.sim.Step(ctx, date)
			if err != nil {
				r.logger.Error("live step failed", zap.String("date", date), zap.Error(err))
				r.publish(ctx, r.status(true, err.Error()))
				close(r.done)
				return
			}
			r.next++

			r.logger.Info("live step",
				zap.String("date", date),
				zap.Int("signals", res.Signals),
				zap.Int("opened", len(res.Opened)),
				zap.Int("closed", len(res.Closed)),
				zap.String("equity", res.Point.Equity.StringFixed(2)))

			if r.next >= len(r.dates) {
				r.publish(ctx, r.status(true, "replay complete"))
				close(r.done)
				return
			}
			r.publish(ctx, r.status(true, ""))
		}
	}
}

func (r *Runner) status(running bool, message string) *Status {
	snap := r.sim.Snapshot()
	return &Status{
		RunID:        r.opts.RunID,
		PID:          os.Getpid(),
		Running:      running,
		StartedAt:    r.startedAt,
		UpdatedAt:    r.now(),
		Date:         snap.Date,
		Step:         r.next,
		TotalSteps:   len(r.dates),
		Equity:       snap.Equity,
		Cash:         snap.Cash,
		Positions:    snap.Positions,
		TotalTrades:  snap.TotalTrades,
		ClosedTrades: snap.ClosedTrades,
		Drawdown:     snap.Drawdown,
		MaxDrawdown:  snap.MaxDrawdown,
		SharpeToDate: snap.SharpeToDate,
		Message:      message,
	}
}

func (r *Runner) publish(ctx context.Context, status *Status) {
	r.latest.Store(status)

	r.subsMu.Lock()
	for _, ch := range r.subs {
		select {
		case ch <- *status:
		default:
			r.logger.Warn("status subscriber full, dropping snapshot")
		}
	}
	r.subsMu.Unlock()

	for _, p := range r.opts.Publishers {
		if err := p.Publish(ctx, *status); err != nil {
			r.logger.Warn("failed to publish status", zap.Error(err))
		}
	}

	if r.opts.StatusFile != "" {
		if err := WriteStatus(r.opts.StatusFile, status); err != nil {
			r.logger.Warn("failed to write status file", zap.Error(err))
		}
	}
}
