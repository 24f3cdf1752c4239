package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the Runner's injectable scheduling parameters. All fields
// have defaults applied by DefaultConfig; callers typically start there and
// override only what they need.
type Config struct {
	// Concurrency is the size of the worker pool.
	Concurrency int
	// ConcurrencyPerModel caps how many transition tasks are dispatched
	// per model per scheduling tick (fairness cap).
	ConcurrencyPerModel int
	// TaskDeadline is the wall-clock budget per task; it is also the
	// lock_period passed to FetchTransitionTasks / ClaimReady.
	TaskDeadline time.Duration
	// WatchdogInterval is the scheduling-loop heartbeat period; the
	// watchdog alarm is armed for 2x this.
	WatchdogInterval time.Duration
	// DeleteInterval is the cadence of deletion sweeps.
	DeleteInterval time.Duration
	// MinLoopDelay floors the scheduling-loop sleep.
	MinLoopDelay time.Duration
	// MaxLoopDelay ceilings the exponential backoff applied when idle.
	MaxLoopDelay time.Duration
	// LivenessFile, if set, has its mtime bumped each watchdog tick.
	LivenessFile string
	// RunFor, if >0, is the total wall-clock time before graceful
	// shutdown. Zero means run indefinitely.
	RunFor time.Duration
}

// DefaultConfig returns the documented defaults for a single-process
// deployment.
func DefaultConfig() Config {
	return Config{
		Concurrency:         10,
		ConcurrencyPerModel: 5,
		TaskDeadline:        15 * time.Second,
		WatchdogInterval:    60 * time.Second,
		DeleteInterval:      30 * time.Second,
		MinLoopDelay:        500 * time.Millisecond,
		MaxLoopDelay:        5 * time.Second,
	}
}

// taskSlot tracks one in-flight task's deadline and cancellation handle so
// the main loop can enforce it without touching the worker goroutine
// directly.
type taskSlot struct {
	mu       sync.Mutex
	label    string
	cancel   context.CancelFunc
	deadline time.Time
	cleared  bool
}

// clear marks the slot cleared exactly once, returning true the first
// time. The main loop calls this on deadline expiry; the worker calls it
// on normal completion. Whichever runs first wins; the loser's bookkeeping
// (decrementing the active count) is skipped since it already happened.
func (s *taskSlot) clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleared {
		return false
	}
	s.cleared = true
	return true
}

// Runner is a bounded worker pool that fairly dispatches transition and
// deletion tasks across registered models.
type Runner struct {
	cfg    Config
	logger *logrus.Logger

	modelsMu sync.Mutex
	models   []ModelRunner

	active  int64 // atomic: count of in-flight task slots
	handled int64 // atomic: cumulative completed tasks
	fatal   chan error
	slotsMu sync.Mutex
	slots   map[*taskSlot]struct{}
	wg      sync.WaitGroup

	lastWatchdogTick time.Time
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithLogger overrides the logger used for scheduling diagnostics. The
// default is logrus.StandardLogger().
func WithLogger(logger *logrus.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// New creates a Runner over models, applying cfg and any options.
func New(cfg Config, models []ModelRunner, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: logrus.StandardLogger(),
		models: append([]ModelRunner(nil), models...),
		fatal:  make(chan error, 1),
		slots:  make(map[*taskSlot]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot is a point-in-time view of the runner's health, exposed for a
// future HTTP liveness/metrics endpoint (the endpoint itself is out of
// scope; this is the data source).
type Snapshot struct {
	Handled          int64
	Active           int64
	LastWatchdogTick time.Time
	Pending          map[string]int
}

// Snapshot returns the runner's current counters and, for each registered
// model, its pending-row count.
func (r *Runner) Snapshot(ctx context.Context) Snapshot {
	r.modelsMu.Lock()
	models := append([]ModelRunner(nil), r.models...)
	r.modelsMu.Unlock()

	pending := make(map[string]int, len(models))
	for _, mr := range models {
		n, err := mr.PendingCount(ctx)
		if err != nil {
			continue
		}
		pending[mr.Label()] = n
	}
	return Snapshot{
		Handled:          atomic.LoadInt64(&r.handled),
		Active:           atomic.LoadInt64(&r.active),
		LastWatchdogTick: r.lastWatchdogTick,
		Pending:          pending,
	}
}

// Run starts the scheduling loop and blocks until ctx is cancelled, RunFor
// elapses, or a fatal error occurs. It returns nil on graceful shutdown,
// ctx.Err() if ctx drove the shutdown, or the first FatalError a worker
// observed.
func (r *Runner) Run(ctx context.Context) error {
	wd := newWatchdog(r.cfg.WatchdogInterval, r.logger)
	defer wd.Disarm()
	wd.Rearm()
	r.lastWatchdogTick = time.Now()

	var hardDeadline time.Time
	if r.cfg.RunFor > 0 {
		hardDeadline = time.Now().Add(r.cfg.RunFor)
	}

	lastWatchdog := time.Now()
	lastDelete := time.Now()
	loopDelay := r.cfg.MinLoopDelay

	for {
		select {
		case <-ctx.Done():
			r.drain()
			return ctx.Err()
		case err := <-r.fatal:
			r.drain()
			return err
		default:
		}

		now := time.Now()
		if now.Sub(lastWatchdog) >= r.cfg.WatchdogInterval {
			wd.Rearm()
			touchLiveness(r.cfg.LivenessFile, now, r.logger)
			lastWatchdog = now
			r.lastWatchdogTick = now
		}

		r.enforceDeadlines(now)

		if now.Sub(lastDelete) >= r.cfg.DeleteInterval {
			r.dispatchDeletes()
			lastDelete = now
		}

		dispatched := r.dispatchTransitions(ctx)

		if !hardDeadline.IsZero() && now.After(hardDeadline) {
			r.drain()
			return nil
		}

		if dispatched || atomic.LoadInt64(&r.active) > 0 {
			time.Sleep(r.cfg.MinLoopDelay)
			loopDelay = r.cfg.MinLoopDelay
			continue
		}
		time.Sleep(loopDelay)
		loopDelay = time.Duration(float64(loopDelay) * 1.5)
		if loopDelay > r.cfg.MaxLoopDelay {
			loopDelay = r.cfg.MaxLoopDelay
		}
	}
}

// idleCapacity reports how many more tasks can be dispatched right now.
func (r *Runner) idleCapacity() int {
	n := r.cfg.Concurrency - int(atomic.LoadInt64(&r.active))
	if n < 0 {
		return 0
	}
	return n
}

// dispatchTransitions implements fair model-rotation dispatch: walk models
// in order, claiming up to ConcurrencyPerModel per model until idle
// capacity is exhausted, then rotate the model list left by one.
func (r *Runner) dispatchTransitions(ctx context.Context) bool {
	remaining := r.idleCapacity()
	if remaining <= 0 {
		return false
	}

	r.modelsMu.Lock()
	models := append([]ModelRunner(nil), r.models...)
	r.modelsMu.Unlock()

	dispatchedAny := false
	for _, mr := range models {
		if remaining <= 0 {
			break
		}
		n := r.cfg.ConcurrencyPerModel
		if n > remaining {
			n = remaining
		}
		taskList, err := mr.FetchTransitionTasks(ctx, n, r.cfg.TaskDeadline)
		if err != nil {
			r.logger.WithError(err).WithField("model", mr.Label()).Warn("fetch_transition_tasks failed")
			continue
		}
		for _, t := range taskList {
			if r.spawn(mr.Label(), t) {
				dispatchedAny = true
				remaining--
			}
		}
	}

	if len(models) > 1 {
		r.modelsMu.Lock()
		r.models = append(r.models[1:], r.models[0])
		r.modelsMu.Unlock()
	}
	return dispatchedAny
}

// dispatchDeletes enqueues one deletion task per model with deletion
// states. Each task repeats RunDeletePass until two consecutive passes
// return the same count.
func (r *Runner) dispatchDeletes() {
	r.modelsMu.Lock()
	models := append([]ModelRunner(nil), r.models...)
	r.modelsMu.Unlock()

	for _, mr := range models {
		if !mr.HasDeletionStates() {
			continue
		}
		mr := mr
		task := TaskFunc(func(taskCtx context.Context) error {
			prev := -1
			for {
				n, err := mr.RunDeletePass(taskCtx)
				if err != nil {
					return err
				}
				if n == prev {
					return nil
				}
				prev = n
				select {
				case <-taskCtx.Done():
					return nil
				default:
				}
			}
		})
		if !r.spawn(mr.Label(), task) {
			r.logger.WithField("model", mr.Label()).Warn("delete task dropped: worker pool saturated")
		}
	}
}

// spawn runs t in its own goroutine under a cancellable, deadlined
// context, tracked as a taskSlot for deadline enforcement. It reports
// whether the task was accepted (false if the pool has no idle capacity).
func (r *Runner) spawn(label string, t Task) bool {
	if atomic.AddInt64(&r.active, 1) > int64(r.cfg.Concurrency) {
		atomic.AddInt64(&r.active, -1)
		return false
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	slot := &taskSlot{label: label, cancel: cancel, deadline: time.Now().Add(r.cfg.TaskDeadline)}

	r.slotsMu.Lock()
	r.slots[slot] = struct{}{}
	r.slotsMu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := t.Run(taskCtx)
		cancel()

		r.slotsMu.Lock()
		delete(r.slots, slot)
		r.slotsMu.Unlock()

		if slot.clear() {
			atomic.AddInt64(&r.active, -1)
		}
		atomic.AddInt64(&r.handled, 1)

		if err == nil || err == context.Canceled || err == context.DeadlineExceeded {
			return
		}
		if fe, ok := err.(FatalError); ok && fe.Fatal() {
			r.logger.WithError(err).WithField("model", label).Error("fatal transition error, shutting down runner")
			select {
			case r.fatal <- err:
			default:
			}
			return
		}
		r.logger.WithError(err).WithField("model", label).Warn("task failed")
	}()
	return true
}

// enforceDeadlines cancels every in-flight task whose deadline has passed
// and clears its slot immediately, so the pool's idle capacity recovers
// without waiting for the (possibly stuck) handler goroutine to actually
// return. The abandoned goroutine exits on its own once its handler
// observes cancellation, or never does — the row's visibility timeout
// covers correctness either way.
func (r *Runner) enforceDeadlines(now time.Time) {
	r.slotsMu.Lock()
	expired := make([]*taskSlot, 0)
	for slot := range r.slots {
		slot.mu.Lock()
		past := !slot.cleared && now.After(slot.deadline)
		slot.mu.Unlock()
		if past {
			expired = append(expired, slot)
			delete(r.slots, slot)
		}
	}
	r.slotsMu.Unlock()

	for _, slot := range expired {
		slot.cancel()
		if slot.clear() {
			atomic.AddInt64(&r.active, -1)
		}
		r.logger.WithField("model", slot.label).Warn("task missed deadline, cancelled and slot reclaimed")
	}
}

// drain signals shutdown and waits up to TaskDeadline for in-flight tasks
// to finish, cancelling any still running past that grace period.
func (r *Runner) drain() {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(r.cfg.TaskDeadline):
		r.slotsMu.Lock()
		for slot := range r.slots {
			slot.cancel()
		}
		r.slotsMu.Unlock()
		<-done
	}
}

// Register adds a model to the rotation. Not safe to call concurrently
// with Run.
func (r *Runner) Register(mr ModelRunner) {
	r.modelsMu.Lock()
	defer r.modelsMu.Unlock()
	r.models = append(r.models, mr)
}
