package history

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-ledstrip/internal/light"
)

const (
	defaultQueueSize     = 256
	defaultWriteTimeout  = 5 * time.Second
	defaultPruneInterval = time.Hour
)

// Logger is the logging surface the Recorder needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// RecorderOptions configures a Recorder. Zero values pick defaults.
type RecorderOptions struct {
	// QueueSize is how many snapshots may wait for the writer.
	QueueSize int

	// Retention enables periodic pruning when positive.
	Retention time.Duration

	// PruneInterval is how often Retention is enforced.
	PruneInterval time.Duration

	Logger Logger
}

type record struct {
	lightID string
	state   State
	at      time.Time
}

// Recorder writes light snapshots to a Repository off the caller's goroutine.
//
// Observe never blocks: light observers run while the light serializes its
// notifications, so a slow disk must not stall MQTT handling. When the queue
// is full the snapshot is dropped and a warning logged.
type Recorder struct {
	repo          Repository
	queue         chan record
	retention     time.Duration
	pruneInterval time.Duration
	logger        Logger
	now           func() time.Time
}

// NewRecorder creates a Recorder. Call Run to start writing.
func NewRecorder(repo Repository, opts RecorderOptions) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.PruneInterval <= 0 {
		opts.PruneInterval = defaultPruneInterval
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	return &Recorder{
		repo:          repo,
		queue:         make(chan record, opts.QueueSize),
		retention:     opts.Retention,
		pruneInterval: opts.PruneInterval,
		logger:        opts.Logger,
		now:           time.Now,
	}
}

// Observe queues a snapshot. Its signature matches light.Observer.
func (r *Recorder) Observe(lightID string, state light.State) {
	rec := record{lightID: lightID, state: FromLight(state), at: r.now()}
	select {
	case r.queue <- rec:
	default:
		r.logger.Warn("history queue full, dropping snapshot", "light", lightID)
	}
}

// Run writes queued snapshots until ctx is cancelled, then drains what is
// already queued before returning.
func (r *Recorder) Run(ctx context.Context) {
	var prune <-chan time.Time
	if r.retention > 0 {
		ticker := time.NewTicker(r.pruneInterval)
		defer ticker.Stop()
		prune = ticker.C
		r.prune(ctx)
	}

	for {
		select {
		case rec := <-r.queue:
			r.write(rec)
		case <-prune:
			r.prune(ctx)
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case rec := <-r.queue:
			r.write(rec)
		default:
			return
		}
	}
}

// write outlives Run's context so queued snapshots survive shutdown.
func (r *Recorder) write(rec record) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
	defer cancel()
	if err := r.repo.Record(ctx, rec.lightID, rec.state, rec.at); err != nil {
		r.logger.Error("failed to record light state", "light", rec.lightID, "error", err)
	}
}

func (r *Recorder) prune(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()
	n, err := r.repo.Prune(ctx, r.retention)
	if err != nil {
		r.logger.Error("failed to prune light state history", "error", err)
		return
	}
	if n > 0 {
		r.logger.Debug("pruned light state history", "rows", n)
	}
}
