// Package worker runs long operations (image imports, exports) off the
// UI goroutine with progress reporting and cooperative cancellation
// between items.
package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Progress reports how far a job has come.
type Progress struct {
	Done  int
	Total int
}

// Job is one unit of background work split into items. Run is called
// once per index; the context is checked between items, not within one.
type Job struct {
	Name  string
	Total int
	Run   func(ctx context.Context, index int) error

	// OnProgress is called after every item, on the worker goroutine.
	OnProgress func(p Progress)
	// OnDone is called once at the end with the errors of the items that
	// failed, in item order. Successful items contribute no entry.
	OnDone func(errs []error, canceled bool)
}

// Runner executes jobs sequentially on one background goroutine per job.
type Runner struct {
	log    zerolog.Logger
	wg     sync.WaitGroup
	active atomic.Int32
}

// NewRunner creates a runner.
func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{log: log}
}

// Active reports whether any job is still running.
func (r *Runner) Active() bool { return r.active.Load() > 0 }

// Wait blocks until all started jobs have finished.
func (r *Runner) Wait() { r.wg.Wait() }

// Start launches a job. The returned cancel function stops the job after
// the item currently in flight.
func (r *Runner) Start(job Job) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	r.active.Add(1)
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer r.active.Add(-1)

		log := r.log.With().Str("job", job.Name).Logger()
		log.Debug().Int("total", job.Total).Msg("job started")

		var errs []error
		canceled := false
		for i := 0; i < job.Total; i++ {
			if ctx.Err() != nil {
				canceled = true
				break
			}
			if err := job.Run(ctx, i); err != nil {
				log.Warn().Int("index", i).Err(err).Msg("job item failed")
				errs = append(errs, err)
			}
			if job.OnProgress != nil {
				job.OnProgress(Progress{Done: i + 1, Total: job.Total})
			}
		}

		log.Debug().Int("errors", len(errs)).Bool("canceled", canceled).Msg("job finished")
		if job.OnDone != nil {
			job.OnDone(errs, canceled)
		}
	}()
	return cancel
}
