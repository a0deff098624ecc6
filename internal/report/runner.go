package report

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
)

var ErrRunnerClosed = errors.New("report runner closed")

type ComputeFunc func(ctx context.Context) (domain.Report, error)

// Runner computes reports in the background and keeps only the newest one.
// Every Submit takes a fresh generation and cancels the previous in-flight
// computation; a result is committed only if its generation is still the
// newest when it finishes.
type Runner struct {
	mu        sync.Mutex
	gen       uint64
	cancel    context.CancelFunc
	current   *domain.Report
	currentAt uint64
	lastErr   error
	closed    bool

	root context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
	log  *logrus.Entry
}

func NewRunner(log *logrus.Logger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	root, stop := context.WithCancel(context.Background())
	return &Runner{
		root: root,
		stop: stop,
		log:  log.WithField("component", "report-runner"),
	}
}

// Submit schedules compute and returns its generation. ctx only contributes
// values; the computation outlives the caller and is cancelled by a newer
// Submit or by Close.
func (r *Runner) Submit(ctx context.Context, compute ComputeFunc) (uint64, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, ErrRunnerClosed
	}
	r.gen++
	gen := r.gen
	if r.cancel != nil {
		r.cancel()
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopAfter := context.AfterFunc(r.root, cancel)
	r.cancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer stopAfter()
		defer cancel()

		rep, err := compute(runCtx)
		r.commit(runCtx, gen, rep, err)
	}()
	return gen, nil
}

func (r *Runner) commit(ctx context.Context, gen uint64, rep domain.Report, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen || ctx.Err() != nil {
		r.log.WithField("generation", gen).Debug("discarding superseded report")
		return false
	}
	if err != nil {
		r.lastErr = err
		r.log.WithError(err).WithField("generation", gen).Warn("report computation failed")
		return false
	}
	r.current = &rep
	r.currentAt = gen
	r.lastErr = nil
	return true
}

// Current returns the newest committed report and its generation.
func (r *Runner) Current() (domain.Report, uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return domain.Report{}, 0, false
	}
	return *r.current, r.currentAt, true
}

// LastError reports the failure of the newest computation, if it failed.
func (r *Runner) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Wait blocks until all in-flight computations have returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.stop()
	r.wg.Wait()
}
