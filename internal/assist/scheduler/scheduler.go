// Package scheduler owns the bounded worker pool and the in-flight registry,
// enforcing at most one concurrent computation per suggestion key.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/openannotate/labelassist/internal/assist"
)

const (
	// DefaultWorkers bounds total concurrent computations.
	DefaultWorkers = 20

	queuePerWorker = 64
)

var (
	ErrClosed    = errors.New("scheduler is closed")
	ErrCancelled = errors.New("suggestion computation cancelled")
)

// Task is the handle for one in-flight computation. Multiple callers may
// wait on the same task; there is exactly one underlying pool execution.
type Task struct {
	key     assist.Key
	run     assist.ComputeFunc
	started atomic.Bool
	done    chan struct{}
	value   string
	err     error
}

func newTask(key assist.Key, run assist.ComputeFunc) *Task {
	return &Task{key: key, run: run, done: make(chan struct{})}
}

// Key returns the suggestion key this task computes.
func (t *Task) Key() assist.Key { return t.key }

// Done is closed when the computation terminates, whether or not any caller
// is still waiting.
func (t *Task) Done() <-chan struct{} { return t.done }

// Result reports the outcome. Only valid after Done is closed.
func (t *Task) Result() (string, error) { return t.value, t.err }

// PersistFunc is invoked under the scheduler lock for every successful,
// non-cancelled computation. It must not block on network-bound work and
// must swallow its own failures.
type PersistFunc func(key assist.Key, value string)

// Scheduler runs computations on a fixed-size worker pool. Registration,
// deregistration, and persistence share one lock; compute functions run
// outside it.
type Scheduler struct {
	mu       sync.Mutex
	inflight map[assist.Key]*Task

	tasks   chan *Task
	persist PersistFunc
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// New starts a scheduler with the given pool size. persist may be nil.
func New(workers int, persist PersistFunc) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	s := &Scheduler{
		inflight: make(map[assist.Key]*Task),
		tasks:    make(chan *Task, workers*queuePerWorker),
		persist:  persist,
	}

	s.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go s.worker()
	}
	return s
}

// SubmitIfAbsent registers a computation for key unless one is already in
// flight, in which case the existing task is returned and fn is discarded.
// The check-and-register step is the critical section; fn itself runs on the
// pool outside the lock.
func (s *Scheduler) SubmitIfAbsent(key assist.Key, fn assist.ComputeFunc) (*Task, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.Lock()
	if t, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		return t, nil
	}

	t := newTask(key, fn)
	s.inflight[key] = t

	select {
	case s.tasks <- t:
		s.mu.Unlock()
		return t, nil
	default:
		delete(s.inflight, key)
		s.mu.Unlock()
		log.Warn().Str("key", key.String()).Msg("scheduler queue full, dropping computation")
		return nil, assist.ErrQueueFull
	}
}

// InFlight returns the number of registered computations.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// CancelAll drops every queued task and discards the results of tasks
// already running, then clears the registry. Running tasks are not
// interrupted; their completion is simply not persisted.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	cancelled := s.inflight
	s.inflight = make(map[assist.Key]*Task)
	s.mu.Unlock()

	for _, t := range cancelled {
		if t.started.CompareAndSwap(false, true) {
			// Never reached the pool; fail any waiters immediately.
			t.err = ErrCancelled
			close(t.done)
		}
	}
}

// Close stops accepting work and waits for running tasks to drain.
func (s *Scheduler) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.tasks)
	s.wg.Wait()
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for t := range s.tasks {
		s.execute(t)
	}
}

func (s *Scheduler) execute(t *Task) {
	if !t.started.CompareAndSwap(false, true) {
		// Dropped by CancelAll before it ran.
		return
	}

	value, err := t.run(context.Background())

	// Deregistration and persistence happen under the same lock as
	// registration, so racing callers either join this task or see the
	// persisted value.
	s.mu.Lock()
	registered := s.inflight[t.key] == t
	if registered {
		delete(s.inflight, t.key)
	}
	if err == nil && registered && s.persist != nil {
		s.persist(t.key, value)
	}
	s.mu.Unlock()

	if err != nil {
		log.Debug().Err(err).Str("key", t.key.String()).Msg("suggestion computation failed")
	}

	t.value, t.err = value, err
	close(t.done)
}
