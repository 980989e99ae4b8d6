// Package manager composes the store, scheduler, policy, and prefetch
// planner into the assistance cache served to the UI layer.
package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/openannotate/labelassist/internal/assist"
	"github.com/openannotate/labelassist/internal/assist/policy"
	"github.com/openannotate/labelassist/internal/assist/prefetch"
	"github.com/openannotate/labelassist/internal/assist/scheduler"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assist_cache_hits_total",
		Help: "The total number of suggestion cache hits",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assist_cache_misses_total",
		Help: "The total number of suggestion cache misses",
	})
	computeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assist_compute_failures_total",
		Help: "The total number of failed suggestion computations",
	})
	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assist_persist_failures_total",
		Help: "The total number of failed suggestion persist attempts",
	})
	computeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "assist_compute_duration_seconds",
		Help:    "Duration of suggestion computations",
		Buckets: prometheus.DefBuckets,
	})
)

// DefaultWaitTimeout bounds how long an interactive caller blocks on an
// in-flight computation.
const DefaultWaitTimeout = 60 * time.Second

// Config holds facade configuration.
type Config struct {
	Workers          int
	WaitTimeout      time.Duration
	DiskCacheEnabled bool
	// Sign-directed window sizes applied by the navigation hooks.
	OnNext int
	OnPrev int
}

// Manager is the assistance cache facade. It exclusively owns the store
// handle and the in-memory entry map; all access is serialized through its
// lock. The scheduler's in-flight registry has its own lock, acquired before
// the manager's on the persist path, so no manager method may call into the
// scheduler while holding mu.
type Manager struct {
	mu      sync.Mutex
	entries map[string]string

	store   assist.Store
	sched   *scheduler.Scheduler
	planner *prefetch.Planner
	cfg     Config
}

// New loads any previously persisted entries and starts the worker pool.
// A store that cannot be read starts empty; that is a degraded cache, not a
// startup failure.
func New(cfg Config, st assist.Store, project *assist.Project, pol *policy.Policy, build prefetch.ComputeBuilder) *Manager {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}

	entries, err := st.Load()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load suggestion store, starting empty")
		entries = map[string]string{}
	}
	log.Info().Int("entries", len(entries)).Msg("suggestion cache loaded")

	m := &Manager{
		entries: entries,
		store:   st,
		cfg:     cfg,
	}
	m.sched = scheduler.New(cfg.Workers, m.persistCompleted)

	instrumented := func(key assist.Key) assist.ComputeFunc {
		return m.instrument(build(key))
	}
	m.planner = prefetch.New(project, pol, m.sched, instrumented, m.Cached)

	return m
}

// GetOrCompute returns the cached suggestion for key, or joins (or starts)
// the in-flight computation and blocks up to timeout for its result. A
// timed-out caller does not cancel the computation; it completes in the
// background and is cached for the next caller.
func (m *Manager) GetOrCompute(ctx context.Context, key assist.Key, fn assist.ComputeFunc, timeout time.Duration) (string, error) {
	if value, ok := m.lookup(key); ok {
		cacheHits.Inc()
		return value, nil
	}
	cacheMisses.Inc()

	task, err := m.sched.SubmitIfAbsent(key, m.instrument(fn))
	if err != nil {
		return "", err
	}

	if timeout <= 0 {
		timeout = m.cfg.WaitTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-task.Done():
		value, err := task.Result()
		if err != nil {
			return "", fmt.Errorf("%w: %v", assist.ErrComputeFailed, err)
		}
		return value, nil
	case <-timer.C:
		return "", fmt.Errorf("%w after %s: %s", assist.ErrWaitTimeout, timeout, key)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Warm schedules the configured window of suggestions around start without
// waiting for any of them.
func (m *Manager) Warm(start, count int) {
	tasks := m.planner.Plan(start, count)
	if len(tasks) > 0 {
		log.Debug().Int("start", start).Int("count", count).Int("scheduled", len(tasks)).Msg("prefetch scheduled")
	}
}

// WarmAndWait schedules a window and blocks until every planned computation
// has terminated. Used for the synchronous startup warm-up.
func (m *Manager) WarmAndWait(ctx context.Context, start, count int) error {
	tasks := m.planner.Plan(start, count)
	for _, task := range tasks {
		select {
		case <-task.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// OnNext is the navigation hook for moving forward; it warms the configured
// window after the current item.
func (m *Manager) OnNext(current int) {
	m.Warm(current+1, m.cfg.OnNext)
}

// OnPrev is the navigation hook for moving backward; the configured window
// size is negative, selecting items before the anchor.
func (m *Manager) OnPrev(current int) {
	m.Warm(current, m.cfg.OnPrev)
}

// Clear cancels all in-flight work, drops the in-memory entries, and deletes
// the backing store.
func (m *Manager) Clear() error {
	m.sched.CancelAll()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string]string{}
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear suggestion store: %w", err)
	}
	return nil
}

// Cached reports whether a suggestion for key is already persisted.
func (m *Manager) Cached(key assist.Key) bool {
	_, ok := m.lookup(key)
	return ok
}

// Stats returns the read-only view served to the UI layer.
func (m *Manager) Stats() assist.Stats {
	m.mu.Lock()
	count := len(m.entries)
	m.mu.Unlock()

	return assist.Stats{
		DiskCacheEnabled: m.cfg.DiskCacheEnabled,
		CachedItemCount:  count,
		InProgressCount:  m.sched.InFlight(),
	}
}

// Close drains the worker pool. Pending results are still persisted.
func (m *Manager) Close() {
	m.sched.Close()
}

func (m *Manager) lookup(key assist.Key) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.entries[key.String()]
	return value, ok
}

// persistCompleted runs under the scheduler lock for every successful
// computation, whether or not a caller is still waiting. Store failures are
// logged and must never fail the computation itself.
func (m *Manager) persistCompleted(key assist.Key, value string) {
	m.mu.Lock()
	m.entries[key.String()] = value
	m.mu.Unlock()

	if err := m.store.Put(key.String(), value); err != nil {
		persistFailures.Inc()
		log.Warn().Err(err).Str("key", key.String()).Msg("failed to persist suggestion")
	}
}

func (m *Manager) instrument(fn assist.ComputeFunc) assist.ComputeFunc {
	return func(ctx context.Context) (string, error) {
		timer := prometheus.NewTimer(computeDuration)
		defer timer.ObserveDuration()

		value, err := fn(ctx)
		if err != nil {
			computeFailures.Inc()
		}
		return value, err
	}
}
