// Package prefetch turns an item-index window into fire-and-forget work for
// the scheduler so the interactive path rarely blocks.
package prefetch

import (
	"github.com/rs/zerolog/log"

	"github.com/openannotate/labelassist/internal/assist"
	"github.com/openannotate/labelassist/internal/assist/policy"
	"github.com/openannotate/labelassist/internal/assist/scheduler"
)

// ComputeBuilder resolves the compute function for one key. Resolved once
// per key at planning time, not inside the worker.
type ComputeBuilder func(key assist.Key) assist.ComputeFunc

// Planner walks an index window, consults the inclusion policy, and submits
// every missing key to the scheduler.
type Planner struct {
	project *assist.Project
	policy  *policy.Policy
	sched   *scheduler.Scheduler
	build   ComputeBuilder
	cached  func(key assist.Key) bool
}

func New(project *assist.Project, pol *policy.Policy, sched *scheduler.Scheduler, build ComputeBuilder, cached func(assist.Key) bool) *Planner {
	return &Planner{project: project, policy: pol, sched: sched, build: build, cached: cached}
}

// Window computes the half-open item range selected by an anchor and a
// signed count: count >= 0 prefetches forward from start, negative counts
// prefetch backward, ending just before start. The range is clamped to the
// project's valid item indices.
func (p *Planner) Window(start, count int) (lo, hi int) {
	if count >= 0 {
		lo, hi = start, start+count
	} else {
		lo, hi = start+count, start
	}
	lo = p.project.ClampItem(lo)
	hi = p.project.ClampItem(hi)
	return lo, hi
}

// Plan schedules every key the policy wants inside the window and returns
// the task handles. It never waits for a computation; only the scheduler's
// registration lock is touched. Keys already persisted are skipped; a racing
// completion between that check and submission is benign because the
// scheduler joins duplicates.
func (p *Planner) Plan(start, count int) []*scheduler.Task {
	lo, hi := p.Window(start, count)

	var tasks []*scheduler.Task
	for item := lo; item < hi; item++ {
		for field, spec := range p.project.Fields {
			if !p.policy.ShouldInclude(item, field) {
				continue
			}
			for _, key := range p.policy.KeysFor(item, field, assist.AssistantsFor(spec.Widget)) {
				if p.cached != nil && p.cached(key) {
					continue
				}
				task, err := p.sched.SubmitIfAbsent(key, p.build(key))
				if err != nil {
					log.Warn().Err(err).Str("key", key.String()).Msg("prefetch submission failed")
					continue
				}
				tasks = append(tasks, task)
			}
		}
	}
	return tasks
}
