package prefetch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openannotate/labelassist/internal/assist"
	"github.com/openannotate/labelassist/internal/assist/policy"
	"github.com/openannotate/labelassist/internal/assist/scheduler"
)

func quickBuild(key assist.Key) assist.ComputeFunc {
	return func(context.Context) (string, error) {
		return "suggestion for " + key.String(), nil
	}
}

func testProject(items int) *assist.Project {
	return &assist.Project{
		ItemCount: items,
		Fields: []assist.FieldSpec{
			{Name: "sentiment", Widget: assist.WidgetChoices}, // hint, prelabel
			{Name: "entities", Widget: assist.WidgetLabels},   // hint, keywords, prelabel
		},
	}
}

func TestWindowDirectionAndClamping(t *testing.T) {
	p := New(testProject(20), policy.New(true, nil), nil, quickBuild, nil)

	cases := []struct {
		start, count int
		lo, hi       int
	}{
		{10, 5, 10, 15},  // forward
		{10, -5, 5, 10},  // backward, ending just before the anchor
		{18, 5, 18, 20},  // clamped at the top
		{2, -5, 0, 2},    // clamped at the bottom
		{25, 5, 20, 20},  // fully out of range, empty
		{-3, -5, 0, 0},   // fully out of range, empty
		{4, 0, 4, 4},     // zero count, empty
	}
	for _, tc := range cases {
		lo, hi := p.Window(tc.start, tc.count)
		assert.Equal(t, tc.lo, lo, "start=%d count=%d", tc.start, tc.count)
		assert.Equal(t, tc.hi, hi, "start=%d count=%d", tc.start, tc.count)
	}
}

func TestPlanHonorsPolicy(t *testing.T) {
	sched := scheduler.New(2, nil)
	defer sched.Close()

	pol := policy.New(false, map[int]map[int][]string{
		2: {0: {"hint"}},
	})
	p := New(testProject(10), pol, sched, quickBuild, nil)

	tasks := p.Plan(0, 5)
	require.Len(t, tasks, 1)
	assert.Equal(t, assist.Key{Item: 2, Field: 0, Assistant: "hint"}, tasks[0].Key())

	for _, task := range tasks {
		<-task.Done()
	}
}

func TestPlanEnumeratesCatalog(t *testing.T) {
	sched := scheduler.New(4, nil)
	defer sched.Close()

	p := New(testProject(10), policy.New(true, nil), sched, quickBuild, nil)

	// Two items, choices field has 2 assistants, labels field has 3.
	tasks := p.Plan(0, 2)
	assert.Len(t, tasks, 2*(2+3))

	for _, task := range tasks {
		<-task.Done()
	}
}

func TestPlanSkipsCachedKeys(t *testing.T) {
	sched := scheduler.New(2, nil)
	defer sched.Close()

	cached := func(key assist.Key) bool {
		return key.Assistant == "hint"
	}
	pol := policy.New(false, map[int]map[int][]string{
		1: {0: {"hint", "prelabel"}},
	})
	p := New(testProject(10), pol, sched, quickBuild, cached)

	tasks := p.Plan(0, 5)
	require.Len(t, tasks, 1)
	assert.Equal(t, "prelabel", tasks[0].Key().Assistant)

	<-tasks[0].Done()
}

func TestPlanJoinsExistingTasks(t *testing.T) {
	sched := scheduler.New(2, nil)
	defer sched.Close()

	release := make(chan struct{})
	pol := policy.New(false, map[int]map[int][]string{
		2: {0: {"hint"}},
	})
	p := New(testProject(10), pol, sched, func(key assist.Key) assist.ComputeFunc {
		return func(context.Context) (string, error) {
			<-release
			return "v", nil
		}
	}, nil)

	first := p.Plan(0, 5)
	second := p.Plan(0, 5)
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	// The second plan joined the in-flight task instead of scheduling a
	// duplicate.
	assert.Same(t, first[0], second[0])

	close(release)
	<-first[0].Done()
}
