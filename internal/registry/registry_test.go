package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/casesim/internal/model"
	"github.com/pavelanni/casesim/internal/session"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func twoStepCase() model.Case {
	return model.Case{
		ID: "c1",
		Steps: []model.Step{
			{ID: "s1", Kind: model.StepChoice, Options: []model.Option{{ID: "a", Correct: true}}},
			{ID: "s2", Kind: model.StepFreeText},
		},
	}
}

func newTestRegistry(t *testing.T) (*Registry, *fakeClock, *[]string) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	var mu sync.Mutex
	var completed []string
	r := New(WithClock(clock.Now), OnComplete(func(e *Entry) {
		mu.Lock()
		completed = append(completed, e.ID)
		mu.Unlock()
	}))
	return r, clock, &completed
}

func TestStartGetRemove(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	e := r.Start(twoStepCase())
	require.NotEmpty(t, e.ID)

	got, ok := r.Get(e.ID)
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.Equal(t, 1, r.Len())

	r.Remove(e.ID)
	_, ok = r.Get(e.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestSweepExpiresTimedSessions(t *testing.T) {
	r, clock, completed := newTestRegistry(t)
	timed := r.Start(twoStepCase())
	timed.Do(func(c *session.Controller) { c.SetMode(model.ModeTimedExam) })
	untimed := r.Start(twoStepCase())
	untimed.Do(func(c *session.Controller) { c.SetMode(model.ModeUntimedStudy) })

	clock.Advance(700 * time.Second)
	r.Sweep()
	timed.View(func(c *session.Controller) {
		assert.False(t, c.Expired())
		assert.Equal(t, 700, c.Elapsed())
	})

	clock.Advance(20500 * time.Millisecond)
	r.Sweep()
	r.Sweep()
	timed.View(func(c *session.Controller) {
		assert.True(t, c.Expired())
		assert.True(t, c.Completed())
	})
	untimed.View(func(c *session.Controller) {
		assert.False(t, c.Expired())
		assert.Equal(t, 0, c.Index())
	})
	assert.Equal(t, []string{timed.ID}, *completed)
}

func TestTouchUsesWholeSeconds(t *testing.T) {
	r, clock, _ := newTestRegistry(t)
	e := r.Start(twoStepCase())
	e.Do(func(c *session.Controller) { c.SetMode(model.ModeTimedExam) })

	for i := 0; i < 4; i++ {
		clock.Advance(500 * time.Millisecond)
		r.Touch(e)
	}
	e.View(func(c *session.Controller) {
		assert.Equal(t, 2, c.Elapsed())
	})
}

func TestCompletionHookFiresPerMutation(t *testing.T) {
	r, _, completed := newTestRegistry(t)
	e := r.Start(twoStepCase())

	e.Do(func(c *session.Controller) {
		c.RecordAnswer("s1", session.Choice("a"))
		c.GoToNextStep()
	})
	assert.Empty(t, *completed)

	e.Do(func(c *session.Controller) {
		c.RecordAnswer("s2", session.Text("Reflexión suficientemente larga"))
		c.GoToNextStep()
	})
	assert.Equal(t, []string{e.ID}, *completed)

	e.Do(func(c *session.Controller) { c.AdjustPoints("s2", 1) })
	assert.Equal(t, []string{e.ID, e.ID}, *completed)

	e.View(func(c *session.Controller) {})
	assert.Len(t, *completed, 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
