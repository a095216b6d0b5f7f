package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawgate/clawgate/pkg/config"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		ok    bool
	}{
		{"60s", 60 * time.Second, true},
		{"30m", 30 * time.Minute, true},
		{"2h", 2 * time.Hour, true},
		{"1d", 24 * time.Hour, true},
		{"0m", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"m", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseInterval(tt.input)
		assert.Equal(t, tt.ok, ok, "parseInterval(%q)", tt.input)
		if tt.ok {
			assert.Equal(t, tt.want, got, "parseInterval(%q)", tt.input)
		}
	}
}

func TestNextRunCronExpression(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	next, ok := nextRun("0 12 * * *", now)
	require.True(t, ok)
	assert.Equal(t, 12, next.Hour())
	assert.True(t, next.After(now))
}

func TestNextRunInvalidSchedule(t *testing.T) {
	_, ok := nextRun("not a schedule", time.Now())
	assert.False(t, ok)
	_, ok = nextRun("", time.Now())
	assert.False(t, ok)
}

func TestJobFromConfigDefaults(t *testing.T) {
	job := JobFromConfig(config.CronJobConfig{
		Name:     "morning",
		Schedule: "30m",
		Prompt:   "summarize the news",
	})

	assert.NotEmpty(t, job.ID)
	assert.True(t, job.Enabled)
	assert.Equal(t, KindAgentTurn, job.Kind)
	require.NotNil(t, job.NextRun)
	assert.True(t, job.NextRun.After(time.Now()))
}

func TestJobFromConfigDisabled(t *testing.T) {
	disabled := false
	job := JobFromConfig(config.CronJobConfig{
		Name:     "off",
		Schedule: "1h",
		Enabled:  &disabled,
	})
	assert.False(t, job.Enabled)
	assert.False(t, job.shouldRun(time.Now().Add(2*time.Hour)))
}

func TestCheckDueAdvancesJob(t *testing.T) {
	s := NewService(nil)
	past := time.Now().Add(-time.Minute)
	s.AddJob(Job{
		ID:       "j1",
		Name:     "due",
		Schedule: "30m",
		Enabled:  true,
		Kind:     KindMessage,
		NextRun:  &past,
	})

	due := s.checkDue(time.Now())
	require.Len(t, due, 1)
	assert.Equal(t, "j1", due[0].ID)
	assert.EqualValues(t, 1, due[0].RunCount)
	require.NotNil(t, due[0].NextRun)
	assert.True(t, due[0].NextRun.After(time.Now()))

	// Not due again until the next window.
	assert.Empty(t, s.checkDue(time.Now()))
}

func TestSetEnabledAndRemove(t *testing.T) {
	s := NewService(nil)
	s.AddJob(Job{ID: "a", Enabled: true})

	assert.True(t, s.SetEnabled("a", false))
	assert.False(t, s.ListJobs()[0].Enabled)
	assert.False(t, s.SetEnabled("missing", true))

	assert.True(t, s.RemoveJob("a"))
	assert.False(t, s.RemoveJob("a"))
	assert.Empty(t, s.ListJobs())
}

func TestServiceFiresDueJobs(t *testing.T) {
	fired := make(chan Job, 1)
	s := NewService(func(ctx context.Context, job Job) {
		fired <- job
	})
	s.tick = 10 * time.Millisecond

	past := time.Now().Add(-time.Second)
	s.AddJob(Job{
		ID:       "j1",
		Name:     "soon",
		Schedule: "1h",
		Enabled:  true,
		Kind:     KindAgentTurn,
		Prompt:   "hello",
		NextRun:  &past,
	})

	s.Start(context.Background())
	defer s.Stop()

	select {
	case job := <-fired:
		assert.Equal(t, "j1", job.ID)
		assert.Equal(t, "hello", job.Prompt)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fire")
	}
}
