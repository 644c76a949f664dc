package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"six field spec", "0 0 3 * * *", false},
		{"descriptor", "@hourly", false},
		{"interval", "@every 30s", false},
		{"five field spec rejected", "0 3 * * *", true},
		{"garbage", "not a schedule", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddJob(tt.schedule, &countingJob{name: tt.name})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())

	job := &countingJob{name: "ok"}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())

	failing := &countingJob{name: "failing", err: errors.New("boom")}
	assert.EqualError(t, s.RunNow(failing), "boom")
}

func TestScheduler_RunsScheduledJobs(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick", err: errors.New("failures are logged, not fatal")}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return job.runs.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}
