package runner

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadIterations(t *testing.T) {
	api := &loginAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	res, err := New(Options{}).Load(context.Background(), loginPlan(), srv.URL, LoadOptions{Iterations: 12, Concurrency: 4})
	require.NoError(t, err)

	assert.Equal(t, 12, res.Iterations)
	assert.Equal(t, 12, res.Passed)
	assert.Zero(t, res.Failed)
	assert.Zero(t, res.ErrorRate())
	assert.Empty(t, res.FailedSteps)
	assert.LessOrEqual(t, res.MinLatency, res.LatencyP50)
	assert.LessOrEqual(t, res.LatencyP50, res.LatencyP95)
	assert.LessOrEqual(t, res.LatencyP99, res.MaxLatency)
	assert.Positive(t, res.Throughput)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Len(t, api.bodies, 24, "two requests per run")
	for _, b := range api.bodies {
		if b != nil {
			assert.Equal(t, "bob", b["user"], "captures never leak between runs")
		}
	}
}

func TestLoadCountsFailedSteps(t *testing.T) {
	srv := httptest.NewServer(&loginAPI{})
	defer srv.Close()

	plan := loginPlan()
	plan.Steps[0].Response.HTTPStatus = 204 // fetch user answers 200

	res, err := New(Options{}).Load(context.Background(), plan, srv.URL, LoadOptions{Iterations: 5, Concurrency: 2})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Failed)
	assert.Equal(t, 100.0, res.ErrorRate())
	assert.Equal(t, map[string]int{"Fetch user": 5}, res.FailedSteps)
}

func TestLoadDuration(t *testing.T) {
	srv := httptest.NewServer(&loginAPI{})
	defer srv.Close()

	start := time.Now()
	res, err := New(Options{}).Load(context.Background(), loginPlan(), srv.URL,
		LoadOptions{Duration: 200 * time.Millisecond, Concurrency: 2, PerSecond: 20})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Positive(t, res.Iterations)
	assert.LessOrEqual(t, res.Iterations, 10, "paced at 20 runs per second")
}

func TestLoadOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		opts LoadOptions
	}{
		{"no budget", LoadOptions{Concurrency: 2}},
		{"negative iterations", LoadOptions{Iterations: -1, Duration: time.Second}},
		{"negative concurrency", LoadOptions{Iterations: 1, Concurrency: -1}},
		{"negative rate", LoadOptions{Iterations: 1, PerSecond: -1}},
		{"negative ramp-up", LoadOptions{Iterations: 1, RampUp: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{}).Load(context.Background(), loginPlan(), "http://localhost", tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestPercentileIndex(t *testing.T) {
	assert.Equal(t, 0, percentileIndex(0, 50))
	assert.Equal(t, 0, percentileIndex(1, 99))
	assert.Equal(t, 49, percentileIndex(100, 50))
	assert.Equal(t, 94, percentileIndex(100, 95))
	assert.Equal(t, 9, percentileIndex(10, 99))
}
