package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/odyssey-backoffice/internal/jobs"
	"github.com/odyssey-erp/odyssey-backoffice/internal/lookup"
)

type fakeLookups struct {
	stats      lookup.WarmStats
	warmErr    error
	bumpErr    error
	warmCalls  int
	bumpCalls  int
	bumpBefore bool
}

func (f *fakeLookups) Warm(ctx context.Context) (lookup.WarmStats, error) {
	f.warmCalls++
	return f.stats, f.warmErr
}

func (f *fakeLookups) Invalidate(ctx context.Context) (int64, error) {
	f.bumpCalls++
	if f.warmCalls == 0 {
		f.bumpBefore = true
	}
	return int64(f.bumpCalls), f.bumpErr
}

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestLookupWarmupJobWarmsCache(t *testing.T) {
	fake := &fakeLookups{stats: lookup.WarmStats{Products: 3, Taxes: 2, Currencies: 1}}
	job := NewLookupWarmupJob(fake, nil, testMetrics())

	task, err := NewLookupWarmupTask(false)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, 1, fake.warmCalls)
	assert.Equal(t, 0, fake.bumpCalls)
}

func TestLookupWarmupJobInvalidatesFirst(t *testing.T) {
	fake := &fakeLookups{}
	job := NewLookupWarmupJob(fake, nil, testMetrics())

	task, err := NewLookupWarmupTask(true)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, 1, fake.bumpCalls)
	assert.True(t, fake.bumpBefore)
}

func TestLookupWarmupJobReportsFailure(t *testing.T) {
	fake := &fakeLookups{warmErr: errors.New("postgres down")}
	job := NewLookupWarmupJob(fake, nil, testMetrics())

	err := job.Handle(context.Background(), asynq.NewTask(TaskLookupWarmup, nil))
	assert.ErrorIs(t, err, fake.warmErr)
}

func TestLookupWarmupJobRejectsBadPayload(t *testing.T) {
	job := NewLookupWarmupJob(&fakeLookups{}, nil, testMetrics())

	err := job.Handle(context.Background(), asynq.NewTask(TaskLookupWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestLookupCacheBumpJob(t *testing.T) {
	fake := &fakeLookups{}
	job := NewLookupCacheBumpJob(fake, nil, testMetrics())

	task, err := NewLookupCacheBumpTask("taxes updated")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, fake.bumpCalls)

	var payload LookupCacheBumpPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "taxes updated", payload.Reason)

	fake.bumpErr = errors.New("redis down")
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestUnconfiguredJobsFail(t *testing.T) {
	var warmup *LookupWarmupJob
	assert.Error(t, warmup.Handle(context.Background(), asynq.NewTask(TaskLookupWarmup, nil)))

	bump := &LookupCacheBumpJob{}
	assert.Error(t, bump.Handle(context.Background(), asynq.NewTask(TaskLookupCacheBump, nil)))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", inspector: nil, status: http.StatusOK},
		{name: "queue info", inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, status: http.StatusOK, pending: 4},
		{name: "redis down", inspector: stubInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, nil).MountRoutes)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
			require.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, QueueDefault, body.Queue)
			assert.Equal(t, tc.pending, body.Pending)
		})
	}
}
