package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/sentinel-income/internal/scheduler"
	testingutil "github.com/aristath/sentinel-income/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
	runs int
	err  error
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run() error {
	j.runs++
	return j.err
}

func TestSystemHandlers_HandleSystemStatus(t *testing.T) {
	db, cleanup := testingutil.NewTestDB(t, "projections")
	defer cleanup()

	_, err := db.Conn().Exec(`
		INSERT INTO projection_runs
		(id, created_at, policy, years, quarterly_contribution, top_n, holdings_count, holdings_json)
		VALUES ('r1', 1767225600, 'reinvest_all', 25, 250, 5, 0, '[]')`)
	require.NoError(t, err)

	handlers := NewSystemHandlers(zerolog.Nop(), t.TempDir(), db, nil, nil)

	w := httptest.NewRecorder()
	handlers.HandleSystemStatus(w, httptest.NewRequest("GET", "/api/system/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, 1, response.StoredRuns)
	assert.Equal(t, "2026-01-01 00:00", response.LastRun)
	assert.GreaterOrEqual(t, response.MemoryPercent, 0.0)
	assert.Greater(t, response.Goroutines, 0)
}

func TestSystemHandlers_HandleDatabaseStats(t *testing.T) {
	db, cleanup := testingutil.NewTestDB(t, "projections")
	defer cleanup()

	handlers := NewSystemHandlers(zerolog.Nop(), t.TempDir(), db, nil, nil)

	w := httptest.NewRecorder()
	handlers.HandleDatabaseStats(w, httptest.NewRequest("GET", "/api/system/database/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response DatabaseStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Databases, 1)
	assert.Equal(t, db.Path(), response.Databases[0].Path)
}

func TestSystemHandlers_Jobs(t *testing.T) {
	ok := &stubJob{name: "projection_retention"}
	failing := &stubJob{name: "check_wal_checkpoints", err: errors.New("locked")}
	handlers := NewSystemHandlers(zerolog.Nop(), t.TempDir(), nil, scheduler.New(zerolog.Nop()), map[string]scheduler.Job{
		ok.name:      ok,
		failing.name: failing,
	})

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.HandleJobsStatus(w, httptest.NewRequest("GET", "/api/system/jobs", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var response JobsStatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 2, response.Count)
		assert.Equal(t, "check_wal_checkpoints", response.Jobs[0].Name)
	})

	tests := []struct {
		name           string
		job            string
		expectedStatus int
	}{
		{"runs job", "projection_retention", http.StatusOK},
		{"job failure", "check_wal_checkpoints", http.StatusInternalServerError},
		{"unknown job", "nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handlers.HandleTriggerJob(w, httptest.NewRequest("POST", "/api/system/jobs/"+tt.job, nil), tt.job)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
}
