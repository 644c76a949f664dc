package projection_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel-income/internal/modules/projection"
	testingutil "github.com/aristath/sentinel-income/internal/testing"
)

func newTestRepository(t *testing.T) *projection.RunRepository {
	t.Helper()
	db, cleanup := testingutil.NewTestDB(t, "projections")
	t.Cleanup(cleanup)
	return projection.NewRunRepository(db.Conn(), zerolog.Nop())
}

func simulateFixtures(t *testing.T, years int) (projection.Parameters, []projection.HoldingSpec, []projection.YearlyRecord) {
	t.Helper()
	params := testingutil.NewParameterFixture(projection.PolicyReinvestAll)
	params.Years = years
	specs := testingutil.NewHoldingFixtures()
	records, err := projection.Simulate(specs, params, zerolog.Nop())
	require.NoError(t, err)
	return params, specs, records
}

func TestRunRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	params, specs, records := simulateFixtures(t, 3)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := &projection.Run{
		CreatedAt:       created,
		Parameters:      params,
		Holdings:        specs,
		FinalYearIncome: 1234.56,
	}
	require.NoError(t, repo.Create(run, records))
	assert.NotEmpty(t, run.ID)

	got, err := repo.GetByID(run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.ID, got.ID)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, params, got.Parameters)
	assert.Equal(t, specs, got.Holdings)
	assert.Equal(t, 1234.56, got.FinalYearIncome)

	stored, err := repo.GetRecords(run.ID)
	require.NoError(t, err)
	assert.Equal(t, records, stored)
}

func TestRunRepository_GetByIDUnknown(t *testing.T) {
	repo := newTestRepository(t)

	got, err := repo.GetByID("missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	records, err := repo.GetRecords("missing")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRunRepository_ListMostRecentFirst(t *testing.T) {
	repo := newTestRepository(t)
	params, specs, records := simulateFixtures(t, 1)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		run := &projection.Run{
			ID:         id,
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
			Parameters: params,
			Holdings:   specs,
		}
		require.NoError(t, repo.Create(run, records))
	}

	t.Run("all", func(t *testing.T) {
		runs, err := repo.List(0)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, "c", runs[0].ID)
		assert.Equal(t, "b", runs[1].ID)
		assert.Equal(t, "a", runs[2].ID)
	})

	t.Run("limited", func(t *testing.T) {
		runs, err := repo.List(2)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "c", runs[0].ID)
	})
}

func TestRunRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)
	params, specs, records := simulateFixtures(t, 2)

	run := &projection.Run{Parameters: params, Holdings: specs}
	require.NoError(t, repo.Create(run, records))

	deleted, err := repo.Delete(run.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := repo.GetByID(run.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	stored, err := repo.GetRecords(run.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)

	deleted, err = repo.Delete(run.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRunRepository_DeleteOlderThan(t *testing.T) {
	repo := newTestRepository(t)
	params, specs, records := simulateFixtures(t, 1)

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	old := &projection.Run{ID: "old", CreatedAt: now.Add(-48 * time.Hour), Parameters: params, Holdings: specs}
	fresh := &projection.Run{ID: "fresh", CreatedAt: now.Add(-time.Hour), Parameters: params, Holdings: specs}
	require.NoError(t, repo.Create(old, records))
	require.NoError(t, repo.Create(fresh, records))

	deleted, err := repo.DeleteOlderThan(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	runs, err := repo.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "fresh", runs[0].ID)

	stored, err := repo.GetRecords("old")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRunRepository_CreateRollsBackOnDuplicate(t *testing.T) {
	repo := newTestRepository(t)
	params, specs, records := simulateFixtures(t, 1)

	first := &projection.Run{ID: "dup", Parameters: params, Holdings: specs}
	require.NoError(t, repo.Create(first, records))

	second := &projection.Run{ID: "dup", Parameters: params, Holdings: specs}
	assert.Error(t, repo.Create(second, records))

	stored, err := repo.GetRecords("dup")
	require.NoError(t, err)
	assert.Len(t, stored, len(records))
}
