package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapseries/internal/testutil"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(id string, started time.Time) *Run {
	return &Run{
		ID:        id,
		PlanPath:  "plan.yaml",
		Dialect:   "postgres",
		Target:    "postgres://localhost:5432/postgres",
		Status:    RunStatusFailed,
		Total:     2,
		Failed:    1,
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
	}
}

var sampleChecks = []Check{
	{
		Name:   "week",
		Dtype:  "timestamp",
		SQL:    "date_trunc('week', ts)",
		Query:  "select date_trunc('week', ts) from src",
		Values: []string{"2021-05-17 00:00:00", "NULL"},
	},
	{
		Name:  "n",
		Dtype: "int64",
		SQL:   "jsonb_array_length(j)",
		Query: "select jsonb_array_length(j) from src",
		Error: "function jsonb_array_length(json) does not exist",
	},
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, store.Close())
}

func TestSQLiteStore_OpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.SaveRun(context.Background(), sampleRun("", time.Now()), nil))
	require.NoError(t, store.Close())

	// reopening applies no migrations twice and keeps the data
	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	defer func() { _ = reopened.Close() }()
	runs, err := reopened.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	assert.Error(t, store.SaveRun(ctx, &Run{}, nil))
	_, err := store.ListRuns(ctx, 1)
	assert.Error(t, err)
	_, err = store.GetRun(ctx, "x")
	assert.Error(t, err)
	_, err = store.GetChecks(ctx, "x")
	assert.Error(t, err)
	_, err = store.SchemaVersion(ctx)
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_SaveAndGetRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	run := sampleRun("", started)
	require.NoError(t, store.SaveRun(ctx, run, sampleChecks))
	require.NotEmpty(t, run.ID, "an ID is generated")
	assert.Len(t, run.ShortID(), 8)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)

	checks, err := store.GetChecks(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, sampleChecks, checks)
}

func TestSQLiteStore_GetRunByPrefix(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, store.SaveRun(ctx, sampleRun("aaaa1111-0000", now), nil))
	require.NoError(t, store.SaveRun(ctx, sampleRun("aaaa2222-0000", now), nil))
	require.NoError(t, store.SaveRun(ctx, sampleRun("bbbb1111-0000", now), nil))

	tests := []struct {
		name    string
		id      string
		want    string
		wantErr string
	}{
		{name: "full id", id: "aaaa2222-0000", want: "aaaa2222-0000"},
		{name: "unique prefix", id: "bbbb", want: "bbbb1111-0000"},
		{name: "ambiguous prefix", id: "aaaa", wantErr: "ambiguous"},
		{name: "unknown", id: "cccc", wantErr: "run not found"},
		{name: "empty", id: "", wantErr: "run not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetRun(ctx, tt.id)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"first", "second", "third"} {
		require.NoError(t, store.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour)), nil))
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 0, []string{"third", "second", "first"}},
		{"limited", 2, []string{"third", "second"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := store.ListRuns(ctx, tt.limit)
			require.NoError(t, err)
			ids := make([]string, len(runs))
			for i, r := range runs {
				ids[i] = r.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSQLiteStore_SaveRunRollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, sampleRun("dup", time.Now()), nil))
	err := store.SaveRun(ctx, sampleRun("dup", time.Now()), sampleChecks)
	require.Error(t, err)

	checks, err := store.GetChecks(ctx, "dup")
	require.NoError(t, err)
	assert.Empty(t, checks, "checks of a failed save are not kept")
}
