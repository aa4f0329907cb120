// ledger_test.go - Tests for the DuckDB-backed upload history
package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusai/portal/internal/models"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func entry(id, account string, cat models.Category, status models.ItemStatus, textBytes int) models.HistoryEntry {
	e := models.HistoryEntry{
		ItemID:     id,
		Account:    account,
		SourceName: id + ".pdf",
		Category:   cat,
		Status:     status,
		TextBytes:  textBytes,
		DurationMs: 12,
		FinishedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	if status == models.ItemStatusCompleted {
		e.TargetName = id + ".txt"
	} else {
		e.Error = "boom"
	}
	return e
}

func TestLedger_RecordAndList(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, entry("a", "cs@campus.edu", models.CategoryNotice, models.ItemStatusCompleted, 10)))
	require.NoError(t, l.Record(ctx, entry("b", "cs@campus.edu", models.CategoryFAQ, models.ItemStatusError, 0)))
	require.NoError(t, l.Record(ctx, entry("c", "ee@campus.edu", models.CategoryNotice, models.ItemStatusCompleted, 5)))

	all, err := l.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ItemID)
	assert.Equal(t, "a", all[2].ItemID)

	first := all[2]
	assert.Equal(t, "a.txt", first.TargetName)
	assert.Equal(t, models.CategoryNotice, first.Category)
	assert.Equal(t, models.ItemStatusCompleted, first.Status)
	assert.Equal(t, 10, first.TextBytes)
	assert.True(t, first.FinishedAt.Equal(time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)))

	cs, err := l.List(ctx, "cs@campus.edu", 1)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "b", cs[0].ItemID)
	assert.Equal(t, "boom", cs[0].Error)
}

func TestLedger_Stats(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	empty, err := l.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)

	require.NoError(t, l.Record(ctx, entry("a", "cs", models.CategoryNotice, models.ItemStatusCompleted, 10)))
	require.NoError(t, l.Record(ctx, entry("b", "cs", models.CategoryNotice, models.ItemStatusError, 0)))
	require.NoError(t, l.Record(ctx, entry("c", "cs", models.CategoryImpData, models.ItemStatusCompleted, 7)))
	require.NoError(t, l.Record(ctx, entry("d", "other", models.CategoryFAQ, models.ItemStatusCompleted, 100)))

	stats, err := l.Stats(ctx, "cs")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, int64(17), stats.TextBytes)
	assert.Equal(t, 2, stats.ByStatus[models.ItemStatusCompleted])
	assert.Equal(t, 1, stats.ByStatus[models.ItemStatusError])
	assert.Equal(t, 2, stats.ByCategory[models.CategoryNotice])
	assert.Equal(t, 1, stats.ByCategory[models.CategoryImpData])
}

func TestLedger_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.duckdb")
	ctx := context.Background()

	l, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, entry("a", "cs", models.CategoryFAQ, models.ItemStatusCompleted, 1)))
	require.NoError(t, l.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	list, err := reopened.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ItemID)
}
