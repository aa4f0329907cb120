// workspace_test.go - Tests for per-session workspaces
package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusai/portal/internal/models"
	"github.com/campusai/portal/internal/testutil"
	"github.com/campusai/portal/internal/upload"
)

func TestWorkspaces(t *testing.T) {
	created := 0
	ws := NewWorkspaces(context.Background(), func(onComplete func(upload.Summary)) *upload.Manager {
		created++
		return upload.NewManager(testutil.NewFakeExtractor(), testutil.NewFakeUploader(), upload.WithOnComplete(onComplete))
	}, nil, nil)

	account := models.Account{Email: "cs@campus.edu"}
	a := ws.Get("s1", account)
	assert.Same(t, a, ws.Get("s1", account))
	b := ws.Get("s2", account)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, created)
	assert.Equal(t, models.CategoryNotice, a.Category.Current())

	removed := ws.Prune(func(id string) bool { return id == "s2" })
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, ws.Len())
	assert.Error(t, a.ctx.Err(), "dropped workspace is cancelled")
	assert.NoError(t, b.ctx.Err())

	ws.Drop("s2")
	ws.Drop("missing")
	assert.Equal(t, 0, ws.Len())
}

func TestWorkspace_RefreshSkipsRunsWithoutUploads(t *testing.T) {
	fb := &fakeBackend{}
	ws := NewWorkspaces(context.Background(), func(onComplete func(upload.Summary)) *upload.Manager {
		return upload.NewManager(testutil.NewFakeExtractor(), testutil.NewFakeUploader(), upload.WithOnComplete(onComplete))
	}, fb, nil)
	w := ws.Get("s1", models.Account{Email: "cs@campus.edu"})

	updates, stop := w.WatchUploads()
	defer stop()

	w.refreshUploads(upload.Summary{Failed: 1})
	assert.Empty(t, fb.Calls())

	w.refreshUploads(upload.Summary{Completed: 1})
	assert.Equal(t, []string{"uploads"}, fb.Calls())
	listing := <-updates
	assert.NotNil(t, listing)
	_, refreshed := w.Uploads()
	assert.False(t, refreshed.IsZero())
}
