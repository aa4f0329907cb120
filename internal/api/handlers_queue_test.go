// handlers_queue_test.go - Tests for the upload queue endpoints
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/campusai/portal/internal/history"
	"github.com/campusai/portal/internal/models"
	"github.com/campusai/portal/internal/upload"
)

func TestQueue_RequiresSession(t *testing.T) {
	fx := newFixture(t, nil)

	rec := fx.do(t, http.MethodGet, "/api/queue", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)

	rec = fx.do(t, http.MethodGet, "/api/queue", "not-a-session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// EventSource and WebSocket clients pass the token as a query parameter.
	token := fx.login(t)
	rec = fx.do(t, http.MethodGet, "/api/queue?session="+token, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQueue_AddFiles(t *testing.T) {
	fx := newFixture(t, nil)
	token := fx.login(t)

	rec := fx.upload(t, token, map[string]string{
		"notice.txt": "exam schedule",
		"app.js":     "alert(1)",
		"movie.mkv":  "frames",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Results []upload.EnqueueResult `json:"results"`
		Queue   QueueView              `json:"queue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	reasons := map[string]upload.RejectReason{}
	for _, r := range res.Results {
		reasons[r.Name] = r.Verdict.Reason
	}
	assert.Equal(t, upload.RejectReason(""), reasons["notice.txt"])
	assert.Equal(t, upload.ReasonDeniedExtension, reasons["app.js"])
	assert.Equal(t, upload.ReasonUnsupportedExtension, reasons["movie.mkv"])

	require.Len(t, res.Queue.Items, 1)
	assert.Equal(t, "notice.txt", res.Queue.Items[0].File.Name)
	assert.Equal(t, int64(len("exam schedule")), res.Queue.Items[0].File.Size)
	assert.Equal(t, models.ItemStatusPending, res.Queue.Items[0].Status)
	assert.Equal(t, models.CategoryNotice, res.Queue.Category)

	// Same name and size again is a duplicate.
	rec = fx.upload(t, token, map[string]string{"notice.txt": "exam schedule"})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Results, 1)
	assert.Equal(t, upload.ReasonDuplicate, res.Results[0].Verdict.Reason)
	assert.Len(t, res.Queue.Items, 1)

	t.Run("no files", func(t *testing.T) {
		rec := fx.upload(t, token, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestQueue_SessionsAreIsolated(t *testing.T) {
	fx := newFixture(t, nil)
	first := fx.login(t)
	second := fx.login(t)

	fx.upload(t, first, map[string]string{"a.txt": "a"})

	assert.Len(t, fx.queue(t, first).Items, 1)
	assert.Empty(t, fx.queue(t, second).Items)
}

func TestQueue_ProcessFlow(t *testing.T) {
	fx := newFixture(t, nil)
	fx.backend.listing = models.UploadListing{FAQ: []models.UploadedFile{{FileName: "faq.txt"}}}
	token := fx.login(t)

	fx.upload(t, token, map[string]string{"faq.docx": "docx bytes"})

	rec := fx.do(t, http.MethodPut, "/api/queue/category", token, jsonBody(t, map[string]string{"category": "faq"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = fx.do(t, http.MethodPost, "/api/queue/process", token, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	require.Eventually(t, func() bool {
		view := fx.queue(t, token)
		return !view.Processing && view.Items[0].Status == models.ItemStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	uploads := fx.uploader.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "cs@campus.edu", uploads[0].Account)
	assert.Equal(t, models.CategoryFAQ, uploads[0].Category)
	assert.Equal(t, "faq.txt", uploads[0].FileName)

	view := fx.queue(t, token)
	assert.Equal(t, models.CategoryFAQ, view.Items[0].Category)
	assert.Equal(t, "faq.txt", view.Items[0].TargetName)

	// The uploads listing is refreshed after a run with completed items.
	w := fx.workspaces.Get(token, models.Account{})
	require.Eventually(t, func() bool {
		listing, _ := w.Uploads()
		return listing != nil
	}, 2*time.Second, 10*time.Millisecond)

	rec = fx.do(t, http.MethodPost, "/api/queue/clear", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":1}`, rec.Body.String())
	assert.Empty(t, fx.queue(t, token).Items)
}

func TestQueue_ConflictsWhileProcessing(t *testing.T) {
	fx := newFixture(t, nil)
	token := fx.login(t)

	release := make(chan struct{})
	entered := make(chan struct{})
	fx.extractor.OnExtract = func(string) {
		close(entered)
		<-release
	}

	fx.upload(t, token, map[string]string{"a.txt": "a"})
	id := fx.queue(t, token).Items[0].ID

	rec := fx.do(t, http.MethodPost, "/api/queue/process", token, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	<-entered

	rec = fx.do(t, http.MethodPost, "/api/queue/process", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, rec).Code)

	rec = fx.do(t, http.MethodDelete, "/api/queue/"+id, token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = fx.do(t, http.MethodPost, "/api/queue/clear", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.True(t, fx.queue(t, token).Processing)
	close(release)

	require.Eventually(t, func() bool {
		return !fx.queue(t, token).Processing
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueue_RemoveItem(t *testing.T) {
	fx := newFixture(t, nil)
	token := fx.login(t)

	fx.upload(t, token, map[string]string{"a.txt": "a"})
	id := fx.queue(t, token).Items[0].ID

	rec := fx.do(t, http.MethodDelete, "/api/queue/unknown", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = fx.do(t, http.MethodDelete, "/api/queue/"+id, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, fx.queue(t, token).Items)
}

func TestQueue_Category(t *testing.T) {
	fx := newFixture(t, nil)
	token := fx.login(t)

	rec := fx.do(t, http.MethodGet, "/api/queue/category", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"category":"notice","categories":["notice","faq","impData"]}`, rec.Body.String())

	tests := []struct {
		name string
		body map[string]string
		code int
	}{
		{"valid", map[string]string{"category": "impData"}, http.StatusOK},
		{"unknown", map[string]string{"category": "news"}, http.StatusBadRequest},
		{"missing", map[string]string{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := fx.do(t, http.MethodPut, "/api/queue/category", token, jsonBody(t, tt.body))
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, models.CategoryImpData, fx.queue(t, token).Category)
}

func TestQueue_Msgpack(t *testing.T) {
	fx := newFixture(t, nil)
	token := fx.login(t)
	fx.upload(t, token, map[string]string{"a.pdf": "%PDF"})

	rec := fx.do(t, http.MethodGet, "/api/queue/msgpack", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))

	var view QueueView
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "cs@campus.edu", view.Account)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "a.pdf", view.Items[0].File.Name)
}

func TestQueue_History(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		fx := newFixture(t, nil)
		token := fx.login(t)

		rec := fx.do(t, http.MethodGet, "/api/queue/history", token, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("ledger", func(t *testing.T) {
		ledger, err := history.Open("", nil)
		require.NoError(t, err)
		t.Cleanup(func() { ledger.Close() })

		ctx := context.Background()
		require.NoError(t, ledger.Record(ctx, models.HistoryEntry{
			ItemID: "1", Account: "cs@campus.edu", SourceName: "a.pdf", TargetName: "a.txt",
			Category: models.CategoryNotice, Status: models.ItemStatusCompleted, FinishedAt: time.Now(),
		}))
		require.NoError(t, ledger.Record(ctx, models.HistoryEntry{
			ItemID: "2", Account: "other@campus.edu", SourceName: "b.pdf",
			Status: models.ItemStatusError, Error: "boom", FinishedAt: time.Now(),
		}))

		fx := newFixture(t, ledger)
		token := fx.login(t)

		rec := fx.do(t, http.MethodGet, "/api/queue/history?limit=10", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res struct {
			Entries []models.HistoryEntry `json:"entries"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		require.Len(t, res.Entries, 1)
		assert.Equal(t, "a.pdf", res.Entries[0].SourceName)

		rec = fx.do(t, http.MethodGet, "/api/queue/history?limit=-1", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = fx.do(t, http.MethodGet, "/api/queue/history/stats", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var stats models.HistoryStats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 1, stats.Total)
		assert.Equal(t, 1, stats.ByStatus[models.ItemStatusCompleted])
	})
}
