// handlers_queue.go - Upload queue handlers
package api

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/campusai/portal/internal/history"
	"github.com/campusai/portal/internal/models"
)

// Extra event types sent on the queue stream next to upload.EventType values.
const (
	MsgTypeQueueSnapshot    = "queue:snapshot"
	MsgTypeUploadsRefreshed = "uploads:refreshed"
)

// QueueView is the queue as returned to the browser.
type QueueView struct {
	Account    string             `json:"account" msgpack:"account"`
	Category   models.Category    `json:"category" msgpack:"category"`
	Processing bool               `json:"processing" msgpack:"processing"`
	Items      []models.QueueItem `json:"items" msgpack:"items"`
}

// streamMessage is one message on the queue event stream.
type streamMessage struct {
	Type    string                `json:"type"`
	Queue   *QueueView            `json:"queue,omitempty"`
	Uploads *models.UploadListing `json:"uploads,omitempty"`
}

// QueueHandlerImpl implements the QueueHandler interface
type QueueHandlerImpl struct {
	workspaces *Workspaces
	history    HistoryReader
	logger     *slog.Logger
}

// NewQueueHandler creates a new queue handler. history may be nil.
func NewQueueHandler(workspaces *Workspaces, history HistoryReader, logger *slog.Logger) *QueueHandlerImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueHandlerImpl{
		workspaces: workspaces,
		history:    history,
		logger:     logger.With("component", "api"),
	}
}

func (h *QueueHandlerImpl) workspace(c echo.Context) (*Workspace, error) {
	s, err := currentSession(c)
	if err != nil {
		return nil, err
	}
	return h.workspaces.Get(s.ID, s.Account), nil
}

func viewOf(w *Workspace) *QueueView {
	return &QueueView{
		Account:    w.Account.Email,
		Category:   w.Category.Current(),
		Processing: w.Queue.IsProcessing(),
		Items:      w.Queue.Items(),
	}
}

// HandleAddFiles accepts multipart "files" and queues the acceptable ones
func (h *QueueHandlerImpl) HandleAddFiles(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return NewValidationError("files")
	}

	files := make([]models.SourceFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readFormFile(fh)
		if err != nil {
			return NewBadRequestError(fmt.Sprintf("failed to read %s", fh.Filename), err)
		}
		files = append(files, f)
	}

	results := w.Queue.Enqueue(files...)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"results": results,
		"queue":   viewOf(w),
	})
}

func readFormFile(fh *multipart.FileHeader) (models.SourceFile, error) {
	src, err := fh.Open()
	if err != nil {
		return models.SourceFile{}, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return models.SourceFile{}, err
	}
	f := models.NewSourceFile(fh.Filename, data)
	f.ContentType = fh.Header.Get(echo.HeaderContentType)
	return f, nil
}

// HandleListQueue returns the queue
func (h *QueueHandlerImpl) HandleListQueue(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewOf(w))
}

// HandleListQueueMsgpack returns the queue in MessagePack format
func (h *QueueHandlerImpl) HandleListQueueMsgpack(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(viewOf(w))
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleRemoveItem removes one queued item
func (h *QueueHandlerImpl) HandleRemoveItem(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	if err := w.Queue.Remove(id); err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"removed": id})
}

// HandleClearCompleted removes every completed item
func (h *QueueHandlerImpl) HandleClearCompleted(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	n, err := w.Queue.ClearCompleted()
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": n})
}

// HandleGetCategory returns the active category
func (h *QueueHandlerImpl) HandleGetCategory(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"category":   w.Category.Current(),
		"categories": models.Categories,
	})
}

type setCategoryRequest struct {
	Category string `json:"category"`
}

func (r *setCategoryRequest) validate() (models.Category, error) {
	if r.Category == "" {
		return "", NewValidationError("category")
	}
	cat, err := models.ParseCategory(r.Category)
	if err != nil {
		return "", NewBadRequestError("invalid category", err)
	}
	return cat, nil
}

// HandleSetCategory changes the active category. Items that have not started
// yet will be filed under it.
func (h *QueueHandlerImpl) HandleSetCategory(c echo.Context) error {
	var req setCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	cat, err := req.validate()
	if err != nil {
		return err
	}

	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	if err := w.Category.Set(cat); err != nil {
		return NewBadRequestError("invalid category", err)
	}
	return c.JSON(http.StatusOK, map[string]models.Category{"category": cat})
}

// HandleProcess starts processing the pending items in the background
func (h *QueueHandlerImpl) HandleProcess(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}
	if err := w.StartProcessing(); err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusAccepted, viewOf(w))
}

// HandleQueueEvents streams queue events via SSE until the client goes away
func (h *QueueHandlerImpl) HandleQueueEvents(c echo.Context) error {
	w, err := h.workspace(c)
	if err != nil {
		return err
	}

	events, stopEvents := w.Queue.Subscribe()
	defer stopEvents()
	listings, stopListings := w.WatchUploads()
	defer stopListings()

	startSSE(c)
	if err := writeSSE(c, streamMessage{Type: MsgTypeQueueSnapshot, Queue: viewOf(w)}); err != nil {
		return nil
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeSSE(c, ev); err != nil {
				return nil
			}
		case listing, ok := <-listings:
			if !ok {
				return nil
			}
			if err := writeSSE(c, streamMessage{Type: MsgTypeUploadsRefreshed, Uploads: listing}); err != nil {
				return nil
			}
		case <-heartbeat.C:
			if err := writeSSEComment(c, "keep-alive"); err != nil {
				return nil
			}
		}
	}
}

// HandleHistory returns the newest history entries of the session account
func (h *QueueHandlerImpl) HandleHistory(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("upload history is disabled")
	}
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	limit := history.DefaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return NewValidationError("limit")
		}
		limit = n
	}

	entries, err := h.history.List(c.Request().Context(), s.Account.Email, limit)
	if err != nil {
		return NewInternalError("failed to read upload history", err)
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"entries": entries})
}

// HandleHistoryStats returns history totals for the session account
func (h *QueueHandlerImpl) HandleHistoryStats(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("upload history is disabled")
	}
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	stats, err := h.history.Stats(c.Request().Context(), s.Account.Email)
	if err != nil {
		return NewInternalError("failed to read upload history", err)
	}
	return c.JSON(http.StatusOK, stats)
}

var _ QueueHandler = (*QueueHandlerImpl)(nil)
