// helpers_test.go - Test fixture wiring the API against in-memory collaborators
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/campusai/portal/internal/backend"
	"github.com/campusai/portal/internal/dashboard"
	"github.com/campusai/portal/internal/models"
	"github.com/campusai/portal/internal/session"
	"github.com/campusai/portal/internal/testutil"
	"github.com/campusai/portal/internal/upload"
)

// fakeBackend answers proxy calls from canned values.
type fakeBackend struct {
	mu       sync.Mutex
	password string
	err      error // returned by every proxy call when set
	listing  models.UploadListing
	calls    []string
}

var (
	_ Backend          = (*fakeBackend)(nil)
	_ dashboard.Opener = (*fakeBackend)(nil)
)

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) raw(call string) (json.RawMessage, error) {
	f.record(call)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"call":"` + call + `"}`), nil
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	f.record("login")
	if password != f.password {
		return nil, &backend.RemoteError{Op: "login", StatusCode: http.StatusUnauthorized, Message: "invalid password"}
	}
	return &models.LoginResponse{
		Account: models.Account{Email: email, Name: "Computer Science", IsActive: true},
		Message: "Login successful",
	}, nil
}

func (f *fakeBackend) GetProfile(ctx context.Context, email string) (json.RawMessage, error) {
	return f.raw("profile " + email)
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, email string, update models.ProfileUpdate) (json.RawMessage, error) {
	return f.raw("update-profile " + update.Name)
}

func (f *fakeBackend) GetTickets(ctx context.Context, email string) (json.RawMessage, error) {
	return f.raw("tickets")
}

func (f *fakeBackend) GetTicketsByStatus(ctx context.Context, email string, status models.TicketStatus) (json.RawMessage, error) {
	return f.raw("tickets " + string(status))
}

func (f *fakeBackend) SolveTicket(ctx context.Context, ticketID, solution string) (json.RawMessage, error) {
	return f.raw("solve " + ticketID)
}

func (f *fakeBackend) GetUploads(ctx context.Context, email string) (*models.UploadListing, error) {
	f.record("uploads")
	if f.err != nil {
		return nil, f.err
	}
	listing := f.listing
	return &listing, nil
}

func (f *fakeBackend) DeleteFile(ctx context.Context, email string, category models.Category, fileName string) (json.RawMessage, error) {
	return f.raw("delete " + string(category) + "/" + fileName)
}

func (f *fakeBackend) GetSmartSolveTickets(ctx context.Context, email string) (json.RawMessage, error) {
	return f.raw("smartsolve")
}

func (f *fakeBackend) SolveSmartTickets(ctx context.Context, email string, solutions []models.TicketSolution) (json.RawMessage, error) {
	return f.raw("solve-smart")
}

func (f *fakeBackend) DashboardStreamURL(email string) string {
	return "http://backend.invalid/api/account/dashboard/stream/" + email
}

func (f *fakeBackend) Stream(ctx context.Context, url string) (*http.Response, error) {
	return nil, &backend.RemoteError{Op: "open stream", Err: errors.New("offline")}
}

type fixture struct {
	e          *echo.Echo
	backend    *fakeBackend
	sessions   *session.Manager
	workspaces *Workspaces
	extractor  *testutil.FakeExtractor
	uploader   *testutil.FakeUploader
}

func newFixture(t *testing.T, history HistoryReader) *fixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	fx := &fixture{
		backend:   &fakeBackend{password: "secret"},
		sessions:  session.NewManager(0, nil),
		extractor: testutil.NewFakeExtractor(),
		uploader:  testutil.NewFakeUploader(),
	}
	fx.workspaces = NewWorkspaces(ctx, func(onComplete func(upload.Summary)) *upload.Manager {
		return upload.NewManager(fx.extractor, fx.uploader, upload.WithOnComplete(onComplete))
	}, fx.backend, nil)

	hub := dashboard.NewHub(ctx, fx.backend, nil)
	t.Cleanup(hub.Close)

	fx.e = echo.New()
	SetupMiddleware(fx.e)
	handlers := NewHandlers(&Dependencies{
		Backend:    fx.backend,
		Sessions:   fx.sessions,
		Workspaces: fx.workspaces,
		Hub:        hub,
		History:    history,
		Version:    "test",
	})
	RegisterRoutes(fx.e, handlers, fx.sessions)
	return fx
}

// login returns a session token for cs@campus.edu.
func (fx *fixture) login(t *testing.T) string {
	t.Helper()
	rec := fx.do(t, http.MethodPost, "/api/account/login", "",
		jsonBody(t, map[string]string{"accountEmail": "cs@campus.edu", "password": "secret"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.SessionID)
	return res.SessionID
}

func (fx *fixture) do(t *testing.T, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(session.HeaderName, token)
	}
	rec := httptest.NewRecorder()
	fx.e.ServeHTTP(rec, req)
	return rec
}

func (fx *fixture) upload(t *testing.T, token string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/queue/files", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	req.Header.Set(session.HeaderName, token)
	rec := httptest.NewRecorder()
	fx.e.ServeHTTP(rec, req)
	return rec
}

func (fx *fixture) queue(t *testing.T, token string) QueueView {
	t.Helper()
	rec := fx.do(t, http.MethodGet, "/api/queue", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view QueueView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr), rec.Body.String())
	return apiErr
}
