package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/hazard-report-service/internal/adapter/http"
	"github.com/couchcryptid/hazard-report-service/internal/adapter/memstore"
	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/observability"
	"github.com/couchcryptid/hazard-report-service/internal/workflow"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportPath = "/api/v1/report"

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockSubmitter struct {
	err error
}

func (m *mockSubmitter) Submit(_ context.Context, _ domain.Draft) (domain.Receipt, error) {
	if m.err != nil {
		return domain.Receipt{}, m.err
	}
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	return domain.Receipt{ReportID: domain.NewReportID(now), CreatedAt: now}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, readyErr error, sub *mockSubmitter) (*httpadapter.Server, *memstore.Store) {
	t.Helper()
	store := memstore.New("draft", "draft-ts")
	form := workflow.NewForm(store, sub, nil, clockwork.NewFakeClock(), 0, discardLogger(), observability.NewMetricsForTesting())
	srv := httpadapter.NewServer(":0", form, &mockReadiness{err: readyErr}, []string{"http://localhost:5173"}, discardLogger())
	return srv, store
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) workflow.Snapshot {
	t.Helper()
	var snap workflow.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func fillValidReport(t *testing.T, srv http.Handler) {
	t.Helper()
	steps := []struct {
		path string
		body any
	}{
		{"/category", map[string]string{"hazardCategory": "ocean"}},
		{"/hazard-type", map[string]string{"hazardType": "tsunami"}},
		{"/location", domain.Location{Latitude: "19.076000", Longitude: "72.877700"}},
		{"/severity", map[string]string{"severity": "high"}},
		{"/description", map[string]string{"description": strings.Repeat("x", 55)}},
		{"/anonymous", map[string]bool{"isAnonymous": true}},
	}
	for _, s := range steps {
		rec := do(t, srv, http.MethodPut, reportPath+s.path, s.body)
		require.Equal(t, http.StatusOK, rec.Code, "PUT %s: %s", s.path, rec.Body.String())
	}
}

// --- ops endpoints ---

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	rec := do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	rec := do(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _ := newTestServer(t, fmt.Errorf("not ready yet"), &mockSubmitter{})
	rec := do(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	rec := do(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	req := httptest.NewRequest(http.MethodOptions, reportPath+"/category", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

// --- field updates ---

func TestSnapshotStartsEmpty(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	rec := do(t, srv, http.MethodGet, reportPath+"/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decodeSnapshot(t, rec)
	assert.Equal(t, workflow.StateEditing, snap.State)
	assert.False(t, snap.Valid)
	assert.Len(t, snap.Missing, len(domain.Requirements))
}

func TestSetCategoryClearsHazardType(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	do(t, srv, http.MethodPut, reportPath+"/category", map[string]string{"hazardCategory": "local"})
	do(t, srv, http.MethodPut, reportPath+"/hazard-type", map[string]string{"hazardType": "landslides"})

	rec := do(t, srv, http.MethodPut, reportPath+"/category", map[string]string{"hazardCategory": "ocean"})
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decodeSnapshot(t, rec)
	assert.Equal(t, domain.CategoryOcean, snap.Draft.HazardCategory)
	assert.Empty(t, snap.Draft.HazardType)
}

func TestUnknownValuesReturn422(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})

	rec := do(t, srv, http.MethodPut, reportPath+"/category", map[string]string{"hazardCategory": "volcanic"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, srv, http.MethodPut, reportPath+"/hazard-type", map[string]string{"hazardType": "tsunami"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "no category selected")

	rec = do(t, srv, http.MethodPut, reportPath+"/severity", map[string]string{"severity": "extreme"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDescriptionTooLongReturns422(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	rec := do(t, srv, http.MethodPut, reportPath+"/description", map[string]string{"description": strings.Repeat("a", 1001)})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, workflow.ErrDescriptionTooLong.Error(), errorBody(t, rec))
}

func TestMalformedBodyReturns400(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	req := httptest.NewRequest(http.MethodPut, reportPath+"/severity", strings.NewReader("{"))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", errorBody(t, rec))
}

func TestContactWhileAnonymousReturns409(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	do(t, srv, http.MethodPut, reportPath+"/anonymous", map[string]bool{"isAnonymous": true})

	rec := do(t, srv, http.MethodPut, reportPath+"/contact", domain.ContactInfo{Name: "Ravi"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHazardTypes(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})

	rec := do(t, srv, http.MethodGet, reportPath+"/hazard-types/ocean", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var options []domain.HazardOption
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &options))
	assert.Len(t, options, 5)

	rec = do(t, srv, http.MethodGet, reportPath+"/hazard-types/volcanic", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- files ---

func TestUploadFilesSniffsContent(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	png, err := mw.CreateFormFile("files", "wave.png")
	require.NoError(t, err)
	_, err = png.Write(append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...))
	require.NoError(t, err)
	// Declared as an image by name only; the content is plain text.
	fake, err := mw.CreateFormFile("files", "not-really.jpg")
	require.NoError(t, err)
	_, err = fake.Write([]byte("just some notes about the waves"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, reportPath+"/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Added    []domain.MediaFile `json:"added"`
		Rejected int                `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Added, 1)
	assert.Equal(t, 1, body.Rejected)
	assert.Equal(t, "wave.png", body.Added[0].Name)
	assert.Equal(t, "image/png", body.Added[0].MIMEType)
	assert.Equal(t, int64(72), body.Added[0].Size)
	assert.NotEmpty(t, body.Added[0].Preview)

	rec = do(t, srv, http.MethodDelete, reportPath+"/files/"+body.Added[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeSnapshot(t, rec).Draft.Files)
}

func TestUploadRequiresMultipart(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	rec := do(t, srv, http.MethodPost, reportPath+"/files", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetFilesFiltersMetadata(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	rec := do(t, srv, http.MethodPut, reportPath+"/files", map[string]any{
		"files": []domain.CandidateFile{
			{Name: "clip.mp4", Size: 4096, MIMEType: "video/mp4"},
			{Name: "huge.mov", Size: domain.MaxMediaSize + 1, MIMEType: "video/quicktime"},
			{Name: "doc.pdf", Size: 10, MIMEType: "application/pdf"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Added    []domain.MediaFile `json:"added"`
		Rejected int                `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Added, 1)
	assert.Equal(t, "clip.mp4", body.Added[0].Name)
	assert.Equal(t, 2, body.Rejected)

	files := decodeSnapshot(t, do(t, srv, http.MethodGet, reportPath+"/", nil)).Draft.Files
	require.Len(t, files, 1)
	assert.Equal(t, body.Added[0].ID, files[0].ID)
}

func TestSetFilesRejectsNegativeSize(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	rec := do(t, srv, http.MethodPut, reportPath+"/files", map[string]any{
		"files": []domain.CandidateFile{{Name: "odd.jpg", Size: -10, MIMEType: "image/jpeg"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	files := decodeSnapshot(t, do(t, srv, http.MethodGet, reportPath+"/", nil)).Draft.Files
	assert.Empty(t, files)
}

func TestRemoveUnknownFileReturns404(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	rec := do(t, srv, http.MethodDelete, reportPath+"/files/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- location ---

func TestDetectLocation(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	rec := do(t, srv, http.MethodPost, reportPath+"/location/detect", map[string]float64{"latitude": 13.0827, "longitude": 80.2707})
	require.Equal(t, http.StatusOK, rec.Code)

	var loc domain.Location
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loc))
	assert.Equal(t, domain.Location{Latitude: "13.082700", Longitude: "80.270700", Address: "13.0827, 80.2707"}, loc)
}

func TestDetectLocationFailures(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"denied", map[string]any{"error": "permission_denied"}, "Location access denied by user"},
		{"timeout", map[string]any{"error": "timeout"}, "Location request timed out"},
		{"unsupported", map[string]any{"error": "unsupported"}, "Geolocation is not supported by this browser"},
		{"unknown code", map[string]any{"error": "gremlins"}, "Unable to detect location"},
		{"no coordinates", map[string]any{}, "Location information unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, nil, &mockSubmitter{})
			rec := do(t, srv, http.MethodPost, reportPath+"/location/detect", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, tt.want, errorBody(t, rec))
		})
	}
}

func TestMapEmbed(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})

	rec := do(t, srv, http.MethodGet, reportPath+"/map", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	do(t, srv, http.MethodPut, reportPath+"/location", domain.Location{Latitude: "19.076000", Longitude: "72.877700"})
	rec = do(t, srv, http.MethodGet, reportPath+"/map", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "https://www.google.com/maps?q=19.076000,72.877700&z=15&output=embed", body["url"])
}

// --- persistence and submission ---

func TestSaveDraft(t *testing.T) {
	srv, store := newTestServer(t, nil, &mockSubmitter{})
	do(t, srv, http.MethodPut, reportPath+"/description", map[string]string{"description": "partial"})

	rec := do(t, srv, http.MethodPost, reportPath+"/draft", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decodeSnapshot(t, rec).LastSaved)

	_, ok := store.Get("draft")
	assert.True(t, ok)
}

func TestSubmitInvalidReturns409WithMissing(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{})
	fillValidReport(t, srv)
	do(t, srv, http.MethodPut, reportPath+"/description", map[string]string{"description": strings.Repeat("x", 49)})

	rec := do(t, srv, http.MethodPost, reportPath+"/submit", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Error   string               `json:"error"`
		Missing []domain.Requirement `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []domain.Requirement{domain.RequireDescription}, body.Missing)
}

func TestSubmitValidReport(t *testing.T) {
	srv, store := newTestServer(t, nil, &mockSubmitter{})
	fillValidReport(t, srv)
	do(t, srv, http.MethodPost, reportPath+"/draft", nil)

	rec := do(t, srv, http.MethodPost, reportPath+"/submit", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var receipt domain.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Regexp(t, `^HR-\d{6}$`, receipt.ReportID)

	_, ok := store.Get("draft")
	assert.False(t, ok)

	rec = do(t, srv, http.MethodPost, reportPath+"/submit", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodPut, reportPath+"/severity", map[string]string{"severity": "low"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodPost, reportPath+"/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, workflow.StateEditing, decodeSnapshot(t, rec).State)
}

func TestSubmitBackendFailureReturns502(t *testing.T) {
	srv, _ := newTestServer(t, nil, &mockSubmitter{err: errors.New("broker unreachable")})
	fillValidReport(t, srv)

	rec := do(t, srv, http.MethodPost, reportPath+"/submit", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, errorBody(t, rec), "broker unreachable")

	snap := decodeSnapshot(t, do(t, srv, http.MethodGet, reportPath+"/", nil))
	assert.Equal(t, workflow.StateSubmitFailed, snap.State)
	assert.Equal(t, "tsunami", snap.Draft.HazardType)
}
