package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivaacodes/clipcraft-hackgen/internal/analyze"
	"github.com/shivaacodes/clipcraft-hackgen/internal/jobs"
	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
	"github.com/shivaacodes/clipcraft-hackgen/internal/render"
	"github.com/shivaacodes/clipcraft-hackgen/internal/services"
	"github.com/shivaacodes/clipcraft-hackgen/internal/storage"
)

func newTestServer(t *testing.T, analysisEnabled bool) (*chi.Mux, *jobs.Registry) {
	t.Helper()

	base := t.TempDir()
	store, err := storage.New(
		filepath.Join(base, "clips"),
		filepath.Join(base, "rendered"),
		filepath.Join(base, "uploads"),
		filepath.Join(base, "bgm"),
	)
	require.NoError(t, err)

	ffmpeg := services.NewFFmpegService(filepath.Join(base, "tmp"))
	whisper := services.NewWhisperService("test-key", "en")
	vibe := services.NewVibeService("test-key", "")

	registry := jobs.NewRegistry()
	renderer := render.NewRenderer(ffmpeg, store, filepath.Join(base, "black.jpg"))
	analyzer := analyze.NewAnalyzer(ffmpeg, store, whisper, vibe, "time", 3, 5)
	orchestrator := jobs.NewOrchestrator(registry, renderer, analyzer, store)

	handler := NewHandler(registry, orchestrator, store, 10*1024*1024, analysisEnabled)
	router := NewRouter(handler, RouterConfig{})

	return router, registry
}

func TestHealth(t *testing.T) {
	router, _ := newTestServer(t, true)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRenderTimelineRejectsEmptyTimeline(t *testing.T) {
	router, _ := newTestServer(t, true)

	body := `{"project_name": "test", "timeline": []}`
	req := httptest.NewRequest("POST", "/api/v1/process/render-timeline", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRenderTimelineRejectsBadJSON(t *testing.T) {
	router, _ := newTestServer(t, true)

	req := httptest.NewRequest("POST", "/api/v1/process/render-timeline", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenderTimelineRejectsIncoherentItem(t *testing.T) {
	router, _ := newTestServer(t, true)

	// Declares itself a clip but carries no clip reference.
	body := `{"project_name": "test", "timeline": [{"id": "x", "type": "clip", "duration": "5"}]}`
	req := httptest.NewRequest("POST", "/api/v1/process/render-timeline", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRenderTimelineAccepts(t *testing.T) {
	router, registry := newTestServer(t, true)

	body := `{"project_name": "demo", "timeline": [{"id": "t1", "type": "text", "text": "Hello", "duration": "3"}]}`
	req := httptest.NewRequest("POST", "/api/v1/process/render-timeline", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp models.SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)

	_, ok := registry.Get(resp.JobID)
	assert.True(t, ok)
}

func TestJobStatusNotFound(t *testing.T) {
	router, _ := newTestServer(t, true)

	req := httptest.NewRequest("GET", "/api/v1/process/status/unknown-id", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobResultNotCompleted(t *testing.T) {
	router, registry := newTestServer(t, true)
	id := registry.Create(models.JobKindRender)

	req := httptest.NewRequest("GET", "/api/v1/process/result/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobResultCompleted(t *testing.T) {
	router, registry := newTestServer(t, true)
	id := registry.Create(models.JobKindRender)
	registry.Complete(id, &models.RenderResult{RenderID: "r1", Filename: "out.mp4", Status: "completed"})

	req := httptest.NewRequest("GET", "/api/v1/process/render-result/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "out.mp4")
}

func TestDeleteJob(t *testing.T) {
	router, registry := newTestServer(t, true)
	id := registry.Create(models.JobKindAnalyze)

	req := httptest.NewRequest("DELETE", "/api/v1/process/job/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/v1/process/job/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobs(t *testing.T) {
	router, registry := newTestServer(t, true)
	registry.Create(models.JobKindRender)
	registry.Create(models.JobKindAnalyze)

	req := httptest.NewRequest("GET", "/api/v1/process/jobs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)
}

func TestUploadAndAnalyzeDisabled(t *testing.T) {
	router, _ := newTestServer(t, false)

	req := httptest.NewRequest("POST", "/api/v1/process/upload-and-analyze", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUploadAndAnalyzeRejectsBadExtension(t *testing.T) {
	router, _ := newTestServer(t, true)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a video"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/process/upload-and-analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServeClipNotFound(t *testing.T) {
	router, _ := newTestServer(t, true)

	req := httptest.NewRequest("GET", "/api/v1/process/clips/missing.mp4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	base := t.TempDir()
	store, err := storage.New(
		filepath.Join(base, "clips"),
		filepath.Join(base, "rendered"),
		filepath.Join(base, "uploads"),
		filepath.Join(base, "bgm"),
	)
	require.NoError(t, err)

	registry := jobs.NewRegistry()
	handler := NewHandler(registry, nil, store, 1024, false)
	router := NewRouter(handler, RouterConfig{BackendAPIKey: "secret"})

	// No key
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/process/jobs", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong key
	req := httptest.NewRequest("GET", "/api/v1/process/jobs", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Correct key via Bearer
	req = httptest.NewRequest("GET", "/api/v1/process/jobs", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays public
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
