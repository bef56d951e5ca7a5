package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shivaacodes/clipcraft-hackgen/internal/jobs"
	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
	"github.com/shivaacodes/clipcraft-hackgen/internal/storage"
)

// Video extensions accepted by the upload endpoint.
var allowedUploadExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

type Handler struct {
	registry        *jobs.Registry
	orchestrator    *jobs.Orchestrator
	store           *storage.Store
	maxUploadBytes  int64
	analysisEnabled bool
}

func NewHandler(registry *jobs.Registry, orchestrator *jobs.Orchestrator, store *storage.Store, maxUploadBytes int64, analysisEnabled bool) *Handler {
	return &Handler{
		registry:        registry,
		orchestrator:    orchestrator,
		store:           store,
		maxUploadBytes:  maxUploadBytes,
		analysisEnabled: analysisEnabled,
	}
}

// RenderTimeline handles POST /api/v1/process/render-timeline
func (h *Handler) RenderTimeline(w http.ResponseWriter, r *http.Request) {
	var req models.RenderTimelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Timeline) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "Timeline is empty")
		return
	}
	if req.ProjectName == "" {
		req.ProjectName = "untitled"
	}

	// Items with an unresolvable type are tolerated (the renderer skips
	// them), but items that claim a type must be coherent.
	for i := range req.Timeline {
		item := &req.Timeline[i]
		if itemType, ok := item.InferType(); ok {
			item.Type = itemType
			if err := item.Validate(); err != nil {
				respondError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
		}
	}

	jobID := h.orchestrator.SubmitRender(&req)

	respondJSON(w, http.StatusAccepted, models.SubmitJobResponse{
		JobID:  jobID,
		Status: models.JobStatusRunning,
	})
}

// UploadAndAnalyze handles POST /api/v1/process/upload-and-analyze
func (h *Handler) UploadAndAnalyze(w http.ResponseWriter, r *http.Request) {
	if !h.analysisEnabled {
		respondError(w, http.StatusServiceUnavailable, "Analysis pipeline is disabled")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Upload too large or malformed (limit %d MB)", h.maxUploadBytes/(1024*1024)))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExtensions[ext] {
		respondError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("Unsupported file type %q", ext))
		return
	}

	uploadPath, err := h.store.SaveUpload(file, header.Filename)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	vibe := r.FormValue("vibe")
	ageGroup := r.FormValue("age_group")

	jobID := h.orchestrator.SubmitAnalyze(uploadPath, header.Filename, vibe, ageGroup)

	respondJSON(w, http.StatusAccepted, models.SubmitJobResponse{
		JobID:  jobID,
		Status: models.JobStatusRunning,
	})
}

// JobStatus handles GET /api/v1/process/status/{id} and /render-status/{id}
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := h.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":       job.ID,
		"kind":         job.Kind,
		"status":       job.Status,
		"progress":     job.Progress,
		"current_step": job.CurrentStep,
		"error":        job.Error,
	})
}

// JobResult handles GET /api/v1/process/result/{id} and /render-result/{id}
func (h *Handler) JobResult(w http.ResponseWriter, r *http.Request) {
	job, ok := h.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	switch job.Status {
	case models.JobStatusCompleted:
		respondJSON(w, http.StatusOK, job.Result)
	case models.JobStatusFailed:
		errMsg := "job failed"
		if job.Error != nil {
			errMsg = *job.Error
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"job_id": job.ID,
			"status": job.Status,
			"error":  errMsg,
		})
	default:
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("Job not completed yet (status: %s, progress: %d%%)", job.Status, job.Progress))
	}
}

// DeleteJob handles DELETE /api/v1/process/job/{id} and /render-job/{id}
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.registry.Delete(id) {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"job_id": id,
		"status": "deleted",
	})
}

// ListJobs handles GET /api/v1/process/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobList := h.registry.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobList,
		"total": len(jobList),
	})
}

// ServeClip handles GET /api/v1/process/clips/{filename}
func (h *Handler) ServeClip(w http.ResponseWriter, r *http.Request) {
	h.serveStored(w, r, h.store.ClipPath)
}

// ServeRenderedVideo handles GET /api/v1/process/rendered-videos/{filename}
func (h *Handler) ServeRenderedVideo(w http.ResponseWriter, r *http.Request) {
	h.serveStored(w, r, h.store.RenderedPath)
}

func (h *Handler) serveStored(w http.ResponseWriter, r *http.Request, resolve func(string) (string, error)) {
	path, err := resolve(chi.URLParam(r, "filename"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusNotFound, "File not found")
		return
	}

	http.ServeFile(w, r, path)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "ClipCraft API"})
}
