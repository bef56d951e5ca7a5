package jobs

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/shivaacodes/clipcraft-hackgen/internal/analyze"
	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
	"github.com/shivaacodes/clipcraft-hackgen/internal/render"
	"github.com/shivaacodes/clipcraft-hackgen/internal/storage"
)

// Orchestrator runs pipelines as background goroutines tracked in the
// registry. Submission returns immediately; callers poll by job id.
// There is no mid-flight cancellation: a submitted job runs to success or
// failure. A pipeline panic fails its job instead of taking down the
// process.
type Orchestrator struct {
	registry *Registry
	renderer *render.Renderer
	analyzer *analyze.Analyzer
	store    *storage.Store
}

func NewOrchestrator(registry *Registry, renderer *render.Renderer, analyzer *analyze.Analyzer, store *storage.Store) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		renderer: renderer,
		analyzer: analyzer,
		store:    store,
	}
}

// SubmitRender starts a timeline render job and returns its id.
func (o *Orchestrator) SubmitRender(req *models.RenderTimelineRequest) string {
	jobID := o.registry.Create(models.JobKindRender)
	log.Printf("[Jobs] Render job %s submitted (%d items)", jobID, len(req.Timeline))

	go func() {
		defer o.failOnPanic(jobID)

		result, err := o.renderer.Render(context.Background(), req, func(percent int, step string) {
			o.registry.SetProgress(jobID, percent, step)
		})
		if err != nil {
			log.Printf("[Jobs] Render job %s failed: %v", jobID, err)
			o.registry.Fail(jobID, err.Error())
			return
		}

		o.registry.Complete(jobID, result)
	}()

	return jobID
}

// SubmitAnalyze starts an analysis job over an uploaded source video and
// returns its id. The upload is removed once the job finishes either way.
func (o *Orchestrator) SubmitAnalyze(uploadPath, originalName, vibe, ageGroup string) string {
	jobID := o.registry.Create(models.JobKindAnalyze)
	log.Printf("[Jobs] Analysis job %s submitted for %s", jobID, originalName)

	go func() {
		defer o.store.RemoveUpload(uploadPath)
		defer o.failOnPanic(jobID)

		o.registry.SetProgress(jobID, 10, "saving_file")

		result, err := o.analyzer.Analyze(context.Background(), uploadPath, filepath.Base(originalName), vibe, ageGroup, func(percent int, step string) {
			o.registry.SetProgress(jobID, percent, step)
		})
		if err != nil {
			log.Printf("[Jobs] Analysis job %s failed: %v", jobID, err)
			o.registry.Fail(jobID, err.Error())
			return
		}

		result.JobID = jobID
		o.registry.Complete(jobID, result)
	}()

	return jobID
}

// failOnPanic converts a pipeline panic into a failed job record.
func (o *Orchestrator) failOnPanic(jobID string) {
	if rec := recover(); rec != nil {
		log.Printf("[Jobs] Job %s panicked: %v", jobID, rec)
		o.registry.Fail(jobID, fmt.Sprintf("internal error: %v", rec))
	}
}
