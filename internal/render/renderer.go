package render

import (
	"context"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
	"github.com/shivaacodes/clipcraft-hackgen/internal/services"
	"github.com/shivaacodes/clipcraft-hackgen/internal/storage"
)

// ProgressFunc receives pipeline progress at stage boundaries.
type ProgressFunc func(percent int, step string)

// Renderer drives the full timeline pipeline: materialize, normalize,
// concatenate, mix, finalize.
type Renderer struct {
	ffmpeg       *services.FFmpegService
	store        *storage.Store
	materializer *Materializer
}

func NewRenderer(ffmpeg *services.FFmpegService, store *storage.Store, fallbackImage string) *Renderer {
	return &Renderer{
		ffmpeg:       ffmpeg,
		store:        store,
		materializer: NewMaterializer(ffmpeg, store, fallbackImage),
	}
}

// Render produces one final video from the request's timeline. The
// progress callback fires at stage boundaries with monotonically
// increasing percentages.
func (r *Renderer) Render(ctx context.Context, req *models.RenderTimelineRequest, progress ProgressFunc) (*models.RenderResult, error) {
	if progress == nil {
		progress = func(int, string) {}
	}

	renderID := uuid.New().String()
	log.Printf("[Render] Starting render %s (%d timeline items)", renderID[:8], len(req.Timeline))

	progress(10, "materializing")
	segments, err := r.materializer.Materialize(ctx, req.Timeline)
	if err != nil {
		return nil, fmt.Errorf("materialization failed: %w", err)
	}

	progress(30, "normalizing")
	normalized, tempFiles, err := r.normalizeAll(ctx, segments)
	defer r.ffmpeg.Cleanup(tempFiles...)
	if err != nil {
		return nil, fmt.Errorf("normalization failed: %w", err)
	}

	progress(55, "concatenating")
	concatPath, err := r.concatenate(ctx, normalized, renderID)
	if err != nil {
		return nil, fmt.Errorf("concatenation failed: %w", err)
	}
	defer r.ffmpeg.Cleanup(concatPath)

	progress(75, "mixing_audio")
	mixedPath, hasBGM, hasSFX, err := r.mix(ctx, concatPath, normalized, req, renderID)
	if err != nil {
		return nil, fmt.Errorf("audio mixing failed: %w", err)
	}
	if mixedPath != concatPath {
		defer r.ffmpeg.Cleanup(mixedPath)
	}

	progress(90, "finalizing")
	result, err := r.finalize(ctx, mixedPath, req.ProjectName, renderID, len(segments), hasBGM, hasSFX)
	if err != nil {
		return nil, fmt.Errorf("finalization failed: %w", err)
	}

	progress(100, "completed")
	log.Printf("[Render] Render %s complete: %s (%.1fs, %d bytes)",
		renderID[:8], result.Filename, result.Duration, result.FileSize)

	return result, nil
}

// normalizeAll re-encodes every segment to the first segment's stream
// profile. Returns the normalized segments and the temp files to clean up.
func (r *Renderer) normalizeAll(ctx context.Context, segments []models.RenderableSegment) ([]models.RenderableSegment, []string, error) {
	profile, err := r.ffmpeg.Probe(ctx, segments[0].SourcePath)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("[Normalize] Target profile %dx%d @ %.2ffps %s",
		profile.Width, profile.Height, profile.FrameRate, profile.PixelFormat)

	normalized := make([]models.RenderableSegment, len(segments))
	var tempFiles []string

	for i, seg := range segments {
		hasAudio, err := r.ffmpeg.HasAudioStream(ctx, seg.SourcePath)
		if err != nil {
			return nil, tempFiles, err
		}

		outPath := r.ffmpeg.CreateTempFile(storage.UniqueFilename(fmt.Sprintf("norm_%03d", i), ".mp4"))
		tempFiles = append(tempFiles, outPath)

		if err := r.ffmpeg.Normalize(ctx, seg.SourcePath, outPath, profile, hasAudio); err != nil {
			return nil, tempFiles, err
		}

		norm := seg
		norm.SourcePath = outPath
		norm.HasAudio = hasAudio
		norm.Width = profile.Width
		norm.Height = profile.Height
		norm.FrameRate = profile.FrameRate
		norm.PixelFormat = profile.PixelFormat
		normalized[i] = norm
	}

	return normalized, tempFiles, nil
}

func (r *Renderer) concatenate(ctx context.Context, segments []models.RenderableSegment, renderID string) (string, error) {
	inputs := make([]services.ConcatInput, len(segments))
	for i, seg := range segments {
		inputs[i] = services.ConcatInput{
			Path:     seg.SourcePath,
			HasAudio: seg.HasAudio,
			Duration: seg.Duration,
		}
	}

	concatPath := r.ffmpeg.CreateTempFile(fmt.Sprintf("concat_%s.mp4", renderID[:8]))
	if err := r.ffmpeg.Concat(ctx, inputs, concatPath); err != nil {
		return "", err
	}

	// A silent track is muxed in when no segment contributed audio so the
	// mixer always has a primary stream to work against.
	ensuredPath := r.ffmpeg.CreateTempFile(fmt.Sprintf("concat_audio_%s.mp4", renderID[:8]))
	final, err := r.ffmpeg.EnsureAudio(ctx, concatPath, ensuredPath)
	if err != nil {
		return "", err
	}
	if final != concatPath {
		r.ffmpeg.Cleanup(concatPath)
	}

	return final, nil
}

func (r *Renderer) mix(ctx context.Context, concatPath string, segments []models.RenderableSegment, req *models.RenderTimelineRequest, renderID string) (string, bool, bool, error) {
	opts := services.MixOptions{}

	if req.SelectedBGM != nil && *req.SelectedBGM != "" {
		bgmPath, err := r.store.BGMPath(*req.SelectedBGM)
		if err != nil {
			return "", false, false, &services.ValidationError{Field: "selected_bgm", Reason: err.Error()}
		}

		if _, statErr := os.Stat(bgmPath); statErr != nil {
			log.Printf("[Render] WARNING: bgm file %q not found, rendering without music", *req.SelectedBGM)
		} else {
			opts.BGMPath = bgmPath

			muteRegions, _ := ComputeRegions(segments)
			opts.MuteRegions = muteRegions

			for _, cue := range req.SFX {
				sfxPath, err := r.store.BGMPath(cue.File)
				if err != nil {
					log.Printf("[Render] WARNING: invalid sfx filename %q, skipping", cue.File)
					continue
				}
				opts.SFX = append(opts.SFX, models.SfxEvent{
					Path:    sfxPath,
					DelayMs: int(cue.Time * 1000),
				})
			}
		}
	}

	mixedPath := r.ffmpeg.CreateTempFile(fmt.Sprintf("mixed_%s.mp4", renderID[:8]))
	if err := r.ffmpeg.MixAudio(ctx, concatPath, mixedPath, opts); err != nil {
		return "", false, false, err
	}

	return mixedPath, opts.BGMPath != "", len(opts.SFX) > 0, nil
}

func (r *Renderer) finalize(ctx context.Context, mixedPath, projectName, renderID string, segmentCount int, hasBGM, hasSFX bool) (*models.RenderResult, error) {
	filename := fmt.Sprintf("%s_%s_final.mp4", slugify(projectName), renderID[:8])
	outputPath, err := r.store.RenderedPath(filename)
	if err != nil {
		return nil, err
	}

	if err := r.ffmpeg.Finalize(ctx, mixedPath, outputPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("final video missing after remux: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("final video is empty: %s", outputPath)
	}

	duration, err := r.ffmpeg.GetDuration(ctx, outputPath)
	if err != nil {
		return nil, err
	}

	return &models.RenderResult{
		RenderID:   renderID,
		Filename:   filename,
		FilePath:   outputPath,
		FileSize:   info.Size(),
		Duration:   duration,
		ClipsCount: segmentCount,
		HasBGM:     hasBGM,
		HasSFX:     hasSFX,
		URL:        storage.RenderedURL(filename),
		Status:     "completed",
	}, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify reduces a project name to a safe filename fragment.
func slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return "render"
	}
	if len(slug) > 40 {
		slug = slug[:40]
	}
	return slug
}
