package render

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
	"github.com/shivaacodes/clipcraft-hackgen/internal/services"
	"github.com/shivaacodes/clipcraft-hackgen/internal/storage"
)

// Defaults applied when the timeline gives the materializer nothing better.
const (
	defaultWidth    = 1280
	defaultHeight   = 720
	defaultDuration = 3.0
	placeholderText = "Untitled"
)

// Materializer turns timeline items into renderable segments on disk.
// Clips resolve to files in the clip store; images and text cards are
// synthesized into video segments and imported alongside them.
type Materializer struct {
	ffmpeg        *services.FFmpegService
	store         *storage.Store
	fallbackImage string
}

func NewMaterializer(ffmpeg *services.FFmpegService, store *storage.Store, fallbackImage string) *Materializer {
	return &Materializer{
		ffmpeg:        ffmpeg,
		store:         store,
		fallbackImage: fallbackImage,
	}
}

// Materialize resolves every timeline item to a concrete video file,
// preserving order. Items whose type cannot be determined are skipped with
// a warning; a clip whose file is missing aborts the whole render.
func (m *Materializer) Materialize(ctx context.Context, items []models.TimelineItem) ([]models.RenderableSegment, error) {
	width, height := m.targetResolution(ctx, items)
	log.Printf("[Materialize] Target resolution %dx%d for %d items", width, height, len(items))

	var segments []models.RenderableSegment
	for _, item := range items {
		itemType, ok := item.InferType()
		if !ok {
			log.Printf("[Materialize] WARNING: skipping item %q, type could not be determined", item.ID)
			continue
		}
		item.Type = itemType

		var (
			seg *models.RenderableSegment
			err error
		)
		switch itemType {
		case models.ItemTypeClip:
			seg, err = m.materializeClip(ctx, item)
		case models.ItemTypeImage:
			seg, err = m.materializeImage(ctx, item, width, height)
		case models.ItemTypeText:
			seg, err = m.materializeText(ctx, item, width, height)
		default:
			log.Printf("[Materialize] WARNING: skipping item %q, unknown type %q", item.ID, itemType)
			continue
		}
		if err != nil {
			return nil, err
		}

		seg.Index = len(segments)
		segments = append(segments, *seg)
	}

	if len(segments) == 0 {
		return nil, &services.ValidationError{Field: "timeline", Reason: "no renderable items"}
	}

	return segments, nil
}

// targetResolution probes clip items in timeline order and adopts the
// first readable one's dimensions. A timeline with no probe-able clip
// renders at the default resolution.
func (m *Materializer) targetResolution(ctx context.Context, items []models.TimelineItem) (int, int) {
	for _, item := range items {
		itemType, ok := item.InferType()
		if !ok || itemType != models.ItemTypeClip {
			continue
		}
		path, err := m.clipPath(item)
		if err != nil {
			continue
		}
		profile, err := m.ffmpeg.Probe(ctx, path)
		if err != nil {
			log.Printf("[Materialize] WARNING: probe failed on %s while sizing: %v", path, err)
			continue
		}
		return profile.Width, profile.Height
	}
	return defaultWidth, defaultHeight
}

func (m *Materializer) clipPath(item models.TimelineItem) (string, error) {
	filename := item.ClipFilename
	if filename == "" {
		if name, ok := storage.ClipFilenameFromURL(item.ClipURL); ok {
			filename = name
		}
	}
	if filename == "" {
		return "", &services.ValidationError{Field: "clip_url", Reason: fmt.Sprintf("item %q has no resolvable clip reference", item.ID)}
	}
	return m.store.ClipPath(filename)
}

func (m *Materializer) materializeClip(ctx context.Context, item models.TimelineItem) (*models.RenderableSegment, error) {
	path, err := m.clipPath(item)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		return nil, &services.MissingAssetError{Kind: "clip", Path: path}
	}

	duration, err := m.ffmpeg.GetDuration(ctx, path)
	if err != nil {
		return nil, err
	}

	hasAudio, err := m.ffmpeg.HasAudioStream(ctx, path)
	if err != nil {
		return nil, err
	}

	return &models.RenderableSegment{
		SourcePath: path,
		Duration:   duration,
		FromClip:   true,
		HasAudio:   hasAudio,
	}, nil
}

func (m *Materializer) materializeImage(ctx context.Context, item models.TimelineItem, width, height int) (*models.RenderableSegment, error) {
	ref := item.URL
	if ref == "" {
		ref = item.Name
	}

	imagePath, err := m.store.UploadPath(filepath.Base(ref))
	if err != nil || !fileExists(imagePath) {
		log.Printf("[Materialize] WARNING: image asset missing for item %q (%s), using fallback", item.ID, ref)
		imagePath = m.fallbackImage
	}

	duration := m.itemDuration(item)

	tmpOut := m.ffmpeg.CreateTempFile(storage.UniqueFilename("img_segment", ".mp4"))
	defer m.ffmpeg.Cleanup(tmpOut)

	if err := m.ffmpeg.SynthesizeFromImage(ctx, imagePath, tmpOut, width, height, duration); err != nil {
		return nil, &services.SynthesisError{ItemID: item.ID, Err: err}
	}

	stored, err := m.store.ImportClip(tmpOut, storage.UniqueFilename("synth_image", ".mp4"))
	if err != nil {
		return nil, &services.SynthesisError{ItemID: item.ID, Err: err}
	}

	return &models.RenderableSegment{
		SourcePath: stored,
		Duration:   duration,
		FromClip:   false,
		HasAudio:   false,
		Width:      width,
		Height:     height,
	}, nil
}

func (m *Materializer) materializeText(ctx context.Context, item models.TimelineItem, width, height int) (*models.RenderableSegment, error) {
	text := strings.TrimSpace(item.Text)
	if text == "" {
		log.Printf("[Materialize] WARNING: empty text for item %q, using placeholder", item.ID)
		text = placeholderText
	}

	duration := m.itemDuration(item)

	tmpOut := m.ffmpeg.CreateTempFile(storage.UniqueFilename("text_segment", ".mp4"))
	defer m.ffmpeg.Cleanup(tmpOut)

	if err := m.ffmpeg.SynthesizeFromText(ctx, text, tmpOut, width, height, duration); err != nil {
		return nil, &services.SynthesisError{ItemID: item.ID, Err: err}
	}

	stored, err := m.store.ImportClip(tmpOut, storage.UniqueFilename("synth_text", ".mp4"))
	if err != nil {
		return nil, &services.SynthesisError{ItemID: item.ID, Err: err}
	}

	return &models.RenderableSegment{
		SourcePath: stored,
		Duration:   duration,
		FromClip:   false,
		HasAudio:   false,
		Width:      width,
		Height:     height,
	}, nil
}

// itemDuration parses the item's duration, falling back to the default
// when the payload carries something unparseable.
func (m *Materializer) itemDuration(item models.TimelineItem) float64 {
	d, err := models.ParseDuration(item.Duration)
	if err != nil || d <= 0 {
		log.Printf("[Materialize] WARNING: bad duration %q on item %q, using %.0fs", item.Duration, item.ID, defaultDuration)
		return defaultDuration
	}
	return d
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

