package analyze

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
	"github.com/shivaacodes/clipcraft-hackgen/internal/services"
	"github.com/shivaacodes/clipcraft-hackgen/internal/storage"
)

// Clip extraction bounds. Anything outside this window makes a poor
// standalone short.
const (
	minClipDuration = 2.0
	maxClipDuration = 15.0
	minRankScore    = 30.0
	minChunkText    = 4
)

// ClipExtractor cuts ranked moments out of the source video into the
// shared clip store, with a thumbnail per clip.
type ClipExtractor struct {
	ffmpeg   *services.FFmpegService
	store    *storage.Store
	maxClips int
	quality  bool
}

func NewClipExtractor(ffmpeg *services.FFmpegService, store *storage.Store, maxClips int, quality bool) *ClipExtractor {
	if maxClips < 1 {
		maxClips = 5
	}
	return &ClipExtractor{
		ffmpeg:   ffmpeg,
		store:    store,
		maxClips: maxClips,
		quality:  quality,
	}
}

// RankChunks keeps chunks scoring above the threshold, best first, capped
// at maxClips.
func RankChunks(analyses []models.VibeAnalysis, chunks []models.Chunk, maxClips int) []models.RankedClip {
	byIndex := make(map[int]models.Chunk, len(chunks))
	for _, c := range chunks {
		byIndex[c.Index] = c
	}

	var ranked []models.RankedClip
	for _, a := range analyses {
		if a.OverallScore <= minRankScore {
			continue
		}
		chunk, ok := byIndex[a.ChunkIndex]
		if !ok {
			continue
		}
		ranked = append(ranked, models.RankedClip{
			ChunkIndex: a.ChunkIndex,
			StartTime:  chunk.StartTime,
			EndTime:    chunk.EndTime,
			Score:      a.OverallScore,
			Reason:     a.Reason,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > maxClips {
		ranked = ranked[:maxClips]
	}
	return ranked
}

// FallbackHighlights picks evenly spaced chunks when scoring produced no
// candidates, so every analysis yields something usable.
func FallbackHighlights(chunks []models.Chunk, transcriptions []models.ChunkTranscription, maxClips int) []models.RankedClip {
	textByIndex := make(map[int]string, len(transcriptions))
	for _, tr := range transcriptions {
		if tr.Success {
			textByIndex[tr.ChunkIndex] = tr.Text
		}
	}

	var valid []models.Chunk
	for _, c := range chunks {
		if len(strings.TrimSpace(textByIndex[c.Index])) > minChunkText {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		valid = chunks
	}
	if len(valid) == 0 {
		return nil
	}

	step := len(valid) / maxClips
	if step < 1 {
		step = 1
	}

	var picks []models.RankedClip
	for i := 0; i < len(valid) && len(picks) < maxClips; i += step {
		chunk := valid[i]
		picks = append(picks, models.RankedClip{
			ChunkIndex: chunk.Index,
			StartTime:  chunk.StartTime,
			EndTime:    chunk.EndTime,
			Score:      0,
			Reason:     "evenly spaced highlight",
		})
	}
	return picks
}

// ExtractClips cuts each ranked moment into the clip store. A clip that
// fails validation or extraction is skipped, not fatal.
func (e *ClipExtractor) ExtractClips(ctx context.Context, sourcePath, vibe string, ranked []models.RankedClip) []models.GeneratedClip {
	var clips []models.GeneratedClip

	for _, rc := range ranked {
		duration := rc.EndTime - rc.StartTime
		if duration < minClipDuration || duration > maxClipDuration {
			log.Printf("[Clips] Skipping chunk %d: duration %.1fs outside %v-%vs",
				rc.ChunkIndex, duration, minClipDuration, maxClipDuration)
			continue
		}

		clipID := uuid.New().String()
		filename := storage.UniqueFilename("clip", ".mp4")

		clipPath, err := e.store.ClipPath(filename)
		if err != nil {
			log.Printf("[Clips] Skipping chunk %d: %v", rc.ChunkIndex, err)
			continue
		}

		if err := e.ffmpeg.Cut(ctx, sourcePath, clipPath, rc.StartTime, rc.EndTime, e.quality); err != nil {
			log.Printf("[Clips] Extraction failed for chunk %d: %v", rc.ChunkIndex, err)
			continue
		}

		clip := models.GeneratedClip{
			ID:         clipID,
			Filename:   filename,
			URL:        storage.ClipURL(filename),
			StartTime:  rc.StartTime,
			EndTime:    rc.EndTime,
			Duration:   duration,
			Vibe:       vibe,
			Reason:     rc.Reason,
			Confidence: rc.Score,
		}

		thumbName := strings.TrimSuffix(filename, ".mp4") + "_thumb.jpg"
		if thumbPath, err := e.store.ClipPath(thumbName); err == nil {
			midpoint := rc.StartTime + duration/2
			if err := e.ffmpeg.Thumbnail(ctx, sourcePath, thumbPath, midpoint); err != nil {
				log.Printf("[Clips] Thumbnail failed for chunk %d: %v", rc.ChunkIndex, err)
			} else {
				clip.ThumbnailURL = storage.ClipURL(thumbName)
			}
		}

		clips = append(clips, clip)
	}

	log.Printf("[Clips] Extracted %d/%d clips", len(clips), len(ranked))
	return clips
}
