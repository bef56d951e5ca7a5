package analyze

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
	"github.com/shivaacodes/clipcraft-hackgen/internal/services"
	"github.com/shivaacodes/clipcraft-hackgen/internal/storage"
)

// At most this many chunks get an LLM vibe score per job; scoring every
// chunk of a long video burns quota without changing the top picks much.
const maxScoredChunks = 3

// ProgressFunc receives pipeline progress at stage boundaries.
type ProgressFunc func(percent int, step string)

// Analyzer runs the full source-video pipeline: chunk, transcribe, score,
// extract clips.
type Analyzer struct {
	chunker       *Chunker
	transcription *TranscriptionManager
	vibe          *services.VibeService
	extractor     *ClipExtractor
	maxClips      int
}

func NewAnalyzer(ffmpeg *services.FFmpegService, store *storage.Store, whisper *services.WhisperService, vibe *services.VibeService, strategy string, concurrency int64, maxClips int) *Analyzer {
	if maxClips < 1 {
		maxClips = 5
	}
	return &Analyzer{
		chunker:       NewChunker(ffmpeg, strategy),
		transcription: NewTranscriptionManager(whisper, concurrency),
		vibe:          vibe,
		extractor:     NewClipExtractor(ffmpeg, store, maxClips, false),
		maxClips:      maxClips,
	}
}

// Analyze processes an uploaded source video and returns the transcript,
// scores, and extracted clips.
func (a *Analyzer) Analyze(ctx context.Context, sourcePath, filename, vibe, ageGroup string, progress ProgressFunc) (*models.AnalysisResult, error) {
	if progress == nil {
		progress = func(int, string) {}
	}

	vibe = services.NormalizeVibe(vibe)
	ageGroup = services.NormalizeAgeGroup(ageGroup)

	progress(15, "chunking")
	chunks, err := a.chunker.ChunkVideo(ctx, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("chunking failed: %w", err)
	}
	defer a.chunker.Cleanup(chunks)

	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks produced from %s", filename)
	}

	// Transcription progress maps to 20..80.
	transcriptions := a.transcription.TranscribeChunks(ctx, chunks, func(completed, total int) {
		pct := 20 + completed*60/total
		progress(pct, fmt.Sprintf("transcribing_chunk_%d_of_%d", completed, total))
	})

	merged, stats := MergeTranscriptions(transcriptions)
	if stats.SuccessfulChunks == 0 {
		return nil, fmt.Errorf("transcription failed for all %d chunks", stats.TotalChunks)
	}

	progress(85, "analyzing_vibe")
	analyses := a.scoreChunks(ctx, transcriptions, vibe, ageGroup)

	ranked := RankChunks(analyses, chunks, a.maxClips)
	fallbackUsed := false
	if len(ranked) == 0 {
		log.Printf("[Analyze] No chunk scored above threshold, using evenly spaced highlights")
		ranked = FallbackHighlights(chunks, transcriptions, a.maxClips)
		fallbackUsed = true
	}

	progress(95, "generating_clips")
	clips := a.extractor.ExtractClips(ctx, sourcePath, vibe, ranked)

	return &models.AnalysisResult{
		Filename:      filename,
		Vibe:          vibe,
		AgeGroup:      ageGroup,
		Transcription: merged,
		Stats:         stats,
		Clips:         clips,
		FallbackUsed:  fallbackUsed,
	}, nil
}

// scoreChunks sends the first few substantive transcriptions to the vibe
// scorer. A chunk that fails scoring is dropped from ranking.
func (a *Analyzer) scoreChunks(ctx context.Context, transcriptions []models.ChunkTranscription, vibe, ageGroup string) []models.VibeAnalysis {
	var analyses []models.VibeAnalysis

	scored := 0
	for _, tr := range transcriptions {
		if scored >= maxScoredChunks {
			break
		}
		if !tr.Success || len(strings.TrimSpace(tr.Text)) <= minChunkText {
			continue
		}

		analysis, err := a.vibe.ScoreChunk(ctx, tr.Text, vibe, ageGroup, tr.ChunkIndex)
		if err != nil {
			log.Printf("[Analyze] Vibe scoring failed for chunk %d: %v", tr.ChunkIndex, err)
			scored++
			continue
		}

		analyses = append(analyses, *analysis)
		scored++
	}

	return analyses
}
