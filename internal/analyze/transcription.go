package analyze

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
	"github.com/shivaacodes/clipcraft-hackgen/internal/services"
)

// TranscriptionManager fans chunk transcription out to Whisper with a
// bounded number of in-flight requests per job.
type TranscriptionManager struct {
	whisper     *services.WhisperService
	concurrency int64
}

func NewTranscriptionManager(whisper *services.WhisperService, concurrency int64) *TranscriptionManager {
	if concurrency < 1 {
		concurrency = 1
	}
	return &TranscriptionManager{
		whisper:     whisper,
		concurrency: concurrency,
	}
}

// TranscribeChunks transcribes every chunk, reporting completion counts
// through done. A failed chunk is recorded with its error and does not
// stop the others.
func (m *TranscriptionManager) TranscribeChunks(ctx context.Context, chunks []models.Chunk, done func(completed, total int)) []models.ChunkTranscription {
	if done == nil {
		done = func(int, int) {}
	}

	results := make([]models.ChunkTranscription, len(chunks))
	sem := semaphore.NewWeighted(m.concurrency)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)

	for i, chunk := range chunks {
		if err := sem.Acquire(ctx, 1); err != nil {
			errMsg := err.Error()
			results[i] = models.ChunkTranscription{
				ChunkIndex: chunk.Index,
				StartTime:  chunk.StartTime,
				EndTime:    chunk.EndTime,
				Error:      &errMsg,
			}
			continue
		}

		wg.Add(1)
		go func(i int, chunk models.Chunk) {
			defer wg.Done()
			defer sem.Release(1)

			results[i] = m.transcribeOne(ctx, chunk)

			mu.Lock()
			completed++
			done(completed, len(chunks))
			mu.Unlock()
		}(i, chunk)
	}

	wg.Wait()
	return results
}

func (m *TranscriptionManager) transcribeOne(ctx context.Context, chunk models.Chunk) models.ChunkTranscription {
	result := models.ChunkTranscription{
		ChunkIndex: chunk.Index,
		StartTime:  chunk.StartTime,
		EndTime:    chunk.EndTime,
	}

	text, segments, err := m.whisper.TranscribeFile(ctx, chunk.AudioPath)
	if err != nil {
		log.Printf("[Transcription] Chunk %d failed: %v", chunk.Index, err)
		errMsg := err.Error()
		result.Error = &errMsg
		return result
	}

	result.Text = text
	result.Segments = segments
	result.Success = true
	return result
}

// MergeTranscriptions stitches successful chunk transcriptions into one
// transcript ordered by time, shifting segment timestamps from
// chunk-relative to video-relative.
func MergeTranscriptions(transcriptions []models.ChunkTranscription) (models.MergedTranscription, models.ProcessingStats) {
	successful := make([]models.ChunkTranscription, 0, len(transcriptions))
	failed := 0
	for _, tr := range transcriptions {
		if tr.Success {
			successful = append(successful, tr)
		} else {
			failed++
		}
	}

	sort.Slice(successful, func(i, j int) bool {
		return successful[i].StartTime < successful[j].StartTime
	})

	var (
		texts    []string
		segments []models.TranscriptSegment
	)
	for _, tr := range successful {
		if tr.Text != "" {
			texts = append(texts, tr.Text)
		}
		for _, seg := range tr.Segments {
			segments = append(segments, models.TranscriptSegment{
				Start: seg.Start + tr.StartTime,
				End:   seg.End + tr.StartTime,
				Text:  seg.Text,
			})
		}
	}

	merged := models.MergedTranscription{
		Text:     strings.Join(texts, " "),
		Segments: segments,
	}

	stats := models.ProcessingStats{
		TotalChunks:      len(transcriptions),
		SuccessfulChunks: len(successful),
		FailedChunks:     failed,
		TotalWords:       len(strings.Fields(merged.Text)),
	}
	if stats.TotalChunks > 0 {
		stats.SuccessRate = float64(stats.SuccessfulChunks) / float64(stats.TotalChunks) * 100
	}

	return merged, stats
}
