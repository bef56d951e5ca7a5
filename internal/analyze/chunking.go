package analyze

import (
	"context"
	"fmt"
	"log"

	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
	"github.com/shivaacodes/clipcraft-hackgen/internal/services"
	"github.com/shivaacodes/clipcraft-hackgen/internal/storage"
)

// Chunking parameters. Chunks overlap slightly so sentences spanning a
// boundary are transcribed whole at least once.
const (
	chunkDuration  = 8.0
	chunkOverlap   = 1.0
	minChunkLength = 3.0
	maxChunkLength = 10.0
	sceneThreshold = 0.3
)

type span struct {
	start float64
	end   float64
}

// Chunker slices a source video into transcription-sized pieces and
// extracts each piece's audio as Whisper-ready WAV.
type Chunker struct {
	ffmpeg   *services.FFmpegService
	strategy string
}

func NewChunker(ffmpeg *services.FFmpegService, strategy string) *Chunker {
	if strategy == "" {
		strategy = "adaptive"
	}
	return &Chunker{
		ffmpeg:   ffmpeg,
		strategy: strategy,
	}
}

// ChunkVideo computes chunk boundaries per the configured strategy and
// extracts one audio file per chunk.
func (c *Chunker) ChunkVideo(ctx context.Context, videoPath string) ([]models.Chunk, error) {
	duration, err := c.ffmpeg.GetDuration(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, fmt.Errorf("source video has no duration: %s", videoPath)
	}

	var spans []span
	switch c.strategy {
	case "time":
		spans = timeSpans(duration)
	case "scene":
		spans, err = c.sceneSpans(ctx, videoPath, duration)
	case "adaptive":
		spans, err = c.sceneSpans(ctx, videoPath, duration)
		if err == nil {
			spans = splitLongSpans(spans, maxChunkLength)
		}
	default:
		return nil, fmt.Errorf("unknown chunk strategy %q", c.strategy)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[Chunker] %s strategy produced %d chunks for %.1fs of video", c.strategy, len(spans), duration)

	chunks := make([]models.Chunk, 0, len(spans))
	for i, sp := range spans {
		audioPath := c.ffmpeg.CreateTempFile(storage.UniqueFilename(fmt.Sprintf("chunk_%03d", i), ".wav"))
		if err := c.ffmpeg.ExtractAudio(ctx, videoPath, audioPath, sp.start, sp.end-sp.start); err != nil {
			return nil, err
		}
		chunks = append(chunks, models.Chunk{
			Index:     i,
			StartTime: sp.start,
			EndTime:   sp.end,
			Duration:  sp.end - sp.start,
			AudioPath: audioPath,
		})
	}

	return chunks, nil
}

// Cleanup removes the extracted audio files once transcription is done.
func (c *Chunker) Cleanup(chunks []models.Chunk) {
	for _, chunk := range chunks {
		c.ffmpeg.Cleanup(chunk.AudioPath)
	}
}

// timeSpans slices the timeline into fixed windows with a small overlap. A
// trailing remainder too short to stand alone extends the previous chunk.
func timeSpans(duration float64) []span {
	var spans []span
	step := chunkDuration - chunkOverlap

	for start := 0.0; start < duration; start += step {
		end := start + chunkDuration
		if end > duration {
			end = duration
		}

		if end-start < minChunkLength {
			if len(spans) > 0 {
				spans[len(spans)-1].end = duration
			} else {
				spans = append(spans, span{0, duration})
			}
			break
		}

		spans = append(spans, span{start, end})
		if end >= duration {
			break
		}
	}

	return spans
}

// sceneSpans chunks at detected scene changes, merging fragments shorter
// than the minimum into their predecessor. Falls back to time slicing when
// no scene changes are found.
func (c *Chunker) sceneSpans(ctx context.Context, videoPath string, duration float64) ([]span, error) {
	breaks, err := c.ffmpeg.DetectScenes(ctx, videoPath, sceneThreshold)
	if err != nil {
		return nil, err
	}
	if len(breaks) == 0 {
		log.Printf("[Chunker] No scene changes detected, falling back to time chunks")
		return timeSpans(duration), nil
	}
	return spansFromBreaks(breaks, duration), nil
}

// spansFromBreaks turns scene-change timestamps into contiguous spans over
// [0, duration], merging any span shorter than minChunkLength backwards.
func spansFromBreaks(breaks []float64, duration float64) []span {
	var spans []span
	prev := 0.0
	for _, b := range breaks {
		if b <= prev || b >= duration {
			continue
		}
		spans = appendSpan(spans, span{prev, b})
		prev = b
	}
	spans = appendSpan(spans, span{prev, duration})
	return spans
}

func appendSpan(spans []span, sp span) []span {
	if sp.end-sp.start < minChunkLength && len(spans) > 0 {
		spans[len(spans)-1].end = sp.end
		return spans
	}
	return append(spans, sp)
}

// splitLongSpans breaks any span longer than max into equal sub-spans.
func splitLongSpans(spans []span, max float64) []span {
	var out []span
	for _, sp := range spans {
		length := sp.end - sp.start
		if length <= max {
			out = append(out, sp)
			continue
		}

		pieces := int(length/max) + 1
		pieceLen := length / float64(pieces)
		for i := 0; i < pieces; i++ {
			start := sp.start + float64(i)*pieceLen
			end := start + pieceLen
			if i == pieces-1 {
				end = sp.end
			}
			out = append(out, span{start, end})
		}
	}
	return out
}
