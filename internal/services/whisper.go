package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
)

type WhisperService struct {
	client   *openai.Client
	language string
}

func NewWhisperService(apiKey, language string) *WhisperService {
	if language == "" {
		language = "en"
	}
	return &WhisperService{
		client:   openai.NewClient(apiKey),
		language: language,
	}
}

// TranscribeFile sends one audio chunk to Whisper and returns its text with
// segment-level timestamps relative to the start of the chunk.
func (s *WhisperService) TranscribeFile(ctx context.Context, audioPath string) (string, []models.TranscriptSegment, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: s.language,
	})
	if err != nil {
		return "", nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	segments := make([]models.TranscriptSegment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, models.TranscriptSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}

	log.Printf("[Whisper] Transcribed %s: %d segments (text: %q)",
		audioPath, len(segments), truncateString(resp.Text, 80))

	return strings.TrimSpace(resp.Text), segments, nil
}

// truncateString truncates a string to maxLen and appends "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
