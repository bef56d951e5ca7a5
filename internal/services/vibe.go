package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
)

// Vibes is the set of moods a clip can be scored against.
var Vibes = []string{
	"Happy", "Dramatic", "intense", "Fun", "Inspiring",
	"Mysterious", "Emotional", "cool", "musical",
}

// AgeGroups is the set of audiences a clip can be scored against.
var AgeGroups = []string{
	"kids", "teens", "young-adults", "adults", "seniors", "general",
}

const (
	vibeMaxRetries = 5
	vibeBaseDelay  = 2 * time.Second
)

type VibeService struct {
	apiKey string
	model  string
}

func NewVibeService(apiKey, model string) *VibeService {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &VibeService{
		apiKey: apiKey,
		model:  model,
	}
}

// NormalizeVibe maps arbitrary input to a known vibe, defaulting to Happy.
func NormalizeVibe(v string) string {
	for _, known := range Vibes {
		if strings.EqualFold(known, v) {
			return known
		}
	}
	return "Happy"
}

// NormalizeAgeGroup maps arbitrary input to a known audience, defaulting
// to general.
func NormalizeAgeGroup(g string) string {
	for _, known := range AgeGroups {
		if strings.EqualFold(known, g) {
			return known
		}
	}
	return "general"
}

// ScoreChunk asks Gemini how well one transcript chunk matches the target
// vibe and audience. Rate limits are retried with exponential backoff
// before the error surfaces.
func (s *VibeService) ScoreChunk(ctx context.Context, transcript, vibe, ageGroup string, chunkIndex int) (*models.VibeAnalysis, error) {
	prompt := buildVibePrompt(transcript, vibe, ageGroup)

	var lastErr error
	for attempt := 0; attempt <= vibeMaxRetries; attempt++ {
		if attempt > 0 {
			delay := vibeRetryDelay(attempt)
			log.Printf("[Vibe] Retry %d/%d for chunk %d (waiting %v)...", attempt, vibeMaxRetries, chunkIndex, delay)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("vibe scoring cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		analysis, err := s.scoreOnce(ctx, prompt, chunkIndex)
		if err == nil {
			return analysis, nil
		}

		lastErr = err
		if !isRateLimited(err) {
			return nil, err
		}
		log.Printf("[Vibe] Chunk %d rate limited on attempt %d: %v", chunkIndex, attempt+1, err)
	}

	return nil, &RateLimitError{Err: fmt.Errorf("gave up after %d attempts: %w", vibeMaxRetries+1, lastErr)}
}

func (s *VibeService) scoreOnce(ctx context.Context, prompt string, chunkIndex int) (*models.VibeAnalysis, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	result, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	raw := result.Text()

	var analysis models.VibeAnalysis
	if err := json.Unmarshal([]byte(extractJSON(raw)), &analysis); err != nil {
		log.Printf("[Vibe] Parse failed for chunk %d: %v (raw: %s)", chunkIndex, err, truncateString(raw, 300))
		return nil, fmt.Errorf("failed to parse vibe response: %w", err)
	}

	analysis.ChunkIndex = chunkIndex
	return &analysis, nil
}

func buildVibePrompt(transcript, vibe, ageGroup string) string {
	return fmt.Sprintf(`You are a short-form video editor scoring transcript excerpts.

Target vibe: %q
Target audience: %q

Transcript excerpt:
%s

Score how well this excerpt matches the target vibe and audience, and how
strong a standalone short clip it would make. Respond with ONLY a JSON object:
{
  "vibe_match_score": <0-100>,
  "age_group_match_score": <0-100>,
  "clip_potential_score": <0-100>,
  "overall_score": <0-100>,
  "reason": "<one sentence>",
  "best_moment": "<short quote of the strongest moment>"
}`, vibe, ageGroup, transcript)
}

// extractJSON strips markdown fences the model sometimes wraps around the
// JSON body.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			return raw[start : end+1]
		}
	}
	return raw
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "rate limit")
}

// vibeRetryDelay is exponential backoff with 0-25% jitter.
func vibeRetryDelay(attempt int) time.Duration {
	delay := float64(vibeBaseDelay) * math.Pow(2, float64(attempt-1))
	jitter := delay * 0.25 * rand.Float64()
	return time.Duration(delay + jitter)
}
