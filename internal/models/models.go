package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Enums

type ItemType string

const (
	ItemTypeClip  ItemType = "clip"
	ItemTypeImage ItemType = "image"
	ItemTypeText  ItemType = "text"
)

type JobKind string

const (
	JobKindRender  JobKind = "render"
	JobKindAnalyze JobKind = "analyze"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// TimelineItem is one entry of the editor timeline. Type discriminates which
// of the optional field groups is meaningful: clips reference files in the
// clip store, images reference uploaded assets, text cards carry their copy.
type TimelineItem struct {
	TimelineID string   `json:"timeline_id"`
	ID         string   `json:"id"`
	Type       ItemType `json:"type"`
	Name       string   `json:"name"`
	Duration   string   `json:"duration"`

	// Clip fields
	ClipURL      string             `json:"clip_url,omitempty"`
	ClipFilename string             `json:"clip_filename,omitempty"`
	ThumbnailURL string             `json:"thumbnail_url,omitempty"`
	StartTime    float64            `json:"start_time,omitempty"`
	EndTime      float64            `json:"end_time,omitempty"`
	Confidence   float64            `json:"confidence,omitempty"`
	Vibe         *string            `json:"vibe,omitempty"`
	Reason       *string            `json:"reason,omitempty"`
	Scores       map[string]float64 `json:"scores,omitempty"`

	// Image fields
	URL string `json:"url,omitempty"`

	// Text fields
	Text string `json:"text,omitempty"`
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// InferType guesses the item type for payloads that omit it. Runs only at
// the ingestion boundary; returns false when no signal resolves the item.
func (t *TimelineItem) InferType() (ItemType, bool) {
	if t.Type != "" {
		return t.Type, true
	}
	for _, ref := range []string{t.Name, t.URL} {
		if ext := strings.ToLower(extOf(ref)); imageExtensions[ext] {
			return ItemTypeImage, true
		}
	}
	if strings.TrimSpace(t.Text) != "" {
		return ItemTypeText, true
	}
	if t.ClipURL != "" || t.ClipFilename != "" {
		return ItemTypeClip, true
	}
	return "", false
}

func extOf(ref string) string {
	if i := strings.LastIndex(ref, "."); i >= 0 {
		return ref[i:]
	}
	return ""
}

// Validate checks the fields required for the resolved type.
func (t *TimelineItem) Validate() error {
	switch t.Type {
	case ItemTypeClip:
		if t.ClipURL == "" && t.ClipFilename == "" {
			return fmt.Errorf("clip item %q has neither clip_url nor clip_filename", t.ID)
		}
	case ItemTypeImage:
		if t.URL == "" && t.Name == "" {
			return fmt.Errorf("image item %q has no url or name", t.ID)
		}
	case ItemTypeText:
		// Empty text is allowed; the renderer substitutes a placeholder.
	default:
		return fmt.Errorf("item %q has unknown type %q", t.ID, t.Type)
	}
	return nil
}

// ParseDuration accepts plain seconds ("12", "7.5") or minutes:seconds
// ("1:30") and returns seconds.
func ParseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if strings.Contains(s, ":") {
		parts := strings.SplitN(s, ":", 2)
		mins, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		secs, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		if mins < 0 || secs < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return float64(mins)*60 + secs, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return v, nil
}

// RenderableSegment is a timeline item materialized to a concrete file on
// disk. FromClip is fixed here and drives audio muting downstream.
type RenderableSegment struct {
	Index       int
	SourcePath  string
	Duration    float64
	FromClip    bool
	HasAudio    bool
	Width       int
	Height      int
	FrameRate   float64
	PixelFormat string
}

// Region is a half-open [Start, End) span of the final video in seconds.
type Region struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SfxEvent is a sound effect scheduled at an offset into the final video.
type SfxEvent struct {
	Path    string
	DelayMs int
}

// Job is the in-memory record of a background pipeline run.
type Job struct {
	ID          string      `json:"job_id"`
	Kind        JobKind     `json:"kind"`
	Status      JobStatus   `json:"status"`
	Progress    int         `json:"progress"`
	CurrentStep string      `json:"current_step"`
	Result      interface{} `json:"result,omitempty"`
	Error       *string     `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// RenderResult describes a finished timeline render.
type RenderResult struct {
	RenderID   string  `json:"render_id"`
	Filename   string  `json:"filename"`
	FilePath   string  `json:"file_path"`
	FileSize   int64   `json:"file_size"`
	Duration   float64 `json:"duration"`
	ClipsCount int     `json:"clips_count"`
	HasBGM     bool    `json:"has_bgm"`
	HasSFX     bool    `json:"has_sfx"`
	URL        string  `json:"url"`
	Status     string  `json:"status"`
}

// Analysis pipeline types

type Chunk struct {
	Index     int     `json:"index"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Duration  float64 `json:"duration"`
	AudioPath string  `json:"-"`
}

type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type ChunkTranscription struct {
	ChunkIndex int                 `json:"chunk_index"`
	StartTime  float64             `json:"start_time"`
	EndTime    float64             `json:"end_time"`
	Text       string              `json:"text"`
	Segments   []TranscriptSegment `json:"segments,omitempty"`
	Success    bool                `json:"success"`
	Error      *string             `json:"error,omitempty"`
}

type MergedTranscription struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments"`
}

type ProcessingStats struct {
	TotalChunks      int     `json:"total_chunks"`
	SuccessfulChunks int     `json:"successful_chunks"`
	FailedChunks     int     `json:"failed_chunks"`
	SuccessRate      float64 `json:"success_rate"`
	TotalWords       int     `json:"total_words"`
}

type VibeAnalysis struct {
	ChunkIndex         int     `json:"chunk_index"`
	VibeMatchScore     float64 `json:"vibe_match_score"`
	AgeGroupMatchScore float64 `json:"age_group_match_score"`
	ClipPotentialScore float64 `json:"clip_potential_score"`
	OverallScore       float64 `json:"overall_score"`
	Reason             string  `json:"reason"`
	BestMoment         string  `json:"best_moment"`
}

type RankedClip struct {
	ChunkIndex int     `json:"chunk_index"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
}

type GeneratedClip struct {
	ID           string             `json:"id"`
	Filename     string             `json:"clip_filename"`
	URL          string             `json:"clip_url"`
	ThumbnailURL string             `json:"thumbnail_url,omitempty"`
	StartTime    float64            `json:"start_time"`
	EndTime      float64            `json:"end_time"`
	Duration     float64            `json:"duration"`
	Vibe         string             `json:"vibe"`
	Reason       string             `json:"reason,omitempty"`
	Confidence   float64            `json:"confidence"`
	Scores       map[string]float64 `json:"scores,omitempty"`
}

type AnalysisResult struct {
	JobID         string              `json:"job_id"`
	Filename      string              `json:"filename"`
	Vibe          string              `json:"vibe"`
	AgeGroup      string              `json:"age_group"`
	Transcription MergedTranscription `json:"transcription"`
	Stats         ProcessingStats     `json:"stats"`
	Clips         []GeneratedClip     `json:"clips"`
	FallbackUsed  bool                `json:"fallback_used"`
}

// API request/response DTOs

type SfxCue struct {
	File string  `json:"file"`
	Time float64 `json:"time"`
}

type RenderTimelineRequest struct {
	ProjectName string         `json:"project_name"`
	Timeline    []TimelineItem `json:"timeline"`
	SelectedBGM *string        `json:"selected_bgm,omitempty"`
	SFX         []SfxCue       `json:"sfx,omitempty"`
}

type SubmitJobResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}
