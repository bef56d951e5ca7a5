package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Per-invocation timeouts. Every ffmpeg/ffprobe call runs under its own
// deadline so a wedged subprocess fails the stage instead of hanging the job.
const (
	probeTimeout     = 15 * time.Second
	cutTimeout       = 15 * time.Second
	fastCutTimeout   = 5 * time.Second
	thumbnailTimeout = 5 * time.Second
	synthTimeout     = 120 * time.Second
	normalizeTimeout = 120 * time.Second
	concatTimeout    = 300 * time.Second
	mixTimeout       = 300 * time.Second
	finalizeTimeout  = 180 * time.Second
	sceneScanTimeout = 300 * time.Second
)

// stderrTail limits how much tool output is carried into error values.
const stderrTail = 2000

// StreamProfile holds the video stream parameters every segment is
// normalized to before concatenation.
type StreamProfile struct {
	Width       int
	Height      int
	FrameRate   float64
	PixelFormat string
}

type FFmpegService struct {
	tempDir string
}

func NewFFmpegService(tempDir string) *FFmpegService {
	// Create temp directory if it doesn't exist
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		panic(fmt.Sprintf("failed to create temp dir: %v", err))
	}

	return &FFmpegService{
		tempDir: tempDir,
	}
}

// run executes ffmpeg with the given args, capturing stderr so failures
// carry the tool's own diagnostics.
func (s *FFmpegService) run(ctx context.Context, timeout time.Duration, stage, source string, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &ToolError{
			Stage:  stage,
			Source: source,
			Stderr: tail(stderr.String(), stderrTail),
			Err:    err,
		}
	}

	return nil
}

// Probe returns the primary video stream parameters of a file.
func (s *FFmpegService) Probe(ctx context.Context, path string) (*StreamProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,pix_fmt",
		"-of", "default=noprint_wrappers=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, &ProbeError{Path: path, Err: err}
	}

	profile, err := parseStreamProfile(string(output))
	if err != nil {
		return nil, &ProbeError{Path: path, Err: err}
	}

	return profile, nil
}

// parseStreamProfile parses ffprobe key=value output. Keyed output is used
// because ffprobe emits fields in its own order, not the requested one.
func parseStreamProfile(output string) (*StreamProfile, error) {
	values := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		if key, value, ok := strings.Cut(strings.TrimSpace(line), "="); ok {
			values[key] = value
		}
	}

	for _, key := range []string{"width", "height", "r_frame_rate", "pix_fmt"} {
		if values[key] == "" {
			return nil, fmt.Errorf("probe output missing %s", key)
		}
	}

	width, err := strconv.Atoi(values["width"])
	if err != nil {
		return nil, fmt.Errorf("bad width %q: %w", values["width"], err)
	}
	height, err := strconv.Atoi(values["height"])
	if err != nil {
		return nil, fmt.Errorf("bad height %q: %w", values["height"], err)
	}
	fps, err := parseFrameRate(values["r_frame_rate"])
	if err != nil {
		return nil, err
	}

	return &StreamProfile{
		Width:       width,
		Height:      height,
		FrameRate:   fps,
		PixelFormat: values["pix_fmt"],
	}, nil
}

// parseFrameRate handles ffprobe's fractional rates like "30000/1001".
func parseFrameRate(s string) (float64, error) {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("bad frame rate %q: %w", s, err)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("bad frame rate %q", s)
		}
		return n / d, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad frame rate %q: %w", s, err)
	}
	return v, nil
}

// GetDuration returns the container duration of a media file in seconds.
func (s *FFmpegService) GetDuration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, &ProbeError{Path: path, Err: err}
	}

	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, &ProbeError{Path: path, Err: fmt.Errorf("failed to parse duration: %w", err)}
	}

	return durationSec, nil
}

// HasAudioStream reports whether the file carries at least one audio stream.
func (s *FFmpegService) HasAudioStream(ctx context.Context, path string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return false, &ProbeError{Path: path, Err: err}
	}

	return strings.TrimSpace(string(output)) != "", nil
}

// Cut extracts [start, end) from a source video. Fast mode seeks before the
// input and stream-copies; quality mode re-encodes for frame accuracy.
func (s *FFmpegService) Cut(ctx context.Context, sourcePath, outputPath string, start, end float64, quality bool) error {
	duration := end - start
	if duration <= 0 {
		return &CutError{Source: sourcePath, Start: start, End: end, Err: fmt.Errorf("non-positive duration")}
	}

	var args []string
	timeout := fastCutTimeout
	if quality {
		timeout = cutTimeout
		args = []string{
			"-ss", formatSeconds(start),
			"-i", sourcePath,
			"-t", formatSeconds(duration),
			"-c:v", "libx264",
			"-preset", "ultrafast",
			"-crf", "28",
			"-c:a", "aac",
			"-y",
			outputPath,
		}
	} else {
		args = []string{
			"-ss", formatSeconds(start),
			"-i", sourcePath,
			"-t", formatSeconds(duration),
			"-c:v", "copy",
			"-c:a", "copy",
			"-avoid_negative_ts", "make_zero",
			"-y",
			outputPath,
		}
	}

	if err := s.run(ctx, timeout, "cut", sourcePath, args); err != nil {
		return &CutError{Source: sourcePath, Start: start, End: end, Err: err}
	}

	return nil
}

// Thumbnail grabs a single frame at the given offset, scaled to 320x180.
func (s *FFmpegService) Thumbnail(ctx context.Context, sourcePath, outputPath string, atSec float64) error {
	args := []string{
		"-ss", formatSeconds(atSec),
		"-i", sourcePath,
		"-vframes", "1",
		"-vf", "scale=320:180",
		"-q:v", "5",
		"-y",
		outputPath,
	}

	return s.run(ctx, thumbnailTimeout, "thumbnail", sourcePath, args)
}

// ExtractAudio writes [start, start+duration) of the source's audio as
// 16 kHz mono PCM WAV, the format Whisper handles best.
func (s *FFmpegService) ExtractAudio(ctx context.Context, sourcePath, outputPath string, start, duration float64) error {
	args := []string{
		"-ss", formatSeconds(start),
		"-i", sourcePath,
		"-t", formatSeconds(duration),
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outputPath,
	}

	return s.run(ctx, cutTimeout, "extract audio", sourcePath, args)
}

// DetectScenes returns the timestamps (seconds) of scene changes above the
// given threshold. ffmpeg reports matched frames on stderr via showinfo.
func (s *FFmpegService) DetectScenes(ctx context.Context, sourcePath string, threshold float64) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, sceneScanTimeout)
	defer cancel()

	args := []string{
		"-i", sourcePath,
		"-vf", fmt.Sprintf("select='gt(scene,%.2f)',showinfo", threshold),
		"-f", "null",
		"-",
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &ToolError{
			Stage:  "scene detection",
			Source: sourcePath,
			Stderr: tail(stderr.String(), stderrTail),
			Err:    err,
		}
	}

	return parseSceneTimestamps(stderr.String()), nil
}

// parseSceneTimestamps pulls pts_time values out of showinfo stderr output.
func parseSceneTimestamps(stderr string) []float64 {
	var timestamps []float64
	for _, line := range strings.Split(stderr, "\n") {
		idx := strings.Index(line, "pts_time:")
		if idx < 0 {
			continue
		}
		rest := line[idx+len("pts_time:"):]
		if end := strings.IndexAny(rest, " \t"); end >= 0 {
			rest = rest[:end]
		}
		if ts, err := strconv.ParseFloat(rest, 64); err == nil {
			timestamps = append(timestamps, ts)
		}
	}
	return timestamps
}

// CreateTempFile returns a path inside the service's temp directory.
func (s *FFmpegService) CreateTempFile(filename string) string {
	return filepath.Join(s.tempDir, filename)
}

// Cleanup removes temporary files
func (s *FFmpegService) Cleanup(paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("[FFmpeg] Cleanup failed for %s: %v", path, err)
		}
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// tail returns the last n bytes of s.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// escapeFilterText escapes characters the ffmpeg filter parser treats
// specially (drawtext content, file paths inside filters).
func escapeFilterText(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, ":", "\\:")
	text = strings.ReplaceAll(text, "'", "'\\''")
	return text
}
