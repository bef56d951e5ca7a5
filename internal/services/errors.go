package services

import "fmt"

// ValidationError reports a malformed timeline or request payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// MissingAssetError reports a referenced file that does not exist on disk.
// Fatal for clips; image and text items substitute fallbacks instead.
type MissingAssetError struct {
	Kind string
	Path string
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("%s asset not found: %s", e.Kind, e.Path)
}

// ToolError wraps a failed ffmpeg/ffprobe invocation. Stderr is carried
// verbatim so the root cause survives into job records and logs.
type ToolError struct {
	Stage  string
	Source string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Stage)
	if e.Source != "" {
		msg += fmt.Sprintf(" on %s", e.Source)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf(" (stderr: %s)", e.Stderr)
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// ProbeError reports an ffprobe failure on a specific file.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe failed on %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// CutError reports a failed clip extraction from a source video.
type CutError struct {
	Source string
	Start  float64
	End    float64
	Err    error
}

func (e *CutError) Error() string {
	return fmt.Sprintf("cut %.2f-%.2f from %s failed: %v", e.Start, e.End, e.Source, e.Err)
}

func (e *CutError) Unwrap() error { return e.Err }

// SynthesisError reports a failed image or text segment synthesis.
type SynthesisError struct {
	ItemID string
	Err    error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed for item %s: %v", e.ItemID, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// RateLimitError marks a provider 429; the vibe client retries these with
// exponential backoff before giving up.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }
