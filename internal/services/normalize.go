package services

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// ConcatInput is one segment entering the concat graph.
type ConcatInput struct {
	Path     string
	HasAudio bool
	Duration float64
}

// Normalize re-encodes a segment to the target stream profile. Every
// segment goes through this so concatenation never mixes mismatched
// resolutions, frame rates, or pixel formats.
func (s *FFmpegService) Normalize(ctx context.Context, inputPath, outputPath string, profile *StreamProfile, hasAudio bool) error {
	vf := buildNormalizeFilter(profile)

	args := []string{
		"-i", inputPath,
		"-vf", vf,
		"-pix_fmt", profile.PixelFormat,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
	}

	if hasAudio {
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	} else {
		args = append(args, "-an")
	}

	args = append(args, "-y", outputPath)

	if err := s.run(ctx, normalizeTimeout, "normalize", inputPath, args); err != nil {
		return err
	}

	return nil
}

// buildNormalizeFilter scales to fit inside the target frame, pads to the
// exact size, squares the sample aspect ratio, and locks the frame rate.
func buildNormalizeFilter(profile *StreamProfile) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%g",
		profile.Width, profile.Height, profile.Width, profile.Height, profile.FrameRate,
	)
}

// Concat joins normalized segments into one video with a continuous audio
// track. Audio-less segments contribute silence of their probed duration so
// the track stays aligned with the picture.
func (s *FFmpegService) Concat(ctx context.Context, inputs []ConcatInput, outputPath string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no segments to concatenate")
	}

	args, anyAudio := buildConcatArgs(inputs, outputPath)

	if !anyAudio {
		log.Printf("[Concat] No segment carries audio, producing silent video (%d segments)", len(inputs))
	} else {
		log.Printf("[Concat] Joining %d segments", len(inputs))
	}

	return s.run(ctx, concatTimeout, "concat", "", args)
}

// buildConcatArgs constructs the full ffmpeg argument list for the concat
// graph. Returns the args and whether any real audio stream is present.
func buildConcatArgs(inputs []ConcatInput, outputPath string) ([]string, bool) {
	var args []string
	anyAudio := false
	for _, in := range inputs {
		args = append(args, "-i", in.Path)
		if in.HasAudio {
			anyAudio = true
		}
	}

	// Silent fillers are appended after the real inputs, trimmed to each
	// segment's duration so timing stays exact. With no audio anywhere the
	// graph has no audio branch and needs no fillers.
	audioLabels := make([]string, len(inputs))
	if anyAudio {
		next := len(inputs)
		for i, in := range inputs {
			if in.HasAudio {
				audioLabels[i] = fmt.Sprintf("[%d:a:0]", i)
				continue
			}
			args = append(args,
				"-f", "lavfi",
				"-t", formatSeconds(in.Duration),
				"-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
			)
			audioLabels[i] = fmt.Sprintf("[%d:a:0]", next)
			next++
		}
	}

	filter := buildConcatFilter(len(inputs), audioLabels, anyAudio)
	args = append(args, "-filter_complex", filter, "-map", "[v]")

	if anyAudio {
		args = append(args, "-map", "[a]", "-c:a", "aac", "-b:a", "192k")
	} else {
		args = append(args, "-an")
	}

	args = append(args, "-c:v", "libx264", "-preset", "fast", "-crf", "22", "-y", outputPath)
	return args, anyAudio
}

// buildConcatFilter emits the filter_complex string: a video concat chain
// and, when audio exists, a parallel audio concat chain.
func buildConcatFilter(n int, audioLabels []string, withAudio bool) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "[%d:v:0]", i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=1:a=0[v]", n)

	if withAudio {
		b.WriteString(";")
		for _, label := range audioLabels {
			b.WriteString(label)
		}
		fmt.Fprintf(&b, "concat=n=%d:v=0:a=1[a]", n)
	}

	return b.String()
}

// EnsureAudio guarantees the file has an audio stream, muxing in silence
// when the concat produced a video-only container. Returns the path that
// holds the guaranteed-audio version.
func (s *FFmpegService) EnsureAudio(ctx context.Context, videoPath, outputPath string) (string, error) {
	hasAudio, err := s.HasAudioStream(ctx, videoPath)
	if err != nil {
		return "", err
	}
	if hasAudio {
		return videoPath, nil
	}

	log.Printf("[Concat] Adding silent audio track to %s", videoPath)

	args := []string{
		"-i", videoPath,
		"-f", "lavfi",
		"-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-y",
		outputPath,
	}

	if err := s.run(ctx, concatTimeout, "ensure audio", videoPath, args); err != nil {
		return "", err
	}

	return outputPath, nil
}
