package services

import (
	"context"
	"fmt"
	"log"
)

// Synthesized segments share a fixed frame rate; the normalizer re-times
// everything to the first segment's profile afterwards anyway.
const synthFPS = 25

// SynthesizeFromImage renders a still image into a video segment of the
// given duration at the target resolution, letterboxed as needed.
func (s *FFmpegService) SynthesizeFromImage(ctx context.Context, imagePath, outputPath string, width, height int, duration float64) error {
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		width, height, width, height,
	)

	log.Printf("[Synth] Image %s -> %.1fs segment at %dx%d", imagePath, duration, width, height)

	args := []string{
		"-loop", "1",
		"-i", imagePath,
		"-t", formatSeconds(duration),
		"-vf", vf,
		"-r", fmt.Sprintf("%d", synthFPS),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}

	return s.run(ctx, synthTimeout, "image synthesis", imagePath, args)
}

// SynthesizeFromText renders a text card: black background with the text
// centered in white.
func (s *FFmpegService) SynthesizeFromText(ctx context.Context, text, outputPath string, width, height int, duration float64) error {
	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=48:x=(w-text_w)/2:y=(h-text_h)/2",
		escapeFilterText(text),
	)

	log.Printf("[Synth] Text card %q -> %.1fs segment at %dx%d", text, duration, width, height)

	args := []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:d=%s:r=%d", width, height, formatSeconds(duration), synthFPS),
		"-vf", drawtext,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}

	return s.run(ctx, synthTimeout, "text synthesis", text, args)
}
