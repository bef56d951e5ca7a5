package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
)

// BGM volume while a clip's original audio is playing. Outside mute
// regions the music runs at full volume.
const duckedVolume = 0.2

// MixOptions carries the audio overlay plan for a concatenated video.
type MixOptions struct {
	BGMPath     string
	MuteRegions []models.Region
	SFX         []models.SfxEvent
}

// MixAudio lays looping background music and scheduled sound effects under
// the primary track. The music ducks to duckedVolume inside mute regions so
// clip audio stays intelligible. Without BGM the video passes through
// untouched and SFX are not applied. Missing audio assets degrade the mix
// rather than failing it: an absent BGM file falls back to the no-music
// passthrough and absent SFX files are dropped.
func (s *FFmpegService) MixAudio(ctx context.Context, videoPath, outputPath string, opts MixOptions) error {
	opts = resolveMixAssets(opts)

	if opts.BGMPath == "" {
		log.Printf("[Mix] No background music selected, passing through")
		args := []string{"-i", videoPath, "-c", "copy", "-y", outputPath}
		return s.run(ctx, mixTimeout, "mix passthrough", videoPath, args)
	}

	args := []string{
		"-i", videoPath,
		"-stream_loop", "-1",
		"-i", opts.BGMPath,
	}
	for _, ev := range opts.SFX {
		args = append(args, "-i", ev.Path)
	}

	filter := buildMixFilter(opts.MuteRegions, opts.SFX)

	log.Printf("[Mix] BGM %s with %d mute regions and %d sfx", opts.BGMPath, len(opts.MuteRegions), len(opts.SFX))

	args = append(args,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-y",
		outputPath,
	)

	return s.run(ctx, mixTimeout, "mix", videoPath, args)
}

// resolveMixAssets drops audio assets that are missing on disk. A missing
// BGM file downgrades the mix to the no-music passthrough; missing SFX
// files are skipped individually.
func resolveMixAssets(opts MixOptions) MixOptions {
	if opts.BGMPath != "" {
		if _, err := os.Stat(opts.BGMPath); err != nil {
			log.Printf("[Mix] WARNING: bgm file not found, rendering without music: %s", opts.BGMPath)
			opts.BGMPath = ""
		}
	}

	kept := make([]models.SfxEvent, 0, len(opts.SFX))
	for _, ev := range opts.SFX {
		if _, err := os.Stat(ev.Path); err != nil {
			log.Printf("[Mix] WARNING: sfx file not found, skipping: %s", ev.Path)
			continue
		}
		kept = append(kept, ev)
	}
	opts.SFX = kept

	return opts
}

// buildMixFilter emits the filter_complex for the mix: BGM ducking, SFX
// delays, and a final amix over all audio legs.
func buildMixFilter(muteRegions []models.Region, sfx []models.SfxEvent) string {
	var b strings.Builder

	bgmLabel := "[1:a]"
	if expr := buildDuckingExpr(muteRegions); expr != "" {
		fmt.Fprintf(&b, "[1:a]%s[bgm];", expr)
		bgmLabel = "[bgm]"
	}

	sfxLabels := make([]string, len(sfx))
	for i, ev := range sfx {
		label := fmt.Sprintf("[sfx%d]", i)
		fmt.Fprintf(&b, "[%d:a]adelay=%d|%d%s;", i+2, ev.DelayMs, ev.DelayMs, label)
		sfxLabels[i] = label
	}

	b.WriteString("[0:a]")
	b.WriteString(bgmLabel)
	for _, label := range sfxLabels {
		b.WriteString(label)
	}
	fmt.Fprintf(&b, "amix=inputs=%d:duration=first[aout]", 2+len(sfx))

	return b.String()
}

// buildDuckingExpr returns a volume filter that drops the music to
// duckedVolume whenever playback time falls inside a mute region. Empty
// when there is nothing to duck.
func buildDuckingExpr(regions []models.Region) string {
	if len(regions) == 0 {
		return ""
	}

	terms := make([]string, len(regions))
	for i, r := range regions {
		terms[i] = fmt.Sprintf("between(t,%s,%s)", formatSeconds(r.Start), formatSeconds(r.End))
	}

	// The expression is quoted so its commas survive the filter parser.
	return fmt.Sprintf("volume='if(%s,%.1f,1.0)':eval=frame", strings.Join(terms, "+"), duckedVolume)
}

// Finalize remuxes the mixed video into its delivery container with the
// moov atom up front for instant playback start.
func (s *FFmpegService) Finalize(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-i", inputPath,
		"-c", "copy",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	}

	return s.run(ctx, finalizeTimeout, "finalize", inputPath, args)
}
