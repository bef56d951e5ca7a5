package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStreamProfile(t *testing.T) {
	output := "width=1920\nheight=1080\npix_fmt=yuv420p\nr_frame_rate=30000/1001\n"
	profile, err := parseStreamProfile(output)
	require.NoError(t, err)

	assert.Equal(t, 1920, profile.Width)
	assert.Equal(t, 1080, profile.Height)
	assert.InDelta(t, 29.97, profile.FrameRate, 0.01)
	assert.Equal(t, "yuv420p", profile.PixelFormat)
}

func TestParseStreamProfileRejectsPartialOutput(t *testing.T) {
	_, err := parseStreamProfile("width=1920\nheight=1080\n")
	assert.Error(t, err)
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"25", 25},
		{"30000/1001", 29.97002997},
		{"24000/1001", 23.976023976},
		{"60/1", 60},
	}

	for _, tt := range tests {
		got, err := parseFrameRate(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.InDelta(t, tt.want, got, 0.001, "input %q", tt.in)
	}

	_, err := parseFrameRate("30/0")
	assert.Error(t, err)
}

func TestParseSceneTimestamps(t *testing.T) {
	stderr := `[Parsed_showinfo_1 @ 0x55] n:   0 pts:  12345 pts_time:4.8048  duration...
some unrelated line
[Parsed_showinfo_1 @ 0x55] n:   1 pts:  45678 pts_time:12.279  duration...
[Parsed_showinfo_1 @ 0x55] n:   2 pts:  99999 pts_time:30.5
`

	got := parseSceneTimestamps(stderr)
	require.Len(t, got, 3)
	assert.InDelta(t, 4.8048, got[0], 0.0001)
	assert.InDelta(t, 12.279, got[1], 0.0001)
	assert.InDelta(t, 30.5, got[2], 0.0001)
}

func TestBuildNormalizeFilter(t *testing.T) {
	filter := buildNormalizeFilter(&StreamProfile{Width: 1280, Height: 720, FrameRate: 25, PixelFormat: "yuv420p"})
	assert.Equal(t,
		"scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=25",
		filter)
}

func TestBuildConcatFilterVideoOnly(t *testing.T) {
	filter := buildConcatFilter(3, []string{"[3:a:0]", "[4:a:0]", "[5:a:0]"}, false)
	assert.Equal(t, "[0:v:0][1:v:0][2:v:0]concat=n=3:v=1:a=0[v]", filter)
}

func TestBuildConcatFilterWithAudio(t *testing.T) {
	filter := buildConcatFilter(2, []string{"[0:a:0]", "[2:a:0]"}, true)
	assert.Equal(t,
		"[0:v:0][1:v:0]concat=n=2:v=1:a=0[v];[0:a:0][2:a:0]concat=n=2:v=0:a=1[a]",
		filter)
}

func TestBuildConcatArgsFillsSilenceForMuteSegments(t *testing.T) {
	inputs := []ConcatInput{
		{Path: "a.mp4", HasAudio: true, Duration: 5},
		{Path: "b.mp4", HasAudio: false, Duration: 3},
		{Path: "c.mp4", HasAudio: true, Duration: 4},
	}

	args, anyAudio := buildConcatArgs(inputs, "out.mp4")
	require.True(t, anyAudio)

	joined := ""
	for _, a := range args {
		joined += a + " "
	}

	// The silent filler is the fourth input and stands in for segment 1.
	assert.Contains(t, joined, "anullsrc=channel_layout=stereo:sample_rate=44100")
	assert.Contains(t, joined, "[0:a:0][3:a:0][2:a:0]concat=n=3:v=0:a=1[a]")
	assert.Contains(t, joined, "-t 3.000")
}

func TestBuildConcatArgsAllSilent(t *testing.T) {
	inputs := []ConcatInput{
		{Path: "a.mp4", Duration: 2},
		{Path: "b.mp4", Duration: 2},
	}

	args, anyAudio := buildConcatArgs(inputs, "out.mp4")
	assert.False(t, anyAudio)
	assert.Contains(t, args, "-an")
	assert.NotContains(t, args, "lavfi")
	assert.NotContains(t, args, "-t")

	for _, a := range args {
		assert.NotContains(t, a, "anullsrc")
	}
}

func TestEscapeFilterText(t *testing.T) {
	assert.Equal(t, "it'\\''s 10\\:30", escapeFilterText("it's 10:30"))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("  short  ", 100))
	assert.Equal(t, "...cdef", tail("abcdef", 4))
}
