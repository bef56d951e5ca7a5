package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
)

func TestResolveMixAssetsMissingBGMDropsToPassthrough(t *testing.T) {
	opts := resolveMixAssets(MixOptions{
		BGMPath: filepath.Join(t.TempDir(), "gone.mp3"),
	})

	assert.Empty(t, opts.BGMPath)
}

func TestResolveMixAssetsKeepsPresentDropsMissing(t *testing.T) {
	dir := t.TempDir()
	bgm := filepath.Join(dir, "music.mp3")
	require.NoError(t, os.WriteFile(bgm, []byte("x"), 0644))
	ding := filepath.Join(dir, "ding.mp3")
	require.NoError(t, os.WriteFile(ding, []byte("x"), 0644))

	opts := resolveMixAssets(MixOptions{
		BGMPath: bgm,
		SFX: []models.SfxEvent{
			{Path: ding, DelayMs: 100},
			{Path: filepath.Join(dir, "missing.mp3"), DelayMs: 200},
		},
	})

	assert.Equal(t, bgm, opts.BGMPath)
	require.Len(t, opts.SFX, 1)
	assert.Equal(t, ding, opts.SFX[0].Path)
}

func TestBuildDuckingExpr(t *testing.T) {
	regions := []models.Region{
		{Start: 0, End: 5.5},
		{Start: 10, End: 12},
	}

	expr := buildDuckingExpr(regions)
	assert.Equal(t,
		"volume='if(between(t,0.000,5.500)+between(t,10.000,12.000),0.2,1.0)':eval=frame",
		expr)
}

func TestBuildDuckingExprEmpty(t *testing.T) {
	assert.Empty(t, buildDuckingExpr(nil))
}

func TestBuildMixFilterBGMOnly(t *testing.T) {
	filter := buildMixFilter(nil, nil)
	assert.Equal(t, "[0:a][1:a]amix=inputs=2:duration=first[aout]", filter)
}

func TestBuildMixFilterWithRegionsAndSFX(t *testing.T) {
	regions := []models.Region{{Start: 2, End: 4}}
	sfx := []models.SfxEvent{
		{Path: "whoosh.mp3", DelayMs: 1500},
		{Path: "ding.mp3", DelayMs: 8000},
	}

	filter := buildMixFilter(regions, sfx)

	assert.Contains(t, filter, "[1:a]volume='if(between(t,2.000,4.000),0.2,1.0)':eval=frame[bgm];")
	assert.Contains(t, filter, "[2:a]adelay=1500|1500[sfx0];")
	assert.Contains(t, filter, "[3:a]adelay=8000|8000[sfx1];")
	assert.Contains(t, filter, "[0:a][bgm][sfx0][sfx1]amix=inputs=4:duration=first[aout]")
}
