package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	s, err := New(
		filepath.Join(base, "clips"),
		filepath.Join(base, "rendered"),
		filepath.Join(base, "uploads"),
		filepath.Join(base, "bgm"),
	)
	require.NoError(t, err)
	return s
}

func TestUniqueFilename(t *testing.T) {
	a := UniqueFilename("clip", ".mp4")
	b := UniqueFilename("clip", "mp4")

	assert.True(t, strings.HasPrefix(a, "clip_"))
	assert.True(t, strings.HasSuffix(a, ".mp4"))
	assert.True(t, strings.HasSuffix(b, ".mp4"))
	assert.NotEqual(t, a, b)
}

func TestClipPathRejectsTraversal(t *testing.T) {
	s := newTestStore(t)

	for _, bad := range []string{"../escape.mp4", "a/b.mp4", "..", ""} {
		_, err := s.ClipPath(bad)
		assert.Error(t, err, "filename %q", bad)
	}

	p, err := s.ClipPath("clip_abc.mp4")
	require.NoError(t, err)
	assert.Equal(t, "clip_abc.mp4", filepath.Base(p))
}

func TestClipFilenameFromURL(t *testing.T) {
	name, ok := ClipFilenameFromURL("http://localhost:8000/api/v1/process/clips/clip_ab12.mp4")
	require.True(t, ok)
	assert.Equal(t, "clip_ab12.mp4", name)

	_, ok = ClipFilenameFromURL("/somewhere/else/clip.mp4")
	assert.False(t, ok)

	_, ok = ClipFilenameFromURL(ClipURLPrefix)
	assert.False(t, ok)
}

func TestImportClip(t *testing.T) {
	s := newTestStore(t)

	src := filepath.Join(t.TempDir(), "segment.mp4")
	require.NoError(t, os.WriteFile(src, []byte("fake video"), 0644))

	dst, err := s.ImportClip(src, "clip_xyz.mp4")
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "fake video", string(data))
}

func TestSaveUpload(t *testing.T) {
	s := newTestStore(t)

	path, err := s.SaveUpload(strings.NewReader("source video bytes"), "holiday.MOV")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".MOV"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "source video bytes", string(data))

	s.RemoveUpload(path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestURLs(t *testing.T) {
	assert.Equal(t, "/api/v1/process/clips/a.mp4", ClipURL("a.mp4"))
	assert.Equal(t, "/api/v1/process/rendered-videos/b.mp4", RenderedURL("b.mp4"))
}
