package storage

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URL prefixes under which stored files are served.
const (
	ClipURLPrefix     = "/api/v1/process/clips/"
	RenderedURLPrefix = "/api/v1/process/rendered-videos/"
)

// Store owns the on-disk directories the pipelines read and write: the
// shared clip store, rendered outputs, temporary uploads, and the BGM
// library. This is the only persisted state the service has.
type Store struct {
	clipsDir    string
	renderedDir string
	uploadsDir  string
	bgmDir      string
}

func New(clipsDir, renderedDir, uploadsDir, bgmDir string) (*Store, error) {
	for _, dir := range []string{clipsDir, renderedDir, uploadsDir, bgmDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	log.Printf("[Storage] Clip store at %s, rendered videos at %s", clipsDir, renderedDir)

	return &Store{
		clipsDir:    clipsDir,
		renderedDir: renderedDir,
		uploadsDir:  uploadsDir,
		bgmDir:      bgmDir,
	}, nil
}

// UniqueFilename builds a collision-free filename with an embedded uuid.
func UniqueFilename(prefix, ext string) string {
	id := strings.Split(uuid.New().String(), "-")[0]
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s_%s%s", prefix, id, ext)
}

// ClipPath resolves a clip filename inside the clip store. Rejects names
// that would escape the directory.
func (s *Store) ClipPath(filename string) (string, error) {
	return s.resolve(s.clipsDir, filename)
}

// RenderedPath resolves a rendered video filename.
func (s *Store) RenderedPath(filename string) (string, error) {
	return s.resolve(s.renderedDir, filename)
}

// BGMPath resolves a music filename inside the BGM library.
func (s *Store) BGMPath(filename string) (string, error) {
	return s.resolve(s.bgmDir, filename)
}

// UploadPath resolves a filename inside the uploads directory. Image
// assets referenced by timeline items live here, keyed by basename.
func (s *Store) UploadPath(filename string) (string, error) {
	return s.resolve(s.uploadsDir, strings.ToLower(filepath.Base(filename)))
}

func (s *Store) resolve(dir, filename string) (string, error) {
	cleaned := filepath.Base(filepath.Clean(filename))
	if cleaned == "." || cleaned == ".." || cleaned == "" || cleaned != filename {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return filepath.Join(dir, cleaned), nil
}

// ClipFilenameFromURL extracts the stored filename from a clip URL like
// /api/v1/process/clips/clip_ab12cd34.mp4.
func ClipFilenameFromURL(url string) (string, bool) {
	if idx := strings.Index(url, ClipURLPrefix); idx >= 0 {
		name := url[idx+len(ClipURLPrefix):]
		if name != "" && !strings.Contains(name, "/") {
			return name, true
		}
	}
	return "", false
}

// ClipURL returns the serving URL for a stored clip.
func ClipURL(filename string) string {
	return ClipURLPrefix + filename
}

// RenderedURL returns the serving URL for a rendered video.
func RenderedURL(filename string) string {
	return RenderedURLPrefix + filename
}

// ImportClip copies a file into the clip store under the given filename.
// Synthesized segments are imported so later renders can reference them
// like any extracted clip.
func (s *Store) ImportClip(srcPath, filename string) (string, error) {
	dst, err := s.ClipPath(filename)
	if err != nil {
		return "", err
	}
	if err := copyFile(srcPath, dst); err != nil {
		return "", fmt.Errorf("failed to import clip %s: %w", filename, err)
	}
	return dst, nil
}

// SaveUpload streams an uploaded source video into the uploads directory
// under a unique name, returning its path.
func (s *Store) SaveUpload(r io.Reader, originalName string) (string, error) {
	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".mp4"
	}
	name := UniqueFilename("upload", ext)

	dst := filepath.Join(s.uploadsDir, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	return dst, nil
}

// RemoveUpload deletes a temporary upload, logging instead of failing.
func (s *Store) RemoveUpload(path string) {
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(s.uploadsDir)) {
		log.Printf("[Storage] Refusing to remove file outside uploads dir: %s", path)
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("[Storage] Failed to remove upload %s: %v", path, err)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
