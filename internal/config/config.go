package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Directories
	ClipsDir         string // Shared clip store: extracted and synthesized segments
	RenderedDir      string // Final rendered videos
	UploadsDir       string // Temporary source-video uploads and image assets
	BGMDir           string // Background music library
	TempDir          string // Scratch space for intermediate ffmpeg outputs
	FallbackImage    string // Black placeholder used when an image asset is missing

	// OpenAI (Whisper transcription)
	OpenAIKey       string
	WhisperLanguage string

	// Gemini (vibe scoring)
	GeminiKey   string
	GeminiModel string

	// Analysis
	AnalysisEnabled          bool   // When false, only timeline rendering is served
	ChunkStrategy            string // "time", "scene", or "adaptive"
	TranscriptionConcurrency int64  // Parallel Whisper requests per job
	MaxUploadBytes           int64  // Upload size cap for /upload-and-analyze
	MaxClips                 int    // Clips extracted per analysis job
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8000"),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),

		ClipsDir:      getEnv("CLIPS_DIR", "public/extracted_clips"),
		RenderedDir:   getEnv("RENDERED_DIR", "public/rendered_videos"),
		UploadsDir:    getEnv("UPLOADS_DIR", "temp_uploads"),
		BGMDir:        getEnv("BGM_DIR", "assets/bgm"),
		TempDir:       getEnv("TEMP_DIR", os.TempDir()),
		FallbackImage: getEnv("FALLBACK_IMAGE", "assets/images/black.jpg"),

		OpenAIKey:       getEnv("OPENAI_API_KEY", ""),
		WhisperLanguage: getEnv("WHISPER_LANGUAGE", "en"),

		GeminiKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		AnalysisEnabled:          getEnvBool("ANALYSIS_ENABLED", true),
		ChunkStrategy:            getEnv("CHUNK_STRATEGY", "adaptive"),
		TranscriptionConcurrency: int64(getEnvInt("TRANSCRIPTION_CONCURRENCY", 3)),
		MaxUploadBytes:           int64(getEnvInt("MAX_UPLOAD_MB", 500)) * 1024 * 1024,
		MaxClips:                 getEnvInt("MAX_CLIPS", 5),
	}

	// Validate required fields. Rendering works without any API keys;
	// the analysis pipeline needs both providers.
	if cfg.AnalysisEnabled {
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when analysis is enabled")
		}
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when analysis is enabled")
		}
	}

	switch cfg.ChunkStrategy {
	case "time", "scene", "adaptive":
	default:
		return nil, fmt.Errorf("CHUNK_STRATEGY must be time, scene, or adaptive, got %q", cfg.ChunkStrategy)
	}

	if cfg.TranscriptionConcurrency < 1 {
		return nil, fmt.Errorf("TRANSCRIPTION_CONCURRENCY must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
