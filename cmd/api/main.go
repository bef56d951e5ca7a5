package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shivaacodes/clipcraft-hackgen/internal/analyze"
	"github.com/shivaacodes/clipcraft-hackgen/internal/api"
	"github.com/shivaacodes/clipcraft-hackgen/internal/config"
	"github.com/shivaacodes/clipcraft-hackgen/internal/jobs"
	"github.com/shivaacodes/clipcraft-hackgen/internal/render"
	"github.com/shivaacodes/clipcraft-hackgen/internal/services"
	"github.com/shivaacodes/clipcraft-hackgen/internal/storage"
)

func main() {
	log.Println("Starting ClipCraft API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// ffmpeg is required for every pipeline stage; fail loudly at boot
	// rather than on the first job.
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		log.Fatalf("ffmpeg not found in PATH: %v", err)
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		log.Fatalf("ffprobe not found in PATH: %v", err)
	}

	// Initialize local storage
	store, err := storage.New(cfg.ClipsDir, cfg.RenderedDir, cfg.UploadsDir, cfg.BGMDir)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize services
	ffmpegSvc := services.NewFFmpegService(filepath.Join(cfg.TempDir, "clipcraft"))
	renderer := render.NewRenderer(ffmpegSvc, store, cfg.FallbackImage)

	var analyzer *analyze.Analyzer
	if cfg.AnalysisEnabled {
		whisperSvc := services.NewWhisperService(cfg.OpenAIKey, cfg.WhisperLanguage)
		vibeSvc := services.NewVibeService(cfg.GeminiKey, cfg.GeminiModel)
		analyzer = analyze.NewAnalyzer(ffmpegSvc, store, whisperSvc, vibeSvc,
			cfg.ChunkStrategy, cfg.TranscriptionConcurrency, cfg.MaxClips)
		log.Printf("Analysis pipeline enabled (strategy: %s, concurrency: %d)",
			cfg.ChunkStrategy, cfg.TranscriptionConcurrency)
	} else {
		log.Println("Analysis pipeline disabled, rendering only")
	}

	// Job registry and orchestrator
	registry := jobs.NewRegistry()
	orchestrator := jobs.NewOrchestrator(registry, renderer, analyzer, store)

	// Create API handler
	handler := api.NewHandler(registry, orchestrator, store, cfg.MaxUploadBytes, cfg.AnalysisEnabled)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// In-flight jobs are lost on shutdown; job records are memory-only.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
