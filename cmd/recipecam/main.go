package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vbonduro/recipecam/internal/config"
	"github.com/vbonduro/recipecam/internal/db"
	"github.com/vbonduro/recipecam/internal/imagehost"
	"github.com/vbonduro/recipecam/internal/imagehost/cloudinary"
	"github.com/vbonduro/recipecam/internal/imagehost/local"
	"github.com/vbonduro/recipecam/internal/logging"
	s3host "github.com/vbonduro/recipecam/internal/imagehost/s3"
	"github.com/vbonduro/recipecam/internal/metrics"
	"github.com/vbonduro/recipecam/internal/playback"
	"github.com/vbonduro/recipecam/internal/playback/noop"
	"github.com/vbonduro/recipecam/internal/playback/openaitts"
	"github.com/vbonduro/recipecam/internal/service"
	"github.com/vbonduro/recipecam/internal/store"
	"github.com/vbonduro/recipecam/internal/vision"
	claudevision "github.com/vbonduro/recipecam/internal/vision/claude"
	ollamavision "github.com/vbonduro/recipecam/internal/vision/ollama"
	openaivision "github.com/vbonduro/recipecam/internal/vision/openai"
	"github.com/vbonduro/recipecam/internal/web"
	"github.com/vbonduro/recipecam/internal/web/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("recipecam exited", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	extractor := newExtractor(cfg, logger)

	uploader, images, err := newUploader(ctx, cfg, logger)
	if err != nil {
		return err
	}

	opts := service.Options{StepTimeout: cfg.StepTimeout, RetryDelay: cfg.RetryDelay}
	var svc *service.CaptureService
	if cfg.DBPath != "" {
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer closeDB(database, logger)
		logger.Info("cycle journal enabled", "path", cfg.DBPath)
		svc = service.NewCaptureService(uploader, extractor, store.NewCycleStore(database), opts, logger)
	} else {
		svc = service.NewCaptureService(uploader, extractor, nil, opts, logger)
	}

	server := web.NewServer(
		svc,
		templates.FS,
		images,
		newSpeaker(cfg, logger),
		web.Options{PlaybackRateControls: cfg.PlaybackRateControls},
		logger,
	)
	return server.ListenAndServe(ctx, cfg.ListenAddr)
}

func newExtractor(cfg *config.Config, logger *slog.Logger) vision.Extractor {
	switch cfg.VisionBackend {
	case "claude":
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeExtractor(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case "ollama":
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewOllamaExtractor(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("using OpenAI vision backend", "model", cfg.OpenAIModel)
		return openaivision.NewOpenAIExtractor(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
}

// newUploader also returns the local host when captures are served by this
// process, so /images/{key} can reach them.
func newUploader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (imagehost.Uploader, web.ImageOpener, error) {
	switch cfg.UploadBackend {
	case "s3":
		logger.Info("using S3 image host", "bucket", cfg.S3Bucket, "endpoint", cfg.S3Endpoint)
		u, err := s3host.NewUploader(ctx, s3host.Options{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize S3 image host: %w", err)
		}
		return u, nil, nil
	case "local":
		logger.Info("using local image host", "path", cfg.LocalImagePath, "public_base_url", cfg.PublicBaseURL)
		h, err := local.NewHost(cfg.LocalImagePath, cfg.PublicBaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize local image host: %w", err)
		}
		return h, h, nil
	default:
		logger.Info("using Cloudinary image host", "cloud", cfg.CloudinaryCloudName)
		return cloudinary.NewUploader(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset), nil, nil
	}
}

func newSpeaker(cfg *config.Config, logger *slog.Logger) playback.Speaker {
	if cfg.TTSBackend == "openai" {
		logger.Info("using OpenAI speech backend", "model", cfg.TTSModel, "voice", cfg.TTSVoice)
		return openaitts.NewSpeaker(cfg.OpenAIAPIKey, cfg.TTSModel, cfg.TTSVoice, cfg.OpenAIBaseURL)
	}
	return noop.NewSpeaker(logger)
}

func closeDB(database *sql.DB, logger *slog.Logger) {
	if err := database.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}
