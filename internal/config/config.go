package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr    string
	PublicBaseURL string
	DBPath        string

	VisionBackend string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	ClaudeAPIKey  string
	ClaudeModel   string
	OllamaHost    string
	OllamaModel   string

	UploadBackend          string
	CloudinaryCloudName    string
	CloudinaryUploadPreset string
	S3Endpoint             string
	S3Region               string
	S3Bucket               string
	S3AccessKey            string
	S3SecretKey            string
	S3PublicBaseURL        string
	LocalImagePath         string

	StepTimeout time.Duration
	RetryDelay  time.Duration

	TTSBackend           string
	TTSModel             string
	TTSVoice             string
	PlaybackRateControls bool

	LogLevel string
	LogFile  string
}

// Load builds the configuration once at startup. Values come from the process
// environment, then a .env file in the working directory, then the YAML file
// named by CONFIG_FILE, then built-in defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}

	return &Config{
		ListenAddr:    src.get("LISTEN_ADDR", ":8080"),
		PublicBaseURL: src.get("PUBLIC_BASE_URL", "http://localhost:8080"),
		DBPath:        src.get("DB_PATH", ""),

		VisionBackend: src.get("VISION_BACKEND", "openai"),
		OpenAIAPIKey:  src.get("OPENAI_API_KEY", ""),
		OpenAIModel:   src.get("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL: src.get("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ClaudeAPIKey:  src.get("CLAUDE_API_KEY", ""),
		ClaudeModel:   src.get("CLAUDE_MODEL", "claude-sonnet-4-5"),
		OllamaHost:    src.get("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:   src.get("OLLAMA_MODEL", "llava"),

		UploadBackend:          src.get("UPLOAD_BACKEND", "cloudinary"),
		CloudinaryCloudName:    src.get("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryUploadPreset: src.get("CLOUDINARY_UPLOAD_PRESET", ""),
		S3Endpoint:             src.get("S3_ENDPOINT", ""),
		S3Region:               src.get("S3_REGION", "auto"),
		S3Bucket:               src.get("S3_BUCKET", ""),
		S3AccessKey:            src.get("S3_ACCESS_KEY", ""),
		S3SecretKey:            src.get("S3_SECRET_KEY", ""),
		S3PublicBaseURL:        src.get("S3_PUBLIC_BASE_URL", ""),
		LocalImagePath:         src.get("LOCAL_IMAGE_PATH", "/data/images"),

		StepTimeout: src.duration("STEP_TIMEOUT", 60*time.Second),
		RetryDelay:  src.duration("RETRY_DELAY", time.Second),

		TTSBackend:           src.get("TTS_BACKEND", "none"),
		TTSModel:             src.get("TTS_MODEL", "tts-1"),
		TTSVoice:             src.get("TTS_VOICE", "alloy"),
		PlaybackRateControls: src.bool("PLAYBACK_RATE_CONTROLS", true),

		LogLevel: src.get("LOG_LEVEL", "info"),
		LogFile:  src.get("LOG_FILE", ""),
	}, nil
}

// Validate reports missing settings for the selected backends.
func (c *Config) Validate() error {
	var errs []error

	switch c.VisionBackend {
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when VISION_BACKEND=openai"))
		}
	case "claude":
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required when VISION_BACKEND=claude"))
		}
	case "ollama":
	default:
		errs = append(errs, fmt.Errorf("unknown VISION_BACKEND %q", c.VisionBackend))
	}

	switch c.UploadBackend {
	case "cloudinary":
		if c.CloudinaryCloudName == "" || c.CloudinaryUploadPreset == "" {
			errs = append(errs, errors.New("CLOUDINARY_CLOUD_NAME and CLOUDINARY_UPLOAD_PRESET are required when UPLOAD_BACKEND=cloudinary"))
		}
	case "s3":
		if c.S3Bucket == "" || c.S3PublicBaseURL == "" {
			errs = append(errs, errors.New("S3_BUCKET and S3_PUBLIC_BASE_URL are required when UPLOAD_BACKEND=s3"))
		}
	case "local":
	default:
		errs = append(errs, fmt.Errorf("unknown UPLOAD_BACKEND %q", c.UploadBackend))
	}

	switch c.TTSBackend {
	case "none":
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when TTS_BACKEND=openai"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TTS_BACKEND %q", c.TTSBackend))
	}

	if c.StepTimeout <= 0 {
		errs = append(errs, errors.New("STEP_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// source resolves a key from the environment first, then the YAML file.
type source struct {
	file map[string]string
}

func (s source) get(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	if val, exists := s.file[key]; exists {
		return val
	}
	return defaultVal
}

func (s source) duration(key string, defaultVal time.Duration) time.Duration {
	raw := s.get(key, "")
	if raw == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s source) bool(key string, defaultVal bool) bool {
	raw := s.get(key, "")
	if raw == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultVal
	}
	return b
}

// readFile loads a flat YAML mapping of setting names to values.
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[k] = fmt.Sprint(v)
	}
	return values, nil
}
