package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/doconv/internal/chunker"
	"github.com/dgallion1/doconv/internal/htmlprep"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Upload limits
	MaxUploadBytes int64

	// Preprocessing defaults
	DefaultChunkSize    int
	DefaultChunkOverlap int
	TablePadMargin      int
	AlignMode           string

	// PDF
	PDFFallbackPdftotext bool

	// Object storage
	StorageBackend         string // "s3" or "memory"
	StorageRegion          string
	StorageEndpoint        string
	StorageAccessKeyID     string
	StorageSecretAccessKey string
	StoragePathStyle       bool
	DefaultDOCXBucket      string
	DefaultHTMLBucket      string
	SignedURLTTL           time.Duration

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Job state
	JobTTL time.Duration

	// Latency stats window
	StatsWindow time.Duration

	LogLevel string
}

// Load reads configuration from the environment. If DOCONV_CONFIG names a
// YAML file, its keys (e.g. "default_chunk_size") provide values that
// environment variables override.
func Load() (Config, error) {
	file, err := readFile(os.Getenv("DOCONV_CONFIG"))
	if err != nil {
		return Config{}, err
	}
	return load(func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return file[key]
	}), nil
}

func load(get lookup) Config {
	cfg := Config{
		Port: get.envOr("PORT", "8090"),

		APIKey: get("DOCONV_API_KEY"),

		MaxUploadBytes: get.envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		DefaultChunkSize:    get.envInt("DEFAULT_CHUNK_SIZE", 400),
		DefaultChunkOverlap: get.envInt("DEFAULT_CHUNK_OVERLAP", 250),
		TablePadMargin:      get.envInt("TABLE_PAD_MARGIN", htmlprep.DefaultPadMargin),
		AlignMode:           get.envOr("ALIGN_MODE", string(htmlprep.AlignWindow)),

		PDFFallbackPdftotext: get.envBool("PDF_FALLBACK_PDFTOTEXT", true),

		StorageBackend:         get.envOr("STORAGE_BACKEND", "s3"),
		StorageRegion:          get.envOr("STORAGE_REGION", "us-east-1"),
		StorageEndpoint:        get("STORAGE_ENDPOINT"),
		StorageAccessKeyID:     get("STORAGE_ACCESS_KEY_ID"),
		StorageSecretAccessKey: get("STORAGE_SECRET_ACCESS_KEY"),
		StoragePathStyle:       get.envBool("STORAGE_PATH_STYLE", false),
		DefaultDOCXBucket:      get.envOr("DEFAULT_DOCX_BUCKET", "converted-docx-output"),
		DefaultHTMLBucket:      get.envOr("DEFAULT_HTML_BUCKET", "converted-html-output"),
		SignedURLTTL:           get.envDuration("SIGNED_URL_TTL", 60*time.Minute),

		WorkerCount:  get.envInt("WORKER_COUNT", 4),
		MaxQueueSize: get.envInt("MAX_QUEUE_SIZE", 100),

		JobTTL: get.envDuration("JOB_TTL", 1*time.Hour),

		StatsWindow: get.envDuration("STATS_WINDOW", 1*time.Hour),

		LogLevel: get.envOr("LOG_LEVEL", "info"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

// Preprocess returns the default preprocessing configuration.
func (c Config) Preprocess() htmlprep.Config {
	return htmlprep.Config{
		Chunk: chunker.Config{
			ChunkSize:    c.DefaultChunkSize,
			ChunkOverlap: c.DefaultChunkOverlap,
		},
		PadMargin: c.TablePadMargin,
		Align:     htmlprep.AlignMode(c.AlignMode),
	}
}

func (c Config) Validate() error {
	if err := c.Preprocess().Validate(); err != nil {
		return fmt.Errorf("preprocessing defaults: %w", err)
	}
	switch c.StorageBackend {
	case "s3":
		if c.StorageRegion == "" {
			return fmt.Errorf("STORAGE_REGION is required for the s3 backend")
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be s3 or memory, got %q", c.StorageBackend)
	}
	if c.SignedURLTTL < time.Second || c.SignedURLTTL > 7*24*time.Hour {
		return fmt.Errorf("SIGNED_URL_TTL must be between 1s and 168h, got %s", c.SignedURLTTL)
	}
	if c.DefaultDOCXBucket == "" || c.DefaultHTMLBucket == "" {
		return fmt.Errorf("DEFAULT_DOCX_BUCKET and DEFAULT_HTML_BUCKET must not be empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LOG_LEVEL (debug, info, warn, error).
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// readFile loads a flat YAML mapping and upper-cases its keys to match the
// environment variable names. An empty path yields no values.
func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return out, nil
}

// lookup returns the raw value for a key, or "" when unset.
type lookup func(key string) string

func (get lookup) envOr(key, fallback string) string {
	if v := get(key); v != "" {
		return v
	}
	return fallback
}

func (get lookup) envInt(key string, fallback int) int {
	if v := get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func (get lookup) envInt64(key string, fallback int64) int64 {
	if v := get(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func (get lookup) envBool(key string, fallback bool) bool {
	if v := get(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func (get lookup) envDuration(key string, fallback time.Duration) time.Duration {
	if v := get(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
