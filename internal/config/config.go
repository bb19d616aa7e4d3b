// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds every setting of the service. Values come from, in increasing
// precedence: Defaults, a JSON config file, environment variables and CLI flags.
type Config struct {
	// Credentials and endpoints
	GeminiAPIKey     string `json:"gemini_api_key,omitempty"`
	TextModel        string `json:"text_model,omitempty"`
	OpenRouterAPIKey string `json:"openrouter_api_key,omitempty"`
	OpenRouterURL    string `json:"openrouter_url,omitempty" validate:"omitempty,url"`
	ImageModel       string `json:"image_model,omitempty"`
	VideoAPIURL      string `json:"video_api_url,omitempty" validate:"omitempty,url"`
	VideoAPIKey      string `json:"video_api_key,omitempty"`
	VideoModel       string `json:"video_model,omitempty"`

	// Persistence and caching
	DatabaseURL   string `json:"database_url,omitempty"` // PostgreSQL connection URL
	RedisAddr     string `json:"redis_addr,omitempty" validate:"omitempty,hostname_port"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" validate:"min=0,max=15"`

	// Asset storage: S3 when S3Bucket is set, local directory otherwise
	AssetDir        string `json:"asset_dir,omitempty"`
	AssetBaseURL    string `json:"asset_base_url,omitempty" validate:"omitempty,url"`
	S3Bucket        string `json:"s3_bucket,omitempty"`
	S3Prefix        string `json:"s3_prefix,omitempty"`
	S3PublicBaseURL string `json:"s3_public_base_url,omitempty" validate:"omitempty,url"`
	AWSRegion       string `json:"aws_region,omitempty"`
	AWSEndpointURL  string `json:"aws_endpoint_url,omitempty" validate:"omitempty,url"`

	// Generative call budget
	TextTimeoutSeconds  int     `json:"text_timeout_seconds,omitempty" validate:"min=0,max=600"`
	ImageTimeoutSeconds int     `json:"image_timeout_seconds,omitempty" validate:"min=0,max=1800"`
	VideoTimeoutSeconds int     `json:"video_timeout_seconds,omitempty" validate:"min=0,max=3600"`
	MaxRetries          int     `json:"max_retries,omitempty" validate:"min=0,max=5"`
	MaxConcurrentCalls  int     `json:"max_concurrent_calls,omitempty" validate:"min=0,max=64"`
	RequestsPerSecond   float64 `json:"requests_per_second,omitempty" validate:"min=0"`

	// Cost ceilings and stage tuning
	MaxPostsPerBatch     int  `json:"max_posts_per_batch,omitempty" validate:"min=0,max=100"`
	MaxVisualsPerRequest int  `json:"max_visuals_per_request,omitempty" validate:"min=0,max=100"`
	VisualConcurrency    int  `json:"visual_concurrency,omitempty" validate:"min=0,max=16"`
	VideoDurationSeconds int  `json:"video_duration_seconds,omitempty" validate:"min=0,max=60"`
	RefinePrompts        bool `json:"refine_prompts,omitempty"`
	UseBrowser           bool `json:"use_browser,omitempty"` // Use headless browser for script-rendered sites

	// Server
	ListenAddr string  `json:"listen_addr,omitempty"`
	ClientRPS  float64 `json:"client_rps,omitempty" validate:"min=0"`

	// Output
	LogLevel  string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string `json:"log_format,omitempty" validate:"omitempty,oneof=json text"`
	Verbose   bool   `json:"verbose,omitempty"` // Print detailed stage summaries
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		AssetDir:             "assets",
		TextTimeoutSeconds:   60,
		ImageTimeoutSeconds:  120,
		VideoTimeoutSeconds:  600,
		MaxRetries:           2,
		MaxConcurrentCalls:   4,
		RequestsPerSecond:    2,
		MaxPostsPerBatch:     20,
		MaxVisualsPerRequest: 10,
		VisualConcurrency:    3,
		VideoDurationSeconds: 8,
		ListenAddr:           ":8080",
		ClientRPS:            1,
		LogLevel:             "info",
		LogFormat:            "json",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// envString maps environment variables onto string fields.
func (c *Config) envStrings() map[string]*string {
	return map[string]*string{
		"GEMINI_API_KEY":     &c.GeminiAPIKey,
		"OPENROUTER_API_KEY": &c.OpenRouterAPIKey,
		"OPENROUTER_URL":     &c.OpenRouterURL,
		"VIDEO_API_URL":      &c.VideoAPIURL,
		"VIDEO_API_KEY":      &c.VideoAPIKey,
		"DATABASE_URL":       &c.DatabaseURL,
		"REDIS_ADDR":         &c.RedisAddr,
		"REDIS_PASSWORD":     &c.RedisPassword,
		"ASSET_DIR":          &c.AssetDir,
		"ASSET_BASE_URL":     &c.AssetBaseURL,
		"S3_BUCKET":          &c.S3Bucket,
		"S3_PREFIX":          &c.S3Prefix,
		"S3_PUBLIC_BASE_URL": &c.S3PublicBaseURL,
		"AWS_REGION":         &c.AWSRegion,
		"AWS_ENDPOINT_URL":   &c.AWSEndpointURL,
		"LOG_LEVEL":          &c.LogLevel,
		"LOG_FORMAT":         &c.LogFormat,
		"LISTEN_ADDR":        &c.ListenAddr,
	}
}

// ApplyEnv overrides fields with the environment variables that are set.
// getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	for name, field := range c.envStrings() {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*field = v
		}
	}

	ints := map[string]*int{
		"MAX_POSTS_PER_BATCH":     &c.MaxPostsPerBatch,
		"MAX_VISUALS_PER_REQUEST": &c.MaxVisualsPerRequest,
		"REDIS_DB":                &c.RedisDB,
	}
	for name, field := range ints {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: %s must be an integer, got %q", name, v)
		}
		*field = n
	}
	return nil
}

var validate = validator.New()

// Validate checks field ranges and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.AWSEndpointURL != "" && c.S3Bucket == "" {
		return fmt.Errorf("config error: 'aws_endpoint_url' requires 's3_bucket'")
	}
	if c.S3PublicBaseURL != "" && c.S3Bucket == "" {
		return fmt.Errorf("config error: 's3_public_base_url' requires 's3_bucket'")
	}
	if c.S3Bucket == "" && c.AssetDir == "" {
		return fmt.Errorf("config error: either 's3_bucket' or 'asset_dir' is required for asset storage")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	strs := result.envStrings()
	for name, def := range defaults.envStrings() {
		if *strs[name] == "" {
			*strs[name] = *def
		}
	}
	for _, pair := range [][2]*string{
		{&result.TextModel, &defaults.TextModel},
		{&result.ImageModel, &defaults.ImageModel},
		{&result.VideoModel, &defaults.VideoModel},
	} {
		if *pair[0] == "" {
			*pair[0] = *pair[1]
		}
	}

	// Int fields: use default if zero
	for _, pair := range [][2]*int{
		{&result.RedisDB, &defaults.RedisDB},
		{&result.TextTimeoutSeconds, &defaults.TextTimeoutSeconds},
		{&result.ImageTimeoutSeconds, &defaults.ImageTimeoutSeconds},
		{&result.VideoTimeoutSeconds, &defaults.VideoTimeoutSeconds},
		{&result.MaxRetries, &defaults.MaxRetries},
		{&result.MaxConcurrentCalls, &defaults.MaxConcurrentCalls},
		{&result.MaxPostsPerBatch, &defaults.MaxPostsPerBatch},
		{&result.MaxVisualsPerRequest, &defaults.MaxVisualsPerRequest},
		{&result.VisualConcurrency, &defaults.VisualConcurrency},
		{&result.VideoDurationSeconds, &defaults.VideoDurationSeconds},
	} {
		if *pair[0] == 0 {
			*pair[0] = *pair[1]
		}
	}

	// Float fields
	if result.RequestsPerSecond == 0 {
		result.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if result.ClientRPS == 0 {
		result.ClientRPS = defaults.ClientRPS
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// TextTimeout returns the text call timeout.
func (c *Config) TextTimeout() time.Duration {
	return time.Duration(c.TextTimeoutSeconds) * time.Second
}

// ImageTimeout returns the image call timeout.
func (c *Config) ImageTimeout() time.Duration {
	return time.Duration(c.ImageTimeoutSeconds) * time.Second
}

// VideoTimeout returns the video call timeout.
func (c *Config) VideoTimeout() time.Duration {
	return time.Duration(c.VideoTimeoutSeconds) * time.Second
}
