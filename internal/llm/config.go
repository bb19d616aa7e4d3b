// Package llm is the single choke point for calls to external generative services.
// It holds provider clients (Gemini text, image, video) and the Service that wraps them
// with timeouts, retries, a shared concurrency/rate budget, logging and metrics.
package llm

import "time"

// ModelTier represents the complexity/capability level of a text model
type ModelTier string

const (
	// TierLite is for simple tasks: file description, prompt refinement
	TierLite ModelTier = "lite"
	// TierStandard is for structured output: business analysis, post batches
	TierStandard ModelTier = "standard"
	// TierAdvanced is for nuanced long-form writing
	TierAdvanced ModelTier = "advanced"
)

// Provider represents a text generation provider
type Provider string

// Provider constants define supported text providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Config holds the model configuration for the providers
type Config struct {
	Provider   Provider
	Models     map[ModelTier]string
	ImageModel string
	VideoModel string
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		ImageModel: "google/gemini-2.5-flash-image",
		VideoModel: "veo-3.0-fast",
	}
}

// GetModel returns the model name for a given tier, walking down to standard then lite.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model, ok := c.Models[t]; ok && model != "" {
			return model
		}
	}
	return ""
}

// WithModel returns a copy of the config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	next := *c
	next.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		next.Models[k] = v
	}
	next.Models[tier] = model
	return &next
}

// CallClass groups calls by their expected latency; each class has its own timeout.
type CallClass string

// Call classes
const (
	ClassText  CallClass = "text"
	ClassImage CallClass = "image"
	ClassVideo CallClass = "video"
)

// ServiceConfig controls timeouts, retries and the shared budget of a Service.
type ServiceConfig struct {
	TextTimeout  time.Duration
	ImageTimeout time.Duration
	VideoTimeout time.Duration

	// MaxRetries is the number of retries after the first attempt for transient failures.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// MaxConcurrent bounds in-flight calls across all callers.
	MaxConcurrent int
	// RequestsPerSecond bounds the attempt rate across all callers; <= 0 means unlimited.
	RequestsPerSecond float64
	Burst             int
}

// DefaultServiceConfig returns production defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		TextTimeout:       60 * time.Second,
		ImageTimeout:      2 * time.Minute,
		VideoTimeout:      10 * time.Minute,
		MaxRetries:        2,
		BaseDelay:         500 * time.Millisecond,
		MaxDelay:          8 * time.Second,
		MaxConcurrent:     4,
		RequestsPerSecond: 2,
		Burst:             4,
	}
}

func normalizeServiceConfig(cfg ServiceConfig) ServiceConfig {
	def := DefaultServiceConfig()
	if cfg.TextTimeout <= 0 {
		cfg.TextTimeout = def.TextTimeout
	}
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = def.ImageTimeout
	}
	if cfg.VideoTimeout <= 0 {
		cfg.VideoTimeout = def.VideoTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return cfg
}
