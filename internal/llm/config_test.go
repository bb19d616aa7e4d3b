package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.NotEmpty(t, config.ImageModel)
	assert.NotEmpty(t, config.VideoModel)
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite: "fallback-model",
		},
	}

	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
	assert.Equal(t, "fallback-model", config.GetModel(TierAdvanced))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := &Config{Provider: ProviderGemini, Models: map[ModelTier]string{}}
	assert.Equal(t, "", config.GetModel(TierAdvanced))
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	newConfig := config.WithModel(TierAdvanced, "custom-model")

	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.Equal(t, "custom-model", newConfig.GetModel(TierAdvanced))
	assert.Equal(t, "gemini-2.5-flash-lite", newConfig.GetModel(TierLite))
}

func TestNormalizeServiceConfig(t *testing.T) {
	cfg := normalizeServiceConfig(ServiceConfig{MaxRetries: -3, BaseDelay: time.Second, MaxDelay: time.Millisecond})

	def := DefaultServiceConfig()
	assert.Equal(t, def.TextTimeout, cfg.TextTimeout)
	assert.Equal(t, def.ImageTimeout, cfg.ImageTimeout)
	assert.Equal(t, def.VideoTimeout, cfg.VideoTimeout)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.MaxDelay)
	assert.Equal(t, 1, cfg.MaxConcurrent)
	assert.Equal(t, 1, cfg.Burst)
}
