package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Attachment is a binary input passed alongside a text prompt (images, PDFs).
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// TextOptions configures a text generation call.
type TextOptions struct {
	// Stage labels the caller in logs and metrics (e.g. "context", "text").
	Stage       string
	Tier        ModelTier
	Temperature float32
	JSON        bool
	Attachments []Attachment
}

// ImageOptions configures an image generation call.
type ImageOptions struct {
	Stage       string
	AspectRatio string
	Size        string
}

// VideoOptions configures a video generation call.
type VideoOptions struct {
	Stage           string
	AspectRatio     string
	DurationSeconds int
}

// Asset is a binary payload returned by image or video generation.
type Asset struct {
	Data            []byte
	MIMEType        string
	Width           int
	Height          int
	DurationSeconds float64
	Model           string
}

// TextProvider generates text from a prompt.
type TextProvider interface {
	GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error)
}

// ImageProvider generates an image from a prompt.
type ImageProvider interface {
	GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (*Asset, error)
}

// VideoProvider generates a video from a prompt.
type VideoProvider interface {
	GenerateVideo(ctx context.Context, prompt string, opts VideoOptions) (*Asset, error)
}

// Generator is what pipeline stages depend on. Service implements it; tests fake it.
type Generator interface {
	TextProvider
	ImageProvider
	VideoProvider
}

// GeminiClient implements TextProvider for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrServiceUnavailable
	}
	if config == nil {
		config = DefaultConfig()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// GenerateText generates text, optionally in JSON mode and with multimodal attachments.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error) {
	tier := opts.Tier
	if tier == "" {
		tier = TierStandard
	}
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", &ServiceError{Class: ClassText, Kind: KindInvalidInput, Message: fmt.Sprintf("no model configured for tier %s", tier)}
	}

	model := c.client.GenerativeModel(modelName)
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = 0.1
	}
	model.SetTemperature(temperature)
	if opts.JSON {
		model.ResponseMIMEType = "application/json"
	}

	parts := make([]genai.Part, 0, len(opts.Attachments)+1)
	parts = append(parts, genai.Text(prompt))
	for _, a := range opts.Attachments {
		parts = append(parts, genai.Blob{MIMEType: a.MIMEType, Data: a.Data})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classify(ClassText, err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	if opts.JSON {
		return CleanJSONBlock(text), nil
	}
	return text, nil
}

// Model returns the model name used for a tier
func (c *GeminiClient) Model(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &ServiceError{Class: ClassText, Kind: KindInternal, Message: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &ServiceError{Class: ClassText, Kind: KindInternal, Message: "no content in response"}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", &ServiceError{Class: ClassText, Kind: KindInternal, Message: "no text parts in response"}
	}

	return strings.Join(parts, ""), nil
}
