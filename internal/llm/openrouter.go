package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultOpenRouterURL is the OpenRouter API base.
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

type chatCompletionsRequest struct {
	Model       string           `json:"model"`
	Messages    []chatMessage    `json:"messages"`
	Modalities  []string         `json:"modalities"`
	Stream      bool             `json:"stream"`
	ImageConfig *imageConfigBody `json:"image_config,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type imageConfigBody struct {
	AspectRatio string `json:"aspect_ratio,omitempty"`
	ImageSize   string `json:"image_size,omitempty"`
}

type chatCompletionsResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Choices []struct {
		Message struct {
			Images []struct {
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenRouterImageClient implements ImageProvider over OpenRouter chat completions
// with image output modality.
type OpenRouterImageClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenRouterImageClient creates an image client. An empty baseURL uses DefaultOpenRouterURL.
func NewOpenRouterImageClient(baseURL, apiKey, model string) (*OpenRouterImageClient, error) {
	if apiKey == "" {
		return nil, ErrServiceUnavailable
	}
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}
	if model == "" {
		model = DefaultConfig().ImageModel
	}
	return &OpenRouterImageClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// GenerateImage requests one image and returns its bytes.
func (c *OpenRouterImageClient) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (*Asset, error) {
	var cfg *imageConfigBody
	if strings.HasPrefix(c.model, "google/gemini") || opts.AspectRatio != "" {
		cfg = &imageConfigBody{AspectRatio: opts.AspectRatio}
		if strings.HasPrefix(c.model, "google/gemini") {
			cfg.ImageSize = opts.Size
		}
	}

	reqBody := chatCompletionsRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Modalities:  []string{"image", "text"},
		ImageConfig: cfg,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ClassImage, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ClassImage, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(ClassImage, resp.StatusCode, string(respBody))
	}

	var parsed chatCompletionsResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ServiceError{Class: ClassImage, Kind: KindInternal, Message: "unparseable response", Cause: err}
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, &ServiceError{Class: ClassImage, Kind: KindInternal, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 || len(parsed.Choices[0].Message.Images) == 0 {
		return nil, &ServiceError{Class: ClassImage, Kind: KindInternal, Message: "no image in response"}
	}

	imageURL := strings.TrimSpace(parsed.Choices[0].Message.Images[0].ImageURL.URL)
	if imageURL == "" {
		return nil, &ServiceError{Class: ClassImage, Kind: KindInternal, Message: "image URL is empty"}
	}

	var data []byte
	var mimeType string
	if strings.HasPrefix(imageURL, "data:") {
		data, mimeType, err = decodeDataURL(imageURL)
	} else {
		data, mimeType, err = download(ctx, c.httpClient, imageURL, ClassImage)
	}
	if err != nil {
		return nil, err
	}

	return &Asset{Data: data, MIMEType: mimeType, Model: c.model}, nil
}

// decodeDataURL decodes a base64 data URL into bytes and its MIME type.
func decodeDataURL(dataURL string) ([]byte, string, error) {
	const marker = ";base64,"
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, "", errors.New("invalid data URL prefix")
	}
	idx := strings.Index(dataURL, marker)
	if idx < 0 {
		return nil, "", &ServiceError{Class: ClassImage, Kind: KindInternal, Message: "data URL missing base64 marker"}
	}

	mimeType := strings.TrimPrefix(dataURL[:idx], "data:")
	raw, err := base64.StdEncoding.DecodeString(dataURL[idx+len(marker):])
	if err != nil {
		return nil, "", &ServiceError{Class: ClassImage, Kind: KindInternal, Message: "decode image base64", Cause: err}
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	return raw, mimeType, nil
}

// download fetches a generated asset by URL.
func download(ctx context.Context, client *http.Client, url string, class CallClass) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", classify(class, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", statusError(class, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", classify(class, err)
	}
	mimeType := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}
