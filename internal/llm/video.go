package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Video job statuses reported by the video API.
const (
	videoQueued     = "queued"
	videoProcessing = "processing"
	videoCompleted  = "completed"
	videoFailed     = "failed"
)

type videoCreateRequest struct {
	Model           string `json:"model"`
	Prompt          string `json:"prompt"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

type videoJob struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	VideoURL        string  `json:"video_url,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// HTTPVideoClient implements VideoProvider against an asynchronous job API:
// POST {base}/v1/videos creates a job, GET {base}/v1/videos/{id} polls it.
type HTTPVideoClient struct {
	baseURL      string
	apiKey       string
	model        string
	pollInterval time.Duration
	httpClient   *http.Client
}

// NewHTTPVideoClient creates a video client. An empty baseURL means no video provider.
func NewHTTPVideoClient(baseURL, apiKey, model string) (*HTTPVideoClient, error) {
	if baseURL == "" {
		return nil, ErrServiceUnavailable
	}
	if model == "" {
		model = DefaultConfig().VideoModel
	}
	return &HTTPVideoClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		model:        model,
		pollInterval: 5 * time.Second,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// WithPollInterval overrides how often job status is polled.
func (c *HTTPVideoClient) WithPollInterval(d time.Duration) *HTTPVideoClient {
	if d > 0 {
		c.pollInterval = d
	}
	return c
}

// GenerateVideo submits a job, waits for it to finish and downloads the result.
// The caller's context bounds the whole wait.
func (c *HTTPVideoClient) GenerateVideo(ctx context.Context, prompt string, opts VideoOptions) (*Asset, error) {
	job, err := c.create(ctx, videoCreateRequest{
		Model:           c.model,
		Prompt:          prompt,
		AspectRatio:     opts.AspectRatio,
		DurationSeconds: opts.DurationSeconds,
	})
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for job.Status != videoCompleted {
		if job.Status == videoFailed {
			return nil, &ServiceError{Class: ClassVideo, Kind: KindInternal, Message: fmt.Sprintf("video job %s failed: %s", job.ID, job.Error)}
		}
		select {
		case <-ctx.Done():
			return nil, classify(ClassVideo, ctx.Err())
		case <-ticker.C:
		}
		if job, err = c.get(ctx, job.ID); err != nil {
			return nil, err
		}
	}

	if job.VideoURL == "" {
		return nil, &ServiceError{Class: ClassVideo, Kind: KindInternal, Message: fmt.Sprintf("video job %s completed without a URL", job.ID)}
	}
	data, mimeType, err := download(ctx, c.httpClient, job.VideoURL, ClassVideo)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(mimeType, "video/") {
		mimeType = "video/mp4"
	}

	return &Asset{
		Data:            data,
		MIMEType:        mimeType,
		Width:           job.Width,
		Height:          job.Height,
		DurationSeconds: job.DurationSeconds,
		Model:           c.model,
	}, nil
}

func (c *HTTPVideoClient) create(ctx context.Context, body videoCreateRequest) (*videoJob, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/videos", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *HTTPVideoClient) get(ctx context.Context, id string) (*videoJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/videos/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req)
}

func (c *HTTPVideoClient) do(req *http.Request) (*videoJob, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ClassVideo, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ClassVideo, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(ClassVideo, resp.StatusCode, string(body))
	}

	var job videoJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, &ServiceError{Class: ClassVideo, Kind: KindInternal, Message: "unparseable job response", Cause: err}
	}
	if job.ID == "" {
		return nil, &ServiceError{Class: ClassVideo, Kind: KindInternal, Message: "job response missing id"}
	}
	switch job.Status {
	case videoQueued, videoProcessing, videoCompleted, videoFailed:
	default:
		return nil, &ServiceError{Class: ClassVideo, Kind: KindInternal, Message: fmt.Sprintf("unknown job status %q", job.Status)}
	}
	return &job, nil
}
