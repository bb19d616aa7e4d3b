package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/postcraft/internal/fetch"
)

var (
	// ErrInvalidURL is returned when URL is malformed
	ErrInvalidURL = errors.New("invalid URL")
	// ErrHTTPRequestFailed is returned when the page could not be retrieved
	ErrHTTPRequestFailed = errors.New("HTTP request failed")
	// ErrEmptyContent is returned when a source yields no usable text
	ErrEmptyContent = errors.New("no usable text")
)

// IngestFromURL fetches a page through fetcher, cleans its text and truncates it to maxChars.
func IngestFromURL(ctx context.Context, fetcher fetch.Fetcher, urlStr string, maxChars int) (string, *Metadata, error) {
	if err := fetch.ValidateURL(urlStr); err != nil {
		return "", nil, fmt.Errorf("%w: %s", ErrInvalidURL, urlStr)
	}

	result, err := fetcher.Fetch(ctx, urlStr)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrHTTPRequestFailed, err)
	}

	cleaned := CleanText(result.Text)
	if cleaned == "" {
		return "", nil, fmt.Errorf("%w: %s", ErrEmptyContent, urlStr)
	}
	cleaned, truncated := Truncate(cleaned, maxChars)

	metadata := NewMetadata("url", urlStr, cleaned)
	metadata.Platform = string(fetch.DetectPlatform(urlStr))
	metadata.Title = result.Title
	metadata.Truncated = truncated

	return cleaned, metadata, nil
}
