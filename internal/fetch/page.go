package fetch

import (
	"context"

	"github.com/sirupsen/logrus"
)

// PageFetcher fetches a page and extracts its main text, re-rendering in a browser
// when the plain HTTP response carries too little text.
type PageFetcher struct {
	options  *Options
	renderer Renderer
	logger   *logrus.Logger
}

// NewPageFetcher creates a page fetcher. A nil renderer disables browser fallback.
func NewPageFetcher(opts *Options, renderer Renderer, logger *logrus.Logger) *PageFetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PageFetcher{options: opts, renderer: renderer, logger: logger}
}

// Fetch retrieves urlStr and fills Result.Text with its main content.
func (f *PageFetcher) Fetch(ctx context.Context, urlStr string) (*Result, error) {
	platform := DetectPlatform(urlStr)
	log := f.logger.WithFields(logrus.Fields{"url": urlStr, "platform": platform})

	result, err := URL(ctx, urlStr, f.options)
	if err != nil {
		return nil, err
	}

	text, err := ExtractMainText(result.HTML, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to extract text", Cause: err}
	}
	result.Text = text
	result.Title = ExtractTitle(result.HTML)

	if f.renderer != nil && (RequiresBrowser(platform) || ShouldUseBrowser(text)) {
		html, rerr := f.renderer(ctx, urlStr)
		if rerr != nil {
			log.WithError(rerr).Warn("browser fallback failed, keeping HTTP content")
		} else if rendered, xerr := ExtractMainText(html, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...); xerr == nil && len(rendered) > len(text) {
			result.HTML = html
			result.Text = rendered
			result.Rendered = true
		}
	}

	if desc := ExtractMetaDescription(result.HTML); desc != "" && ShouldUseBrowser(result.Text) {
		result.Text = desc + "\n" + result.Text
	}

	log.WithFields(logrus.Fields{"chars": len(result.Text), "rendered": result.Rendered}).Debug("fetched page")
	return result, nil
}
