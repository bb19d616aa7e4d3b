package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL_Success(t *testing.T) {
	// Create test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body><h1>Test</h1></body></html>"))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Contains(t, result.HTML, "<h1>Test</h1>")
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestURL_InvalidURL(t *testing.T) {
	_, err := URL(context.Background(), "not-a-valid-url", nil)
	require.Error(t, err)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "invalid URL")
}

func TestURL_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.NotNil(t, result) // Result is returned even on error
	assert.Equal(t, http.StatusNotFound, result.StatusCode)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "404")
}

func TestExtractMainText_WithMainElement(t *testing.T) {
	html := `
	<html>
		<body>
			<nav>Navigation</nav>
			<main>
				<h1>Main Content</h1>
				<p>This is the important text.</p>
			</main>
			<footer>Footer</footer>
		</body>
	</html>`

	text, err := ExtractMainText(html, DefaultTextSelectors())
	require.NoError(t, err)
	assert.Contains(t, text, "Main Content")
	assert.Contains(t, text, "important text")
	assert.NotContains(t, text, "Navigation")
	assert.NotContains(t, text, "Footer")
}

func TestExtractMainText_WithArticleElement(t *testing.T) {
	html := `
	<html>
		<body>
			<article>
				<h1>Article Title</h1>
				<p>Article body.</p>
			</article>
		</body>
	</html>`

	text, err := ExtractMainText(html, DefaultTextSelectors())
	require.NoError(t, err)
	assert.Contains(t, text, "Article Title")
	assert.Contains(t, text, "Article body")
}

func TestExtractMainText_FallbackToBody(t *testing.T) {
	html := `
	<html>
		<body>
			<div>Some content here.</div>
		</body>
	</html>`

	text, err := ExtractMainText(html, DefaultTextSelectors())
	require.NoError(t, err)
	assert.Contains(t, text, "Some content here")
}

func TestExtractMainText_ProductSelectors(t *testing.T) {
	html := `
	<html>
		<body>
			<div class="newsletter">Sign up for 10% off</div>
			<div class="product__description">
				<h2>Hand-thrown mugs</h2>
				<p>Glazed in small batches</p>
			</div>
		</body>
	</html>`

	text, err := ExtractMainText(html, PlatformContentSelectors(PlatformShopify), PlatformNoiseSelectors(PlatformShopify)...)
	require.NoError(t, err)
	assert.Contains(t, text, "Hand-thrown mugs")
	assert.Contains(t, text, "small batches")
	assert.NotContains(t, text, "Sign up")
}

func TestExtractTitleAndDescription(t *testing.T) {
	html := `<html><head>
		<title>Fallback Title</title>
		<meta property="og:title" content="Acme Bakery">
		<meta name="description" content="Sourdough baked daily in Portland.">
	</head><body></body></html>`

	assert.Equal(t, "Acme Bakery", ExtractTitle(html))
	assert.Equal(t, "Sourdough baked daily in Portland.", ExtractMetaDescription(html))
	assert.Equal(t, "Plain", ExtractTitle("<html><head><title> Plain </title></head></html>"))
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://acme.test/about"))
	assert.Error(t, ValidateURL("ftp://acme.test"))
	assert.Error(t, ValidateURL("acme.test"))
	assert.Error(t, ValidateURL(""))
}

func TestURL_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, &Options{UserAgent: DefaultUserAgent, MaxBodyBytes: 4})
	require.NoError(t, err)
	assert.Equal(t, "0123", result.HTML)
}

func TestDefaultTextSelectors(t *testing.T) {
	selectors := DefaultTextSelectors()
	assert.Contains(t, selectors, "main")
	assert.Contains(t, selectors, "article")
}

func TestBusinessPageSelectors(t *testing.T) {
	selectors := BusinessPageSelectors()
	assert.Contains(t, selectors, "main")
	assert.Contains(t, selectors, ".about-content")
}

func TestURL_RejectsBinaryContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer server.Close()

	_, err := URL(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}

func TestTextualContent(t *testing.T) {
	assert.True(t, textualContent(""))
	assert.True(t, textualContent("text/html; charset=utf-8"))
	assert.True(t, textualContent("application/xhtml+xml"))
	assert.False(t, textualContent("application/pdf"))
	assert.False(t, textualContent("not a media type;;"))
}
