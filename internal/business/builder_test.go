package business

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/postcraft/internal/fetch"
	"github.com/jonathan/postcraft/internal/ingestion"
	"github.com/jonathan/postcraft/internal/llm"
	"github.com/jonathan/postcraft/internal/types"
)

// scriptedProvider answers text calls from a queue and records prompts.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
	options   []llm.TextOptions
	respond   func(prompt string, opts llm.TextOptions) (string, error)
}

func (p *scriptedProvider) GenerateText(_ context.Context, prompt string, opts llm.TextOptions) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	p.options = append(p.options, opts)
	if p.respond != nil {
		return p.respond(prompt, opts)
	}
	if p.err != nil {
		return "", p.err
	}
	if len(p.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	r := p.responses[0]
	p.responses = p.responses[1:]
	return r, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

type mapFetcher map[string]*fetch.Result

func (m mapFetcher) Fetch(_ context.Context, u string) (*fetch.Result, error) {
	if r, ok := m[u]; ok {
		return r, nil
	}
	return nil, &fetch.Error{URL: u, Message: "HTTP status 404"}
}

const validAnalysis = `{
  "company_name": "Ember Roasters",
  "industry": "Food & Beverage",
  "target_audience": "Home coffee brewers",
  "brand_voice": "Warm and knowledgeable",
  "brand_colors": ["#3B2F2F"],
  "value_propositions": ["Small-batch roasting", "Direct trade"],
  "competitive_advantages": ["Roasted to order"],
  "suggested_themes": ["Brewing tips", "Origin stories", "brewing tips"],
  "suggested_tags": ["#coffee", "specialty coffee", "Coffee"],
  "website_url": "",
  "confidence_score": 0.9
}`

func TestBuild_NoInputFailsWithoutCalls(t *testing.T) {
	gen := &scriptedProvider{}
	b := NewBuilder(gen, mapFetcher{}, Config{}, nil)

	_, err := b.Build(context.Background(), Inputs{Text: "   ", URLs: []string{""}})
	assert.ErrorIs(t, err, ErrInsufficientInput)
	assert.Equal(t, 0, gen.calls())
}

func TestBuild_AllSourcesFailAndNoText(t *testing.T) {
	gen := &scriptedProvider{}
	b := NewBuilder(gen, mapFetcher{}, Config{}, nil)

	_, err := b.Build(context.Background(), Inputs{URLs: []string{"https://missing.test"}})
	assert.ErrorIs(t, err, ErrInsufficientInput)
	assert.Equal(t, 0, gen.calls())
}

func TestBuild_ParsesAnalysis(t *testing.T) {
	gen := &scriptedProvider{responses: []string{"```json\n" + validAnalysis + "\n```"}}
	fetcher := mapFetcher{
		"https://ember.test": {URL: "https://ember.test", Title: "Ember Roasters", Text: "Ember Roasters roasts small-batch coffee every week for home brewers."},
	}
	b := NewBuilder(gen, fetcher, Config{}, nil)

	bc, err := b.Build(context.Background(), Inputs{
		URLs: []string{"https://ember.test"},
		Text: "We sell coffee subscriptions.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ember Roasters", bc.CompanyName)
	assert.False(t, bc.Fallback)
	assert.Equal(t, []string{"Brewing tips", "Origin stories"}, bc.SuggestedThemes)
	assert.Equal(t, []string{"coffee", "specialtycoffee"}, bc.SuggestedTags)
	assert.Equal(t, "https://ember.test", bc.WebsiteURL)
	require.Len(t, bc.Sources, 2)
	assert.Equal(t, types.SourceURL, bc.Sources[0].Kind)
	assert.Equal(t, types.SourceText, bc.Sources[1].Kind)

	require.Equal(t, 1, gen.calls())
	assert.True(t, gen.options[0].JSON)
	assert.Equal(t, Stage, gen.options[0].Stage)
	assert.Contains(t, gen.prompts[0], "roasts small-batch coffee")
	assert.Contains(t, gen.prompts[0], "We sell coffee subscriptions.")
}

func TestBuild_RetriesOnceWithStrictPrompt(t *testing.T) {
	gen := &scriptedProvider{responses: []string{"Sure! Here is the analysis you asked for.", validAnalysis}}
	b := NewBuilder(gen, nil, Config{}, nil)

	bc, err := b.Build(context.Background(), Inputs{Text: "Ember Roasters sells coffee."})
	require.NoError(t, err)
	assert.False(t, bc.Fallback)
	require.Equal(t, 2, gen.calls())
	assert.NotContains(t, gen.prompts[0], "previous answer was not valid")
	assert.Contains(t, gen.prompts[1], "previous answer was not valid")
}

func TestBuild_FallsBackAfterTwoBadResponses(t *testing.T) {
	gen := &scriptedProvider{responses: []string{`{"company_name": ""}`, "not json"}}
	b := NewBuilder(gen, nil, Config{}, nil)

	bc, err := b.Build(context.Background(), Inputs{Text: "Ember Roasters roasts coffee. Our coffee is roasted to order for home brewers."})
	require.NoError(t, err)
	assert.True(t, bc.Fallback)
	assert.Equal(t, 2, gen.calls())
	assert.Equal(t, FallbackConfidence, bc.ConfidenceScore)
	assert.Equal(t, "Ember Roasters", bc.CompanyName)
	assert.NotContains(t, bc.SuggestedTags, "source")
}

func TestBuild_ServiceUnavailableFallsBack(t *testing.T) {
	gen := &scriptedProvider{err: llm.ErrServiceUnavailable}
	b := NewBuilder(gen, nil, Config{}, nil)

	bc, err := b.Build(context.Background(), Inputs{Text: "Paws & Co grooming salon for dogs and cats. Dog grooming every day."})
	require.NoError(t, err)
	assert.True(t, bc.Fallback)
	assert.Equal(t, 1, gen.calls())
	assert.Equal(t, "Pets", bc.Industry)
	assert.NotEmpty(t, bc.SuggestedThemes)
}

func TestBuild_DifferentDescriptionsGiveDifferentThemes(t *testing.T) {
	gen := &scriptedProvider{err: llm.ErrServiceUnavailable}
	b := NewBuilder(gen, nil, Config{}, nil)

	coffee, err := b.Build(context.Background(), Inputs{Text: "Ember Roasters: espresso, single origin coffee beans, espresso blends and coffee gear."})
	require.NoError(t, err)
	yoga, err := b.Build(context.Background(), Inputs{Text: "Lotus Studio: yoga classes, pilates mornings, yoga retreats and mindful breathing."})
	require.NoError(t, err)

	assert.NotEqual(t, coffee.SuggestedThemes, yoga.SuggestedThemes)
	assert.NotEqual(t, coffee.Industry, yoga.Industry)
}

func TestBuild_DescribesImageFiles(t *testing.T) {
	gen := &scriptedProvider{respond: func(prompt string, opts llm.TextOptions) (string, error) {
		if len(opts.Attachments) > 0 {
			return "A storefront with a green awning and hand-lettered sign reading Fern & Twine.", nil
		}
		return validAnalysis, nil
	}}
	b := NewBuilder(gen, nil, Config{}, nil)

	bc, err := b.Build(context.Background(), Inputs{Files: []ingestion.File{
		{Name: "storefront.png", MIMEType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n")},
	}})
	require.NoError(t, err)
	require.Len(t, bc.Sources, 1)
	assert.Equal(t, "storefront.png", bc.Sources[0].Ref)

	require.Equal(t, 2, gen.calls())
	assert.Equal(t, llm.TierLite, gen.options[0].Tier)
	assert.Equal(t, "image/png", gen.options[0].Attachments[0].MIMEType)
	assert.Contains(t, gen.prompts[1], "green awning")
}

func TestBuild_ImageSkippedWhenServiceUnavailable(t *testing.T) {
	gen := &scriptedProvider{err: llm.ErrServiceUnavailable}
	b := NewBuilder(gen, nil, Config{}, nil)

	_, err := b.Build(context.Background(), Inputs{Files: []ingestion.File{
		{Name: "logo.png", MIMEType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n")},
	}})
	assert.ErrorIs(t, err, ErrInsufficientInput)
}

func TestBuild_TextFileReadLocally(t *testing.T) {
	gen := &scriptedProvider{responses: []string{validAnalysis}}
	b := NewBuilder(gen, nil, Config{}, nil)

	bc, err := b.Build(context.Background(), Inputs{Files: []ingestion.File{
		{Name: "about.md", MIMEType: "text/markdown", Data: []byte("# About\nWe roast coffee in Portland.")},
	}})
	require.NoError(t, err)
	assert.False(t, bc.Fallback)
	require.Equal(t, 1, gen.calls())
	assert.Contains(t, gen.prompts[0], "We roast coffee in Portland.")
}

func TestBuild_TotalMaterialIsBounded(t *testing.T) {
	gen := &scriptedProvider{responses: []string{validAnalysis}}
	b := NewBuilder(gen, nil, Config{MaxTotalChars: 200}, nil)

	_, err := b.Build(context.Background(), Inputs{Text: strings.Repeat("coffee beans roasted daily ", 100)})
	require.NoError(t, err)
	assert.Less(t, strings.Count(gen.prompts[0], "coffee beans"), 20)
}

func TestInputsEmpty(t *testing.T) {
	assert.True(t, Inputs{}.Empty())
	assert.True(t, Inputs{Text: " \n", URLs: []string{" "}}.Empty())
	assert.False(t, Inputs{Text: "x"}.Empty())
	assert.False(t, Inputs{URLs: []string{"https://a.test"}}.Empty())
	assert.False(t, Inputs{Files: []ingestion.File{{Name: "a.txt"}}}.Empty())
}

func TestBuild_CancelledContextIsNotInsufficientInput(t *testing.T) {
	gen := &scriptedProvider{responses: []string{validAnalysis}}
	fetcher := mapFetcher{
		"https://ember.test": {URL: "https://ember.test", Title: "Ember Roasters", Text: "Ember Roasters roasts small-batch coffee every week for home brewers."},
	}
	svc := llm.NewService(llm.Providers{Text: gen}, llm.DefaultServiceConfig())
	b := NewBuilder(svc, fetcher, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bc, err := b.Build(ctx, Inputs{URLs: []string{"https://ember.test"}})
	assert.Nil(t, bc)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrInsufficientInput)
	assert.Equal(t, 0, gen.calls())
}

func TestBuild_CancelledDuringAnalysisSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &scriptedProvider{respond: func(string, llm.TextOptions) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	b := NewBuilder(gen, nil, Config{}, nil)

	bc, err := b.Build(ctx, Inputs{Text: "Ember Roasters roasts coffee to order."})
	assert.Nil(t, bc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_PartialSourcesSucceed(t *testing.T) {
	gen := &scriptedProvider{responses: []string{validAnalysis}}
	fetcher := mapFetcher{
		"https://ember.test/about": {URL: "https://ember.test/about", Title: "About Ember", Text: "Ember Roasters roasts small-batch coffee every week for home brewers."},
	}
	b := NewBuilder(gen, fetcher, Config{}, nil)

	bc, err := b.Build(context.Background(), Inputs{
		URLs: []string{"https://gone.test/404", "https://ember.test/about"},
		Files: []ingestion.File{
			{Name: "menu.txt", MIMEType: "text/plain", Data: []byte("House blend, single origin Ethiopia, decaf.")},
		},
	})
	require.NoError(t, err)
	assert.False(t, bc.Fallback)
	assert.Equal(t, "https://ember.test/about", bc.WebsiteURL)

	require.Len(t, bc.Sources, 2)
	assert.Equal(t, types.Source{Kind: types.SourceURL, Ref: "https://ember.test/about", Chars: bc.Sources[0].Chars}, bc.Sources[0])
	assert.Equal(t, "menu.txt", bc.Sources[1].Ref)
	for _, s := range bc.Sources {
		assert.NotEqual(t, "https://gone.test/404", s.Ref)
	}

	require.Equal(t, 1, gen.calls())
	assert.Contains(t, gen.prompts[0], "roasts small-batch coffee")
	assert.Contains(t, gen.prompts[0], "single origin Ethiopia")
	assert.NotContains(t, gen.prompts[0], "gone.test")
}

func TestBuild_PartialSourcesFallbackKeepsGoodURL(t *testing.T) {
	gen := &scriptedProvider{err: llm.ErrServiceUnavailable}
	fetcher := mapFetcher{
		"https://ember.test": {URL: "https://ember.test", Title: "Ember Roasters", Text: "Ember Roasters roasts small-batch coffee every week for home brewers."},
	}
	b := NewBuilder(gen, fetcher, Config{}, nil)

	bc, err := b.Build(context.Background(), Inputs{URLs: []string{"https://missing.test", "https://ember.test"}})
	require.NoError(t, err)
	assert.True(t, bc.Fallback)
	require.Len(t, bc.Sources, 1)
	assert.Equal(t, "https://ember.test", bc.Sources[0].Ref)
	assert.Equal(t, "https://ember.test", bc.WebsiteURL)
}
