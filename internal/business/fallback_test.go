package business

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/postcraft/internal/types"
)

func TestFallback_Deterministic(t *testing.T) {
	corpus := "Ember Roasters roasts coffee in small batches. Every bag of coffee ships within a day of roasting."
	a := Fallback(corpus, nil, nil)
	b := Fallback(corpus, nil, nil)

	assert.Equal(t, a, b)
	assert.True(t, a.Fallback)
	assert.Equal(t, "Ember Roasters", a.CompanyName)
	assert.Equal(t, "Food & Beverage", a.Industry)
	assert.Contains(t, a.SuggestedTags, "coffee")
	assert.Equal(t, "Coffee", a.SuggestedThemes[0])
}

func TestFallback_CompanyNameSources(t *testing.T) {
	tests := []struct {
		name    string
		corpus  string
		sources []types.Source
		titles  []string
		want    string
	}{
		{name: "title wins", titles: []string{"Fern & Twine | Handmade Goods"}, want: "Fern & Twine"},
		{name: "host label", sources: []types.Source{{Kind: types.SourceURL, Ref: "https://www.blue-harbor.com/about"}}, want: "Blue Harbor"},
		{name: "leading capitals", corpus: "Lotus Studio offers yoga classes", want: "Lotus Studio"},
		{name: "nothing usable", corpus: "we do things", want: "Our Business"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, guessCompanyName(tt.corpus, tt.sources, tt.titles))
		})
	}
}

func TestTopKeywords(t *testing.T) {
	got := topKeywords("The candles and the candles and ceramics, your ceramics, candles.", 2)
	assert.Equal(t, []string{"candles", "ceramics"}, got)
}

func TestDetectIndustryDefault(t *testing.T) {
	assert.Equal(t, "Small Business", detectIndustry("nothing in particular here"))
}

func TestLeadSentences(t *testing.T) {
	got := leadSentences("Hi. We make furniture from reclaimed oak! Built to last for generations.", 3)
	assert.Equal(t, []string{"We make furniture from reclaimed oak!", "Built to last for generations."}, got)
}
