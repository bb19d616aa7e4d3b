package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePostType(t *testing.T) {
	tests := []struct {
		input   string
		want    PostType
		wantErr bool
	}{
		{"text_url", PostTypeTextURL, false},
		{" TEXT_IMAGE ", PostTypeTextImage, false},
		{"text_video", PostTypeTextVideo, false},
		{"carousel", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePostType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDraftPost_PopulatedXorError(t *testing.T) {
	urlPost := &DraftPost{PostType: PostTypeTextURL, Body: "Fresh beans", ProductURL: "https://example.com"}
	assert.True(t, urlPost.Populated())

	imgPost := &DraftPost{PostType: PostTypeTextImage, Body: "Morning pour"}
	assert.False(t, imgPost.Populated(), "image post without asset is not populated")

	imgPost.AttachVisual(&VisualAsset{Kind: AssetKindImage, Locator: "file:///a.png"})
	assert.True(t, imgPost.Populated())
	assert.Equal(t, "file:///a.png", imgPost.ImageURL)

	imgPost.Fail("image generation failed")
	assert.False(t, imgPost.Populated())
	assert.Empty(t, imgPost.ImageURL)
	assert.Nil(t, imgPost.Visual)
	assert.Equal(t, "Morning pour", imgPost.Body, "text survives a visual failure")
}

func TestDraftPost_NeedsLink(t *testing.T) {
	pending := &DraftPost{PostType: PostTypeTextURL, Body: "Shop now.", ProductURL: ProductLinkPlaceholder}
	assert.True(t, pending.Populated())
	assert.True(t, pending.NeedsLink())

	linked := &DraftPost{PostType: PostTypeTextURL, Body: "Shop now.", ProductURL: "https://ember.test/shop"}
	assert.True(t, linked.Populated())
	assert.False(t, linked.NeedsLink())

	image := &DraftPost{PostType: PostTypeTextImage, ProductURL: ProductLinkPlaceholder}
	assert.False(t, image.NeedsLink())
}

func TestCancelledPost(t *testing.T) {
	p := CancelledPost(PostTypeTextVideo, 3)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 3, p.Index)
	assert.Equal(t, PostTypeTextVideo, p.PostType)
	assert.Equal(t, ErrCancelled, p.Error)
	assert.Empty(t, p.Body)
	assert.False(t, p.Populated())
	assert.NotEqual(t, p.ID, CancelledPost(PostTypeTextVideo, 3).ID)
}

func TestDraftPost_FailDefaultsCause(t *testing.T) {
	p := &DraftPost{PostType: PostTypeTextVideo, Body: "x"}
	p.Fail("  ")
	assert.Equal(t, "unknown error", p.Error)
}

func TestGenerationRequest_Validate(t *testing.T) {
	ctx := &BusinessContext{CompanyName: "Acme"}

	valid := GenerationRequest{PostType: PostTypeTextImage, Count: 2, Creativity: 5, Context: ctx}
	require.NoError(t, valid.Validate())

	badCreativity := valid
	badCreativity.Creativity = 11
	assert.Error(t, badCreativity.Validate())

	noContext := valid
	noContext.Context = nil
	assert.Error(t, noContext.Validate())

	badPlatform := valid
	badPlatform.Platforms = []string{"myspace"}
	assert.Error(t, badPlatform.Validate())

	badURL := valid
	badURL.ProductURL = "not a url"
	assert.Error(t, badURL.Validate())
}

func TestHashtagString(t *testing.T) {
	p := &DraftPost{Hashtags: []string{"coffee", "#organic"}}
	assert.Equal(t, "#coffee #organic", p.HashtagString())
}

func TestUniqueStrings(t *testing.T) {
	got := UniqueStrings([]string{"Coffee", " coffee ", "", "Roasting", "roasting", "Beans"})
	assert.Equal(t, []string{"Coffee", "Roasting", "Beans"}, got)
}

func TestBusinessContext_Summary(t *testing.T) {
	c := &BusinessContext{
		CompanyName:     "Bean There",
		Industry:        "Coffee",
		SuggestedThemes: []string{"sourcing", "brewing"},
	}
	s := c.Summary()
	assert.Contains(t, s, "Company: Bean There")
	assert.Contains(t, s, "Themes: sourcing, brewing")
	assert.NotContains(t, s, "Website")

	var nilCtx *BusinessContext
	assert.Empty(t, nilCtx.Summary())
}
