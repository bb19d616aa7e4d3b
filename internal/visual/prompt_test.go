package visual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/postcraft/internal/llm"
	"github.com/jonathan/postcraft/internal/types"
)

func TestAspectRatio(t *testing.T) {
	assert.Equal(t, RatioPortrait, AspectRatio("instagram", types.AssetKindImage))
	assert.Equal(t, RatioVertical, AspectRatio("instagram", types.AssetKindVideo))
	assert.Equal(t, RatioLandscape, AspectRatio("X", types.AssetKindImage))
	assert.Equal(t, RatioSquare, AspectRatio("", types.AssetKindImage))
	assert.Equal(t, RatioVertical, AspectRatio("unknown", types.AssetKindVideo))
}

func TestPrimaryPlatform(t *testing.T) {
	post := &types.DraftPost{PlatformHints: map[string]types.PlatformHint{"linkedin": {}, "instagram": {}}}
	assert.Equal(t, "instagram", PrimaryPlatform(post, nil))
	assert.Equal(t, "linkedin", PrimaryPlatform(post, []string{"LinkedIn"}))
	assert.Equal(t, "", PrimaryPlatform(&types.DraftPost{}, nil))
}

func TestBuildPrompt(t *testing.T) {
	post := &types.DraftPost{PostType: types.PostTypeTextImage, Body: "Fresh roast Friday."}
	prompt, err := BuildPrompt(post, brand(), "", RatioSquare, 0)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Fresh roast Friday.")
	assert.Contains(t, prompt, "Ember Roasters")
	assert.Contains(t, prompt, "#3B2F2F, #F4E1C1")
	assert.Contains(t, prompt, DefaultMediaStyle)
	assert.Contains(t, prompt, "1:1")
	assert.NotContains(t, prompt, "{{.")
}

func TestBuildPrompt_NilContext(t *testing.T) {
	post := &types.DraftPost{PostType: types.PostTypeTextVideo, Body: "Watch us roast."}
	prompt, err := BuildPrompt(post, nil, "cinematic", RatioVertical, 8)
	require.NoError(t, err)
	assert.Contains(t, prompt, "8-second cinematic")
	assert.Contains(t, prompt, "a small business")
}

func TestInspect(t *testing.T) {
	meta := inspect(&llm.Asset{Data: pngBytes(t, 10, 20), MIMEType: "application/octet-stream"}, RatioPortrait)
	assert.Equal(t, 10, meta.Width)
	assert.Equal(t, 20, meta.Height)
	assert.Equal(t, "png", meta.Format)

	meta = inspect(&llm.Asset{Data: []byte("not an image"), MIMEType: "image/jpeg", Width: 5, Height: 6}, RatioSquare)
	assert.Equal(t, 5, meta.Width)
	assert.Equal(t, "jpg", meta.Format)

	meta = inspect(&llm.Asset{Data: []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), MIMEType: "image/png"}, RatioSquare)
	assert.Equal(t, "webp", meta.Format)
	assert.Equal(t, "image/webp", meta.MIMEType)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "webp", extension("image/webp", types.AssetKindImage))
	assert.Equal(t, "mp4", extension("application/octet-stream", types.AssetKindVideo))
	assert.Equal(t, "bin", extension("application/octet-stream", types.AssetKindImage))
}
