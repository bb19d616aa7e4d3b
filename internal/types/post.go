package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// PostType is one of the three content tiers.
type PostType string

// Content tiers
const (
	PostTypeTextURL   PostType = "text_url"
	PostTypeTextImage PostType = "text_image"
	PostTypeTextVideo PostType = "text_video"
)

// ParsePostType converts user input into a PostType.
func ParsePostType(s string) (PostType, error) {
	switch PostType(strings.ToLower(strings.TrimSpace(s))) {
	case PostTypeTextURL:
		return PostTypeTextURL, nil
	case PostTypeTextImage:
		return PostTypeTextImage, nil
	case PostTypeTextVideo:
		return PostTypeTextVideo, nil
	default:
		return "", fmt.Errorf("unknown post type %q (want text_url, text_image or text_video)", s)
	}
}

// NeedsVisual reports whether posts of this type are paired with a generated asset.
func (t PostType) NeedsVisual() bool {
	return t == PostTypeTextImage || t == PostTypeTextVideo
}

// AssetKind returns the visual kind paired with the post type, or "" for text_url.
func (t PostType) AssetKind() AssetKind {
	switch t {
	case PostTypeTextImage:
		return AssetKindImage
	case PostTypeTextVideo:
		return AssetKindVideo
	default:
		return ""
	}
}

// GenerationRequest is consumed once by the text generator.
type GenerationRequest struct {
	PostType   PostType         `json:"post_type" validate:"required,oneof=text_url text_image text_video"`
	Count      int              `json:"count" validate:"required,min=1"`
	Creativity int              `json:"creativity" validate:"min=1,max=10"`
	Context    *BusinessContext `json:"context" validate:"required"`
	MediaStyle string           `json:"media_style,omitempty" validate:"max=500"`
	ProductURL string           `json:"product_url,omitempty" validate:"omitempty,url"`
	Platforms  []string         `json:"platforms,omitempty" validate:"dive,oneof=instagram facebook linkedin x twitter tiktok threads youtube"`
}

// Validate checks the request using struct tags.
func (r *GenerationRequest) Validate() error {
	return validator.New().Struct(r)
}

// PlatformHint is a platform-specific rendition of a post.
type PlatformHint struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
}

// ErrCancelled is the error text placed on posts that were not processed before cancellation.
const ErrCancelled = "cancelled"

// DraftPost is one generated post candidate. A post is either populated or carries
// an error; an errored post never carries visual fields.
type DraftPost struct {
	ID            string                  `json:"id"`
	Index         int                     `json:"index"`
	PostType      PostType                `json:"post_type"`
	Body          string                  `json:"body"`
	Hashtags      []string                `json:"hashtags"`
	PlatformHints map[string]PlatformHint `json:"platform_hints,omitempty"`
	ProductURL    string                  `json:"product_url,omitempty"`
	ImageURL      string                  `json:"image_url,omitempty"`
	VideoURL      string                  `json:"video_url,omitempty"`
	Visual        *VisualAsset            `json:"visual,omitempty"`
	Fallback      bool                    `json:"fallback"`
	Error         string                  `json:"error,omitempty"`
}

// ProductLinkPlaceholder stands in for the product link when none is known. The
// scheduler substitutes it before publishing.
const ProductLinkPlaceholder = "{product_link}"

// Populated reports whether the post has every field its tier requires and no error.
// A text_url post holding ProductLinkPlaceholder counts as populated; NeedsLink tells
// those apart.
func (p *DraftPost) Populated() bool {
	if p.Error != "" || strings.TrimSpace(p.Body) == "" {
		return false
	}
	switch p.PostType {
	case PostTypeTextURL:
		return p.ProductURL != ""
	case PostTypeTextImage:
		return p.ImageURL != "" && p.Visual != nil
	case PostTypeTextVideo:
		return p.VideoURL != "" && p.Visual != nil
	default:
		return false
	}
}

// NeedsLink reports whether a text_url post still carries the link placeholder.
func (p *DraftPost) NeedsLink() bool {
	return p.PostType == PostTypeTextURL && p.ProductURL == ProductLinkPlaceholder
}

// CancelledPost is the entry for a slot that was never drafted because the run was
// cancelled. It has no body and no visual.
func CancelledPost(postType PostType, slot int) *DraftPost {
	return &DraftPost{
		ID:       uuid.NewString(),
		Index:    slot,
		PostType: postType,
		Error:    ErrCancelled,
	}
}

// Fail marks the post as errored and clears any visual fields.
func (p *DraftPost) Fail(cause string) {
	if strings.TrimSpace(cause) == "" {
		cause = "unknown error"
	}
	p.Error = cause
	p.ImageURL = ""
	p.VideoURL = ""
	p.Visual = nil
}

// AttachVisual records a generated asset on the post.
func (p *DraftPost) AttachVisual(asset *VisualAsset) {
	p.Visual = asset
	switch asset.Kind {
	case AssetKindImage:
		p.ImageURL = asset.Locator
	case AssetKindVideo:
		p.VideoURL = asset.Locator
	}
}

// HashtagString renders hashtags space-separated with a leading '#'.
func (p *DraftPost) HashtagString() string {
	tags := make([]string, 0, len(p.Hashtags))
	for _, h := range p.Hashtags {
		tags = append(tags, "#"+strings.TrimPrefix(h, "#"))
	}
	return strings.Join(tags, " ")
}
