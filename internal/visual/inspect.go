package visual

import (
	"bytes"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"strings"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"

	"github.com/jonathan/postcraft/internal/llm"
	"github.com/jonathan/postcraft/internal/types"
)

var extensions = map[string]string{
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"image/webp":      "webp",
	"image/gif":       "gif",
	"video/mp4":       "mp4",
	"video/webm":      "webm",
	"video/quicktime": "mov",
}

// inspect fills technical metadata for a generated asset. Dimensions reported by the
// provider are kept when the payload cannot be decoded.
func inspect(asset *llm.Asset, aspectRatio string) types.AssetMetadata {
	meta := types.AssetMetadata{
		Width:           asset.Width,
		Height:          asset.Height,
		DurationSeconds: asset.DurationSeconds,
		MIMEType:        asset.MIMEType,
		Bytes:           int64(len(asset.Data)),
		AspectRatio:     aspectRatio,
	}

	switch {
	case isWEBP(asset.Data):
		meta.Format = "webp"
		meta.MIMEType = "image/webp"
		if img, err := webp.Decode(bytes.NewReader(asset.Data), &decoder.Options{}); err == nil {
			b := img.Bounds()
			meta.Width, meta.Height = b.Dx(), b.Dy()
		}
	case !strings.HasPrefix(asset.MIMEType, "video/"):
		if cfg, format, err := image.DecodeConfig(bytes.NewReader(asset.Data)); err == nil {
			meta.Width, meta.Height = cfg.Width, cfg.Height
			meta.Format = format
			meta.MIMEType = "image/" + format
		}
	}

	if meta.Format == "" {
		meta.Format = extensions[meta.MIMEType]
	}
	return meta
}

func isWEBP(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	return string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// extension returns the file extension for a MIME type.
func extension(mimeType string, kind types.AssetKind) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	if kind == types.AssetKindVideo {
		return "mp4"
	}
	return "bin"
}
