package ingestion

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/postcraft/internal/fetch"
)

// File is an uploaded document or image.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// FileKind says how a file is ingested.
type FileKind string

// File kinds
const (
	FileText        FileKind = "text"
	FileHTML        FileKind = "html"
	FileImage       FileKind = "image"
	FilePDF         FileKind = "pdf"
	FileUnsupported FileKind = "unsupported"
)

// MaxFileBytes bounds the size of a single uploaded file.
const MaxFileBytes = 20 << 20

// DetectMIMEType returns f.MIMEType when set, otherwise guesses from the extension and content.
func DetectMIMEType(f File) string {
	if mt := strings.TrimSpace(strings.Split(f.MIMEType, ";")[0]); mt != "" && mt != "application/octet-stream" {
		return strings.ToLower(mt)
	}
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name))); mt != "" {
		return strings.ToLower(strings.Split(mt, ";")[0])
	}
	return strings.Split(http.DetectContentType(f.Data), ";")[0]
}

// Classify returns how the file should be ingested.
func Classify(f File) FileKind {
	mt := DetectMIMEType(f)
	switch {
	case mt == "text/html" || mt == "application/xhtml+xml":
		return FileHTML
	case strings.HasPrefix(mt, "text/"), mt == "application/json", mt == "application/xml":
		return FileText
	case mt == "image/png", mt == "image/jpeg", mt == "image/webp", mt == "image/gif":
		return FileImage
	case mt == "application/pdf":
		return FilePDF
	default:
		return FileUnsupported
	}
}

// ReadTextFile extracts cleaned text from a text or HTML file, truncated to maxChars.
func ReadTextFile(f File, maxChars int) (string, *Metadata, error) {
	if len(f.Data) > MaxFileBytes {
		return "", nil, fmt.Errorf("file %s exceeds %d bytes", f.Name, MaxFileBytes)
	}

	var text string
	switch Classify(f) {
	case FileText:
		if !utf8.Valid(f.Data) {
			return "", nil, fmt.Errorf("file %s is not valid UTF-8 text", f.Name)
		}
		text = string(f.Data)
	case FileHTML:
		extracted, err := fetch.ExtractMainText(string(f.Data), fetch.BusinessPageSelectors())
		if err != nil {
			return "", nil, fmt.Errorf("file %s: %w", f.Name, err)
		}
		text = extracted
	default:
		return "", nil, fmt.Errorf("file %s (%s) is not a text document", f.Name, DetectMIMEType(f))
	}

	cleaned := CleanText(text)
	if cleaned == "" {
		return "", nil, fmt.Errorf("%w: %s", ErrEmptyContent, f.Name)
	}
	cleaned, truncated := Truncate(cleaned, maxChars)

	metadata := NewMetadata("file", f.Name, cleaned)
	metadata.MIMEType = DetectMIMEType(f)
	metadata.Truncated = truncated
	return cleaned, metadata, nil
}

// LoadFile reads a file from disk.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, fmt.Errorf("file not found: %w", err)
		}
		return File{}, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxFileBytes {
		return File{}, fmt.Errorf("file %s exceeds %d bytes", path, MaxFileBytes)
	}
	f := File{Name: filepath.Base(path), Data: data}
	f.MIMEType = DetectMIMEType(f)
	return f, nil
}
