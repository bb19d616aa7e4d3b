package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Metadata describes one ingested source.
type Metadata struct {
	Kind      string `json:"kind"`                // url, file or text
	Ref       string `json:"ref,omitempty"`       // URL or file name
	MIMEType  string `json:"mime_type,omitempty"` // for files
	Platform  string `json:"platform,omitempty"`  // detected storefront platform for URLs
	Title     string `json:"title,omitempty"`
	Timestamp string `json:"timestamp"` // RFC3339 format
	Hash      string `json:"hash"`      // SHA256 hex digest of the cleaned text
	Chars     int    `json:"chars"`
	Truncated bool   `json:"truncated,omitempty"`
}

// NewMetadata creates a new Metadata instance with current timestamp
func NewMetadata(kind, ref, content string) *Metadata {
	return &Metadata{
		Kind:      kind,
		Ref:       ref,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hash:      computeHash(content),
		Chars:     len([]rune(content)),
	}
}

// computeHash computes SHA256 hash of content and returns hex string
func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// ToJSON marshals Metadata to pretty-printed JSON
func (m *Metadata) ToJSON() ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata to JSON: %w", err)
	}
	return jsonBytes, nil
}
