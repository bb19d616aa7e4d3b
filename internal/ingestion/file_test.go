package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		file     File
		expected FileKind
	}{
		{"declared text", File{Name: "notes", MIMEType: "text/plain; charset=utf-8"}, FileText},
		{"markdown by extension", File{Name: "brand.md"}, FileText},
		{"html", File{Name: "about.html"}, FileHTML},
		{"png by content", File{Name: "logo", Data: []byte("\x89PNG\r\n\x1a\n0000")}, FileImage},
		{"jpeg declared", File{Name: "shop.jpg", MIMEType: "image/jpeg"}, FileImage},
		{"pdf", File{Name: "catalog.pdf"}, FilePDF},
		{"zip", File{Name: "archive.zip", Data: []byte("PK\x03\x04rest")}, FileUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.file))
		})
	}
}

func TestReadTextFile_Text(t *testing.T) {
	text, meta, err := ReadTextFile(File{Name: "brand.txt", Data: []byte("We roast   coffee.\n\n\n\nDaily.")}, 1000)
	require.NoError(t, err)

	assert.Equal(t, "We roast coffee.\n\nDaily.", text)
	assert.Equal(t, "file", meta.Kind)
	assert.Equal(t, "brand.txt", meta.Ref)
	assert.False(t, meta.Truncated)
}

func TestReadTextFile_HTML(t *testing.T) {
	html := `<html><body><nav>Menu</nav><main><h1>Acme</h1><p>Anvils since 1949</p></main></body></html>`

	text, _, err := ReadTextFile(File{Name: "about.html", Data: []byte(html)}, 1000)
	require.NoError(t, err)
	assert.Contains(t, text, "Anvils since 1949")
	assert.NotContains(t, text, "Menu")
}

func TestReadTextFile_RejectsImages(t *testing.T) {
	_, _, err := ReadTextFile(File{Name: "logo.png", MIMEType: "image/png", Data: []byte{1, 2}}, 1000)
	assert.Error(t, err)
}

func TestReadTextFile_Empty(t *testing.T) {
	_, _, err := ReadTextFile(File{Name: "blank.txt", Data: []byte("   ")}, 1000)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", f.Name)
	assert.Equal(t, "text/plain", f.MIMEType)
	assert.Equal(t, []byte("hello"), f.Data)

	_, err = LoadFile(filepath.Join(dir, "missing.txt"))
	assert.ErrorContains(t, err, "file not found")
}
