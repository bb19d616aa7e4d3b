package ingestion

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText_PreserveMarkdownHeadings(t *testing.T) {
	input := "# Title\n## Subtitle\nContent here"
	result := CleanText(input)

	assert.Contains(t, result, "# Title")
	assert.Contains(t, result, "## Subtitle")
	assert.Contains(t, result, "Content here")
}

func TestCleanText_PreserveBulletLists(t *testing.T) {
	input := "- Item 1\n- Item 2\n* Item 3"
	result := CleanText(input)

	assert.Contains(t, result, "- Item 1")
	assert.Contains(t, result, "- Item 2")
	assert.Contains(t, result, "* Item 3")
}

func TestCleanText_NormalizeWhitespace(t *testing.T) {
	input := "Line    with    multiple    spaces"
	result := CleanText(input)

	assert.Contains(t, result, "Line with multiple spaces")
	assert.NotContains(t, result, "    ") // Should not have 4 spaces
}

func TestCleanText_RemoveExcessiveBlankLines(t *testing.T) {
	input := "Line 1\n\n\n\n\nLine 2"
	result := CleanText(input)

	// Should have max 2 consecutive newlines
	assert.NotContains(t, result, "\n\n\n\n")
	// But should preserve up to 2
	assert.Contains(t, result, "\n\n")
}

func TestCleanText_NormalizeLineEndings(t *testing.T) {
	input := "Line 1\r\nLine 2\rLine 3\nLine 4"
	result := CleanText(input)

	// All should be normalized to LF
	assert.NotContains(t, result, "\r\n")
	assert.NotContains(t, result, "\r")
	assert.Contains(t, result, "\n")
}

func TestCleanText_DeterministicOutput(t *testing.T) {
	input := "Test content   with   spaces\n\n\nMultiple   blank   lines"
	result1 := CleanText(input)
	result2 := CleanText(input)

	// Same input should produce identical output
	assert.Equal(t, result1, result2)
}

func TestCleanText_EmptyInput(t *testing.T) {
	result := CleanText("")
	assert.Empty(t, result)
}

func TestCleanText_OnlyWhitespace(t *testing.T) {
	result := CleanText("   \n  \n  ")
	assert.Empty(t, result)
}

func TestCleanText_SpecialCharacters(t *testing.T) {
	input := "Test with émojis 🚀 and spéciàl chàracters"
	result := CleanText(input)

	assert.Contains(t, result, "émojis")
	assert.Contains(t, result, "🚀")
	assert.Contains(t, result, "spéciàl chàracters")
}

func TestCleanText_PreserveIndentation(t *testing.T) {
	input := "    Indented line\n  Less indented"
	result := CleanText(input)

	// Should preserve relative indentation
	assert.Contains(t, result, "Indented")
	assert.Contains(t, result, "Less indented")
}

func TestCleanText_ComplexFormatting(t *testing.T) {
	input := "# Acme Bakery\n\n\n\n## What we bake\n- Sourdough   loaves\n    * Rye\nOpen   daily   from 7am\r\n"
	result := CleanText(input)

	assert.Contains(t, result, "# Acme Bakery")
	assert.Contains(t, result, "## What we bake")
	assert.Contains(t, result, "- Sourdough   loaves")
	assert.Contains(t, result, "    * Rye")
	assert.Contains(t, result, "Open daily from 7am")
	assert.NotContains(t, result, "\n\n\n")
}

func TestTruncate(t *testing.T) {
	text := strings.Repeat("word ", 100)

	out, truncated := Truncate(text, 52)
	assert.True(t, truncated)
	assert.LessOrEqual(t, utf8.RuneCountInString(out), 52)
	assert.False(t, strings.HasSuffix(out, "wor"))

	same, truncated := Truncate("short", 52)
	assert.False(t, truncated)
	assert.Equal(t, "short", same)

	unlimited, truncated := Truncate(text, 0)
	assert.False(t, truncated)
	assert.Equal(t, text, unlimited)
}

func TestTruncate_MultibyteSafe(t *testing.T) {
	out, truncated := Truncate("ééééééééé", 4)
	require.True(t, truncated)
	assert.Equal(t, "éééé", out)
	assert.True(t, utf8.ValidString(out))
}
