package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadTextFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "civil_code.txt", strings.Repeat("Article 1. ", 20))
	writeFile(t, dir, "sub/tax_code.md", strings.Repeat("Chapter 2. ", 20))

	loader := NewLoader(dir, 50, zerolog.Nop())
	pages, err := loader.Load()

	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, "civil_code.txt", pages[0].Metadata.DocumentName)
	assert.Equal(t, "civil_code.txt", pages[0].Metadata.SourcePath)
	assert.Equal(t, 1, pages[0].Metadata.PageNumber)
	assert.Equal(t, "txt", pages[0].Metadata.SourceType)

	assert.Equal(t, "tax_code.md", pages[1].Metadata.DocumentName)
	assert.Equal(t, "sub/tax_code.md", pages[1].Metadata.SourcePath)
	assert.Equal(t, "md", pages[1].Metadata.SourceType)
}

func TestLoadDropsShortPages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "stub.txt", "too short")

	loader := NewLoader(dir, 50, zerolog.Nop())
	pages, err := loader.Load()

	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestLoadSkipsUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scan.png", strings.Repeat("x", 100))
	writeFile(t, dir, "code.txt", strings.Repeat("Article 1. ", 20))

	loader := NewLoader(dir, 50, zerolog.Nop())
	pages, err := loader.Load()

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "code.txt", pages[0].Metadata.DocumentName)
}

func TestLoadCreatesMissingDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "laws")

	loader := NewLoader(dir, 50, zerolog.Nop())
	pages, err := loader.Load()

	require.NoError(t, err)
	assert.Empty(t, pages)
	assert.DirExists(t, dir)
}

func TestLoadTrimsContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "code.txt", "\n\n  "+strings.Repeat("Article 1. ", 20)+"  \n")

	loader := NewLoader(dir, 50, zerolog.Nop())
	pages, err := loader.Load()

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, strings.TrimSpace("\n\n  "+strings.Repeat("Article 1. ", 20)+"  \n"), pages[0].Content)
}
