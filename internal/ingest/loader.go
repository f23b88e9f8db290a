package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

var supportedTextExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Loader walks a directory tree and extracts pages from text and PDF files.
type Loader struct {
	root         string
	minPageChars int
	log          zerolog.Logger
}

func NewLoader(root string, minPageChars int, log zerolog.Logger) *Loader {
	if minPageChars <= 0 {
		minPageChars = 50
	}
	return &Loader{root: root, minPageChars: minPageChars, log: log}
}

// Load extracts pages from every supported file under the root, in sorted
// order. Unsupported files and per-file extraction failures are logged and
// skipped; only a broken walk is an error.
func (l *Loader) Load() ([]Page, error) {
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir '%s': %w", l.root, err)
	}

	var pages []Page
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		var (
			loaded  []Page
			loadErr error
		)
		switch {
		case ext == ".pdf":
			loaded, loadErr = l.loadPDF(path)
		case supportedTextExtensions[ext]:
			loaded, loadErr = l.loadText(path)
		default:
			l.log.Warn().Str("file", d.Name()).Msg("skipping unsupported file")
			return nil
		}
		if loadErr != nil {
			l.log.Error().Err(loadErr).Str("file", d.Name()).Msg("failed to load file")
			return nil
		}
		if len(loaded) == 0 {
			l.log.Warn().Str("file", d.Name()).Msg("no textual content extracted")
			return nil
		}

		pages = append(pages, loaded...)
		l.log.Info().Str("file", d.Name()).Int("pages", len(loaded)).Msg("loaded document")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk data dir '%s': %w", l.root, err)
	}

	if len(pages) == 0 {
		l.log.Warn().Str("dir", l.root).Msg("no documents found, add PDF/TXT files and rerun")
	}
	return pages, nil
}

// loadText treats the whole file as a single page.
func (l *Loader) loadText(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if len(text) < l.minPageChars {
		return nil, nil
	}

	sourceType := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if sourceType == "" {
		sourceType = "text"
	}
	return []Page{{
		Content: text,
		Metadata: Metadata{
			DocumentName: filepath.Base(path),
			SourcePath:   l.relativePath(path),
			PageNumber:   1,
			SourceType:   sourceType,
		},
	}}, nil
}

// loadPDF extracts each PDF page separately, dropping pages below the
// minimum character threshold.
func (l *Loader) loadPDF(path string) ([]Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var pages []Page
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			l.log.Warn().Err(err).Str("file", filepath.Base(path)).Int("page", pageNum).Msg("failed to extract pdf page")
			continue
		}
		text = strings.TrimSpace(text)
		if len(text) < l.minPageChars {
			continue
		}
		pages = append(pages, Page{
			Content: text,
			Metadata: Metadata{
				DocumentName: filepath.Base(path),
				SourcePath:   l.relativePath(path),
				PageNumber:   pageNum,
				SourceType:   "pdf",
			},
		})
	}
	return pages, nil
}

func (l *Loader) relativePath(path string) string {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
