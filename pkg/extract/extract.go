// Package extract pulls plain text out of uploaded documents. PDF files are
// extracted per page so chunk provenance carries real page numbers; plain
// text formats are treated as a single stream with estimated pages.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for file types the extractor cannot read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// supported maps file extensions to whether extraction is page-accurate.
var supported = map[string]bool{
	".txt": false,
	".md":  false,
	".pdf": true,
}

// Supported reports whether the named file can be extracted.
func Supported(name string) bool {
	_, ok := supported[strings.ToLower(filepath.Ext(name))]
	return ok
}

// PageAccurate reports whether extraction of the named file yields real page
// boundaries rather than a single text stream.
func PageAccurate(name string) bool {
	return supported[strings.ToLower(filepath.Ext(name))]
}

// Bytes extracts the text of a document held in memory. The returned slice
// holds one entry per page for page-accurate formats, or a single entry
// otherwise.
func Bytes(name string, data []byte) ([]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return []string{string(data)}, nil
	case ".pdf":
		return pdfPages(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// File extracts the text of a document on disk.
func File(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Bytes(path, data)
}

// pdfPages extracts one text entry per PDF page. A page whose text cannot be
// decoded is kept as an empty entry so page numbering stays aligned.
func pdfPages(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return pages, nil
}
