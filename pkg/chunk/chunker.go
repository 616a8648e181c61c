package chunk

import (
	"regexp"
	"strings"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 500

	// DefaultOverlap is how many characters consecutive chunks share.
	DefaultOverlap = 100

	// pageLength approximates how many characters make up one "page" of
	// extracted text when the source format has no page boundaries.
	pageLength = 1800
)

var whitespace = regexp.MustCompile(`\s+`)

// Chunker splits extracted document text into overlapping chunks with
// provenance metadata.
type Chunker struct {
	// Size is the chunk length in characters. Defaults to DefaultChunkSize.
	Size int

	// Overlap is the number of characters shared with the previous chunk.
	// Defaults to DefaultOverlap.
	Overlap int
}

func (ck Chunker) params() (size, overlap int) {
	size = ck.Size
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap = ck.Overlap
	if overlap <= 0 || overlap >= size {
		overlap = DefaultOverlap
	}
	return size, overlap
}

// window is one chunk-sized slice of a text. Offsets and lengths are counted
// in runes, not bytes, so a window never splits a multi-byte character.
type window struct {
	start int
	text  string
}

func windows(text string, size, overlap int) []window {
	runes := []rune(text)

	var wins []window
	for start := 0; start < len(runes); start += size - overlap {
		end := min(start+size, len(runes))
		wins = append(wins, window{start: start, text: string(runes[start:end])})
	}
	return wins
}

// Split chunks text for the given document. Page numbers are estimated from
// the character offset; the paragraph index is a running counter, so together
// with docID they form a unique chunk identity.
func (ck Chunker) Split(docID, text string) []Chunk {
	size, overlap := ck.params()

	var chunks []Chunk
	paragraph := 1

	for _, w := range windows(text, size, overlap) {
		cleaned := strings.TrimSpace(whitespace.ReplaceAllString(w.text, " "))
		if cleaned != "" {
			chunks = append(chunks, Chunk{
				DocID:     docID,
				Page:      w.start/pageLength + 1,
				Paragraph: paragraph,
				Text:      cleaned,
			})
		}
		paragraph++
	}

	return chunks
}

// SplitPages chunks per-page text (e.g. from a PDF extractor) so the page
// provenance is exact rather than estimated. Pages are 1-based in the input
// slice order; the paragraph counter runs across the whole document.
func (ck Chunker) SplitPages(docID string, pages []string) []Chunk {
	size, overlap := ck.params()

	var chunks []Chunk
	paragraph := 1

	for pageNum, text := range pages {
		for _, w := range windows(text, size, overlap) {
			cleaned := strings.TrimSpace(whitespace.ReplaceAllString(w.text, " "))
			if cleaned != "" {
				chunks = append(chunks, Chunk{
					DocID:     docID,
					Page:      pageNum + 1,
					Paragraph: paragraph,
					Text:      cleaned,
				})
			}
			paragraph++
		}
	}

	return chunks
}
