// Package answer synthesizes a grounded natural-language answer from
// retrieval matches. Fully optional: search works without a generator.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/quarrylabs/quarry/pkg/retrieval"
)

// Generator produces an answer to a question grounded in retrieved chunks.
type Generator interface {
	// Answer synthesizes an answer from the question and its matches.
	Answer(ctx context.Context, question string, matches []retrieval.Match) (string, error)

	// Close releases any underlying resources.
	Close() error
}

// BuildPrompt renders the grounding prompt given to the model. Each excerpt
// carries its provenance so the model can cite sources inline.
func BuildPrompt(question string, matches []retrieval.Match) string {
	var b strings.Builder

	b.WriteString("Answer the question using only the excerpts below. ")
	b.WriteString("Cite sources inline using their bracketed labels. ")
	b.WriteString("If the excerpts do not contain the answer, say so.\n\n")

	for _, m := range matches {
		fmt.Fprintf(&b, "%s %s\n\n", m.Source(), m.Text)
	}

	fmt.Fprintf(&b, "Question: %s\nAnswer:", question)

	return b.String()
}
