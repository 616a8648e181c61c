package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/chunk"
	"github.com/quarrylabs/quarry/pkg/retrieval"
)

const (
	// docThemeChunkLimit caps how many chunks of a document feed its
	// theme summary.
	docThemeChunkLimit = 10

	// globalThemeChunkLimit caps how many chunks across all documents
	// feed the corpus-wide summary.
	globalThemeChunkLimit = 30

	docThemesQuestion    = "Identify the key themes or main ideas in this document."
	globalThemesQuestion = "Identify the most important themes shared across these documents."
)

// DocumentThemes is the theme summary for a single ingested document. A
// document whose summary failed carries the error instead so one bad
// document does not sink the whole report.
type DocumentThemes struct {
	DocID  string `json:"doc_id"`
	Themes string `json:"themes,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ThemesResponse is the JSON body for POST /v1/themes.
type ThemesResponse struct {
	Documents []DocumentThemes `json:"documents"`
	Global    string           `json:"global_themes"`
}

// handleThemes summarizes the themes of every ingested document plus a
// corpus-wide synthesis, grounded in the chunk store.
func (s *Server) handleThemes(c *fiber.Ctx) error {
	if s.config.Generator == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "answer synthesis is not configured",
		})
	}

	ctx := c.Context()

	chunks, err := s.config.Store.All(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read chunks"})
	}
	if len(chunks) == 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error: "no documents have been ingested",
		})
	}

	byDoc := map[string][]chunk.Chunk{}
	var docOrder []string
	for _, ch := range chunks {
		if _, seen := byDoc[ch.DocID]; !seen {
			docOrder = append(docOrder, ch.DocID)
		}
		byDoc[ch.DocID] = append(byDoc[ch.DocID], ch)
	}

	resp := ThemesResponse{Documents: make([]DocumentThemes, 0, len(docOrder))}
	var global []retrieval.Match

	for _, docID := range docOrder {
		matches := chunkMatches(byDoc[docID], docThemeChunkLimit)

		doc := DocumentThemes{DocID: docID}
		themes, err := s.config.Generator.Answer(ctx, docThemesQuestion, matches)
		if err != nil {
			s.logger.Warn("theme summary failed",
				zap.String("doc_id", docID),
				zap.Error(err),
			)
			doc.Error = err.Error()
		} else {
			doc.Themes = themes
		}
		resp.Documents = append(resp.Documents, doc)

		if len(global) < globalThemeChunkLimit {
			global = append(global, matches[:min(len(matches), globalThemeChunkLimit-len(global))]...)
		}
	}

	globalThemes, err := s.config.Generator.Answer(ctx, globalThemesQuestion, global)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: err.Error()})
	}
	resp.Global = globalThemes

	return c.JSON(resp)
}

// chunkMatches adapts stored chunks into retrieval matches so the generator
// sees the same grounding shape it sees on /v1/search.
func chunkMatches(chunks []chunk.Chunk, limit int) []retrieval.Match {
	matches := make([]retrieval.Match, 0, min(len(chunks), limit))
	for _, ch := range chunks[:min(len(chunks), limit)] {
		matches = append(matches, retrieval.Match{
			Text:      ch.Text,
			DocID:     ch.DocID,
			Page:      ch.Page,
			Paragraph: ch.Paragraph,
		})
	}
	return matches
}
