package api

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/quarrylabs/quarry/pkg/retrieval"
)

// handleExport handles GET /v1/export requests, rendering search results as
// a downloadable file.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 3): number of results to export
//   - format (optional, default "txt"): "txt" or "csv"
func (s *Server) handleExport(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	topK := retrieval.DefaultTopK
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	format := c.Query("format", "txt")
	if format != "txt" && format != "csv" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "format must be txt or csv",
		})
	}

	matches, err := s.config.Retriever.QueryTopK(c.Context(), query, topK)
	if err != nil {
		if errors.Is(err, retrieval.ErrInvalidArgument) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	switch format {
	case "csv":
		body, err := renderCSV(matches)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to render csv"})
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="results.csv"`)
		return c.Send(body)

	default:
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="results.txt"`)
		return c.Send(renderTXT(query, matches))
	}
}

// renderTXT renders matches as a plain-text report, one block per match.
func renderTXT(query string, matches []retrieval.Match) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Query: %s\n\n", query)
	for i, m := range matches {
		fmt.Fprintf(&buf, "%d. %s (score %.4f)\n%s\n\n", i+1, m.Source(), m.Score, m.Text)
	}

	return buf.Bytes()
}

// renderCSV renders matches as CSV with a header row.
func renderCSV(matches []retrieval.Match) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"doc_id", "page", "paragraph", "score", "chunk_text"}); err != nil {
		return nil, err
	}

	for _, m := range matches {
		record := []string{
			m.DocID,
			strconv.Itoa(m.Page),
			strconv.Itoa(m.Paragraph),
			strconv.FormatFloat(float64(m.Score), 'f', 4, 32),
			m.Text,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
