package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/retrieval"
	"github.com/quarrylabs/quarry/pkg/utils"
)

// SearchResponse is the JSON body for GET /v1/search.
type SearchResponse struct {
	Query   string            `json:"query"`
	Results []retrieval.Match `json:"results"`
	Count   int               `json:"count"`
	Answer  string            `json:"answer,omitempty"`
}

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 3): number of results to return
//   - answer (optional): "true" to synthesize an answer from the results
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
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

	matches, err := s.config.Retriever.QueryTopK(c.Context(), query, topK)
	if err != nil {
		if errors.Is(err, retrieval.ErrInvalidArgument) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	resp := SearchResponse{
		Query:   query,
		Results: matches,
		Count:   len(matches),
	}

	if c.Query("answer") == "true" {
		if s.config.Generator == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
				Error: "answer synthesis is not configured",
			})
		}

		synthesized, err := s.config.Generator.Answer(c.Context(), query, matches)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: err.Error()})
		}
		resp.Answer = synthesized
	}

	s.logger.Debug("search request served",
		zap.String("query", utils.Truncate(query, 80)),
		zap.Int("count", resp.Count),
	)

	return c.JSON(resp)
}
