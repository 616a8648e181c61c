package api

import (
	"github.com/gofiber/fiber/v2"
)

// StatsResponse reports the size of the retrieval surface.
type StatsResponse struct {
	// Chunks is the chunk store's append-only record count.
	Chunks int `json:"chunks"`

	// Vectors is the number of entries in the vector index.
	Vectors int `json:"vectors"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns counts from the chunk store and vector index.
func (s *Server) handleStats(c *fiber.Ctx) error {
	ctx := c.Context()

	chunks, err := s.config.Store.Count(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to count chunks"})
	}

	vectors, err := s.config.Vectors.Count(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to count vectors"})
	}

	return c.JSON(StatsResponse{
		Chunks:  chunks,
		Vectors: vectors,
	})
}
