package api

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/chunk"
	"github.com/quarrylabs/quarry/pkg/extract"
	"github.com/quarrylabs/quarry/pkg/ingest/worker"
)

// UploadResponse is the JSON body for POST /v1/documents. Ingestion is
// asynchronous: chunks are queued here and become searchable once a worker
// commits them.
type UploadResponse struct {
	DocID  string `json:"doc_id"`
	Chunks int    `json:"chunks"`
	Queued bool   `json:"queued"`
}

// handleUpload handles POST /v1/documents multipart uploads. The form field
// "file" carries the document; its filename becomes the doc_id.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "multipart form field 'file' is required",
		})
	}

	if !extract.Supported(fileHeader.Filename) {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(ErrorResponse{
			Error: "unsupported document format: " + fileHeader.Filename,
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to open upload"})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read upload"})
	}

	pages, err := extract.Bytes(fileHeader.Filename, data)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(ErrorResponse{Error: err.Error()})
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error: "failed to extract document text",
		})
	}

	docID := fileHeader.Filename

	var chunks []chunk.Chunk
	if extract.PageAccurate(docID) {
		chunks = s.config.Chunker.SplitPages(docID, pages)
	} else {
		chunks = s.config.Chunker.Split(docID, pages[0])
	}

	if len(chunks) == 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error: "document contains no extractable text",
		})
	}

	queued := s.config.Pool.Enqueue(worker.Job{DocID: docID, Chunks: chunks})
	if !queued {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "ingest queue is full, try again later",
		})
	}

	s.logger.Info("document accepted",
		zap.String("doc_id", docID),
		zap.Int("chunks", len(chunks)),
	)

	return c.Status(fiber.StatusAccepted).JSON(UploadResponse{
		DocID:  docID,
		Chunks: len(chunks),
		Queued: true,
	})
}
