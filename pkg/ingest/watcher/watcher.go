// Package watcher monitors a drop directory and feeds newly written
// documents into the ingest worker pool.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/chunk"
	"github.com/quarrylabs/quarry/pkg/extract"
	"github.com/quarrylabs/quarry/pkg/ingest/worker"
)

// Watcher tails a directory with fsnotify and enqueues an ingest job for
// every supported document created or rewritten there. The file's base name
// becomes the doc_id.
type Watcher struct {
	watcher *fsnotify.Watcher
	pool    *worker.Pool
	chunker chunk.Chunker
	dir     string
	logger  *zap.Logger
}

// Config holds configuration for the directory watcher.
type Config struct {
	// Dir is the directory to monitor.
	Dir string

	// Pool receives an ingest job per document.
	Pool *worker.Pool

	// Chunker splits extracted text. Zero value uses the defaults.
	Chunker chunk.Chunker

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// NewWatcher creates a watcher over the configured directory.
func NewWatcher(c Config) (*Watcher, error) {
	if c.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	if c.Pool == nil {
		return nil, fmt.Errorf("worker pool is required")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fs watcher: %w", err)
	}

	if err := fsw.Add(c.Dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", c.Dir, err)
	}

	return &Watcher{
		watcher: fsw,
		pool:    c.Pool,
		chunker: c.Chunker,
		dir:     c.Dir,
		logger:  c.Logger,
	}, nil
}

// Run processes filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching for documents", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !extract.Supported(event.Name) {
				continue
			}
			w.enqueue(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// enqueue extracts and chunks one document, then hands it to the pool.
func (w *Watcher) enqueue(path string) {
	pages, err := extract.File(path)
	if err != nil {
		w.logger.Warn("failed to extract document",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}

	docID := filepath.Base(path)

	var chunks []chunk.Chunk
	if extract.PageAccurate(path) {
		chunks = w.chunker.SplitPages(docID, pages)
	} else {
		chunks = w.chunker.Split(docID, pages[0])
	}

	if len(chunks) == 0 {
		w.logger.Debug("document produced no chunks", zap.String("path", path))
		return
	}

	w.pool.Enqueue(worker.Job{DocID: docID, Chunks: chunks})
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
