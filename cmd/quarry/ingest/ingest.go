// Package ingestcmder provides the ingest command for loading documents from
// the command line.
package ingestcmder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/chunk"
	chunkstoreutils "github.com/quarrylabs/quarry/pkg/chunkstore/utils"
	"github.com/quarrylabs/quarry/pkg/cliui"
	"github.com/quarrylabs/quarry/pkg/config"
	embeddingutils "github.com/quarrylabs/quarry/pkg/embeddings/utils"
	"github.com/quarrylabs/quarry/pkg/extract"
	"github.com/quarrylabs/quarry/pkg/ingest"
	"github.com/quarrylabs/quarry/pkg/logger"
	vectorutils "github.com/quarrylabs/quarry/pkg/vector/utils"
)

type ingestCommander struct {
	storageProv string
	storagePath string
	storageDSN  string
	vectorProv  string
	vectorPath  string
	embedProv   string
	embedTarget string
	embedModel  string
	embedDims   uint
	debug       bool
	logger      *zap.Logger
}

const ingestLongDesc string = `Ingest documents into the quarry corpus.

Each file is chunked, embedded, and committed to both the chunk store and
the vector index. Supported formats: .txt, .md, .pdf.

Examples:
  quarry ingest manual.pdf
  quarry ingest docs/*.md`

const ingestShortDesc string = "Ingest documents into the corpus"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "ingest <files...>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, fs, []string{
				config.FlagStorageProv,
				config.FlagStoragePath,
				config.FlagStorageDSN,
				config.FlagVectorStoreProv,
				config.FlagVectorStorePath,
				config.FlagEmbeddingProv,
				config.FlagEmbeddingTgt,
				config.FlagEmbeddingModel,
				config.FlagEmbeddingDims,
			})

			cfg := config.FromViper(v)
			if err := config.ResolveStorePaths(cfg, configDir); err != nil {
				return err
			}

			return cmder.run(cfg, args)
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagStorageProv, &cmder.storageProv)
	config.AddStringFlag(cmd, fs, config.FlagStoragePath, &cmder.storagePath)
	config.AddStringFlag(cmd, fs, config.FlagStorageDSN, &cmder.storageDSN)
	config.AddStringFlag(cmd, fs, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, fs, config.FlagVectorStorePath, &cmder.vectorPath)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingProv, &cmder.embedProv)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, fs, config.FlagEmbeddingDims, &cmder.embedDims)

	return cmd
}

func (c *ingestCommander) run(cfg *config.Config, files []string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	ctx := context.Background()

	store, err := chunkstoreutils.NewChunkStore(ctx, &chunkstoreutils.NewChunkStoreOpts{
		ProviderType: cfg.Storage.Provider,
		Path:         cfg.Storage.Path,
		DSN:          cfg.Storage.DSN,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating chunk store: %w", err)
	}
	defer store.Close()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		APIKey:       cfg.Embedding.APIKey,
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	vectors, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    cfg.VectorStore.Target,
		Host:         cfg.VectorStore.Host,
		Port:         cfg.VectorStore.Port,
		APIKey:       cfg.VectorStore.APIKey,
		Collection:   cfg.VectorStore.Collection,
		Path:         cfg.VectorStore.Path,
		Dimensions:   embedder.Dimensions(),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector driver: %w", err)
	}
	defer vectors.Close()

	pipeline, err := ingest.NewPipeline(ingest.Config{
		Store:    store,
		Embedder: embedder,
		Vectors:  vectors,
		Chunker: chunk.Chunker{
			Size:    cfg.Ingest.ChunkSize,
			Overlap: cfg.Ingest.ChunkOverlap,
		},
		Model:  cfg.Embedding.Model,
		Logger: c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating ingest pipeline: %w", err)
	}

	total := 0
	for _, path := range files {
		docID := filepath.Base(path)

		var count int
		err := cliui.Step(os.Stdout, fmt.Sprintf("Ingesting %s", docID), func() error {
			pages, err := extract.File(path)
			if err != nil {
				return err
			}

			if extract.PageAccurate(path) {
				count, err = pipeline.IngestPages(ctx, docID, pages)
			} else {
				count, err = pipeline.IngestText(ctx, docID, pages[0])
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		total += count
	}

	fmt.Printf("\n  %s Ingested %d chunks from %d documents\n\n",
		cliui.SuccessMark, total, len(files))
	return nil
}
