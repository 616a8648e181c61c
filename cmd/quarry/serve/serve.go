// Package servecmder provides the serve command for running the quarry API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/api"
	"github.com/quarrylabs/quarry/api/mcp"
	"github.com/quarrylabs/quarry/pkg/answer"
	answerutils "github.com/quarrylabs/quarry/pkg/answer/utils"
	"github.com/quarrylabs/quarry/pkg/chunk"
	chunkstoreutils "github.com/quarrylabs/quarry/pkg/chunkstore/utils"
	"github.com/quarrylabs/quarry/pkg/config"
	embeddingutils "github.com/quarrylabs/quarry/pkg/embeddings/utils"
	"github.com/quarrylabs/quarry/pkg/eventstream"
	"github.com/quarrylabs/quarry/pkg/eventstream/kafka"
	"github.com/quarrylabs/quarry/pkg/eventstream/nop"
	"github.com/quarrylabs/quarry/pkg/ingest"
	"github.com/quarrylabs/quarry/pkg/ingest/watcher"
	"github.com/quarrylabs/quarry/pkg/ingest/worker"
	"github.com/quarrylabs/quarry/pkg/logger"
	"github.com/quarrylabs/quarry/pkg/retrieval"
	vectorutils "github.com/quarrylabs/quarry/pkg/vector/utils"
)

type ServeCommander struct {
	listen       string
	storageProv  string
	storagePath  string
	storageDSN   string
	vectorProv   string
	vectorPath   string
	vectorTarget string
	embedProv    string
	embedTarget  string
	embedModel   string
	embedDims    uint
	watchDir     string
	workers      uint
	debug        bool
	logger       *zap.Logger
}

const serveLongDesc string = `Run the Quarry API server.

Serves document ingestion and semantic search over HTTP, with an MCP
endpoint mounted at /mcp for agent integrations. When a watch directory
is configured, documents dropped into it are ingested automatically.`

const serveShortDesc string = "Run the Quarry API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
				config.FlagAPIListen,
				config.FlagStorageProv,
				config.FlagStoragePath,
				config.FlagStorageDSN,
				config.FlagVectorStoreProv,
				config.FlagVectorStorePath,
				config.FlagVectorStoreTgt,
				config.FlagEmbeddingProv,
				config.FlagEmbeddingTgt,
				config.FlagEmbeddingModel,
				config.FlagEmbeddingDims,
				config.FlagWatchDir,
				config.FlagWorkers,
			})

			cfg := config.FromViper(v)
			if err := config.ResolveStorePaths(cfg, configDir); err != nil {
				return err
			}

			return cmder.run(cfg)
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, fs, config.FlagStorageProv, &cmder.storageProv)
	config.AddStringFlag(cmd, fs, config.FlagStoragePath, &cmder.storagePath)
	config.AddStringFlag(cmd, fs, config.FlagStorageDSN, &cmder.storageDSN)
	config.AddStringFlag(cmd, fs, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, fs, config.FlagVectorStorePath, &cmder.vectorPath)
	config.AddStringFlag(cmd, fs, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingProv, &cmder.embedProv)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, fs, config.FlagEmbeddingDims, &cmder.embedDims)
	config.AddStringFlag(cmd, fs, config.FlagWatchDir, &cmder.watchDir)
	config.AddUintFlag(cmd, fs, config.FlagWorkers, &cmder.workers)

	return cmd
}

func (c *ServeCommander) run(cfg *config.Config) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	ctx := context.Background()

	// Chunk store
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

	// Embedder
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

	// Vector index
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

	// Event stream publisher
	publisher, err := c.newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	chunker := chunk.Chunker{
		Size:    cfg.Ingest.ChunkSize,
		Overlap: cfg.Ingest.ChunkOverlap,
	}

	pipeline, err := ingest.NewPipeline(ingest.Config{
		Store:     store,
		Embedder:  embedder,
		Vectors:   vectors,
		Publisher: publisher,
		Chunker:   chunker,
		Model:     cfg.Embedding.Model,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating ingest pipeline: %w", err)
	}

	pool, err := worker.NewPool(&worker.Config{
		Pipeline:   pipeline,
		NumWorkers: cfg.Ingest.Workers,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	retriever := retrieval.NewRetriever(embedder, vectors, c.logger)

	// Answer generator (optional)
	var generator answer.Generator
	if cfg.Answer.Enabled {
		generator, err = answerutils.NewGenerator(&answerutils.NewGeneratorOpts{
			ProviderType: cfg.Answer.Provider,
			TargetURL:    cfg.Answer.Target,
			APIKey:       cfg.Answer.APIKey,
			Model:        cfg.Answer.Model,
			Logger:       c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating answer generator: %w", err)
		}
		defer generator.Close()
	}

	// Directory watcher (optional)
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	if cfg.Ingest.WatchDir != "" {
		w, err := watcher.NewWatcher(watcher.Config{
			Dir:     cfg.Ingest.WatchDir,
			Pool:    pool,
			Chunker: chunker,
			Logger:  c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		defer w.Close()

		go func() {
			if err := w.Run(watchCtx); err != nil {
				c.logger.Error("watcher stopped", zap.Error(err))
			}
		}()

		c.logger.Info("watching directory for documents",
			zap.String("dir", cfg.Ingest.WatchDir),
		)
	}

	// API server with the MCP endpoint mounted
	server := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
		Retriever:  retriever,
		Pool:       pool,
		Store:      store,
		Vectors:    vectors,
		Generator:  generator,
		Chunker:    chunker,
	}, c.logger)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Retriever: retriever,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}
	server.MountMCP("/mcp", mcpServer.Handler())

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

func (c *ServeCommander) newPublisher(cfg *config.Config) (eventstream.Publisher, error) {
	switch cfg.EventStream.Provider {
	case "kafka":
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.EventStream.Brokers,
			Topic:   cfg.EventStream.Topic,
		}, c.logger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		c.logger.Info("publishing ingest events to kafka",
			zap.Strings("brokers", cfg.EventStream.Brokers),
		)
		return pub, nil
	case "", "nop":
		return nop.NewPublisher(), nil
	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", cfg.EventStream.Provider)
	}
}
