// Package searchcmder provides the search command for querying the corpus.
package searchcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	answerutils "github.com/quarrylabs/quarry/pkg/answer/utils"
	"github.com/quarrylabs/quarry/pkg/cliui"
	"github.com/quarrylabs/quarry/pkg/config"
	embeddingutils "github.com/quarrylabs/quarry/pkg/embeddings/utils"
	"github.com/quarrylabs/quarry/pkg/logger"
	"github.com/quarrylabs/quarry/pkg/retrieval"
	vectorutils "github.com/quarrylabs/quarry/pkg/vector/utils"
)

type searchCommander struct {
	vectorProv  string
	vectorPath  string
	embedProv   string
	embedTarget string
	embedModel  string
	embedDims   uint
	topK        int
	answerFlag  bool
	debug       bool
	logger      *zap.Logger
}

const searchLongDesc string = `Search the ingested corpus.

Embeds the query, finds the most similar chunks in the vector index, and
prints them with their source document, page, paragraph and similarity
score. With --answer, an answer is synthesized from the retrieved chunks.

Examples:
  quarry search "how do I reset the filter"
  quarry search --top-k 5 --answer "what does the warning light mean"`

const searchShortDesc string = "Search the ingested corpus"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
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

			return cmder.run(cfg, strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, fs, config.FlagVectorStorePath, &cmder.vectorPath)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingProv, &cmder.embedProv)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, fs, config.FlagEmbeddingDims, &cmder.embedDims)

	cmd.Flags().IntVarP(&cmder.topK, "top-k", "k", retrieval.DefaultTopK, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.answerFlag, "answer", "a", false, "Synthesize an answer from the results")

	return cmd
}

func (c *searchCommander) run(cfg *config.Config, query string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	ctx := context.Background()

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

	retriever := retrieval.NewRetriever(embedder, vectors, c.logger)

	matches, err := retriever.QueryTopK(ctx, query, c.topK)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(matches) == 0 {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No results found."))
		return nil
	}

	fmt.Println()
	for i, m := range matches {
		fmt.Printf("  %d. %s %s\n",
			i+1,
			cliui.KeyStyle.Render(m.Source()),
			cliui.ScoreStyle.Render(fmt.Sprintf("(score %.4f)", m.Score)),
		)
		fmt.Printf("     %s\n\n", m.Text)
	}

	if !c.answerFlag {
		return nil
	}

	generator, err := answerutils.NewGenerator(&answerutils.NewGeneratorOpts{
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

	synthesized, err := generator.Answer(ctx, query, matches)
	if err != nil {
		return fmt.Errorf("synthesizing answer: %w", err)
	}

	rendered, err := cliui.RenderMarkdown(synthesized)
	if err != nil {
		rendered = synthesized
	}
	fmt.Println(rendered)

	return nil
}
