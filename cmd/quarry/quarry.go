// Package quarrycmder
package quarrycmder

import (
	configcmder "github.com/quarrylabs/quarry/cmd/quarry/config"
	ingestcmder "github.com/quarrylabs/quarry/cmd/quarry/ingest"
	searchcmder "github.com/quarrylabs/quarry/cmd/quarry/search"
	servecmder "github.com/quarrylabs/quarry/cmd/quarry/serve"
	versioncmder "github.com/quarrylabs/quarry/cmd/version"
	"github.com/spf13/cobra"
)

const quarryLongDesc string = `Quarry is a document retrieval engine for grounding language models.

Ingest documents into a searchable corpus and retrieve the most relevant
passages for a query:
  quarry serve             Run the API server
  quarry ingest <files>    Ingest documents from the command line
  quarry search <query>    Search the ingested corpus`

const quarryShortDesc string = "Quarry - Document Retrieval"

func NewQuarryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quarry",
		Short: quarryShortDesc,
		Long:  quarryLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .quarry config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
