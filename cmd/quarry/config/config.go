// Package configcmder provides the config command for managing persistent
// quarry configuration stored in the .quarry/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent quarry configuration.

Configuration is stored as config.toml in the .quarry/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.path, storage.dsn,
  api.listen,
  vector_store.provider, vector_store.path, vector_store.target,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  answer.enabled, answer.provider, answer.model,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  ingest.watch_dir, ingest.workers, ingest.chunk_size, ingest.chunk_overlap

Use subcommands to get, set, or list configuration values:
  quarry config set <key> <value>    Set a configuration value
  quarry config get <key>            Get a configuration value
  quarry config list                 List all configuration values

Examples:
  quarry config set embedding.model nomic-embed-text
  quarry config set vector_store.provider chroma
  quarry config get embedding.model
  quarry config list`

const configShortDesc string = "Manage persistent quarry configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
