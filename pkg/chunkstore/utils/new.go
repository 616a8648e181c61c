// Package chunkstoreutils is the chunk store utility package
package chunkstoreutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/chunkstore"
	"github.com/quarrylabs/quarry/pkg/chunkstore/inmemory"
	"github.com/quarrylabs/quarry/pkg/chunkstore/jsonfile"
	"github.com/quarrylabs/quarry/pkg/chunkstore/postgres"
	"github.com/quarrylabs/quarry/pkg/chunkstore/sqlite"
)

type NewChunkStoreOpts struct {
	ProviderType string
	Path         string
	DSN          string
	Logger       *zap.Logger
}

func NewChunkStore(ctx context.Context, o *NewChunkStoreOpts) (chunkstore.Driver, error) {
	switch o.ProviderType {
	case "inmemory":
		return inmemory.NewDriver(), nil
	case "jsonfile":
		return jsonfile.NewDriver(jsonfile.Config{
			Path: o.Path,
		}, o.Logger)
	case "sqlite":
		return sqlite.NewDriver(o.Path)
	case "postgres":
		return postgres.NewDriver(ctx, o.DSN)
	default:
		return nil, fmt.Errorf("unsupported chunk store provider: %s", o.ProviderType)
	}
}
