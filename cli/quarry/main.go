package main

import (
	"os"

	quarrycmder "github.com/quarrylabs/quarry/cmd/quarry"
)

func main() {
	cmd := quarrycmder.NewQuarryCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
