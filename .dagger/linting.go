package main

import (
	"context"
	"fmt"

	"dagger/quarry/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// lintOpts returns the common GolangcilintOpts used by both CheckLint and FixLint.
// It layers golangci-lint on top of goContainer() so the sqlite dev headers,
// CGO, and Go caches are already in place.
func (q *Quarry) lintOpts() dagger.GolangcilintOpts {
	base := q.goContainer().
		WithExec([]string{
			"go",
			"install",
			fmt.Sprintf("github.com/golangci/golangci-lint/v2/cmd/golangci-lint@%s", golangciLintVersion),
		})

	return dagger.GolangcilintOpts{
		BaseCtr: base,
		Config:  q.Source.File(".golangci.yml"),
	}
}

// CheckLint runs golangci-lint against the quarry source code without applying fixes.
func (q *Quarry) CheckLint(ctx context.Context) (string, error) {
	return dag.Golangcilint(q.Source, q.lintOpts()).Check(ctx)
}

// FixLint runs golangci-lint against the quarry source code with --fix, applying
// automatic fixes where possible, and returns the modified source directory.
func (q *Quarry) FixLint(ctx context.Context) *dagger.Directory {
	return dag.Golangcilint(q.Source, q.lintOpts()).Lint()
}
