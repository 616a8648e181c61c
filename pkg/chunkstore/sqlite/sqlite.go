// Package sqlite provides a SQLite-backed chunkstore.Driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quarrylabs/quarry/pkg/chunk"
	"github.com/quarrylabs/quarry/pkg/chunkstore"
)

// Driver implements chunkstore.Driver on an append-only SQLite table.
type Driver struct {
	db *sql.DB
}

// NewDriver opens (or creates) the chunk database at dbPath. Use ":memory:"
// for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", chunkstore.ErrIO, err)
	}

	// A single connection keeps a ":memory:" database from being split
	// across pooled connections, each with its own empty schema.
	db.SetMaxOpenConns(1)

	// WAL keeps concurrent readers from observing a half-committed batch.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling WAL: %v", chunkstore.ErrIO, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL,
			page INTEGER NOT NULL,
			paragraph INTEGER NOT NULL,
			chunk_text TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating chunks table: %v", chunkstore.ErrIO, err)
	}

	return &Driver{db: db}, nil
}

// Append inserts the batch inside a single transaction, so either every
// chunk becomes durable or none do.
func (d *Driver) Append(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", chunkstore.ErrIO, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks(doc_id, page, paragraph, chunk_text) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("%w: preparing insert: %v", chunkstore.ErrIO, err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.DocID, c.Page, c.Paragraph, c.Text); err != nil {
			return fmt.Errorf("%w: inserting chunk %s: %v", chunkstore.ErrIO, c.ID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing batch: %v", chunkstore.ErrIO, err)
	}

	return nil
}

// All returns every chunk in insertion order.
func (d *Driver) All(ctx context.Context) ([]chunk.Chunk, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT doc_id, page, paragraph, chunk_text FROM chunks ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %v", chunkstore.ErrIO, err)
	}
	defer rows.Close()

	var chunks []chunk.Chunk
	for rows.Next() {
		var c chunk.Chunk
		if err := rows.Scan(&c.DocID, &c.Page, &c.Paragraph, &c.Text); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk: %v", chunkstore.ErrIO, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %v", chunkstore.ErrIO, err)
	}

	return chunks, nil
}

// Count returns the number of stored chunks.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %v", chunkstore.ErrIO, err)
	}
	return n, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ chunkstore.Driver = (*Driver)(nil)
