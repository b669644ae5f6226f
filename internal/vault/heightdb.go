package vault

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Paintersrp/anvil/internal/block"
)

const heightSchema = `
CREATE TABLE IF NOT EXISTS block_heights (
	doc        TEXT    NOT NULL,
	block_id   INTEGER NOT NULL,
	height     REAL    NOT NULL,
	source     TEXT    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (doc, block_id)
);`

// HeightDB is the sqlite sidecar persisting measured block heights
// between sessions, keyed by vault-relative document path and block id.
type HeightDB struct {
	db *sql.DB
}

// OpenHeightDB opens (creating if needed) the sidecar under dir/.anvil.
func OpenHeightDB(dir string) (*HeightDB, error) {
	side := filepath.Join(dir, ".anvil")
	if err := os.MkdirAll(side, 0o755); err != nil {
		return nil, fmt.Errorf("create sidecar dir: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(side, "heights.db"))
	if err != nil {
		return nil, fmt.Errorf("open height db: %w", err)
	}
	if _, err := db.Exec(heightSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init height schema: %w", err)
	}
	return &HeightDB{db: db}, nil
}

// Load returns the persisted heights for one document.
func (h *HeightDB) Load(doc string) (map[int64]float64, error) {
	rows, err := h.db.Query(
		`SELECT block_id, height FROM block_heights WHERE doc = ?`, doc,
	)
	if err != nil {
		return nil, fmt.Errorf("load heights for %s: %w", doc, err)
	}
	defer rows.Close()

	out := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var height float64
		if err := rows.Scan(&id, &height); err != nil {
			return nil, err
		}
		out[id] = height
	}
	return out, rows.Err()
}

// Put upserts a batch of height entries in one transaction. Writing the
// same height twice is idempotent, which is what makes the feedback
// loop's at-least-once delivery safe.
func (h *HeightDB) Put(doc string, entries []block.HeightEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := h.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO block_heights (doc, block_id, height, source, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (doc, block_id) DO UPDATE SET
			height = excluded.height,
			source = excluded.source,
			updated_at = excluded.updated_at`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(doc, e.BlockID, e.Height, string(e.Source), e.At.Unix()); err != nil {
			tx.Rollback()
			return fmt.Errorf("persist height for block %d: %w", e.BlockID, err)
		}
	}
	return tx.Commit()
}

// Forget drops all persisted heights for a document.
func (h *HeightDB) Forget(doc string) error {
	_, err := h.db.Exec(`DELETE FROM block_heights WHERE doc = ?`, doc)
	return err
}

func (h *HeightDB) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}
