// Package sqlite persists the per-chunk audit table so longitudinal
// pipelines can inspect update history without loading model snapshots.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"github.com/cran/rollinglda/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunk_log (
	model_id    TEXT NOT NULL,
	chunk_id    INTEGER NOT NULL,
	start_date  TEXT NOT NULL,
	end_date    TEXT NOT NULL,
	memory_date TEXT NOT NULL,
	n_new       INTEGER NOT NULL,
	n_discarded INTEGER NOT NULL,
	n_memory    INTEGER NOT NULL,
	n_vocab     INTEGER NOT NULL,
	PRIMARY KEY (model_id, chunk_id)
);`

// Store writes chunk records to a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dsn and ensures the
// chunk_log table exists. Use ":memory:" for an ephemeral store.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create chunk_log: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveChunkLog upserts the records for the given model.
func (s *Store) SaveChunkLog(ctx context.Context, modelID string, records []domain.ChunkRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_log
			(model_id, chunk_id, start_date, end_date, memory_date, n_new, n_discarded, n_memory, n_vocab)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (model_id, chunk_id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			memory_date = excluded.memory_date,
			n_new = excluded.n_new,
			n_discarded = excluded.n_discarded,
			n_memory = excluded.n_memory,
			n_vocab = excluded.n_vocab`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, modelID, r.ChunkID,
			fmtDate(r.StartDate), fmtDate(r.EndDate), fmtDate(r.MemoryDate),
			r.NNew, r.NDiscarded, r.NMemory, r.NVocab); err != nil {
			tx.Rollback()
			return fmt.Errorf("chunk %d: %w", r.ChunkID, err)
		}
	}
	return tx.Commit()
}

// LoadChunkLog reads the records for the given model in chunk order.
func (s *Store) LoadChunkLog(ctx context.Context, modelID string) ([]domain.ChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, start_date, end_date, memory_date, n_new, n_discarded, n_memory, n_vocab
		FROM chunk_log WHERE model_id = ? ORDER BY chunk_id`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ChunkRecord
	for rows.Next() {
		var r domain.ChunkRecord
		var start, end, memory string
		if err := rows.Scan(&r.ChunkID, &start, &end, &memory,
			&r.NNew, &r.NDiscarded, &r.NMemory, &r.NVocab); err != nil {
			return nil, err
		}
		if r.StartDate, err = parseDate(start); err != nil {
			return nil, err
		}
		if r.EndDate, err = parseDate(end); err != nil {
			return nil, err
		}
		if r.MemoryDate, err = parseDate(memory); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return domain.Day(t), nil
}
