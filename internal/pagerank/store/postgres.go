// Package store persists PageRank scores in PostgreSQL so that query servers
// can load them without access to the scores file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/pagerank"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS pagerank_scores (
    method     TEXT NOT NULL,
    doc_number TEXT NOT NULL,
    score      DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (method, doc_number)
)`

// Store reads and writes the pagerank_scores table.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "pagerank-store"),
	}
}

// EnsureSchema creates the scores table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating pagerank_scores: %w", err)
	}
	return nil
}

// SaveScores replaces the scores of method in one transaction, bulk loading
// them with COPY.
func (s *Store) SaveScores(ctx context.Context, method pagerank.Method, ranked []pagerank.Ranked) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pagerank_scores WHERE method = $1`, string(method)); err != nil {
			return fmt.Errorf("clearing scores: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("pagerank_scores", "method", "doc_number", "score"))
		if err != nil {
			return fmt.Errorf("preparing copy: %w", err)
		}
		for _, r := range ranked {
			if _, err := stmt.ExecContext(ctx, string(method), r.Name, r.Score); err != nil {
				stmt.Close()
				return fmt.Errorf("copying score of %s: %w", r.Name, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing copy: %w", err)
		}
		return stmt.Close()
	})
	if err != nil {
		return err
	}
	s.logger.Info("pagerank scores saved", "method", string(method), "count", len(ranked))
	return nil
}

// LoadScores returns documentNumber → score for method.
func (s *Store) LoadScores(ctx context.Context, method pagerank.Method) (map[string]float64, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT doc_number, score FROM pagerank_scores WHERE method = $1`,
		string(method),
	)
	if err != nil {
		return nil, fmt.Errorf("querying scores: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var number string
		var score float64
		if err := rows.Scan(&number, &score); err != nil {
			return nil, fmt.Errorf("scanning score row: %w", err)
		}
		scores[number] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating score rows: %w", err)
	}
	return scores, nil
}
