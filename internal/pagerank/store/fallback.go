package store

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/pagerank"
)

// ScoreSource yields the stored scores of one method. *Store satisfies it.
type ScoreSource interface {
	LoadScores(ctx context.Context, method pagerank.Method) (map[string]float64, error)
}

// LoadWithFallback reads the scores of method from src, then from the scores
// file when src is nil, fails or holds no rows for method. A failing src is
// logged, not returned. It returns nil scores when neither yields any.
func LoadWithFallback(ctx context.Context, src ScoreSource, method pagerank.Method, file string) (map[string]float64, string, error) {
	if src != nil {
		scores, err := src.LoadScores(ctx, method)
		switch {
		case err != nil:
			slog.Warn("loading pagerank scores from postgres failed, using scores file",
				"method", string(method), "file", file, "error", err)
		case len(scores) > 0:
			return scores, "postgres", nil
		}
	}
	if file == "" {
		return nil, "", nil
	}
	scores, err := pagerank.LoadScores(file)
	if err != nil {
		return nil, "", err
	}
	return scores, "file", nil
}
