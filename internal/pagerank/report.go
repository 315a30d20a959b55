package pagerank

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/errors"
)

// Ranked is one page with its score.
type Ranked struct {
	Name  string
	Score float64
}

// Rank pairs scores with page names, sorted by descending score and then
// by name.
func Rank(g *Graph, scores []float64) []Ranked {
	out := make([]Ranked, len(scores))
	for i, s := range scores {
		out[i] = Ranked{Name: g.Name(i), Score: s}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// WriteScores writes one "documentNumber score" line per page.
func WriteScores(w io.Writer, ranked []Ranked) error {
	bw := bufio.NewWriter(w)
	for _, r := range ranked {
		bw.WriteString(r.Name)
		bw.WriteByte(' ')
		bw.WriteString(strconv.FormatFloat(r.Score, 'g', -1, 64))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteReport writes the top n pages as "rank: documentNumber score".
func WriteReport(w io.Writer, ranked []Ranked, n int) error {
	if n > len(ranked) || n <= 0 {
		n = len(ranked)
	}
	bw := bufio.NewWriter(w)
	for i, r := range ranked[:n] {
		fmt.Fprintf(bw, "%d: %s %s\n", i+1, r.Name, strconv.FormatFloat(r.Score, 'g', -1, 64))
	}
	return bw.Flush()
}

// SaveFile writes through fn into a temporary file next to path and renames
// it into place.
func SaveFile(path string, fn func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}

// ReadScores parses "documentNumber score" lines.
func ReadScores(r io.Reader, name string) (map[string]float64, error) {
	scores := make(map[string]float64)
	err := scanLines(r, name, func(line string) error {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return apperrors.Malformed(name, line, "expected documentNumber score")
		}
		s, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return apperrors.Malformed(name, line, "bad score")
		}
		scores[fields[0]] = s
		return nil
	})
	return scores, err
}

// ReadTitles parses "documentNumber;title" lines into a title → number map.
func ReadTitles(r io.Reader, name string) (map[string]string, error) {
	numbers := make(map[string]string)
	err := scanLines(r, name, func(line string) error {
		number, title, ok := strings.Cut(line, ";")
		if !ok || number == "" {
			return apperrors.Malformed(name, line, "expected documentNumber;title")
		}
		numbers[title] = number
		return nil
	})
	return numbers, err
}

// LoadScores reads a scores file written by WriteScores.
func LoadScores(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scores file: %w", err)
	}
	defer f.Close()
	return ReadScores(f, path)
}

// LoadTitles reads a titles file.
func LoadTitles(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening titles file: %w", err)
	}
	defer f.Close()
	return ReadTitles(f, path)
}

func scanLines(r io.Reader, name string, fn func(line string) error) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	return nil
}
