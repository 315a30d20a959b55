package segment

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/errors"
)

// Reader serves postings and document paths from the canonical files of a
// Layout. It is safe for concurrent use.
type Reader struct {
	postings *os.File
	offsets  *os.File
	paths    *os.File

	postingsFile lineFile
	offsetFile   lineFile
	pathFile     lineFile
}

// OpenReader opens the postings and offset files of layout, and its path
// file when the layout names one.
func OpenReader(layout Layout, cfg config.IndexConfig) (*Reader, error) {
	r := &Reader{}
	var err error
	if r.postings, r.postingsFile, err = openLineFile(layout.Postings, cfg); err != nil {
		return nil, err
	}
	if r.offsets, r.offsetFile, err = openLineFile(layout.Offsets, cfg); err != nil {
		r.Close()
		return nil, err
	}
	if layout.Paths != "" {
		if r.paths, r.pathFile, err = openLineFile(layout.Paths, cfg); err != nil {
			r.Close()
			return nil, err
		}
	}
	return r, nil
}

func openLineFile(name string, cfg config.IndexConfig) (*os.File, lineFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, lineFile{}, fmt.Errorf("opening %s: %w", name, apperrors.ErrIndexUnavailable)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, lineFile{}, fmt.Errorf("stat %s: %w", name, err)
	}
	return f, lineFile{
		r:         f,
		size:      info.Size(),
		maxLine:   int64(cfg.MaxLineSize),
		threshold: int64(cfg.ScanThreshold),
	}, nil
}

// PostingsListOffset returns the byte offset of term's record in the postings
// file.
func (r *Reader) PostingsListOffset(term string) (int64, bool, error) {
	line, ok, err := r.offsetFile.find(term, strings.Compare)
	if err != nil || !ok {
		return 0, false, err
	}
	_, raw, _ := strings.Cut(line, " ")
	offset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, apperrors.Malformed("offsets", line, "bad offset")
	}
	return offset, true, nil
}

// ReadPostingsList loads the postings of term, or returns nil when the term
// does not occur in the index.
func (r *Reader) ReadPostingsList(term string) (*index.PostingsList, error) {
	offset, ok, err := r.PostingsListOffset(term)
	if err != nil || !ok {
		return nil, err
	}
	if offset < 0 || offset >= r.postingsFile.size {
		return nil, apperrors.Malformed("offsets", term, "offset outside postings file")
	}
	line, err := r.postingsFile.readLine(offset)
	if err != nil {
		return nil, fmt.Errorf("reading postings of %q: %w", term, err)
	}
	key, pl, err := index.ParseLine(line)
	if err != nil {
		return nil, err
	}
	if key != term {
		return nil, apperrors.Malformed("postings", line, "offset points at "+key)
	}
	return pl, nil
}

// ReadFilePath resolves docID through the path file.
func (r *Reader) ReadFilePath(docID int) (string, bool, error) {
	if r.paths == nil {
		return "", false, nil
	}
	line, ok, err := r.pathFile.find(strconv.Itoa(docID), compareNumeric)
	if err != nil || !ok {
		return "", false, err
	}
	_, path, _ := strings.Cut(line, " ")
	return path, true, nil
}

func (r *Reader) Close() error {
	var result error
	for _, f := range []*os.File{r.postings, r.offsets, r.paths} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// ReadLengths loads the "docID length" table written by Writer.WriteLengths.
func ReadLengths(name string) (map[int]int, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening length file: %w", err)
	}
	defer f.Close()

	lengths := make(map[int]int)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		rawID, rawLen, ok := strings.Cut(line, " ")
		if !ok {
			return nil, apperrors.Malformed("lengths", line, "missing length")
		}
		id, err := strconv.Atoi(rawID)
		if err != nil {
			return nil, apperrors.Malformed("lengths", line, "bad document id")
		}
		n, err := strconv.Atoi(rawLen)
		if err != nil {
			return nil, apperrors.Malformed("lengths", line, "bad length")
		}
		lengths[id] = n
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading length file: %w", err)
	}
	return lengths, nil
}
