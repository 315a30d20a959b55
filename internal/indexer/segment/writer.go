package segment

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/index"
)

const ioBufferSize = 64 * 1024

// Writer spills index blocks and turns them into the canonical files of a
// Layout.
type Writer struct {
	layout Layout
	logger *slog.Logger
}

func NewWriter(layout Layout) *Writer {
	return &Writer{
		layout: layout,
		logger: slog.Default().With("component", "segment-writer"),
	}
}

func (w *Writer) Layout() Layout {
	return w.layout
}

// WriteBlock writes terms in ascending byte order to block blockID. The file
// appears atomically under its final name.
func (w *Writer) WriteBlock(terms map[string]*index.PostingsList, blockID int) error {
	keys := make([]string, 0, len(terms))
	for term := range terms {
		keys = append(keys, term)
	}
	sort.Strings(keys)

	err := writeAtomic(w.layout.Block(blockID), func(bw *bufio.Writer) error {
		for _, term := range keys {
			if _, err := bw.WriteString(index.EncodeLine(term, terms[term])); err != nil {
				return err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing block %d: %w", blockID, err)
	}
	w.logger.Debug("block written", "block", blockID, "terms", len(keys))
	return nil
}

// AppendPaths appends "docID path" records in ascending docID order. Doc ids
// grow across blocks, so the file stays sorted numerically.
func (w *Writer) AppendPaths(paths map[int]string) error {
	if w.layout.Paths == "" || len(paths) == 0 {
		return nil
	}
	ids := make([]int, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	if err := os.MkdirAll(w.layout.Dir, 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	f, err := os.OpenFile(w.layout.Paths, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening path file: %w", err)
	}
	bw := bufio.NewWriterSize(f, ioBufferSize)
	for _, id := range ids {
		fmt.Fprintf(bw, "%d %s\n", id, paths[id])
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing path file: %w", err)
	}
	return f.Close()
}

// WriteLengths stores the token count of every document.
func (w *Writer) WriteLengths(lengths map[int]int) error {
	if w.layout.Lengths == "" {
		return nil
	}
	ids := make([]int, 0, len(lengths))
	for id := range lengths {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return writeAtomic(w.layout.Lengths, func(bw *bufio.Writer) error {
		for _, id := range ids {
			if _, err := fmt.Fprintf(bw, "%d %d\n", id, lengths[id]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Reset removes the canonical files so a rebuild starts from scratch.
func (w *Writer) Reset() error {
	var result error
	for _, name := range []string{w.layout.Postings, w.layout.Offsets, w.layout.Paths, w.layout.Lengths} {
		if name == "" {
			continue
		}
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// MergeBlocks folds blocks 0..n-1 into the canonical postings file with n-1
// pairwise merges: block 0 with block 1 into merge 1, then merge i-1 with
// block i into merge i. Consumed inputs are removed.
func (w *Writer) MergeBlocks(n int) error {
	switch {
	case n < 0:
		return fmt.Errorf("negative block count %d", n)
	case n == 0:
		return writeAtomic(w.layout.Postings, func(*bufio.Writer) error { return nil })
	case n == 1:
		if err := os.Rename(w.layout.Block(0), w.layout.Postings); err != nil {
			return fmt.Errorf("renaming single block: %w", err)
		}
		return nil
	}

	prev := w.layout.Block(0)
	for i := 1; i < n; i++ {
		out := w.layout.Merge(i)
		if err := mergeFiles(prev, w.layout.Block(i), out); err != nil {
			return multierror.Append(fmt.Errorf("merging block %d: %w", i, err), w.cleanup(n))
		}
		if err := removeAll(prev, w.layout.Block(i)); err != nil {
			return err
		}
		w.logger.Debug("blocks merged", "step", i, "output", out)
		prev = out
	}
	if err := os.Rename(prev, w.layout.Postings); err != nil {
		return fmt.Errorf("renaming final merge: %w", err)
	}
	w.logger.Info("blocks merged", "blocks", n, "postings", w.layout.Postings)
	return nil
}

// cleanup removes every block and intermediate merge file left after a
// failed merge.
func (w *Writer) cleanup(n int) error {
	var names []string
	for i := 0; i < n; i++ {
		names = append(names, w.layout.Block(i), w.layout.Merge(i))
	}
	return removeAll(names...)
}

func removeAll(names ...string) error {
	var result error
	for _, name := range names {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// mergeFiles performs a two-pointer merge of two sorted postings files.
// Records with the same term are concatenated, with the entries of a first.
func mergeFiles(a, b, out string) error {
	fa, err := os.Open(a)
	if err != nil {
		return err
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return err
	}
	defer fb.Close()

	ra := newLineReader(fa)
	rb := newLineReader(fb)
	return writeAtomic(out, func(bw *bufio.Writer) error {
		la, okA, err := ra.next()
		if err != nil {
			return err
		}
		lb, okB, err := rb.next()
		if err != nil {
			return err
		}
		for okA || okB {
			var line string
			switch {
			case !okB:
				line = la
				la, okA, err = ra.next()
			case !okA:
				line = lb
				lb, okB, err = rb.next()
			default:
				ka, kb := index.LineKey(la), index.LineKey(lb)
				switch c := strings.Compare(ka, kb); {
				case c < 0:
					line = la
					la, okA, err = ra.next()
				case c > 0:
					line = lb
					lb, okB, err = rb.next()
				default:
					line = la + lb[len(kb):]
					if la, okA, err = ra.next(); err != nil {
						return err
					}
					lb, okB, err = rb.next()
				}
			}
			if err != nil {
				return err
			}
			if _, err := bw.WriteString(line); err != nil {
				return err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateOffsetIndex writes "term byteOffset" for every record of the
// canonical postings file.
func (w *Writer) CreateOffsetIndex() error {
	f, err := os.Open(w.layout.Postings)
	if err != nil {
		return fmt.Errorf("opening postings file: %w", err)
	}
	defer f.Close()

	lr := newLineReader(f)
	terms := 0
	err = writeAtomic(w.layout.Offsets, func(bw *bufio.Writer) error {
		for {
			offset := lr.offset
			line, ok, err := lr.next()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			bw.WriteString(index.LineKey(line))
			bw.WriteByte(' ')
			if _, err := bw.WriteString(strconv.FormatInt(offset, 10)); err != nil {
				return err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
			terms++
		}
	})
	if err != nil {
		return fmt.Errorf("creating offset index: %w", err)
	}
	w.logger.Info("offset index created", "terms", terms, "file", w.layout.Offsets)
	return nil
}

// writeAtomic writes name through a temp file that is renamed on success.
func writeAtomic(name string, fill func(*bufio.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return err
	}
	tmp := name + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(f, ioBufferSize)
	if err := fill(bw); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, name)
}

// lineReader yields newline-terminated records and tracks the byte offset
// of the next one.
type lineReader struct {
	br     *bufio.Reader
	offset int64
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReaderSize(r, ioBufferSize)}
}

func (r *lineReader) next() (string, bool, error) {
	line, err := r.br.ReadString('\n')
	r.offset += int64(len(line))
	if err != nil && err != io.EOF {
		return "", false, err
	}
	if line == "" && err == io.EOF {
		return "", false, nil
	}
	return strings.TrimSuffix(line, "\n"), true, nil
}
