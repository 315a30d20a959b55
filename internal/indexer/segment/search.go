package segment

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/index"
)

// keyCompare orders the leading fields of two records.
type keyCompare func(a, b string) int

func compareNumeric(a, b string) int {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// lineFile is a file of newline-terminated records sorted by their leading
// field.
type lineFile struct {
	r         io.ReaderAt
	size      int64
	maxLine   int64
	threshold int64
}

// lineStart returns the offset of the first record starting at or after pos,
// or size when there is none.
func (f *lineFile) lineStart(pos int64) (int64, *bufio.Reader, error) {
	if pos <= 0 {
		return 0, bufio.NewReader(io.NewSectionReader(f.r, 0, f.size)), nil
	}
	if pos >= f.size {
		return f.size, nil, nil
	}
	br := bufio.NewReader(io.NewSectionReader(f.r, pos-1, f.size-pos+1))
	skipped, err := br.ReadString('\n')
	if err == io.EOF {
		return f.size, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	return pos - 1 + int64(len(skipped)), br, nil
}

// find looks up the record whose key equals target. Binary search narrows
// [lo, hi) around the start of the wanted record until it is at most
// threshold bytes wide, then a linear scan beginning maxLine bytes before lo
// finishes the job.
func (f *lineFile) find(target string, cmp keyCompare) (string, bool, error) {
	lo, hi := int64(0), f.size
	for hi-lo > f.threshold {
		mid := lo + (hi-lo)/2
		start, br, err := f.lineStart(mid)
		if err != nil {
			return "", false, err
		}
		if start >= hi {
			hi = mid
			continue
		}
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", false, err
		}
		line = strings.TrimSuffix(line, "\n")
		switch c := cmp(index.LineKey(line), target); {
		case c == 0:
			return line, true, nil
		case c < 0:
			lo = start + 1
		default:
			hi = mid
		}
	}
	return f.scan(max(0, lo-f.maxLine), target, cmp)
}

func (f *lineFile) scan(from int64, target string, cmp keyCompare) (string, bool, error) {
	start, _, err := f.lineStart(from)
	if err != nil || start >= f.size {
		return "", false, err
	}
	br := bufio.NewReaderSize(io.NewSectionReader(f.r, start, f.size-start), ioBufferSize)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			c := cmp(index.LineKey(line), target)
			if c == 0 {
				return line, true, nil
			}
			if c > 0 {
				return "", false, nil
			}
		}
		if err == io.EOF {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
	}
}

// readLine returns the record starting at offset.
func (f *lineFile) readLine(offset int64) (string, error) {
	br := bufio.NewReaderSize(io.NewSectionReader(f.r, offset, f.size-offset), ioBufferSize)
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}
