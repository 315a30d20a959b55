package index

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
)

// Source resolves terms and document ids that are no longer resident.
// ReadPostingsList returns (nil, nil) for an absent term.
type Source interface {
	ReadPostingsList(term string) (*PostingsList, error)
	ReadFilePath(docID int) (string, bool, error)
}

// BlockWriter persists spilled parts of the index.
type BlockWriter interface {
	WriteBlock(terms map[string]*PostingsList, blockID int) error
	AppendPaths(paths map[int]string) error
}

// Stats reports cache residency and hit counters.
type Stats struct {
	ResidentTerms   int
	ResidentBigrams int
	ResidentPaths   int
	Hits            int64
	Misses          int64
}

// Index is the term → postings map used while building and while serving
// queries. Lists evicted or never loaded are fetched from the attached
// Source and cached with FIFO eviction.
type Index struct {
	mu  sync.Mutex
	cfg config.IndexConfig

	terms      map[string]*PostingsList
	bigrams    map[string]*PostingsList
	paths      map[int]string
	docLengths map[int]int
	docNumbers map[string]string
	pageRanks  map[string]float64

	termQueue   fifoQueue[string]
	bigramQueue fifoQueue[string]
	pathQueue   fifoQueue[int]

	unigrams      Source
	bigramSource  Source
	numDocs       int
	numBigramDocs int

	hits   atomic.Int64
	misses atomic.Int64
	logger *slog.Logger
}

func New(cfg config.IndexConfig) *Index {
	return &Index{
		cfg:        cfg,
		terms:      make(map[string]*PostingsList),
		bigrams:    make(map[string]*PostingsList),
		paths:      make(map[int]string),
		docLengths: make(map[int]int),
		docNumbers: make(map[string]string),
		pageRanks:  make(map[string]float64),
		logger:     slog.Default().With("component", "index"),
	}
}

// Insert records that term occurs in docID at position.
func (x *Index) Insert(term string, docID int, position int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	insertInto(x.terms, term, docID, position)
}

// InsertBigram records the bigram "prev,token" ending at position.
func (x *Index) InsertBigram(bigram string, docID int, position int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	insertInto(x.bigrams, bigram, docID, position)
}

func insertInto(m map[string]*PostingsList, term string, docID int, position int) {
	pl, ok := m[term]
	if !ok {
		pl = NewPostingsList()
		m[term] = pl
	}
	pl.InsertAt(docID, position)
}

// Postings returns the list for term, or nil when the term is unknown.
func (x *Index) Postings(term string) *PostingsList {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.lookup(term, x.terms, &x.termQueue, x.unigrams, x.numDocs)
}

// BigramPostings returns the list for a "prev,token" bigram.
func (x *Index) BigramPostings(bigram string) *PostingsList {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.lookup(bigram, x.bigrams, &x.bigramQueue, x.bigramSource, x.numBigramDocs)
}

func (x *Index) lookup(term string, m map[string]*PostingsList, q *fifoQueue[string], src Source, numDocs int) *PostingsList {
	if pl, ok := m[term]; ok {
		x.hits.Add(1)
		return pl
	}
	x.misses.Add(1)
	if x.cfg.KeepInMemory || src == nil {
		return nil
	}
	pl, err := src.ReadPostingsList(term)
	if err != nil {
		x.logger.Error("postings lookup failed", "term", term, "error", err)
		return nil
	}
	if pl == nil {
		return nil
	}
	ScoreList(pl, numDocs)
	admit(m, q, x.cfg.CacheMaxSize, term, pl)
	return pl
}

// Size is the number of distinct resident unigram terms.
func (x *Index) Size() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.terms)
}

// BigramSize is the number of distinct resident bigrams.
func (x *Index) BigramSize() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.bigrams)
}

// Dictionary returns the resident unigram terms in ascending order.
func (x *Index) Dictionary() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return sortedKeys(x.terms)
}

// BigramDictionary returns the resident bigram terms in ascending order.
func (x *Index) BigramDictionary() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return sortedKeys(x.bigrams)
}

func sortedKeys(m map[string]*PostingsList) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TransferToDisk hands the unigram and path maps to w as block blockID and
// clears them. On error the maps are left untouched.
func (x *Index) TransferToDisk(w BlockWriter, blockID int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := w.WriteBlock(x.terms, blockID); err != nil {
		return fmt.Errorf("spilling block %d: %w", blockID, err)
	}
	if err := w.AppendPaths(x.paths); err != nil {
		return fmt.Errorf("spilling paths of block %d: %w", blockID, err)
	}
	x.terms = make(map[string]*PostingsList)
	x.paths = make(map[int]string)
	x.termQueue.reset()
	x.pathQueue.reset()
	return nil
}

// TransferBigramsToDisk writes the bigram map as block blockID of the bigram
// layout and clears it.
func (x *Index) TransferBigramsToDisk(w BlockWriter, blockID int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := w.WriteBlock(x.bigrams, blockID); err != nil {
		return fmt.Errorf("spilling bigram block %d: %w", blockID, err)
	}
	x.bigrams = make(map[string]*PostingsList)
	x.bigramQueue.reset()
	return nil
}

// Attach wires the on-disk readers used for terms that are not resident.
// Either may be nil.
func (x *Index) Attach(unigrams Source, bigrams Source) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.unigrams = unigrams
	x.bigramSource = bigrams
}

// CalculateScores assigns tf-idf scores to every resident list.
func (x *Index) CalculateScores() {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, pl := range x.terms {
		ScoreList(pl, x.numDocs)
	}
	for _, pl := range x.bigrams {
		ScoreList(pl, x.numBigramDocs)
	}
}

func (x *Index) AddFilePath(docID int, path string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.paths[docID] = path
}

// SetFilePaths replaces the path map; every entry becomes evictable.
func (x *Index) SetFilePaths(paths map[int]string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.pathQueue.reset()
	for id := range paths {
		x.pathQueue.push(id)
	}
	x.paths = paths
}

// FilePath returns the path of docID, consulting the Source when the id is
// not cached.
func (x *Index) FilePath(docID int) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.filePath(docID)
}

func (x *Index) filePath(docID int) (string, bool) {
	if path, ok := x.paths[docID]; ok {
		return path, true
	}
	if x.unigrams == nil {
		return "", false
	}
	path, ok, err := x.unigrams.ReadFilePath(docID)
	if err != nil {
		x.logger.Error("path lookup failed", "doc_id", docID, "error", err)
		return "", false
	}
	if !ok {
		return "", false
	}
	admit(x.paths, &x.pathQueue, x.cfg.PathCacheMaxSize, docID, path)
	return path, true
}

func (x *Index) SetDocLength(docID int, length int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.docLengths[docID] = length
}

func (x *Index) DocLength(docID int) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.docLengths[docID]
}

func (x *Index) SetDocLengths(lengths map[int]int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.docLengths = lengths
}

// DocLengths returns a copy of the document length map.
func (x *Index) DocLengths() map[int]int {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make(map[int]int, len(x.docLengths))
	for k, v := range x.docLengths {
		out[k] = v
	}
	return out
}

func (x *Index) SetNumDocs(n int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.numDocs = n
}

func (x *Index) NumDocs() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.numDocs
}

func (x *Index) SetNumBigramDocs(n int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.numBigramDocs = n
}

// SetDocNumbers installs the title → link-graph number table.
func (x *Index) SetDocNumbers(numbers map[string]string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.docNumbers = numbers
}

// SetPageRanks installs the link-graph number → PageRank table.
func (x *Index) SetPageRanks(scores map[string]float64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.pageRanks = scores
}

// PageRank resolves docID to its link-graph document and returns its score,
// or 0 when any step of the chain is missing.
func (x *Index) PageRank(docID int) float64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	path, ok := x.filePath(docID)
	if !ok {
		return 0
	}
	title := strings.TrimSuffix(filepath.Base(path), x.cfg.CorpusExtension)
	number, ok := x.docNumbers[title]
	if !ok {
		number = title
	}
	return x.pageRanks[number]
}

func (x *Index) Stats() Stats {
	x.mu.Lock()
	defer x.mu.Unlock()
	return Stats{
		ResidentTerms:   len(x.terms),
		ResidentBigrams: len(x.bigrams),
		ResidentPaths:   len(x.paths),
		Hits:            x.hits.Load(),
		Misses:          x.misses.Load(),
	}
}

// Close releases the attached sources.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	var firstErr error
	for _, src := range []Source{x.unigrams, x.bigramSource} {
		if c, ok := src.(io.Closer); ok && c != nil {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
