// Package bm25 implements driven.SparseIndex with a pure-Go BM25Okapi
// scorer, requiring no external search engine. It is the only Sparse Index
// backend in this repository.
package bm25

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
	"github.com/policyrag/policyrag/internal/tokenize"
)

// Ensure Index implements the interface.
var _ driven.SparseIndex = (*Index)(nil)

// Default BM25Okapi parameters, matching the rank_bm25 library defaults the
// original implementation used (BM25Okapi(k1=1.5, b=0.75, epsilon=0.25)).
const (
	DefaultK1      = 1.5
	DefaultB       = 0.75
	DefaultEpsilon = 0.25
)

// tokenizerFunc is the minimal interface Index needs from internal/tokenize,
// so tests can substitute a trivial splitter without loading a dictionary.
type tokenizerFunc interface {
	Tokenize(text string) []string
}

type document struct {
	id    string
	freqs map[string]int
	len   int
}

// Index is a from-scratch-rebuilt, in-memory BM25Okapi index.
type Index struct {
	tok tokenizerFunc

	k1, b, epsilon float64

	mu     sync.RWMutex
	docs   []document
	idf    map[string]float64
	avgdl  float64
}

// Option configures an Index.
type Option func(*Index)

// WithTokenizer overrides the tokenizer (default: internal/tokenize.New()).
func WithTokenizer(tok tokenizerFunc) Option {
	return func(idx *Index) { idx.tok = tok }
}

// WithParams overrides the BM25Okapi k1/b/epsilon constants.
func WithParams(k1, b, epsilon float64) Option {
	return func(idx *Index) { idx.k1, idx.b, idx.epsilon = k1, b, epsilon }
}

// New constructs a BM25 index. If no tokenizer option is given, it loads a
// default internal/tokenize.Tokenizer; a failure there leaves the index with
// no tokenizer, so Build/Search will tokenize to nothing (an empty, not
// broken, index).
func New(opts ...Option) *Index {
	idx := &Index{k1: DefaultK1, b: DefaultB, epsilon: DefaultEpsilon}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.tok == nil {
		if tok, err := tokenize.New(); err == nil {
			idx.tok = tok
		}
	}
	return idx
}

// Build tokenizes every chunk's content and rebuilds the index from
// scratch, discarding whatever was indexed before (the "rebuild, never
// incremental" MVP stance).
func (idx *Index) Build(_ context.Context, chunks []domain.PolicyChunk) error {
	docs := make([]document, 0, len(chunks))
	df := make(map[string]int) // document frequency per term
	var totalLen int

	for _, c := range chunks {
		tokens := idx.tokenize(c.Content)
		freqs := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freqs[t]++
		}
		for t := range freqs {
			df[t]++
		}
		docs = append(docs, document{id: c.ID, freqs: freqs, len: len(tokens)})
		totalLen += len(tokens)
	}

	idf := calcIDF(df, len(docs), idx.epsilon)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docs = docs
	idx.idf = idf
	if len(docs) > 0 {
		idx.avgdl = float64(totalLen) / float64(len(docs))
	} else {
		idx.avgdl = 0
	}
	return nil
}

// calcIDF computes the rank_bm25 BM25Okapi idf: non-positive idfs (terms
// that appear in at least half the corpus) are floored to
// epsilon*average_idf, or to epsilon itself when that product is not
// positive (a small or uniform corpus), rather than left at or below zero,
// which would otherwise penalize documents for containing a common term.
func calcIDF(df map[string]int, corpusSize int, epsilon float64) map[string]float64 {
	idf := make(map[string]float64, len(df))
	var sum float64
	var negative []string
	for term, freq := range df {
		v := math.Log(float64(corpusSize)-float64(freq)+0.5) - math.Log(float64(freq)+0.5)
		idf[term] = v
		sum += v
		if v <= 0 {
			negative = append(negative, term)
		}
	}
	if len(idf) == 0 {
		return idf
	}
	avgIDF := sum / float64(len(idf))
	floor := epsilon * avgIDF
	if floor <= 0 {
		floor = epsilon
	}
	for _, term := range negative {
		idf[term] = floor
	}
	return idf
}

// persistedIndex is the JSON shape Save/Load round-trip, mirroring the
// original's save()/load() file format (chunk_ids, tokenized_corpus); raw
// chunk content is not persisted.
type persistedIndex struct {
	ChunkIDs         []string   `json:"chunk_ids"`
	TokenizedCorpus  [][]string `json:"tokenized_corpus"`
}

// Save persists the current index to path, re-buildable via Load. This is
// additive beyond the driven.SparseIndex contract (which only requires
// Load), kept symmetric with the port's own persistence half.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	data := persistedIndex{
		ChunkIDs:        make([]string, len(idx.docs)),
		TokenizedCorpus: make([][]string, len(idx.docs)),
	}
	for i, d := range idx.docs {
		data.ChunkIDs[i] = d.id
		tokens := make([]string, 0, d.len)
		for t, n := range d.freqs {
			for j := 0; j < n; j++ {
				tokens = append(tokens, t)
			}
		}
		data.TokenizedCorpus[i] = tokens
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("bm25: mkdir: %w", err)
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("bm25: marshal: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// Load restores a previously Saved index, rebuilding idf/avgdl from the
// persisted tokenized corpus.
func (idx *Index) Load(_ context.Context, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("bm25: read %s: %w", path, err)
	}
	var data persistedIndex
	if err := json.Unmarshal(b, &data); err != nil {
		return fmt.Errorf("bm25: parse %s: %w", path, err)
	}

	docs := make([]document, len(data.ChunkIDs))
	df := make(map[string]int)
	var totalLen int
	for i, id := range data.ChunkIDs {
		tokens := data.TokenizedCorpus[i]
		freqs := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freqs[t]++
		}
		for t := range freqs {
			df[t]++
		}
		docs[i] = document{id: id, freqs: freqs, len: len(tokens)}
		totalLen += len(tokens)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docs = docs
	idx.idf = calcIDF(df, len(docs), idx.epsilon)
	if len(docs) > 0 {
		idx.avgdl = float64(totalLen) / float64(len(docs))
	}
	return nil
}

// Search scores every document against the tokenized query with BM25Okapi
// and returns the top k by score, dropping zero-score matches (the original
// implementation's own "filter zero-score results" rule).
func (idx *Index) Search(_ context.Context, query string, k int) ([]driven.SparseHit, error) {
	tokens := idx.tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.docs) == 0 {
		return nil, nil
	}

	scores := make([]float64, len(idx.docs))
	for _, term := range tokens {
		termIDF, ok := idx.idf[term]
		if !ok {
			continue
		}
		for i, d := range idx.docs {
			freq := float64(d.freqs[term])
			if freq == 0 {
				continue
			}
			denom := freq + idx.k1*(1-idx.b+idx.b*float64(d.len)/idx.avgdl)
			scores[i] += termIDF * (freq * (idx.k1 + 1) / denom)
		}
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	hits := make([]driven.SparseHit, 0, k)
	for _, i := range order {
		if scores[i] <= 0 {
			continue
		}
		hits = append(hits, driven.SparseHit{ChunkID: idx.docs[i].id, Score: scores[i]})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

// IDs returns every chunk id currently indexed.
func (idx *Index) IDs(_ context.Context) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, len(idx.docs))
	for i, d := range idx.docs {
		ids[i] = d.id
	}
	return ids, nil
}

// Close releases resources (none held in-memory).
func (idx *Index) Close() error { return nil }

func (idx *Index) tokenize(text string) []string {
	if idx.tok == nil {
		return nil
	}
	return idx.tok.Tokenize(text)
}
