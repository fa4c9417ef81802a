package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
	"github.com/policyrag/policyrag/internal/core/ports/driving"
	"github.com/policyrag/policyrag/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

const rrfK = 60

var (
	sectionPatternRe = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)
	digitTokenRe     = regexp.MustCompile(`\d+`)
)

var questionMarkers = []string{"如何", "怎么", "什么", "为什么", "哪", "多少", "吗", "呢", "?", "？"}

// RetrieverConfig carries the tunable defaults from §9 Open Question
// decisions. cmd/policyrag overrides each default with the config store's
// value of the same name (DEFAULT_MIN_SIMILARITY, WEIGHT_NUMERIC_SPARSE, ...)
// when that value is set and positive.
type RetrieverConfig struct {
	DefaultMinSimilarity   float64
	ExclusionMinSimilarity float64

	WeightNumericSparse, WeightNumericDense   float64
	WeightQuestionSparse, WeightQuestionDense float64
	WeightDefaultSparse, WeightDefaultDense   float64
}

// DefaultRetrieverConfig reflects the thresholds recorded in SPEC_FULL.md §6.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		DefaultMinSimilarity:   0.7,
		ExclusionMinSimilarity: 0.75,
		WeightNumericSparse:    0.8,
		WeightNumericDense:     0.2,
		WeightQuestionSparse:   0.2,
		WeightQuestionDense:    0.8,
		WeightDefaultSparse:    0.4,
		WeightDefaultDense:     0.6,
	}
}

// Retriever combines the Vector Store and Sparse Index into a single ranked
// list via query-adaptive weighted Reciprocal Rank Fusion (§4.8).
type Retriever struct {
	vectorStore driven.VectorStore
	sparseIndex driven.SparseIndex
	embedder    driven.EmbeddingService
	cfg         RetrieverConfig
}

// NewRetriever constructs a Retriever. embedder may be nil only in tests
// that exercise sparse-only degradation.
func NewRetriever(vectorStore driven.VectorStore, sparseIndex driven.SparseIndex, embedder driven.EmbeddingService, cfg RetrieverConfig) *Retriever {
	return &Retriever{vectorStore: vectorStore, sparseIndex: sparseIndex, embedder: embedder, cfg: cfg}
}

// Search runs a hybrid retrieval for query under opts.
func (r *Retriever) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidInput
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}
	fetchK := topK * 2

	qt := detectQueryType(query)
	weights := r.weightsFor(qt)
	logger.Debug("retriever: query=%q type=%s weights=(sparse=%.2f,dense=%.2f)", query, qt, weights.Sparse, weights.Dense)

	minSim := opts.MinSimilarity
	if minSim < 0 {
		minSim = r.cfg.DefaultMinSimilarity
		if opts.Filters.Category == domain.CategoryExclusion {
			minSim = r.cfg.ExclusionMinSimilarity
		}
	}

	var denseHits []driven.VectorHit
	var sparseHits []driven.SparseHit
	var denseErr, sparseErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		denseHits, denseErr = r.denseSearch(ctx, query, fetchK, opts.Filters)
	}()
	go func() {
		defer wg.Done()
		sparseHits, sparseErr = r.sparseSearch(ctx, query, fetchK)
	}()
	wg.Wait()

	if denseErr != nil && sparseErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("retriever: %w", domain.ErrTimeout)
		}
		return nil, fmt.Errorf("retriever: dense=%v, sparse=%w", denseErr, sparseErr)
	}

	denseByID := make(map[string]driven.VectorHit, len(denseHits))
	for _, h := range denseHits {
		if h.Similarity < minSim {
			continue
		}
		denseByID[h.Chunk.ID] = h
	}

	// Question-like queries with no surviving dense candidates return empty
	// rather than risk hallucination downstream (§4.8).
	if qt == domain.QueryQuestion && denseErr == nil && len(denseHits) > 0 && len(denseByID) == 0 {
		return nil, nil
	}

	switch {
	case denseErr != nil:
		weights = domain.FusionWeights{Sparse: 1, Dense: 0}
	case sparseErr != nil:
		weights = domain.FusionWeights{Sparse: 0, Dense: 1}
	}

	// The similarity floor prunes dense candidates before fusion (§4.8).
	thresholdedDense := make([]driven.VectorHit, 0, len(denseHits))
	for _, h := range denseHits {
		if h.Similarity >= minSim {
			thresholdedDense = append(thresholdedDense, h)
		}
	}
	denseIDs := rankedIDs(thresholdedDense, func(h driven.VectorHit) string { return h.Chunk.ID })
	sparseIDs := rankedIDs(sparseHits, func(h driven.SparseHit) string { return h.ChunkID })

	fused := fuseRRF(denseIDs, sparseIDs, weights, rrfK)

	// Sparse-only candidates (outside the dense side's top fetchK, or dense
	// unavailable) need their chunk payload hydrated directly.
	var missingIDs []string
	for _, f := range fused {
		if _, ok := denseByID[f.id]; !ok {
			missingIDs = append(missingIDs, f.id)
		}
	}
	hydrated := make(map[string]domain.PolicyChunk)
	if len(missingIDs) > 0 && r.vectorStore != nil {
		chunks, err := r.vectorStore.GetByIDs(ctx, missingIDs)
		if err == nil {
			for _, c := range chunks {
				hydrated[c.ID] = c
			}
		}
	}

	results := make([]domain.ScoredChunk, 0, len(fused))
	for _, f := range fused {
		var chunk domain.PolicyChunk
		var similarity float64
		if hit, ok := denseByID[f.id]; ok {
			chunk, similarity = hit.Chunk, hit.Similarity
		} else if c, ok := hydrated[f.id]; ok {
			chunk = c
		} else {
			continue
		}
		if !opts.Filters.Empty() && !opts.Filters.Match(&chunk) {
			continue
		}
		results = append(results, domain.ScoredChunk{Chunk: chunk, Score: f.score, Similarity: similarity})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Chunk.ChunkIndex < results[j].Chunk.ChunkIndex
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (r *Retriever) denseSearch(ctx context.Context, query string, k int, filters domain.Filters) ([]driven.VectorHit, error) {
	if r.vectorStore == nil || r.embedder == nil {
		return nil, errors.New("vector store unavailable")
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.vectorStore.Query(ctx, vec, k, filters)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return hits, nil
}

func (r *Retriever) sparseSearch(ctx context.Context, query string, k int) ([]driven.SparseHit, error) {
	if r.sparseIndex == nil {
		return nil, errors.New("sparse index unavailable")
	}
	hits, err := r.sparseIndex.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("sparse search: %w", err)
	}
	return hits, nil
}

func (r *Retriever) weightsFor(qt domain.QueryType) domain.FusionWeights {
	switch qt {
	case domain.QueryNumeric:
		return domain.FusionWeights{Sparse: r.cfg.WeightNumericSparse, Dense: r.cfg.WeightNumericDense}
	case domain.QueryQuestion:
		return domain.FusionWeights{Sparse: r.cfg.WeightQuestionSparse, Dense: r.cfg.WeightQuestionDense}
	default:
		return domain.FusionWeights{Sparse: r.cfg.WeightDefaultSparse, Dense: r.cfg.WeightDefaultDense}
	}
}

// detectQueryType buckets a query per §4.8's routing rules.
func detectQueryType(query string) domain.QueryType {
	if sectionPatternRe.MatchString(query) {
		return domain.QueryNumeric
	}
	if len(digitTokenRe.FindAllString(query, -1)) >= 2 {
		return domain.QueryNumeric
	}
	for _, m := range questionMarkers {
		if strings.Contains(query, m) {
			return domain.QueryQuestion
		}
	}
	return domain.QueryDefault
}

func rankedIDs[T any](hits []T, idOf func(T) string) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = idOf(h)
	}
	return ids
}

type fusedHit struct {
	id    string
	score float64
}

// fuseRRF merges two ranked id lists with query-adaptive weights:
// score(d) = sum_i w_i / (K + rank_i), 1-based ranks.
func fuseRRF(dense, sparse []string, weights domain.FusionWeights, k int) []fusedHit {
	scores := make(map[string]float64)
	order := make([]string, 0, len(dense)+len(sparse))
	seen := make(map[string]bool)

	add := func(ids []string, weight float64) {
		for rank, id := range ids {
			scores[id] += weight / float64(k+rank+1)
			if !seen[id] {
				seen[id] = true
				order = append(order, id)
			}
		}
	}
	add(dense, weights.Dense)
	add(sparse, weights.Sparse)

	fused := make([]fusedHit, 0, len(order))
	for _, id := range order {
		fused = append(fused, fusedHit{id: id, score: scores[id]})
	}
	sort.SliceStable(fused, func(i, j int) bool { return fused[i].score > fused[j].score })
	return fused
}
