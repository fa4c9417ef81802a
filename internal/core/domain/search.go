package domain

// Filters are the caller-supplied equality predicates applied to a
// retrieval call. Empty string fields are not applied. Filters are applied
// to the dense query directly and used to drop sparse results post-hoc.
type Filters struct {
	DocumentID  string
	Company     string
	ProductCode string
	ProductName string
	DocType     DocType
	Category    Category
	IsTable     *bool
}

// Empty reports whether no predicate is set.
func (f Filters) Empty() bool {
	return f.DocumentID == "" && f.Company == "" && f.ProductCode == "" && f.ProductName == "" &&
		f.DocType == "" && f.Category == "" && f.IsTable == nil
}

// Match reports whether a chunk satisfies every set predicate.
func (f Filters) Match(c *PolicyChunk) bool {
	if f.DocumentID != "" && c.DocumentID != f.DocumentID {
		return false
	}
	if f.Company != "" && c.Company != f.Company {
		return false
	}
	if f.ProductCode != "" && c.ProductCode != f.ProductCode {
		return false
	}
	if f.ProductName != "" && c.ProductName != f.ProductName {
		return false
	}
	if f.DocType != "" && c.DocType != f.DocType {
		return false
	}
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.IsTable != nil && c.IsTable != *f.IsTable {
		return false
	}
	return true
}

// QueryType buckets a query for adaptive fusion weighting (§4.8).
type QueryType string

const (
	QueryNumeric  QueryType = "numeric"  // dotted-section pattern or >=2 digit tokens
	QueryQuestion QueryType = "question" // contains a question marker
	QueryDefault  QueryType = "default"
)

// FusionWeights is the (sparse, dense) weight pair applied during RRF.
type FusionWeights struct {
	Sparse float64
	Dense  float64
}

// ScoredChunk is a PolicyChunk paired with the score it achieved in a
// retrieval call, plus the similarity the dense side reported (used as a
// tie-breaker and for threshold pruning).
type ScoredChunk struct {
	Chunk      PolicyChunk
	Score      float64
	Similarity float64
}

// SearchOptions configures a hybrid retrieval call.
type SearchOptions struct {
	TopK int

	// MinSimilarity floors dense candidates before fusion. A negative value
	// means "use the component default" (general 0.7, exclusion 0.75).
	MinSimilarity float64

	Filters Filters
}
