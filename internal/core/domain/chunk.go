package domain

import "strings"

// Category classifies a PolicyChunk's clause type. The rule cascade that
// assigns it (see the enricher) is deterministic and total: General is the
// sink, so every chunk has exactly one category, never empty.
type Category string

const (
	CategoryLiability  Category = "Liability"
	CategoryExclusion  Category = "Exclusion"
	CategoryProcess    Category = "Process"
	CategoryDefinition Category = "Definition"
	CategoryGeneral    Category = "General"
)

// EntityRole identifies the contractual party a chunk primarily concerns.
// The empty string denotes "no dominant role" (ties or all-zero counts).
type EntityRole string

const (
	RoleInsurer     EntityRole = "Insurer"
	RoleInsured     EntityRole = "Insured"
	RoleBeneficiary EntityRole = "Beneficiary"
	RoleNone        EntityRole = ""
)

// TableRow is one row of a preserved inline table, keyed by flattened header.
type TableRow map[string]string

// TableData is the structured form of a chunk whose IsTable flag is set.
type TableData struct {
	Headers []string
	Rows    []TableRow
}

// PolicyChunk is the retrieval unit: a piece of policy text (or a preserved
// inline table) carrying enough structural and semantic metadata to be
// searched, filtered, and cited without ever needing to re-open the source
// PDF.
type PolicyChunk struct {
	// Identity.
	ID         string
	DocumentID string
	ChunkIndex int // document-local order; unique per document

	// Content includes the prepended breadcrumb "[section: A > B > C]".
	Content string

	// Context, required on every chunk (invariant 1).
	Company     string
	ProductCode string
	ProductName string
	DocType     DocType

	// Structural fields.
	SectionID     string // e.g. "1.2.6"; empty if none
	SectionTitle  string
	ParentSection string // SectionID minus its last segment; empty if none
	Level         int    // 1..5
	SectionPath   string // the breadcrumb, same string as the content prefix
	PageNumber    *int

	// Semantic fields.
	Category   Category
	EntityRole EntityRole
	Keywords   []string

	// Table fields. A chunk is either textual or a preserved inline table,
	// never both (invariant 2).
	IsTable   bool
	TableData *TableData
	TableRefs []string // uuids of sidecar RateTables referenced in Content

	// Embedding is the dense embedding, fixed dimension per collection.
	// Never persisted as the "real" identity of a chunk: it's regenerated
	// on reindex and excluded from the round-trip-lossless guarantee.
	Embedding []float32
}

// KeywordsCSV serializes Keywords as a comma-joined string, for vector store
// backends whose metadata only admits scalars.
func (c *PolicyChunk) KeywordsCSV() string {
	return strings.Join(c.Keywords, ",")
}

// ParseKeywordsCSV is the inverse of KeywordsCSV.
func ParseKeywordsCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// TableRefsCSV serializes TableRefs as a comma-joined string.
func (c *PolicyChunk) TableRefsCSV() string {
	return strings.Join(c.TableRefs, ",")
}

// ParseTableRefsCSV is the inverse of TableRefsCSV.
func ParseTableRefsCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Validate checks the PolicyChunk invariants that can be checked locally
// (invariants requiring cross-referencing the owning Product/PolicyDocument
// are enforced by the ingestion service, not here).
func (c *PolicyChunk) Validate() error {
	if c.Company == "" || c.ProductCode == "" || c.ProductName == "" || c.DocType == "" {
		return ErrInvalidInput
	}
	if c.IsTable && c.TableData == nil {
		return ErrInvalidInput
	}
	if !c.IsTable && c.TableData != nil {
		return ErrInvalidInput
	}
	if c.Level < 1 || c.Level > 5 {
		return ErrInvalidInput
	}
	switch c.Category {
	case CategoryLiability, CategoryExclusion, CategoryProcess, CategoryDefinition, CategoryGeneral:
	default:
		return ErrInvalidInput
	}
	return nil
}
