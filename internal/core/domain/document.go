package domain

import "time"

// VerificationStatus tracks a PolicyDocument through human review.
// PENDING -> VERIFIED or PENDING -> REJECTED; REJECTED -> PENDING is allowed
// on resubmission. VERIFIED is terminal for indexing purposes: changing it
// back requires explicit re-review, not an automatic transition.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "PENDING"
	StatusVerified VerificationStatus = "VERIFIED"
	StatusRejected VerificationStatus = "REJECTED"
)

// DocType enumerates the kinds of PDF a Product's disclosure set may contain.
// The set is open-ended (insurers publish varied document types); these are
// the values the core treats specially.
type DocType string

const (
	DocTypeClause    DocType = "clause"
	DocTypeManual    DocType = "manual"
	DocTypeRateTable DocType = "rate-table"
)

// PolicyDocument is one PDF belonging to a Product. Only VERIFIED documents
// may be ingested into the chunk store (see PolicyChunk invariant 4).
type PolicyDocument struct {
	ID        string
	ProductID string
	DocType   DocType

	Filename  string
	LocalPath string
	SourceURL string

	// FileHash is the SHA-256 of the PDF bytes, hex-encoded.
	FileHash string
	FileSize int64

	DownloadedAt time.Time

	VerificationStatus VerificationStatus
	ReviewerNotes      string

	// PDFLinks maps doc_type to the source URL it was discovered at, kept
	// for traceability even after the file itself is re-downloaded.
	PDFLinks map[DocType]string
}

// CanIngest reports whether the document may be chunked and indexed.
func (d *PolicyDocument) CanIngest() bool {
	return d.VerificationStatus == StatusVerified
}
