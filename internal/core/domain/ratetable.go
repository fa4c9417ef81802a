package domain

import "time"

// TableType classifies a RateTable by what it tabulates.
type TableType string

const (
	TableTypeRate     TableType = "rate"
	TableTypeBenefit  TableType = "benefit"
	TableTypeOrdinary TableType = "ordinary"
)

// RateTable is a table classified as numeric/rate-bearing during structured
// parsing. Rate tables are never embedded or chunked; they exist only as
// sidecar CSVs addressable by UUID, referenced from PolicyChunk.TableRefs.
type RateTable struct {
	UUID string

	DocumentID string
	PageStart  int
	PageEnd    int

	// Headers is the flattened header row (nested headers joined with " / ").
	Headers  []string
	RowCount int
	ColCount int

	CSVPath     string
	ProductCode string
	TableType   TableType

	CreatedAt time.Time
}

// RateTableMetadataRecord is the shape appended to {export_dir}/metadata.json for
// every RateTable, per the structured parser's serialization contract.
type RateTableMetadataRecord struct {
	UUID        string    `json:"uuid"`
	SourcePDF   string    `json:"source_pdf"`
	PageRange   [2]int    `json:"page_range"`
	ProductCode string    `json:"product_code"`
	TableType   TableType `json:"table_type"`
	CSVPath     string    `json:"csv_path"`
	Headers     []string  `json:"headers"`
	RowCount    int       `json:"row_count"`
	ColCount    int       `json:"col_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToMetadataRecord projects a RateTable into its metadata.json shape.
func (rt *RateTable) ToMetadataRecord() RateTableMetadataRecord {
	return RateTableMetadataRecord{
		UUID:        rt.UUID,
		SourcePDF:   rt.DocumentID,
		PageRange:   [2]int{rt.PageStart, rt.PageEnd},
		ProductCode: rt.ProductCode,
		TableType:   rt.TableType,
		CSVPath:     rt.CSVPath,
		Headers:     rt.Headers,
		RowCount:    rt.RowCount,
		ColCount:    rt.ColCount,
		CreatedAt:   rt.CreatedAt,
	}
}
