package pdf

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/policyrag/policyrag/internal/core/domain"
)

// rateHeaderKeywords classifies a table as rate-bearing by its header row,
// combined with numericRatio (see classifyTable).
var rateHeaderKeywords = []string{
	"age", "年龄", "premium", "保费", "rate", "费率", "cash value", "现金价值", "benefit", "利益",
}

const (
	rateNumericRatioWithKeywords    = 0.5
	rateNumericRatioWithoutKeywords = 0.8
)

// classifyTable decides whether a table is rate-bearing, per the header
// keyword + numeric-cell-ratio rule: a keyword match lowers the bar to
// >0.5 numeric cells, otherwise the table needs >0.8 regardless of header.
func classifyTable(rows [][]string) (isRate bool, numericRatio float64) {
	if len(rows) < 2 {
		return false, 0
	}
	header := rows[0]
	body := rows[1:]

	hasKeyword := false
	headerText := strings.ToLower(strings.Join(header, " "))
	for _, kw := range rateHeaderKeywords {
		if strings.Contains(headerText, strings.ToLower(kw)) {
			hasKeyword = true
			break
		}
	}

	total, numeric := 0, 0
	for _, row := range body {
		for _, cell := range row {
			total++
			if isNumericCell(cell) {
				numeric++
			}
		}
	}
	if total > 0 {
		numericRatio = float64(numeric) / float64(total)
	}

	if hasKeyword && numericRatio > rateNumericRatioWithKeywords {
		return true, numericRatio
	}
	if numericRatio > rateNumericRatioWithoutKeywords {
		return true, numericRatio
	}
	return false, numericRatio
}

func isNumericCell(cell string) bool {
	s := strings.TrimSpace(cell)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(s, "¥")
	s = strings.TrimPrefix(s, "￥")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// tableExporter writes a classified rate table's CSV sidecar and appends
// its record to the shared metadata.json index.
type tableExporter struct {
	exportDir string
}

func newTableExporter(exportDir string) *tableExporter {
	return &tableExporter{exportDir: exportDir}
}

// export writes rows to {exportDir}/{uuid}.csv and appends a metadata
// record, returning the populated RateTable.
func (e *tableExporter) export(doc *domain.PolicyDocument, el element, rows [][]string) (domain.RateTable, error) {
	if err := os.MkdirAll(e.exportDir, 0o755); err != nil {
		return domain.RateTable{}, fmt.Errorf("pdf: create export dir: %w", err)
	}

	id := uuid.New().String()
	csvPath := filepath.Join(e.exportDir, id+".csv")
	if err := writeCSVAtomic(csvPath, rows); err != nil {
		return domain.RateTable{}, fmt.Errorf("pdf: write rate table csv: %w", err)
	}

	rt := domain.RateTable{
		UUID:        id,
		DocumentID:  doc.ID,
		PageStart:   el.pageStart,
		PageEnd:     el.pageEnd,
		Headers:     rows[0],
		RowCount:    len(rows) - 1,
		ColCount:    len(rows[0]),
		CSVPath:     csvPath,
		ProductCode: doc.ProductID,
		TableType:   domain.TableTypeRate,
		CreatedAt:   time.Now(),
	}

	if err := e.appendMetadata(doc, rt); err != nil {
		return domain.RateTable{}, err
	}
	return rt, nil
}

func writeCSVAtomic(path string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "ratetable-*.csv.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (e *tableExporter) appendMetadata(doc *domain.PolicyDocument, rt domain.RateTable) error {
	path := filepath.Join(e.exportDir, "metadata.json")

	var records []domain.RateTableMetadataRecord
	if existing, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(existing, &records); err != nil {
			return fmt.Errorf("pdf: parse existing metadata.json: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("pdf: read metadata.json: %w", err)
	}

	record := rt.ToMetadataRecord()
	record.SourcePDF = doc.Filename
	records = append(records, record)

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("pdf: marshal metadata.json: %w", err)
	}

	tmp, err := os.CreateTemp(e.exportDir, "metadata-*.json.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
