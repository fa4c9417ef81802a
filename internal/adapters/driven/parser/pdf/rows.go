package pdf

import (
	"sort"

	"github.com/ledongthuc/pdf"
)

// columnGapPoints is the minimum horizontal whitespace, in PDF points,
// treated as a column gutter rather than inter-word spacing.
const columnGapPoints = 24.0

// cellGapPoints is the minimum horizontal whitespace within a row treated
// as a cell boundary (candidate table column separator).
const cellGapPoints = 10.0

// pageLine is one row of extracted text, already placed in column reading
// order (left column top-to-bottom, then right column top-to-bottom, for a
// two-column page). cells has len 1 for ordinary prose; len > 1 marks a
// row that looks like it belongs to a table.
type pageLine struct {
	page  int
	cells []string
}

// extractLines walks every page of r and returns its text in reading order.
// A page that yields no text at all (an image-only page) is represented by
// a single pageLine with no cells, which the caller renders as a dropped
// figure marker.
func extractLines(r *pdf.Reader) []pageLine {
	var lines []pageLine
	total := r.NumPage()
	for n := 1; n <= total; n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		pdfRows, err := page.GetTextByRow()
		if err != nil || len(pdfRows) == 0 {
			lines = append(lines, pageLine{page: n})
			continue
		}
		rows := make([]pdf.Row, len(pdfRows))
		for i, row := range pdfRows {
			rows[i] = *row
		}
		for _, row := range orderByColumn(rows) {
			cells := splitRowIntoCells(row)
			if len(cells) == 0 {
				continue
			}
			lines = append(lines, pageLine{page: n, cells: cells})
		}
	}
	return lines
}

// orderByColumn restores reading order for a simple two-column layout: if
// the row content clusters into two X bands separated by a consistent
// gutter, the left band is emitted top-to-bottom before the right band;
// otherwise rows are returned as the library reports them (already
// top-to-bottom for a single-column page).
func orderByColumn(rows []pdf.Row) []pdf.Row {
	leftMax, rightMin, ok := columnSplit(rows)
	if !ok {
		return rows
	}

	var left, right []pdf.Row
	for _, row := range rows {
		if rowMinX(row) <= leftMax {
			left = append(left, row)
		} else if rowMinX(row) >= rightMin {
			right = append(right, row)
		} else {
			// straddles the gutter (e.g. a full-width caption): keep it with
			// the column it starts in.
			left = append(left, row)
		}
	}
	sort.SliceStable(left, func(i, j int) bool { return left[i].Position < left[j].Position })
	sort.SliceStable(right, func(i, j int) bool { return right[i].Position < right[j].Position })
	return append(left, right...)
}

// columnSplit looks for a consistent vertical gutter across rows: gaps in
// the occupied X range wide enough (columnGapPoints) to separate two
// columns, counted across all rows, must number at least half the rows;
// the median gap midpoint is taken as the gutter.
func columnSplit(rows []pdf.Row) (leftMax, rightMin float64, ok bool) {
	var candidates []float64
	for _, row := range rows {
		xs := sortedX(row)
		for i := 1; i < len(xs); i++ {
			if xs[i]-xs[i-1] >= columnGapPoints {
				candidates = append(candidates, (xs[i]+xs[i-1])/2)
			}
		}
	}
	if len(candidates) < len(rows)/2 || len(candidates) == 0 {
		return 0, 0, false
	}
	sort.Float64s(candidates)
	gutter := candidates[len(candidates)/2] // median
	return gutter - columnGapPoints/2, gutter + columnGapPoints/2, true
}

func rowMinX(row pdf.Row) float64 {
	min := 0.0
	for i, t := range row.Content {
		if i == 0 || t.X < min {
			min = t.X
		}
	}
	return min
}

func sortedX(row pdf.Row) []float64 {
	xs := make([]float64, len(row.Content))
	for i, t := range row.Content {
		xs[i] = t.X
	}
	sort.Float64s(xs)
	return xs
}

// splitRowIntoCells groups a row's text runs into cells wherever a
// horizontal gap exceeds cellGapPoints, the candidate boundary for a table
// column separator.
func splitRowIntoCells(row pdf.Row) []string {
	if len(row.Content) == 0 {
		return nil
	}
	content := make([]pdf.Text, len(row.Content))
	copy(content, row.Content)
	sort.SliceStable(content, func(i, j int) bool { return content[i].X < content[j].X })

	var cells []string
	var cur string
	lastEnd := content[0].X
	for i, t := range content {
		if i > 0 && t.X-lastEnd >= cellGapPoints {
			cells = append(cells, trimCell(cur))
			cur = ""
		}
		cur += t.S
		lastEnd = t.X + t.W
	}
	cells = append(cells, trimCell(cur))
	return cells
}

func trimCell(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
