package pdf

import (
	"fmt"
	"strings"
)

// renderMarkdown assembles the document's elements into the Markdown
// rendering the chunker consumes: headings as "#".."#####", ordinary
// tables as GitHub-flavored Markdown, rate tables replaced by their
// placeholder line, figures dropped with a comment marker.
func renderMarkdown(elements []element, ratePlaceholder map[int]string) string {
	var blocks []string
	for i, el := range elements {
		switch el.kind {
		case elemHeading:
			blocks = append(blocks, strings.Repeat("#", el.level)+" "+el.text)
		case elemParagraph:
			blocks = append(blocks, el.text)
		case elemFigure:
			blocks = append(blocks, fmt.Sprintf("<!-- figure: page %d -->", el.pageStart))
		case elemTable:
			if id, ok := ratePlaceholder[i]; ok {
				blocks = append(blocks, fmt.Sprintf("[rate-table: %s]", id))
			} else {
				blocks = append(blocks, renderGFMTable(el.tableRows))
			}
		}
	}
	return strings.Join(blocks, "\n\n")
}

func renderGFMTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	var lines []string
	lines = append(lines, "| "+strings.Join(rows[0], " | ")+" |")

	sep := make([]string, len(rows[0]))
	for i := range sep {
		sep[i] = "---"
	}
	lines = append(lines, "| "+strings.Join(sep, " | ")+" |")

	for _, row := range rows[1:] {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	return strings.Join(lines, "\n")
}
