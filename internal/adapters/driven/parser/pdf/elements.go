package pdf

import (
	"regexp"
	"strings"
)

type elementKind int

const (
	elemParagraph elementKind = iota
	elemHeading
	elemTable
	elemFigure
)

// element is one structural unit of the document, in reading order.
type element struct {
	kind      elementKind
	level     int      // heading depth, 1..5; zero for non-headings
	text      string   // heading or paragraph text
	tableRows [][]string
	pageStart int
	pageEnd   int
}

var (
	dottedSectionPattern = regexp.MustCompile(`^(\d+(?:\.\d+){0,4})\s*[、.\s]*(\S.*)?$`)
	chapterPattern       = regexp.MustCompile(`^第[一二三四五六七八九十百零]+章\s*(.*)$`)
	sectionPattern       = regexp.MustCompile(`^第[一二三四五六七八九十百零]+节\s*(.*)$`)
	clausePattern        = regexp.MustCompile(`^第[一二三四五六七八九十百零]+条\s*(.*)$`)
	enumPattern          = regexp.MustCompile(`^[一二三四五六七八九十]+、\s*(\S.*)$`)
)

// classifyHeading reports whether line reads as a section heading and, if
// so, at what depth. Headings in these insurer PDFs are either numbered
// Chinese legal sections (第一章/第一节/第一条), dotted clause numbers
// (1.2.6), or enumerated items (一、).
func classifyHeading(line string) (level int, text string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || len([]rune(line)) > 60 {
		return 0, "", false // headings in these documents are short
	}

	switch {
	case chapterPattern.MatchString(line):
		m := chapterPattern.FindStringSubmatch(line)
		return 1, strings.TrimSpace(m[1]), true
	case sectionPattern.MatchString(line):
		m := sectionPattern.FindStringSubmatch(line)
		return 2, strings.TrimSpace(m[1]), true
	case clausePattern.MatchString(line):
		m := clausePattern.FindStringSubmatch(line)
		return 3, strings.TrimSpace(m[1]), true
	case enumPattern.MatchString(line):
		m := enumPattern.FindStringSubmatch(line)
		return 2, strings.TrimSpace(m[1]), true
	}

	if m := dottedSectionPattern.FindStringSubmatch(line); m != nil && m[2] != "" {
		depth := strings.Count(m[1], ".") + 1
		if depth > 5 {
			depth = 5
		}
		return depth, line, true
	}
	return 0, "", false
}

// minTableRows is the minimum number of consecutive multi-cell lines with
// a stable cell count required to treat a run as a table rather than a
// couple of coincidentally aligned prose lines.
const minTableRows = 2

// buildElements groups a page-ordered line stream into structural elements:
// runs of multi-cell lines become tables, blank-page markers become
// figures, everything else is classified as heading or accumulated prose.
func buildElements(lines []pageLine) []element {
	var elements []element
	var para []string
	var paraPages [2]int

	flushPara := func() {
		if len(para) == 0 {
			return
		}
		elements = append(elements, element{
			kind:      elemParagraph,
			text:      strings.Join(para, " "),
			pageStart: paraPages[0],
			pageEnd:   paraPages[1],
		})
		para = nil
	}

	i := 0
	for i < len(lines) {
		line := lines[i]

		switch {
		case len(line.cells) == 0:
			flushPara()
			elements = append(elements, element{kind: elemFigure, pageStart: line.page, pageEnd: line.page})
			i++

		case len(line.cells) >= 2:
			run, consumed := collectTableRun(lines, i)
			if consumed >= minTableRows {
				flushPara()
				elements = append(elements, element{
					kind:      elemTable,
					tableRows: run,
					pageStart: lines[i].page,
					pageEnd:   lines[i+consumed-1].page,
				})
				i += consumed
				continue
			}
			// too short a run to call it a table; treat as prose.
			appendParaLine(&para, &paraPages, line, strings.Join(line.cells, " "))
			i++

		default:
			text := line.cells[0]
			if lvl, heading, ok := classifyHeading(text); ok {
				flushPara()
				elements = append(elements, element{kind: elemHeading, level: lvl, text: heading, pageStart: line.page, pageEnd: line.page})
			} else {
				appendParaLine(&para, &paraPages, line, text)
			}
			i++
		}
	}
	flushPara()
	return elements
}

func appendParaLine(para *[]string, pages *[2]int, line pageLine, text string) {
	if len(*para) == 0 {
		pages[0] = line.page
	}
	pages[1] = line.page
	*para = append(*para, text)
}

// collectTableRun returns the run of consecutive multi-cell lines starting
// at i whose cell counts agree with the first row's, plus how many lines
// were consumed (at least 1, even if it doesn't meet minTableRows so the
// caller can fall back to prose).
func collectTableRun(lines []pageLine, i int) ([][]string, int) {
	width := len(lines[i].cells)
	var rows [][]string
	n := 0
	for i+n < len(lines) && len(lines[i+n].cells) == width {
		rows = append(rows, lines[i+n].cells)
		n++
	}
	return rows, n
}
