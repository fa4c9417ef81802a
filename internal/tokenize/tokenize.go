// Package tokenize wraps a Chinese word segmenter and applies the symmetric
// stop-list filtering shared by the sparse index (build and query time) and
// the metadata enricher's keyword extraction, so both reason about the same
// token stream.
package tokenize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-ego/gse"
)

// stopwords is deliberately short: common function words that carry no
// retrieval or classification signal. Domain nouns are never added here.
var stopwords = map[string]bool{
	"的": true, "了": true, "在": true, "是": true, "我": true, "有": true,
	"和": true, "就": true, "不": true, "人": true, "都": true, "一": true,
	"一个": true, "上": true, "也": true, "很": true, "到": true, "说": true,
	"要": true, "去": true, "你": true, "会": true, "着": true, "没有": true,
	"看": true, "好": true, "自己": true, "这": true, "为": true, "与": true,
	"或": true, "及": true, "等": true, "其": true, "中": true, "由": true,
	"以": true, "如": true, "但": true,
}

// Tokenizer segments Chinese (and mixed Chinese/Latin) text into words.
type Tokenizer struct {
	seg gse.Segmenter
}

// New loads the segmenter's default dictionary.
func New() (*Tokenizer, error) {
	var seg gse.Segmenter
	if err := seg.LoadDict(); err != nil {
		return nil, fmt.Errorf("tokenize: load dict: %w", err)
	}
	return &Tokenizer{seg: seg}, nil
}

// Tokenize splits text into words, dropping stopwords, pure punctuation, and
// single-rune tokens (too weak a signal on their own for this corpus).
func (t *Tokenizer) Tokenize(text string) []string {
	if t == nil {
		return nil
	}
	var out []string
	for _, w := range t.seg.Cut(text, true) {
		w = strings.TrimSpace(w)
		if w == "" || stopwords[w] || isPunctOnly(w) {
			continue
		}
		if len([]rune(w)) < 2 && !isASCIIWord(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func isPunctOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSpace(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

func isASCIIWord(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return s != ""
}
