package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_DropsStopwordsAndSingleRunes(t *testing.T) {
	tok, err := New()
	require.NoError(t, err)

	words := tok.Tokenize("被保险人身故的，本公司按本合同约定给付身故保险金。")
	for _, w := range words {
		assert.False(t, stopwords[w], "stopword %q should have been dropped", w)
	}
	assert.NotEmpty(t, words)
}

func TestTokenize_NilReceiverIsSafe(t *testing.T) {
	var tok *Tokenizer
	assert.Nil(t, tok.Tokenize("anything"))
}

func TestIsPunctOnly(t *testing.T) {
	assert.True(t, isPunctOnly("，。！"))
	assert.False(t, isPunctOnly("保险"))
}

func TestIsASCIIWord(t *testing.T) {
	assert.True(t, isASCIIWord("abc123"))
	assert.False(t, isASCIIWord("保险"))
	assert.False(t, isASCIIWord(""))
}
