package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_LowercasesAndStripsPunctuation(t *testing.T) {
	// Given: mixed-case text with punctuation
	stopWords := BuildStopWordMap(DefaultStopWords)

	// When: tokenizing
	tokens := Tokenize("Mercury, in Retrograde!", stopWords)

	// Then: punctuation is gone and tokens are lowercased
	assert.Equal(t, []string{"mercury", "retrograde"}, tokens)
}

func TestTokenize_DropsShortTokensAndStopwords(t *testing.T) {
	stopWords := BuildStopWordMap(DefaultStopWords)

	tokens := Tokenize("the sun is in a natal chart", stopWords)

	// "the", "is", "in", "a" are short or stopwords; "natal" and "chart"
	// are domain stopwords.
	assert.Equal(t, []string{"sun"}, tokens)
}

func TestTokenize_KeepsAstrologicalGlyphs(t *testing.T) {
	stopWords := BuildStopWordMap(nil)

	tokens := Tokenize("conjunction ☌☌☌ marker", stopWords)

	assert.Contains(t, tokens, "conjunction")
	assert.Contains(t, tokens, "☌☌☌")
}

func TestTokenize_EmptyQueryYieldsNoTokens(t *testing.T) {
	stopWords := BuildStopWordMap(DefaultStopWords)

	assert.Empty(t, Tokenize("", stopWords))
	assert.Empty(t, Tokenize("the and for", stopWords))
}

func TestBuildStopWordMap_IsCaseInsensitive(t *testing.T) {
	m := BuildStopWordMap([]string{"Mercury"})

	_, ok := m["mercury"]
	assert.True(t, ok)
}
