package store

import (
	"regexp"
	"strings"
)

// stripRegex removes everything that is not a word character, whitespace,
// or one of the astrological glyphs that appear in reference texts.
var stripRegex = regexp.MustCompile(`[^\w\s°☉☽☿♀♂♃♄♅♆♇☌☍△□⚹]+`)

// Tokenize splits text into lowercase search tokens.
// Tokens of length <= 2 and stopwords are dropped.
func Tokenize(text string, stopWords map[string]struct{}) []string {
	lowered := strings.ToLower(text)
	cleaned := stripRegex.ReplaceAllString(lowered, "")

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 2 {
			continue
		}
		if _, isStop := stopWords[f]; isStop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// BuildStopWordMap converts a slice of stop words to a map for efficient lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}

// DefaultStopWords combines English and Spanish stopwords with generic
// astrology nouns that appear in nearly every reference document and carry
// no ranking signal.
var DefaultStopWords = append(append([]string{},
	englishStopWords...), append(spanishStopWords, domainStopWords...)...)

var englishStopWords = []string{
	"the", "and", "for", "are", "but", "not", "you", "all", "can", "her",
	"was", "one", "our", "out", "day", "get", "has", "him", "his", "how",
	"its", "may", "new", "now", "old", "see", "two", "way", "who", "did",
	"that", "this", "with", "from", "they", "will", "have", "been", "were",
	"said", "each", "which", "their", "time", "into", "more", "when",
	"them", "these", "some", "then", "than", "also", "your", "about",
	"very", "what", "where", "while", "over", "such", "only", "other",
	"being", "both", "under", "most", "after", "before", "between",
	"because", "through", "during", "does", "would", "could", "should",
}

var spanishStopWords = []string{
	"los", "las", "una", "uno", "unos", "unas", "del", "con", "por",
	"para", "como", "pero", "mas", "más", "este", "esta", "estos",
	"estas", "ese", "esa", "esos", "esas", "que", "qué", "son", "ser",
	"está", "están", "hay", "muy", "sin", "sobre", "también", "hasta",
	"desde", "entre", "cuando", "donde", "porque", "todo", "toda",
	"todos", "todas", "otro", "otra", "tiene", "tienen", "puede",
	"pueden", "hace", "hacen", "cada", "nos", "les", "sus",
}

var domainStopWords = []string{
	"astrology", "astrological", "chart", "charts", "natal", "zodiac",
	"horoscope", "birth", "sign", "signs", "placement", "placements",
	"astrologia", "astrológico", "carta", "signo", "signos",
}
