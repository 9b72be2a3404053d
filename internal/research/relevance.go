package research

import (
	"strings"
	"unicode"
)

// tokenize lowercases and splits text into terms, dropping short tokens that
// carry no signal.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

// relevance scores a document against a query as the fraction of query terms
// present in the document, in [0,1].
func relevance(query, document string) float64 {
	terms := tokenize(query)
	if len(terms) == 0 {
		return 0
	}

	doc := strings.ToLower(document)
	var hits int
	for _, term := range terms {
		if strings.Contains(doc, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
