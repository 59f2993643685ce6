package extract

import (
	"strings"

	"golang.org/x/text/cases"
)

// Extractor matches vocabulary terms against text.
type Extractor struct {
	vocab *Vocabulary
}

// NewExtractor creates an Extractor over vocab.
func NewExtractor(vocab *Vocabulary) *Extractor {
	return &Extractor{vocab: vocab}
}

// Extract returns the distinct terms contained in text, in vocabulary
// order. Matching is plain case-insensitive containment: longer terms do
// not shadow shorter ones, so "fruitcake" yields "cake".
func (e *Extractor) Extract(text string) []string {
	if text == "" {
		return nil
	}
	folded := cases.Fold().String(text)

	var found []string
	for _, term := range e.vocab.terms {
		if strings.Contains(folded, term) {
			found = append(found, term)
		}
	}
	return found
}

// Vocabulary returns the extractor's vocabulary.
func (e *Extractor) Vocabulary() *Vocabulary { return e.vocab }
