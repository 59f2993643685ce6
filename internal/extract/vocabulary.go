// Package extract finds tracked food items in post text.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// defaultTerms is the built-in food vocabulary. Multi-word and single-word
// terms are matched independently.
var defaultTerms = []string{
	// asian
	"sushi", "ramen", "pho", "kimchi", "dumplings", "pad thai", "curry",
	"bibimbap", "banh mi", "tikka", "biryani",
	// italian
	"pizza", "pasta", "tiramisu", "risotto", "carbonara",
	// american
	"burger", "bbq", "pancakes", "waffles", "bagel", "hot dog",
	// mexican
	"tacos", "burrito", "empanada", "quesadilla", "nachos",
	// desserts
	"cake", "cookies", "pie", "ice cream", "chocolate", "churros",
	"croissant", "donut",
	// healthy
	"salad", "quinoa", "kale", "avocado", "smoothie", "poke", "açaí",
	"brussels sprouts", "broccoli",
	// plant-based
	"tofu", "tempeh", "seitan", "hummus", "falafel",
	// comfort
	"mac and cheese", "fried chicken", "mashed potatoes", "soup", "stew",
	// breakfast
	"omelette", "eggs",
	// beverages
	"coffee", "tea", "kombucha", "matcha",
	// staples
	"bacon", "egg", "bread", "waffle",
}

// Vocabulary is an immutable, versioned set of tracked terms.
type Vocabulary struct {
	terms   []string
	version string
}

type vocabularyFile struct {
	Terms []string `yaml:"terms"`
}

// NewVocabulary folds, deduplicates and sorts the given terms.
func NewVocabulary(terms []string) (*Vocabulary, error) {
	fold := cases.Fold()
	seen := make(map[string]bool, len(terms))
	var out []string
	for _, t := range terms {
		t = strings.TrimSpace(fold.String(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, eris.New("extract: vocabulary is empty")
	}
	sort.Strings(out)

	sum := sha256.Sum256([]byte(strings.Join(out, "\n")))
	return &Vocabulary{terms: out, version: hex.EncodeToString(sum[:6])}, nil
}

// DefaultVocabulary returns the built-in food vocabulary.
func DefaultVocabulary() *Vocabulary {
	v, err := NewVocabulary(defaultTerms)
	if err != nil {
		panic(err)
	}
	return v
}

// LoadVocabulary reads a YAML file with a top-level "terms" list.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read vocabulary %s", path)
	}
	var f vocabularyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "extract: parse vocabulary %s", path)
	}
	return NewVocabulary(f.Terms)
}

// Terms returns a copy of the sorted terms.
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// Version identifies the term set.
func (v *Vocabulary) Version() string { return v.version }

// Len returns the number of terms.
func (v *Vocabulary) Len() int { return len(v.terms) }
