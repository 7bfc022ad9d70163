// Package profanity screens the plaintext the server does see: member names
// and plain room names. Encrypted content is never inspected.
package profanity

import (
	"embed"
	"encoding/json"
	"strings"
	"sync"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"
)

//go:embed words.json
var wordsFS embed.FS

var (
	defaultFilter *Filter
	once          sync.Once
)

// Filter matches whole words after folding case, accents and leetspeak.
type Filter struct {
	words mapset.Set[string]
}

func New(words []string) *Filter {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			set.Add(w)
		}
	}

	return &Filter{words: set}
}

// Default returns the filter built from the embedded word list.
func Default() *Filter {
	once.Do(func() {
		defaultFilter = New(lo.Must(loadWords()))
	})

	return defaultFilter
}

func loadWords() ([]string, error) {
	data, err := wordsFS.ReadFile("words.json")
	if err != nil {
		return nil, err
	}

	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, err
	}
	return words, nil
}

// Contains reports whether text holds a listed word, including spaced out
// ("f u c k") and stretched ("fuuuck") spellings.
func (f *Filter) Contains(text string) bool {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return false
	}

	for _, token := range tokens {
		if f.match(token) {
			return true
		}
	}

	// Runs of single letters are read as one word
	var run strings.Builder
	for _, token := range append(tokens, "") {
		if len([]rune(token)) == 1 {
			run.WriteString(token)
			continue
		}
		if run.Len() > 1 && f.match(run.String()) {
			return true
		}
		run.Reset()
	}

	return false
}

func (f *Filter) match(word string) bool {
	return f.words.Contains(word) || f.words.Contains(squeeze(word))
}

var leet = map[rune]rune{
	'@': 'a', '4': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'$': 's', '5': 's',
	'7': 't', '+': 't',
	'8': 'b', '9': 'g',
}

func fold(r rune) rune {
	if m, ok := leet[r]; ok {
		return m
	}

	switch r {
	case 'á', 'à', 'â', 'ä', 'ã', 'å':
		return 'a'
	case 'é', 'è', 'ê', 'ë':
		return 'e'
	case 'í', 'ì', 'î', 'ï':
		return 'i'
	case 'ó', 'ò', 'ô', 'ö', 'õ':
		return 'o'
	case 'ú', 'ù', 'û', 'ü':
		return 'u'
	case 'ñ':
		return 'n'
	case 'ç':
		return 'c'
	}

	return r
}

// tokenize lowercases and folds text, then splits it on anything that is not a
// letter.
func tokenize(text string) []string {
	folded := strings.Map(fold, strings.ToLower(text))

	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// squeeze collapses repeated letters: "fuuuck" becomes "fuck".
func squeeze(word string) string {
	var b strings.Builder
	var prev rune
	for i, r := range word {
		if i > 0 && r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
