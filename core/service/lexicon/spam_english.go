package lexicon

import (
	"io"
	"strings"

	"github.com/aaaton/golem/v4"
)

// POS is a coarse part of speech used to pick lemmatization rules.
type POS int

const (
	Noun POS = iota
	Verb
	Adjective
	Adverb
)

// POSFromTag maps a Penn Treebank tag to a coarse part of speech.
// Unrecognized tags default to Noun.
func POSFromTag(tag string) POS {
	switch {
	case strings.HasPrefix(tag, "J"):
		return Adjective
	case strings.HasPrefix(tag, "V"):
		return Verb
	case strings.HasPrefix(tag, "R"):
		return Adverb
	default:
		return Noun
	}
}

type suffixRule struct {
	suffix, replacement string
}

var detachmentRules = map[POS][]suffixRule{
	Noun: {
		{"s", ""}, {"ses", "s"}, {"ves", "f"}, {"xes", "x"}, {"zes", "z"},
		{"ches", "ch"}, {"shes", "sh"}, {"men", "man"}, {"ies", "y"},
	},
	Verb: {
		{"s", ""}, {"ies", "y"}, {"es", "e"}, {"es", ""},
		{"ed", "e"}, {"ed", ""}, {"ing", "e"}, {"ing", ""},
	},
	Adjective: {
		{"er", ""}, {"est", ""}, {"er", "e"}, {"est", "e"},
	},
}

var irregularForms = map[POS]map[string]string{
	Verb: {
		"am": "be", "is": "be", "are": "be", "was": "be", "were": "be", "been": "be", "being": "be",
		"has": "have", "had": "have", "having": "have",
		"does": "do", "did": "do", "done": "do",
		"went": "go", "gone": "go", "goes": "go",
		"got": "get", "gotten": "get",
		"made": "make", "said": "say", "saw": "see", "seen": "see",
		"took": "take", "taken": "take", "gave": "give", "given": "give",
		"came": "come", "knew": "know", "known": "know",
		"thought": "think", "told": "tell", "found": "find",
		"bought": "buy", "sold": "sell", "sent": "send", "paid": "pay",
		"won": "win", "left": "leave", "kept": "keep", "began": "begin", "begun": "begin",
		"wrote": "write", "written": "write", "ran": "run", "brought": "bring",
		"felt": "feel", "held": "hold", "heard": "hear", "met": "meet", "lost": "lose",
		"spent": "spend", "stood": "stand", "understood": "understand", "chose": "choose",
	},
	Noun: {
		"children": "child", "men": "man", "women": "woman", "people": "person",
		"feet": "foot", "teeth": "tooth", "mice": "mouse", "geese": "goose",
		"data": "datum", "media": "medium", "leaves": "leaf", "lives": "life",
	},
	Adjective: {
		"better": "good", "best": "good", "worse": "bad", "worst": "bad",
		"more": "much", "most": "much", "less": "little", "least": "little",
		"further": "far", "farther": "far",
	},
}

// EnglishDictionary is the reference set of known English words and their
// lemmas.
type EnglishDictionary struct {
	lemmatizer *golem.Lemmatizer
	extra      map[string]struct{}
}

// NewEnglishDictionary wraps a golem English lemmatizer.
func NewEnglishDictionary(lemmatizer *golem.Lemmatizer) *EnglishDictionary {
	return &EnglishDictionary{lemmatizer: lemmatizer, extra: make(map[string]struct{})}
}

// AddWords reads one additional base form per line.
func (d *EnglishDictionary) AddWords(r io.Reader) error {
	return scanEntries(r, func(line string) error {
		d.extra[strings.ToLower(line)] = struct{}{}
		return nil
	})
}

// Contains reports whether word is a known English word.
func (d *EnglishDictionary) Contains(word string) bool {
	if _, ok := d.extra[word]; ok {
		return true
	}
	if _, ok := englishFunctionWords[word]; ok {
		return true
	}
	return d.lemmatizer != nil && d.lemmatizer.InDict(word)
}

// Lemmatize returns the base form of word for the given part of speech.
// Irregular forms win, then the shortest known word produced by the suffix
// rules of pos, then the dictionary lemma. Unknown words are returned as is.
func (d *EnglishDictionary) Lemmatize(word string, pos POS) string {
	word = strings.ToLower(word)
	if base, ok := irregularForms[pos][word]; ok {
		return base
	}
	if _, ok := d.extra[word]; ok {
		return word
	}
	if _, ok := englishFunctionWords[word]; ok {
		return word
	}

	best := ""
	for _, rule := range detachmentRules[pos] {
		if !strings.HasSuffix(word, rule.suffix) {
			continue
		}
		candidate := strings.TrimSuffix(word, rule.suffix) + rule.replacement
		if candidate == "" || !d.Contains(candidate) {
			continue
		}
		if best == "" || len(candidate) < len(best) {
			best = candidate
		}
	}
	if best != "" {
		return best
	}
	if d.lemmatizer != nil && d.lemmatizer.InDict(word) {
		return d.lemmatizer.LemmaLower(word)
	}
	return word
}
