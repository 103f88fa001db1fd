package lexicon

import (
	"fmt"
	"io"
	"strings"

	"github.com/aaaton/golem/v4"
)

// RussianDictionary maps inflected Russian word forms to their normal form.
type RussianDictionary struct {
	lemmatizer *golem.Lemmatizer
	extra      map[string]string
}

// NewRussianDictionary wraps a golem Russian lemmatizer.
func NewRussianDictionary(lemmatizer *golem.Lemmatizer) *RussianDictionary {
	return &RussianDictionary{lemmatizer: lemmatizer, extra: make(map[string]string)}
}

// AddForms reads "lemma<TAB>form,form,..." lines. The added forms take
// precedence over the bundled dictionary.
func (d *RussianDictionary) AddForms(r io.Reader) error {
	return scanEntries(r, func(line string) error {
		lemma, forms, ok := strings.Cut(line, "\t")
		if !ok {
			return fmt.Errorf("malformed dictionary line %q", line)
		}
		lemma = strings.ToLower(strings.TrimSpace(lemma))
		d.extra[lemma] = lemma
		for _, form := range strings.Split(forms, ",") {
			form = strings.ToLower(strings.TrimSpace(form))
			if form == "" {
				continue
			}
			if _, exists := d.extra[form]; !exists {
				d.extra[form] = lemma
			}
		}
		return nil
	})
}

// Parse returns the normal form of word and whether the dictionary knows it.
// Unknown words keep their lowercased surface form.
func (d *RussianDictionary) Parse(word string) (string, bool) {
	word = strings.ToLower(word)
	if lemma, ok := d.extra[word]; ok {
		return lemma, true
	}
	if _, ok := russianFunctionWords[word]; ok {
		return word, true
	}
	if d.lemmatizer != nil && d.lemmatizer.InDict(word) {
		return d.lemmatizer.LemmaLower(word), true
	}
	return word, false
}
