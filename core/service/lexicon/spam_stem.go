package lexicon

import (
	"github.com/kljensen/snowball"
)

// Language selects a stemmer.
type Language string

const (
	Russian Language = "russian"
	English Language = "english"
)

// DateMonth is the canonical token every month name collapses to.
const DateMonth = "date_month"

var months = map[string]struct{}{
	"январь": {}, "февраль": {}, "март": {}, "апрель": {}, "май": {}, "июнь": {},
	"июль": {}, "август": {}, "сентябрь": {}, "октябрь": {}, "ноябрь": {}, "декабрь": {},
	"january": {}, "february": {}, "march": {}, "april": {}, "may": {}, "june": {},
	"july": {}, "august": {}, "september": {}, "october": {}, "november": {}, "december": {},
}

// Canonical maps a lemma to its synonym group token. The second result is
// false when the lemma belongs to no group.
func Canonical(lemma string) (string, bool) {
	if _, ok := months[lemma]; ok {
		return DateMonth, true
	}
	return lemma, false
}

// Stem reduces word with the snowball stemmer for lang. Words the stemmer
// rejects are returned unchanged.
func Stem(word string, lang Language) string {
	stemmed, err := snowball.Stem(word, string(lang), true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}
