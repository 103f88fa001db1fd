package content

import (
	"regexp"
	"strings"

	"spam_filter/core/service/lexicon"
)

var (
	nativeWord = regexp.MustCompile(`^[а-яА-ЯёЁ]{2,}$`)
	latinWord  = regexp.MustCompile(`^[a-zA-Z]{2,}$`)
)

// Analyzer splits tokens into the native (Russian) and the Latin/other
// streams, lemmatizes and stems them, and collects unknown words.
type Analyzer struct {
	lex *lexicon.Lexicon
}

func NewAnalyzer(lex *lexicon.Lexicon) *Analyzer {
	return &Analyzer{lex: lex}
}

// Analysis is the result of AnalyzeWords.
type Analysis struct {
	// Unknown lists native unknown words first, then Latin ones.
	Unknown []string
	// Tokens holds the native stream followed by the Latin/other stream.
	Tokens []string
}

// Content joins the analyzed tokens with single spaces.
func (a Analysis) Content() string {
	return strings.Join(a.Tokens, " ")
}

// AnalyzeWords normalizes every whitespace-separated token of body.
// Tokens that are neither native nor Latin words (markers, emoji, mixed
// tokens) pass through in their original order within the second stream.
func (a *Analyzer) AnalyzeWords(body string) Analysis {
	var (
		native, other        []string
		unknownRU, unknownEN []string
		latinIdx             []int
		latin                []string
	)

	for _, token := range strings.Fields(body) {
		switch {
		case nativeWord.MatchString(token):
			lemma, known := a.lex.Russian.Parse(token)
			if !known {
				unknownRU = append(unknownRU, lemma)
			}
			native = append(native, normalize(lemma, lexicon.Russian))
		case latinWord.MatchString(token):
			latinIdx = append(latinIdx, len(other))
			latin = append(latin, strings.ToLower(token))
			other = append(other, "")
		default:
			other = append(other, token)
		}
	}

	tags := a.lex.Tagger.Tag(latin)
	for i, word := range latin {
		lemma := a.lex.English.Lemmatize(word, lexicon.POSFromTag(tags[i]))
		if !a.lex.English.Contains(lemma) && !IsMarker(lemma) {
			unknownEN = append(unknownEN, lemma)
		}
		other[latinIdx[i]] = normalize(lemma, lexicon.English)
	}

	return Analysis{
		Unknown: append(unknownRU, unknownEN...),
		Tokens:  append(native, other...),
	}
}

func normalize(lemma string, lang lexicon.Language) string {
	if canonical, ok := lexicon.Canonical(lemma); ok {
		return canonical
	}
	return lexicon.Stem(lemma, lang)
}
