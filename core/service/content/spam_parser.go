// Package content turns raw message bodies into normalized token streams
// and the lexical statistics fed to the neural model.
package content

import (
	"strings"
	"unicode/utf8"

	"spam_filter/core/domain"
	"spam_filter/core/service/lexicon"
)

// Parser runs the normalization pipeline.
type Parser struct {
	analyzer *Analyzer
}

func NewParser(lex *lexicon.Lexicon) *Parser {
	return &Parser{analyzer: NewAnalyzer(lex)}
}

// Normalize strips markup and substitutes entity markers.
func Normalize(body string) string {
	return ReplaceSpecialContent(StripHTML(body))
}

// Parse returns the space-joined normalized tokens of body.
func (p *Parser) Parse(body string) string {
	return p.parseNormalized(Normalize(body)).Content()
}

// Tokens returns the normalized tokens of body.
func (p *Parser) Tokens(body string) []string {
	return p.parseNormalized(Normalize(body)).Tokens
}

func (p *Parser) parseNormalized(text string) Analysis {
	return p.analyzer.AnalyzeWords(SeparateEmoji(strings.ToLower(text)))
}

// PrepareFeatureInput computes the parsed body and lexical statistics of
// raw. Uppercase, number and unknown counts are ratios over the word count
// after lemmatization. ok is false when nothing remains after normalization.
func (p *Parser) PrepareFeatureInput(raw string) (input domain.FeatureInput, ok bool) {
	text := Normalize(raw)
	if text == "" {
		return domain.FeatureInput{}, false
	}

	uppercase := len(UppercaseWords(text))
	numbers := 0
	for _, token := range strings.Fields(text) {
		if token == NumberMarker {
			numbers++
		}
	}

	lowered := strings.ToLower(text)
	emojis := len(Emojis(lowered))
	analysis := p.analyzer.AnalyzeWords(SeparateEmoji(lowered))

	words := len(analysis.Tokens)
	return domain.FeatureInput{
		Body: analysis.Content(),
		Info: domain.MessageInfo{
			UppercaseWords: ratio(uppercase, words),
			NumberMarkers:  ratio(numbers, words),
			ContentSizeKB:  float64(utf8.RuneCountInString(raw)) * 2 / 1024,
			HTMLColors:     float64(CountHTMLColors(raw)),
			Emojis:         float64(emojis),
			UnknownRatio:   ratio(len(analysis.Unknown), words),
		},
	}, true
}

// ratio divides n by the word count of the message, 0 for no words.
func ratio(n, words int) float64 {
	if words == 0 {
		return 0
	}
	return float64(n) / float64(words)
}
