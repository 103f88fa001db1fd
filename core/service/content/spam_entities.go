package content

import (
	"regexp"
	"strings"
)

// Marker tokens substituted for recognized entities.
const (
	EmailMarker   = "email_spec"
	DollarMarker  = "dollar_spec"
	URLMarker     = "url_spec"
	RubleMarker   = "ruble_spec"
	PhoneMarker   = "phone_spec"
	NumberMarker  = "number_spec"
	PercentMarker = "percent_spec"
)

var markers = map[string]struct{}{
	ExternalContentMarker: {},
	EmailMarker:           {},
	DollarMarker:          {},
	URLMarker:             {},
	RubleMarker:           {},
	PhoneMarker:           {},
	NumberMarker:          {},
	PercentMarker:         {},
}

// IsMarker reports whether token is one of the entity marker tokens.
func IsMarker(token string) bool {
	_, ok := markers[token]
	return ok
}

type substitution struct {
	pattern     *regexp.Regexp
	replacement string
}

// substitutions run in order; later rules see the output of earlier ones.
// A label word directly before an e-mail or phone is absorbed into its marker.
var substitutions = []substitution{
	{regexp.MustCompile(`_{2,}`), "_"},
	{regexp.MustCompile("(?:(?i:e-?mail|почта)\\s*:?\\s*)?[\\w.!#$%&'*+,\\-/=?^`{|}~@\\[\\]]+@[\\w\\-.:]+"), " " + EmailMarker + " "},
	{regexp.MustCompile(`(?:\d+|\s)\$`), " " + DollarMarker + " "},
	{regexp.MustCompile(`(?:https?)?(?:://)?(?:www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b[-a-zA-Z0-9()@:%_+.~#?&/=]*`), " " + URLMarker + " "},
	{regexp.MustCompile(`(?:\d+|\s)₽`), " " + RubleMarker + " "},
	{regexp.MustCompile(`[()!.?:\\/\[\]]`), ""},
	{regexp.MustCompile(`(?:(?i:телефон|phone)\s*)?(?:(?:\+\d+|8)[\s-]?\d+[\s-]\d+[\s-]\d+[\s-]?\d+|(?:\+\d+|8)\d{10})`), " " + PhoneMarker + " "},
	{regexp.MustCompile(`\{[{%]\s?.+\s?[}%]\}`), " "},
	{regexp.MustCompile(`&[A-Za-z0-9#]{2,8};`), " "},
	{regexp.MustCompile(`["«»,\-“”*|';{}]`), " "},
	{regexp.MustCompile(`\d+`), " " + NumberMarker + " "},
	{regexp.MustCompile(`\t`), " "},
	{regexp.MustCompile(`\r\n|\n`), " "},
	{regexp.MustCompile(`[\s\x{0B}\p{Z}\-]+`), " "},
	{regexp.MustCompile(`[\d\-]+%|%`), PercentMarker},
	{regexp.MustCompile(`\S{255,}`), ""},
}

// ReplaceSpecialContent substitutes entity markers for e-mails, currency,
// links, phones, numbers and percents, drops punctuation and template
// directives and collapses whitespace.
func ReplaceSpecialContent(body string) string {
	for _, s := range substitutions {
		body = s.pattern.ReplaceAllLiteralString(body, s.replacement)
	}
	return strings.TrimSpace(body)
}
