package content

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExternalContentMarker replaces links and images.
const ExternalContentMarker = "html_external_spec"

var skippedElements = map[string]struct{}{
	"style":  {},
	"head":   {},
	"script": {},
	"meta":   {},
	"title":  {},
}

// cssFragment matches stray stylesheet text: rule blocks or bare declarations.
var cssFragment = regexp.MustCompile(`^\s*(?:` +
	`(?:[\w\s.#:>*,\[\]="'-]*\{[^{}]*:[^{}]*\}\s*)+` +
	`|(?:-?[a-z][a-z-]*\s*:\s*[^;:{}]+;\s*)+` +
	`)$`)

// StripHTML returns the visible text of body joined by single spaces.
// Links and images become ExternalContentMarker. Plain text passes through.
func StripHTML(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	var parts []string
	collectText(doc.Selection, &parts)
	return strings.Join(parts, " ")
}

func collectText(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		name := goquery.NodeName(node)
		switch name {
		case "#text":
			text := node.Nodes[0].Data
			if strings.TrimSpace(text) == "" || cssFragment.MatchString(text) {
				return
			}
			*parts = append(*parts, text)
		case "#comment", "#doctype":
			return
		case "a":
			*parts = append(*parts, ExternalContentMarker)
			collectText(node, parts)
		case "img":
			*parts = append(*parts, ExternalContentMarker)
		default:
			if _, skip := skippedElements[name]; skip {
				return
			}
			collectText(node, parts)
		}
	})
}
