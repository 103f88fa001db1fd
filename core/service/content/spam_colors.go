package content

import "regexp"

var (
	colorDeclaration = regexp.MustCompile(`(?i)\bcolor\s*:\s*(?:#[0-9a-f]{3,8}|[a-z]+)?\s*[;"'}]`)
	uppercaseWord    = regexp.MustCompile(`[A-ZА-ЯЁ]{2,}`)
)

// CountHTMLColors counts CSS color declarations in the raw markup.
func CountHTMLColors(raw string) int {
	return len(colorDeclaration.FindAllStringIndex(raw, -1))
}

// UppercaseWords returns every run of two or more uppercase Latin or
// Cyrillic letters.
func UppercaseWords(text string) []string {
	return uppercaseWord.FindAllString(text, -1)
}
