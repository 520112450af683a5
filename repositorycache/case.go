package repositorycache

import (
	"strings"
	"unicode"
)

// toSnake turns a reflected type name into a key namespace segment, e.g.
// "CatalogProduct" -> "catalog_product" and "HTTPCache2" -> "http_cache_2".
// Generic instantiations lose their type arguments ("Page[pkg.Product]" ->
// "page") and every other non alphanumeric rune becomes a separator, so the
// result never contains the key separator.
func toSnake(s string) string {
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	return strings.Join(words(s), "_")
}

// words splits s on case changes, letter/digit changes and punctuation.
func words(s string) []string {
	runes := []rune(s)
	var (
		out  []string
		word []rune
	)
	flush := func() {
		if len(word) > 0 {
			out = append(out, strings.ToLower(string(word)))
			word = word[:0]
		}
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(word) > 0 && boundary(runes, i) {
			flush()
		}
		word = append(word, r)
	}
	flush()
	return out
}

// boundary reports whether a new word starts at runes[i].
func boundary(runes []rune, i int) bool {
	prev, cur := runes[i-1], runes[i]
	switch {
	case unicode.IsDigit(cur) != unicode.IsDigit(prev):
		return true
	case unicode.IsUpper(cur) && unicode.IsLower(prev):
		return true
	case unicode.IsUpper(cur) && unicode.IsUpper(prev):
		// the last capital of an acronym starts the next word: HTTPServer
		return i+1 < len(runes) && unicode.IsLower(runes[i+1])
	}
	return false
}
