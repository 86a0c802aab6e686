package util

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Capitalize upper-cases the first letter and lower-cases the rest, so
// "DARK BLUE" becomes "Dark blue". Surrounding whitespace is dropped.
func Capitalize(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToTitle(r)) + cases.Lower(language.Und).String(s[size:])
}
