// Package textclean strips reading noise from extracted document text:
// citation markers, footnote lines and trailing reference sections.
package textclean

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	numericCitationRe = regexp.MustCompile(`\s?\[\d+(?:\s*[,–-]\s*\d+)*\]`)
	authorYearRe      = regexp.MustCompile(`\s?\([A-Z][^()\n]{0,80}?,?\s(?:19|20)\d{2}[a-z]?(?:;\s[^()\n]{0,80}?(?:19|20)\d{2}[a-z]?)*\)`)
	superscriptRe     = regexp.MustCompile(`[¹²³⁰⁴⁵⁶⁷⁸⁹]+`)
	footnoteLineRe    = regexp.MustCompile(`(?m)^[ \t]*(?:[¹²³⁰⁴⁵⁶⁷⁸⁹]+|[*†‡§]+)[ \t]*\S.*$\n?`)
	referencesRe      = regexp.MustCompile(`(?im)^[ \t]*(?:\d+\.?[ \t]+)?(?:references|bibliography|works cited|literature cited|endnotes|notes)[ \t]*$`)
	spaceBeforePunct  = regexp.MustCompile(`[ \t]+([.,;:!?])`)
	doubleSpaceRe     = regexp.MustCompile(`[ \t]{2,}`)
)

// RemoveFootnotes returns text without bracketed numeric citations,
// author-year citations, superscript markers, lines that start with a
// footnote marker and a references section in the second half of the text.
// Line structure is preserved so the result can still be normalized.
func RemoveFootnotes(text string) string {
	text = cutReferences(text)
	text = footnoteLineRe.ReplaceAllString(text, "")
	text = numericCitationRe.ReplaceAllString(text, "")
	text = authorYearRe.ReplaceAllString(text, "")
	text = superscriptRe.ReplaceAllString(text, "")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	return doubleSpaceRe.ReplaceAllString(text, " ")
}

// cutReferences drops everything from the last references heading onward,
// provided the heading sits in the second half of the text. Earlier matches
// are usually a table of contents.
func cutReferences(text string) string {
	matches := referencesRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	last := matches[len(matches)-1]
	total := utf8.RuneCountInString(text)
	if utf8.RuneCountInString(text[:last[0]])*2 < total {
		return text
	}
	return strings.TrimRight(text[:last[0]], " \t\n\f")
}
