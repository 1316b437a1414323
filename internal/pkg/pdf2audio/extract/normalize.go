package extract

import (
	"regexp"
	"strings"
)

var (
	hyphenWrapRe = regexp.MustCompile(`(\p{L})-\n[ \t]*(\p{Ll})`)
	blankLineRe  = regexp.MustCompile(`\n[ \t]*(?:\n[ \t]*)+`)
	spaceRunRe   = regexp.MustCompile(`[ \t\v]+`)
)

// Normalize turns page-laid-out text into paragraphs separated by blank
// lines. Page breaks become paragraph breaks, words hyphenated across a line
// break are rejoined and wrapped lines inside a paragraph are joined with a
// single space.
func Normalize(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\f", "\n\n")
	text = hyphenWrapRe.ReplaceAllString(text, "$1$2")

	var paras []string
	for _, block := range blankLineRe.Split(text, -1) {
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			if line = strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			paras = append(paras, strings.Join(lines, " "))
		}
	}
	return strings.Join(paras, "\n\n")
}
