// Package preprocess normalizes unit text into the character stream the
// Supertonic text indexer expects.
package preprocess

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Languages lists the language tags the multilingual models accept.
var Languages = []string{"en", "ko", "es", "pt", "fr"}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	urlRe         = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailRe       = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	emojiRe       = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F700}-\x{1F77F}\x{1F780}-\x{1F7FF}\x{1F800}-\x{1F8FF}\x{1F900}-\x{1F9FF}\x{1FA00}-\x{1FA6F}\x{1FA70}-\x{1FAFF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}\x{1F1E6}-\x{1F1FF}]+`)
	spaceBeforeRe = regexp.MustCompile(` ([,.!?;:'])`)
	terminalRe    = regexp.MustCompile(`[.!?;:,'")\]}…。」』】〉》›»]$`)
)

var symbolReplacer = strings.NewReplacer(
	"–", "-",
	"‑", "-",
	"—", "-",
	"_", " ",
	"“", `"`,
	"”", `"`,
	"‘", "'",
	"’", "'",
	"´", "'",
	"`", "'",
	"[", " ",
	"]", " ",
	"|", " ",
	"/", " ",
	"#", " ",
	"→", " ",
	"←", " ",
	"♥", "",
	"☆", "",
	"♡", "",
	"©", "",
	"\\", "",
	"@", " at ",
	"e.g.,", "for example,",
	"i.e.,", "that is,",
)

var duplicateQuoteReplacer = strings.NewReplacer(`""`, `"`, "''", "'")

// Normalizer prepares text for one language. The zero language skips tagging.
type Normalizer struct {
	lang string
}

func IsSupported(lang string) bool {
	return slices.Contains(Languages, lang)
}

// New returns a Normalizer for lang. An empty lang selects untagged English
// normalization for single-language models.
func New(lang string) (*Normalizer, error) {
	if lang != "" && !IsSupported(lang) {
		return nil, fmt.Errorf("unsupported language %q, available: %v", lang, Languages)
	}
	return &Normalizer{lang: lang}, nil
}

func (n *Normalizer) Language() string {
	return n.lang
}

// Process returns the normalized text, wrapped in <lang></lang> tags when the
// Normalizer has a language. Non-empty output always ends in punctuation.
func (n *Normalizer) Process(text string) string {
	text = norm.NFKD.String(text)
	text = urlRe.ReplaceAllString(text, "")
	text = emailRe.ReplaceAllString(text, "")
	if n.lang == "" || n.lang == "en" {
		text = expandEnglish(text)
	}
	text = emojiRe.ReplaceAllString(text, "")
	text = symbolReplacer.Replace(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = spaceBeforeRe.ReplaceAllString(text, "$1")
	for strings.Contains(text, `""`) || strings.Contains(text, "''") {
		text = duplicateQuoteReplacer.Replace(text)
	}
	text = strings.TrimSpace(text)

	if text != "" && !terminalRe.MatchString(text) {
		text += "."
	}
	if n.lang != "" && text != "" {
		text = "<" + n.lang + ">" + text + "</" + n.lang + ">"
	}
	return text
}
