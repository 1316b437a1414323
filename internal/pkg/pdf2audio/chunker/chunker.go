// Package chunker splits long text into synthesis units that fit the model's
// input length while keeping sentence and clause boundaries intact.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxUnitLength is the unit bound, in characters, used when the
	// caller passes a non-positive limit.
	DefaultMaxUnitLength = 300
)

// Unit is one piece of the source text submitted to the model in a single
// inference call. Text is always exactly source[Start:End].
type Unit struct {
	Index int
	Text  string
	Start int
	End   int
}

// Len returns the length of the unit in characters.
func (u Unit) Len() int {
	return utf8.RuneCountInString(u.Text)
}

type span struct {
	start, end int
}

var paragraphBreakRe = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

var abbreviations = map[string]struct{}{
	"dr.": {}, "mr.": {}, "mrs.": {}, "ms.": {}, "prof.": {}, "sr.": {}, "jr.": {},
	"st.": {}, "ave.": {}, "rd.": {}, "blvd.": {}, "dept.": {}, "inc.": {}, "ltd.": {},
	"co.": {}, "corp.": {}, "etc.": {}, "vs.": {}, "i.e.": {}, "e.g.": {}, "ph.d.": {},
	"fig.": {}, "no.": {}, "vol.": {}, "pp.": {}, "cf.": {}, "al.": {}, "approx.": {},
}

// Chunk splits text into ordered units of at most maxUnitLength characters.
// Paragraph breaks always end a unit; inside a paragraph whole sentences are
// packed greedily. A sentence that alone exceeds the limit is split at the
// last clause or word boundary that fits, and only a single token longer than
// the limit is cut mid-word. Empty or whitespace-only text yields no units.
func Chunk(text string, maxUnitLength int) []Unit {
	if maxUnitLength <= 0 {
		maxUnitLength = DefaultMaxUnitLength
	}

	c := &chunker{text: text, max: maxUnitLength}
	for _, para := range paragraphs(text) {
		c.packParagraph(para)
	}
	return c.units
}

type chunker struct {
	text  string
	max   int
	units []Unit
}

func (c *chunker) runeLen(s span) int {
	return utf8.RuneCountInString(c.text[s.start:s.end])
}

func (c *chunker) emit(s span) {
	s = trimSpan(c.text, s)
	if s.start >= s.end {
		return
	}
	c.units = append(c.units, Unit{
		Index: len(c.units),
		Text:  c.text[s.start:s.end],
		Start: s.start,
		End:   s.end,
	})
}

func (c *chunker) packParagraph(para span) {
	cur := span{start: -1}
	flush := func() {
		if cur.start >= 0 {
			c.emit(cur)
			cur = span{start: -1}
		}
	}

	for _, sent := range sentences(c.text, para) {
		if c.runeLen(sent) > c.max {
			flush()
			c.splitLong(sent)
			continue
		}
		if cur.start < 0 {
			cur = sent
			continue
		}
		if c.runeLen(span{cur.start, sent.end}) <= c.max {
			cur.end = sent.end
			continue
		}
		flush()
		cur = sent
	}
	flush()
}

// splitLong cuts an over-long sentence into pieces of at most c.max
// characters.
func (c *chunker) splitLong(s span) {
	pos := s.start
	for pos < s.end {
		rest := span{pos, s.end}
		if c.runeLen(rest) <= c.max {
			c.emit(rest)
			return
		}

		cut := c.cutPoint(pos, s.end)
		c.emit(span{pos, cut})
		pos = skipSpace(c.text, cut, s.end)
	}
}

// cutPoint returns the byte offset at which the piece starting at pos ends.
// The piece text[pos:cut] is never longer than c.max characters.
func (c *chunker) cutPoint(pos, end int) int {
	limit := pos
	for n := 0; n < c.max && limit < end; n++ {
		_, size := utf8.DecodeRuneInString(c.text[limit:])
		limit += size
	}

	lastSpace, lastClause := -1, -1
	prev := rune(0)
	for i := pos; i <= limit && i < end; {
		r, size := utf8.DecodeRuneInString(c.text[i:])
		if unicode.IsSpace(r) && i > pos {
			lastSpace = i
			if isClauseMark(prev) {
				lastClause = i
			}
		}
		prev = r
		i += size
	}

	if lastClause > pos && c.runeLen(span{pos, lastClause})*2 >= c.max {
		return lastClause
	}
	if lastSpace > pos {
		return lastSpace
	}
	return limit
}

func isClauseMark(r rune) bool {
	switch r {
	case ',', ';', ':', '，', '；', '：', '、':
		return true
	}
	return false
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '。', '！', '？':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '»', '」', '』':
		return true
	}
	return false
}

// paragraphs returns the non-empty, trimmed paragraph spans of text.
func paragraphs(text string) []span {
	var out []span
	start := 0
	for _, m := range paragraphBreakRe.FindAllStringIndex(text, -1) {
		if s := trimSpan(text, span{start, m[0]}); s.start < s.end {
			out = append(out, s)
		}
		start = m[1]
	}
	if s := trimSpan(text, span{start, len(text)}); s.start < s.end {
		out = append(out, s)
	}
	return out
}

// sentences splits a paragraph span into trimmed sentence spans.
func sentences(text string, para span) []span {
	var out []span
	start := para.start
	for i := para.start; i < para.end; {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if !isTerminal(r) {
			continue
		}

		end := i
		for end < para.end {
			next, nsize := utf8.DecodeRuneInString(text[end:])
			if !isTerminal(next) && !isCloser(next) {
				break
			}
			end += nsize
		}
		i = end

		if end < para.end {
			next, _ := utf8.DecodeRuneInString(text[end:])
			if !unicode.IsSpace(next) {
				continue
			}
		}
		if r == '.' && isAbbreviation(text, start, end) {
			continue
		}

		if s := trimSpan(text, span{start, end}); s.start < s.end {
			out = append(out, s)
		}
		start = end
	}
	if s := trimSpan(text, span{start, para.end}); s.start < s.end {
		out = append(out, s)
	}
	return out
}

// isAbbreviation reports whether the word ending at end is a known
// abbreviation or a single-letter initial.
func isAbbreviation(text string, from, end int) bool {
	wordStart := end
	for wordStart > from {
		r, size := utf8.DecodeLastRuneInString(text[from:wordStart])
		if unicode.IsSpace(r) {
			break
		}
		wordStart -= size
	}
	word := strings.TrimLeft(text[wordStart:end], "\"'([{“‘")
	if _, ok := abbreviations[strings.ToLower(word)]; ok {
		return true
	}
	if utf8.RuneCountInString(word) == 2 {
		r, _ := utf8.DecodeRuneInString(word)
		return unicode.IsUpper(r)
	}
	return false
}

func trimSpan(text string, s span) span {
	for s.start < s.end {
		r, size := utf8.DecodeRuneInString(text[s.start:s.end])
		if !unicode.IsSpace(r) {
			break
		}
		s.start += size
	}
	for s.end > s.start {
		r, size := utf8.DecodeLastRuneInString(text[s.start:s.end])
		if !unicode.IsSpace(r) {
			break
		}
		s.end -= size
	}
	return s
}

func skipSpace(text string, pos, end int) int {
	for pos < end {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if !unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	return pos
}
