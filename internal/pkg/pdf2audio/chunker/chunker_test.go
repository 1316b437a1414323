package chunker

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_Scenario(t *testing.T) {
	units := Chunk("Hello world. This is a test.", 15)

	require.Len(t, units, 2)
	assert.Equal(t, "Hello world.", units[0].Text)
	assert.Equal(t, "This is a test.", units[1].Text)
	for _, u := range units {
		assert.LessOrEqual(t, u.Len(), 15)
	}
}

func TestChunk_Empty(t *testing.T) {
	tests := []string{"", " ", "\n\n\t  \r\n", "\f"}

	for _, input := range tests {
		assert.Empty(t, Chunk(input, 20), "input %q", input)
	}
}

func TestChunk_DefaultLimit(t *testing.T) {
	text := strings.Repeat("word ", 200)

	units := Chunk(text, 0)

	require.Greater(t, len(units), 1)
	for _, u := range units {
		assert.LessOrEqual(t, u.Len(), DefaultMaxUnitLength)
	}
}

func TestChunk_PacksSentences(t *testing.T) {
	units := Chunk("One. Two. Three. Four.", 10)

	texts := unitTexts(units)
	assert.Equal(t, []string{"One. Two.", "Three.", "Four."}, texts)
}

func TestChunk_ParagraphBreakEndsUnit(t *testing.T) {
	units := Chunk("Title\n\nFirst line of body. Second.", 200)

	texts := unitTexts(units)
	assert.Equal(t, []string{"Title", "First line of body. Second."}, texts)
}

func TestChunk_Abbreviations(t *testing.T) {
	text := "Dr. Smith met J. Doe at 9.30 today. They talked."

	units := Chunk(text, 40)

	texts := unitTexts(units)
	assert.Equal(t, []string{"Dr. Smith met J. Doe at 9.30 today.", "They talked."}, texts)
}

func TestChunk_ClosingQuotes(t *testing.T) {
	units := Chunk(`He said "stop." Then he left.`, 16)

	texts := unitTexts(units)
	assert.Equal(t, []string{`He said "stop."`, "Then he left."}, texts)
}

func TestChunk_LongSentenceSplitsAtClause(t *testing.T) {
	text := "alpha beta gamma delta, epsilon zeta eta theta iota kappa"

	units := Chunk(text, 30)

	require.NotEmpty(t, units)
	assert.Equal(t, "alpha beta gamma delta,", units[0].Text)
	for _, u := range units {
		assert.LessOrEqual(t, u.Len(), 30)
	}
}

func TestChunk_LongSentenceSplitsAtWord(t *testing.T) {
	text := "aaaa bbbb cccc dddd eeee ffff"

	units := Chunk(text, 12)

	texts := unitTexts(units)
	assert.Equal(t, []string{"aaaa bbbb", "cccc dddd", "eeee ffff"}, texts)
}

func TestChunk_NoBoundaries(t *testing.T) {
	text := strings.Repeat("x", 25)

	units := Chunk(text, 10)

	texts := unitTexts(units)
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, texts)
}

func TestChunk_MultibyteLimit(t *testing.T) {
	text := "안녕하세요 여러분. 오늘은 날씨가 좋습니다."

	units := Chunk(text, 10)

	require.NotEmpty(t, units)
	for _, u := range units {
		assert.LessOrEqual(t, u.Len(), 10)
	}
	assertCoverage(t, text, units)
}

func TestChunk_Properties(t *testing.T) {
	inputs := []string{
		"Hello world. This is a test.",
		"A sentence without terminal punctuation that goes on for a while and never stops",
		"Short.\n\nAnother paragraph! With two sentences? Yes.\n\n\n   Third paragraph…  Done.",
		strings.Repeat("Supercalifragilisticexpialidocious ", 12),
		"Numbers like 3.14159 and 2.71828, times like 10:30, and lists; semicolons: colons.",
		"Mixed 한국어 text. 中文句子。English again! ¿Qué tal? Bien.",
		"line one\nline two\nline three. line four\r\n\r\nline five",
	}
	limits := []int{1, 5, 12, 15, 40, 300}

	for _, input := range inputs {
		for _, limit := range limits {
			units := Chunk(input, limit)

			require.NotEmpty(t, units, "input %q limit %d", input, limit)
			for i, u := range units {
				assert.Equal(t, i, u.Index)
				assert.LessOrEqual(t, u.Len(), limit, "unit %q", u.Text)
				assert.Equal(t, input[u.Start:u.End], u.Text)
				assert.Equal(t, strings.TrimSpace(u.Text), u.Text)
				if i > 0 {
					assert.GreaterOrEqual(t, u.Start, units[i-1].End)
				}
			}
			assertCoverage(t, input, units)
		}
	}
}

func unitTexts(units []Unit) []string {
	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.Text
	}
	return texts
}

func assertCoverage(t *testing.T, input string, units []Unit) {
	t.Helper()

	var joined strings.Builder
	for _, u := range units {
		joined.WriteString(u.Text)
	}
	assert.Equal(t, stripSpace(input), stripSpace(joined.String()))
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
