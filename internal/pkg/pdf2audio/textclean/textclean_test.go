package textclean

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveFootnotes_Citations(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "numeric", in: "Prior work [12] showed this.", want: "Prior work showed this."},
		{name: "numeric range", in: "Results [3-5] and [7, 9] agree.", want: "Results and agree."},
		{name: "author year", in: "Speech is hard (Smith et al., 2019).", want: "Speech is hard."},
		{name: "multiple authors", in: "It works (Lee and Park, 2021; Kim, 2020b) well.", want: "It works well."},
		{name: "superscript", in: "A claim¹ and another².", want: "A claim and another."},
		{name: "keeps plain parentheses", in: "A value (about five) remains.", want: "A value (about five) remains."},
		{name: "keeps years in prose", in: "In 2019 the team (of four) met.", want: "In 2019 the team (of four) met."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemoveFootnotes(tt.in))
		})
	}
}

func TestRemoveFootnotes_FootnoteLines(t *testing.T) {
	in := "Body text continues here.\n¹ See the appendix for details.\n* Corresponding author.\nNext line."

	got := RemoveFootnotes(in)

	assert.Equal(t, "Body text continues here.\nNext line.", got)
}

func TestRemoveFootnotes_ReferencesSection(t *testing.T) {
	body := strings.Repeat("Body sentence number one.\n", 20)
	in := body + "\nReferences\n[1] A. Author. A paper. 2020.\n[2] B. Author. Another. 2021.\n"

	got := RemoveFootnotes(in)

	assert.Equal(t, strings.TrimRight(body, "\n"), got)
	assert.NotContains(t, got, "Author")
}

func TestRemoveFootnotes_NumberedBibliography(t *testing.T) {
	body := strings.Repeat("Some text.\n", 30)

	got := RemoveFootnotes(body + "7 Bibliography\nEntry one.\n")

	assert.NotContains(t, got, "Bibliography")
	assert.NotContains(t, got, "Entry one")
}

func TestRemoveFootnotes_KeepsEarlyReferencesHeading(t *testing.T) {
	in := "Contents\nReferences\n" + strings.Repeat("Chapter text goes on.\n", 10)

	got := RemoveFootnotes(in)

	assert.Contains(t, got, "References")
	assert.Contains(t, got, "Chapter text goes on.")
}

func TestRemoveFootnotes_PlainText(t *testing.T) {
	in := "Nothing to clean here.\n\nSecond paragraph."

	assert.Equal(t, in, RemoveFootnotes(in))
}
