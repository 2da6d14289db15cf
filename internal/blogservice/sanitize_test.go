package blogservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeMarkdown(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no script tag",
			input: "Hello, World!",
			want:  "Hello, World!",
		},
		{
			name:  "script tag",
			input: "<script>alert('Hello, World!');</script>",
			want:  "",
		},
		{
			name: "multiple script tags",
			input: "Here is some text.\n<script>alert('Hello, world!');</script>\nMore text.\n" +
				`<SCRIPT SRC="evil.js"></SCRIPT>`,
			want: "Here is some text.\n\nMore text.",
		},
		{
			name:  "multi-line script",
			input: "a<script>\nalert(1)\n</script>b",
			want:  "ab",
		},
		{
			name:  "event handler",
			input: `<img src="x.png" onerror="alert(1)">`,
			want:  `<img src="x.png">`,
		},
		{
			name:  "javascript link",
			input: `[click](javascript:alert(1))`,
			want:  `[click](#alert(1))`,
		},
		{
			name:  "handler without whitespace",
			input: `<svg/onload=alert(1)>`,
			want:  "",
		},
		{
			name:  "data iframe",
			input: `before<iframe src="data:text/html,<script>alert(1)</script>"></iframe>after`,
			want:  "beforeafter",
		},
		{
			name:  "prose mentioning javascript",
			input: "Learn javascript: the basics",
			want:  "Learn javascript: the basics",
		},
		{
			name:  "markdown is kept",
			input: "# Title\n\n- one\n- two\n\n`code` and **bold**",
			want:  "# Title\n\n- one\n- two\n\n`code` and **bold**",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			output := sanitizeMarkdown(tc.input)
			assert.Equal(t, tc.want, output)
		})
	}
}

func TestSanitizeMarkdown_Links(t *testing.T) {
	out := sanitizeMarkdown(`<a href="javascript:alert(1)">x</a> <a href="https://example.com">ok</a>`)

	assert.NotContains(t, out, "javascript")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, ">ok</a>")
}

func TestReadingTime(t *testing.T) {
	testCases := []struct {
		name  string
		words int
		want  int
	}{
		{name: "empty", words: 0, want: 1},
		{name: "short", words: 10, want: 1},
		{name: "exact", words: 200, want: 1},
		{name: "one over", words: 201, want: 2},
		{name: "long", words: 1000, want: 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text := ""
			for i := 0; i < tc.words; i++ {
				text += "word "
			}
			assert.Equal(t, tc.want, readingTime(text))
		})
	}
}
