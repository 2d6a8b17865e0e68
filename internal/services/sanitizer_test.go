package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeCode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Fenced with language tag", "```html\n<p>hi</p>\n```", "<p>hi</p>"},
		{"Fenced without language tag", "```\n<p>hi</p>\n```", "<p>hi</p>"},
		{"No fences", "  <p>hi</p>\n", "<p>hi</p>"},
		{"Only opening fence", "```html\n<!DOCTYPE html><html></html>", "<!DOCTYPE html><html></html>"},
		{"Only closing fence", "<html></html>\n```", "<html></html>"},
		{"Surrounding whitespace", "\n\n  ```HTML\n<div></div>\n```  \n", "<div></div>"},
		{"CRLF line endings", "```html\r\n<p>x</p>\r\n```", "<p>x</p>"},
		{"Nested fences collapse", "```\n```html\n<p>x</p>\n```\n```", "<p>x</p>"},
		{"Inner fences untouched", "<pre>```go\nx\n```</pre>", "<pre>```go\nx\n```</pre>"},
		{"Empty", "", ""},
		{"Only fences", "```html\n```", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := SanitizeCode(tt.input)
			assert.Equal(t, tt.expected, out)
			assert.Equal(t, out, SanitizeCode(out), "must be idempotent")
		})
	}
}

func TestInspectDocument(t *testing.T) {
	doc := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title> Bakery </title>
  <script src="https://cdn.jsdelivr.net/npm/@tailwindcss/browser@4"></script>
</head>
<body class="bg-white"><script>console.log(1)</script></body>
</html>`

	report := InspectDocument(doc)
	assert.Equal(t, "Bakery", report.Title)
	assert.True(t, report.HasHTMLTag)
	assert.True(t, report.HasBody)
	assert.True(t, report.HasTailwind)
	assert.Equal(t, 2, report.Scripts)

	empty := InspectDocument("not html at all")
	assert.False(t, empty.HasHTMLTag)
	assert.False(t, empty.HasTailwind)
}
