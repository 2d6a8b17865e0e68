package services

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	fenceOpener = regexp.MustCompile("^```[A-Za-z0-9_+.-]*[ \t]*\r?\n?")
	fenceCloser = regexp.MustCompile("\r?\n?[ \t]*```$")
)

// SanitizeCode strips a leading fenced-block opener (with optional language
// tag) and a trailing closer from model output, then trims whitespace. It
// repeats until nothing changes, so SanitizeCode(SanitizeCode(x)) == SanitizeCode(x).
func SanitizeCode(raw string) string {
	out := strings.TrimSpace(raw)
	for {
		next := fenceOpener.ReplaceAllString(out, "")
		next = strings.TrimSpace(fenceCloser.ReplaceAllString(next, ""))
		if next == out {
			return out
		}
		out = next
	}
}

const tailwindScriptMarker = "@tailwindcss/browser"

// DocumentReport summarises a generated document for logging.
type DocumentReport struct {
	Title       string
	HasHTMLTag  bool
	HasBody     bool
	HasTailwind bool
	Scripts     int
}

// InspectDocument parses code leniently and reports what it found. It never
// rejects a document; browsers tolerate far worse.
func InspectDocument(code string) DocumentReport {
	var report DocumentReport

	z := html.NewTokenizer(strings.NewReader(code))
	inTitle := false
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return report
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "html":
				report.HasHTMLTag = true
			case "body":
				report.HasBody = true
			case "title":
				inTitle = tt == html.StartTagToken
			case "script":
				report.Scripts++
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "src" && strings.Contains(string(val), tailwindScriptMarker) {
						report.HasTailwind = true
					}
				}
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "title" {
				inTitle = false
			}
		case html.TextToken:
			if inTitle && report.Title == "" {
				report.Title = strings.TrimSpace(string(z.Text()))
			}
		}
	}
}
