package render

import (
	"strings"

	xhtml "golang.org/x/net/html"
)

// skipped holds elements whose text never reaches the reader.
var skipped = map[string]bool{
	"head":   true,
	"script": true,
	"style":  true,
	"title":  true,
}

// PlainText converts an HTML body (typically an error page returned by a
// proxy in front of the API) to plain text wrapped at width. Input without
// markup passes through with its whitespace collapsed.
func PlainText(raw string, width int) string {
	if raw == "" {
		return ""
	}

	tokenizer := xhtml.NewTokenizer(strings.NewReader(raw))
	var sb strings.Builder
	depth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case xhtml.ErrorToken:
			return wrapText(strings.Join(strings.Fields(sb.String()), " "), width)

		case xhtml.StartTagToken:
			t := tokenizer.Token()
			if skipped[t.Data] {
				depth++
				continue
			}
			switch t.Data {
			case "p", "br", "h1", "h2", "h3", "li", "div", "tr":
				sb.WriteString(" ")
			}

		case xhtml.EndTagToken:
			t := tokenizer.Token()
			if skipped[t.Data] && depth > 0 {
				depth--
			}

		case xhtml.TextToken:
			if depth > 0 {
				continue
			}
			sb.Write(tokenizer.Text())
			sb.WriteString(" ")
		}
	}
}

// wrapText performs simple word wrapping to the given width.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		wlen := len(word)
		if i > 0 && lineLen+1+wlen > width {
			result.WriteString("\n")
			lineLen = 0
		} else if i > 0 {
			result.WriteString(" ")
			lineLen++
		}
		result.WriteString(word)
		lineLen += wlen
	}
	return result.String()
}
