// Package sanitize cleans user-supplied note text. Note bodies keep the
// formatting a rich text editor emits plus the data-secret marker for
// GM-only text; titles and labels are reduced to plain text.
package sanitize

import (
	"bytes"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
)

var (
	bodyPolicy *bluemonday.Policy
	textPolicy *bluemonday.Policy
	policyOnce sync.Once
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		bodyPolicy = bluemonday.UGCPolicy()
		// Editor output uses classes for alignment and code blocks.
		bodyPolicy.AllowAttrs("class").Globally()
		bodyPolicy.AllowAttrs("style").OnElements("span", "p")
		bodyPolicy.AllowElements("table", "thead", "tbody", "tr", "td", "th")
		bodyPolicy.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
		bodyPolicy.AllowAttrs("data-secret").OnElements("span")

		textPolicy = bluemonday.StrictPolicy()
	})
	return bodyPolicy, textPolicy
}

// HTML sanitizes a note body. Must be called before the note is stored.
func HTML(input string) string {
	if input == "" {
		return ""
	}
	body, _ := policies()
	return body.Sanitize(input)
}

// Text strips every tag from input and returns the unescaped text, for
// fields rendered as plain strings (titles, categories, user names).
func Text(input string) string {
	if input == "" {
		return ""
	}
	_, text := policies()
	return strings.TrimSpace(html.UnescapeString(text.Sanitize(input)))
}

// StripSecretsHTML removes <span data-secret> elements and everything inside
// them, including nested spans, hiding GM-only text from players.
func StripSecretsHTML(input string) string {
	if !strings.Contains(input, "data-secret") {
		return input
	}

	z := xhtml.NewTokenizer(strings.NewReader(input))
	var out bytes.Buffer
	depth := 0 // open spans inside the current secret
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			return out.String()
		}
		// TagName lowercases the token buffer in place; copy first.
		raw := append([]byte(nil), z.Raw()...)

		switch tt {
		case xhtml.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) == "span" {
				if depth > 0 {
					depth++
					continue
				}
				if hasAttr && hasSecretAttr(z) {
					depth = 1
					continue
				}
			}
		case xhtml.EndTagToken:
			name, _ := z.TagName()
			if depth > 0 && string(name) == "span" {
				depth--
				continue
			}
		}
		if depth == 0 {
			out.Write(raw)
		}
	}
}

func hasSecretAttr(z *xhtml.Tokenizer) bool {
	for {
		key, _, more := z.TagAttr()
		if string(key) == "data-secret" {
			return true
		}
		if !more {
			return false
		}
	}
}
