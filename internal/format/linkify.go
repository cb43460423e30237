// Package format turns conversation turns into the widget's HTML markup.
package format

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	// urlPattern matches http(s) URLs with optional userinfo, a dotted host and
	// an optional path. Dotless hosts such as localhost stay text.
	urlPattern = `https?://(?:[^\s/@<>"']+@)?[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?)+(?::[0-9]{1,5})?(?:[/?#][^\s<>"']*)?`
	// emailPattern is deliberately loose; exotic addresses are simply left as text
	emailPattern = `[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}`

	// One pass over both patterns, so a URL that contains an "@" is never
	// wrapped a second time as an email.
	linkPattern = regexp.MustCompile(`(` + urlPattern + `)|(` + emailPattern + `)`)
)

// trailingPunct is sentence punctuation that ends a URL rather than belonging to it
const trailingPunct = ".,!?;:"

// Linkify escapes text and turns URLs and email addresses into hyperlinks.
// URLs open externally and show the original URL; emails become mailto links.
func Linkify(text string) string {
	var sb strings.Builder
	last := 0

	for _, m := range linkPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		isURL := m[2] >= 0

		if isURL {
			end = start + len(trimURL(text[start:end]))
		}

		sb.WriteString(html.EscapeString(text[last:start]))
		match := html.EscapeString(text[start:end])
		if isURL {
			sb.WriteString(`<a href="` + match + `" target="_blank" rel="noopener noreferrer">` + match + `</a>`)
		} else {
			sb.WriteString(`<a href="mailto:` + match + `">` + match + `</a>`)
		}
		last = end
	}

	sb.WriteString(html.EscapeString(text[last:]))
	return sb.String()
}

// trimURL drops trailing sentence punctuation, and a closing parenthesis that
// has no opening partner inside the URL.
func trimURL(u string) string {
	for len(u) > 0 {
		c := u[len(u)-1]
		switch {
		case strings.IndexByte(trailingPunct, c) >= 0:
			u = u[:len(u)-1]
		case c == ')' && strings.Count(u, "(") < strings.Count(u, ")"):
			u = u[:len(u)-1]
		default:
			return u
		}
	}
	return u
}
