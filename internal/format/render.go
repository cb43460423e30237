package format

import (
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"chat-widget/internal/chatapi"
)

// PendingText is the working indicator shown while a request is in flight
const PendingText = "Thinking..."

// ReferencesIntro introduces the references disclosure
const ReferencesIntro = "This answer is generated by referring to the documentation below:"

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// markupPolicy allows exactly the elements and attributes the renderers emit.
// Reference URLs come from the server, so anything but http, https and mailto
// loses its href.
func markupPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("div", "p", "strong", "details", "summary")
		p.AllowAttrs("class").Matching(regexp.MustCompile(`^[a-z][a-z -]*$`)).Globally()
		p.AllowAttrs("href").OnElements("a")
		p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
		p.AllowAttrs("rel").Matching(regexp.MustCompile(`^noopener noreferrer$`)).OnElements("a")
		p.AllowURLSchemes("http", "https", "mailto")
		p.RequireParseableURLs(true)
		policy = p
	})
	return policy
}

// RenderUserTurn renders a user prompt bubble
func RenderUserTurn(prompt string) string {
	return `<div class="message-container user-message"><p><strong>You:</strong> ` +
		html.EscapeString(prompt) + `</p></div>`
}

// RenderPending renders the placeholder shown while waiting for a response
func RenderPending() string {
	return `<div class="message-container bot-message pending"><div class="spinner"></div><p>` +
		PendingText + `</p></div>`
}

// RenderError renders an error entry in the agent bubble shape
func RenderError(message string) string {
	return `<div class="message-container bot-message error"><p><strong>Error:</strong> ` +
		html.EscapeString(message) + `</p></div>`
}

// RenderAgentTurn renders a response with its linkified text and, when any
// reference has a URL, a collapsed references disclosure.
func RenderAgentTurn(text string, refs []chatapi.Reference) string {
	var sb strings.Builder
	sb.WriteString(`<div class="message-container bot-message">`)
	sb.WriteString(Linkify(text))
	sb.WriteString(renderReferences(refs))
	sb.WriteString(`</div>`)
	return markupPolicy().Sanitize(sb.String())
}

func renderReferences(refs []chatapi.Reference) string {
	var links strings.Builder
	for _, ref := range refs {
		if ref.URL == "" {
			continue
		}
		label := ref.Title
		if strings.TrimSpace(label) == "" {
			label = ref.URL
		}
		links.WriteString(`<a href="` + html.EscapeString(ref.URL) +
			`" class="reference-button" target="_blank" rel="noopener noreferrer">` +
			html.EscapeString(label) + `</a>`)
	}
	if links.Len() == 0 {
		return ""
	}

	return `<div class="references-container"><details><summary>References</summary><p>` +
		ReferencesIntro + `</p><div class="references">` + links.String() + `</div></details></div>`
}
