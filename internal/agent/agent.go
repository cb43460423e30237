// Package agent produces answers for the /chat endpoint.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chat-widget/internal/analyzer"
	"chat-widget/internal/chatapi"
	"chat-widget/internal/crawler"
	"chat-widget/internal/history"
	"chat-widget/internal/ollama"
	"chat-widget/internal/searxng"
)

// ErrEmptyAnswer is returned when the model produced no text
var ErrEmptyAnswer = errors.New("agent returned an empty answer")

// Answer is an agent's reply to one prompt
type Answer struct {
	Text       string
	References []chatapi.Reference
}

// Agent answers a prompt within a conversation session
type Agent interface {
	Answer(ctx context.Context, sessionID, prompt string) (Answer, error)
}

// ChatModel is the LLM backend
type ChatModel interface {
	ChatSync(ctx context.Context, model string, messages []ollama.Message) (string, error)
}

// Searcher looks up reference documents
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]searxng.SearchResult, error)
}

// PageCrawler fetches the full text of reference pages
type PageCrawler interface {
	Crawl(ctx context.Context, urls []string) []crawler.Page
}

const (
	systemPrompt = "You are a helpful assistant embedded in a website chat widget. Answer concisely in plain text."
	sourcesNote  = " You have access to reference documents. Cite sources when referencing specific information."
	contextAck   = "I've reviewed the reference documents and I'm ready to answer your question based on this information."
)

// OllamaAgent answers with an Ollama model, keeping per-session history and
// optionally grounding the answer in SearXNG results.
type OllamaAgent struct {
	model        ChatModel
	modelName    string
	history      *history.Manager
	historyTurns int

	searcher   Searcher
	maxResults int
	crawler    PageCrawler
	analyzer   *analyzer.Analyzer

	logger zerolog.Logger
}

// Option configures an OllamaAgent
type Option func(*OllamaAgent)

// WithSearcher enables reference lookup
func WithSearcher(s Searcher, maxResults int) Option {
	return func(a *OllamaAgent) {
		a.searcher = s
		a.maxResults = maxResults
	}
}

// WithCrawler replaces search snippets with crawled page text
func WithCrawler(c PageCrawler) Option {
	return func(a *OllamaAgent) { a.crawler = c }
}

// WithAnalyzer only searches when the analyzer asks for references.
// Without one every prompt is searched.
func WithAnalyzer(an *analyzer.Analyzer) Option {
	return func(a *OllamaAgent) { a.analyzer = an }
}

// WithHistoryTurns sets how many stored messages are replayed to the model
func WithHistoryTurns(n int) Option {
	return func(a *OllamaAgent) { a.historyTurns = n }
}

// WithLogger sets the agent's logger
func WithLogger(l zerolog.Logger) Option {
	return func(a *OllamaAgent) { a.logger = l }
}

// NewOllamaAgent creates an agent. hist may be nil to disable history.
func NewOllamaAgent(model ChatModel, modelName string, hist *history.Manager, opts ...Option) *OllamaAgent {
	a := &OllamaAgent{
		model:        model,
		modelName:    modelName,
		history:      hist,
		historyTurns: 10,
		maxResults:   3,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer implements Agent
func (a *OllamaAgent) Answer(ctx context.Context, sessionID, prompt string) (Answer, error) {
	logger := a.logger.With().Str("session_id", sessionID).Logger()
	asked := time.Now()

	refs, searchContext := a.lookup(ctx, logger, prompt)

	var recent []history.Message
	if a.history != nil {
		recent = a.history.Recent(sessionID, a.historyTurns)
	}

	text, err := a.model.ChatSync(ctx, a.modelName, buildMessages(recent, prompt, searchContext))
	if err != nil {
		return Answer{}, fmt.Errorf("model call failed: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Answer{}, ErrEmptyAnswer
	}

	if a.history != nil {
		err := a.history.Append(sessionID,
			history.Message{Role: "user", Content: prompt, Timestamp: asked},
			history.Message{Role: "assistant", Content: text, Timestamp: time.Now(), References: refs},
		)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to save history")
		}
	}

	logger.Debug().
		Int("references", len(refs)).
		Dur("elapsed", time.Since(asked)).
		Msg("answered")
	return Answer{Text: text, References: refs}, nil
}

// lookup finds references for the prompt. Search failures only cost the
// references, never the answer.
func (a *OllamaAgent) lookup(ctx context.Context, logger zerolog.Logger, prompt string) ([]chatapi.Reference, string) {
	if a.searcher == nil {
		return nil, ""
	}
	if a.analyzer != nil {
		decision := a.analyzer.Analyze(prompt)
		logger.Debug().
			Bool("needs_references", decision.NeedsReferences).
			Int("score", decision.Score).
			Str("reason", decision.Reason).
			Msg("analyzed prompt")
		if !decision.NeedsReferences {
			return nil, ""
		}
	}

	results, err := a.searcher.Search(ctx, prompt, a.maxResults)
	if err != nil {
		logger.Warn().Err(err).Msg("search failed")
		return nil, ""
	}
	if len(results) == 0 {
		return nil, ""
	}

	sources := make([]source, len(results))
	for i, r := range results {
		sources[i] = source{title: r.Title, url: r.URL, content: r.Content}
	}

	if a.crawler != nil {
		urls := make([]string, len(results))
		for i, r := range results {
			urls[i] = r.URL
		}
		for i, page := range a.crawler.Crawl(ctx, urls) {
			if page.Err != nil {
				logger.Debug().Err(page.Err).Str("url", page.URL).Msg("crawl failed")
				continue
			}
			if page.Content != "" {
				sources[i].content = page.Content
			}
			if sources[i].title == "" {
				sources[i].title = page.Title
			}
		}
	}

	refs := make([]chatapi.Reference, len(sources))
	for i, s := range sources {
		title := s.title
		if title == "" {
			title = s.url
		}
		refs[i] = chatapi.Reference{Title: title, URL: s.url}
	}
	return refs, buildSearchContext(sources)
}

type source struct {
	title   string
	url     string
	content string
}

// buildSearchContext formats reference documents for the model
func buildSearchContext(sources []source) string {
	var sb strings.Builder
	sb.WriteString("# Reference Documents\n\n")
	n := 0
	for _, s := range sources {
		if s.content == "" {
			continue
		}
		n++
		fmt.Fprintf(&sb, "## Source %d: %s\nURL: %s\n\n%s\n\n---\n\n", n, s.title, s.url, s.content)
	}
	if n == 0 {
		return ""
	}
	return sb.String()
}

// buildMessages constructs the message array for Ollama
func buildMessages(recent []history.Message, prompt, searchContext string) []ollama.Message {
	system := systemPrompt
	if searchContext != "" {
		system += sourcesNote
	}
	messages := []ollama.Message{{Role: "system", Content: system}}

	if searchContext != "" {
		messages = append(messages,
			ollama.Message{Role: "user", Content: searchContext},
			ollama.Message{Role: "assistant", Content: contextAck},
		)
	}

	for _, msg := range recent {
		messages = append(messages, ollama.Message{Role: msg.Role, Content: msg.Content})
	}

	return append(messages, ollama.Message{Role: "user", Content: prompt})
}
