// Package conversation drives one chat widget: it turns a submitted prompt into
// log entries and exactly one request to the chat endpoint.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chat-widget/internal/chatapi"
	"chat-widget/internal/format"
)

// DefaultTimeout bounds a single request when no timeout is configured
const DefaultTimeout = 30 * time.Second

// ErrBusy is returned when a prompt is submitted while another is in flight
var ErrBusy = errors.New("a request is already in flight")

// Sender issues the chat request. *chatapi.Client implements it.
type Sender interface {
	Chat(ctx context.Context, req chatapi.Request) (*chatapi.Response, error)
}

// SessionSource hands out the tab's session identifier. *session.Manager implements it.
type SessionSource interface {
	GetOrCreateSessionID() (string, error)
}

// View is notified of every change to the log, in order
type View interface {
	TurnAppended(t Turn)
	TurnResolved(pending, final Turn)
	ScrollToLatest()
	// SetInputEnabled clears and disables the input while a request is in flight
	SetInputEnabled(enabled bool)
}

// Client owns the state of one widget instance
type Client struct {
	sender   Sender
	sessions SessionSource
	view     View
	log      *Log
	logger   zerolog.Logger
	timeout  time.Duration

	mu       sync.Mutex
	inFlight bool
}

// Option configures a Client
type Option func(*Client)

// WithView sets the view notified of log changes
func WithView(v View) Option {
	return func(c *Client) { c.view = v }
}

// WithLogger sets the diagnostic logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a conversation client with an empty log
func NewClient(sender Sender, sessions SessionSource, opts ...Option) *Client {
	c := &Client{
		sender:   sender,
		sessions: sessions,
		view:     nopView{},
		log:      NewLog(),
		logger:   zerolog.Nop(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Log returns the conversation log
func (c *Client) Log() *Log {
	return c.log
}

// Busy reports whether a request is in flight
func (c *Client) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Submit sends one prompt. A blank prompt is ignored. While a previous
// prompt is in flight, Submit returns ErrBusy without touching the log.
// Request failures end up as error entries in the log, not as return values.
func (c *Client) Submit(ctx context.Context, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		c.logger.Debug().Msg("submission rejected, request in flight")
		return ErrBusy
	}
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
		c.view.SetInputEnabled(true)
	}()

	user := c.log.Append(Turn{Kind: KindUser, Text: prompt, Markup: format.RenderUserTurn(prompt)})
	c.view.TurnAppended(user)
	c.view.ScrollToLatest()

	c.view.SetInputEnabled(false)

	pending := c.log.Append(Turn{Kind: KindPending, Text: format.PendingText, Markup: format.RenderPending()})
	c.view.TurnAppended(pending)
	c.view.ScrollToLatest()

	final := c.exchange(ctx, prompt)

	resolved, err := c.log.ResolvePending(pending.ID, final)
	if err != nil {
		// Only reachable if the log was tampered with from outside.
		return fmt.Errorf("failed to resolve pending turn: %w", err)
	}
	c.view.TurnResolved(pending, resolved)
	c.view.ScrollToLatest()
	return nil
}

// exchange performs the request and maps its outcome to a terminal turn
func (c *Client) exchange(ctx context.Context, prompt string) Turn {
	sessionID, err := c.sessions.GetOrCreateSessionID()
	if err != nil {
		c.logger.Error().Err(err).Msg("session id unavailable")
		return errorTurn("Error occurred: " + err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.sender.Chat(ctx, chatapi.Request{Prompt: prompt, SessionID: sessionID})
	logger := c.logger.With().Str("session_id", sessionID).Dur("elapsed", time.Since(start)).Logger()

	if err != nil {
		return c.failureTurn(ctx, logger, err)
	}

	refs := resp.LinkedReferences()
	logger.Debug().Int("references", len(refs)).Msg("chat response received")
	return Turn{
		Kind:       KindAgent,
		Text:       resp.Response,
		References: refs,
		Markup:     format.RenderAgentTurn(resp.Response, refs),
	}
}

func (c *Client) failureTurn(ctx context.Context, logger zerolog.Logger, err error) Turn {
	var (
		rateLimited *chatapi.RateLimitedError
		status      *chatapi.StatusError
		transport   *chatapi.TransportError
	)

	switch {
	case errors.As(err, &rateLimited):
		logger.Warn().Str("detail", rateLimited.Detail).Msg("rate limited")
		return errorTurn(rateLimited.Detail)
	case errors.As(err, &status):
		logger.Warn().Int("status", status.StatusCode).Msg("chat request failed")
		return errorTurn(status.Error())
	case errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.As(err, &transport) && transport.TimedOut():
		logger.Warn().Dur("timeout", c.timeout).Msg("chat request timed out")
		return errorTurn(fmt.Sprintf("Error occurred: request timed out after %s", c.timeout))
	default:
		logger.Warn().Err(err).Msg("chat transport error")
		return errorTurn("Error occurred: " + err.Error())
	}
}

func errorTurn(message string) Turn {
	return Turn{Kind: KindError, Text: message, Markup: format.RenderError(message)}
}

type nopView struct{}

func (nopView) TurnAppended(Turn)       {}
func (nopView) TurnResolved(Turn, Turn) {}
func (nopView) ScrollToLatest()         {}
func (nopView) SetInputEnabled(bool)    {}
