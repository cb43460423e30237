package ui

import (
	"bytes"
	"context"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/chatapi"
	"chat-widget/internal/conversation"
	"chat-widget/internal/session"
)

type stubSender struct {
	resp *chatapi.Response
	err  error
}

func (s stubSender) Chat(context.Context, chatapi.Request) (*chatapi.Response, error) {
	return s.resp, s.err
}

func TestTerminalView_SuccessfulTurn(t *testing.T) {
	var out bytes.Buffer
	view := NewTerminalView(&out)
	sender := stubSender{resp: &chatapi.Response{
		Response: "Energy **matters**.",
		Metadata: []chatapi.Reference{{Title: "Manual", URL: "https://docs.example.test/manual"}},
	}}
	c := conversation.NewClient(sender, session.NewManager(session.NewMemoryStorage()), conversation.WithView(view))

	require.NoError(t, c.Submit(context.Background(), "what matters?"))

	got := out.String()
	assert.Contains(t, got, "┌─ You")
	assert.Contains(t, got, "what matters?")
	assert.Contains(t, got, "Thinking...")
	assert.Contains(t, got, "┌─ Assistant")
	assert.Contains(t, got, "matters")
	assert.Contains(t, got, "References:")
	assert.Contains(t, got, "Manual (https://docs.example.test/manual)")
	assert.NotContains(t, got, colorGray, "no colors when not writing to a terminal")
}

func TestTerminalView_ErrorTurn(t *testing.T) {
	var out bytes.Buffer
	view := NewTerminalView(&out)
	c := conversation.NewClient(
		stubSender{err: &chatapi.RateLimitedError{Detail: "slow down"}},
		session.NewManager(session.NewMemoryStorage()),
		conversation.WithView(view),
	)

	require.NoError(t, c.Submit(context.Background(), "again"))

	assert.Contains(t, out.String(), "✗ Error: slow down")
	assert.NotContains(t, out.String(), "Assistant")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "https://例え.jp...", truncate("https://例え.jp/ドキュメント", 16))
	assert.True(t, utf8.ValidString(truncate("ドキュメントドキュメント", 5)))
	assert.Equal(t, "ドキュメ", truncate("ドキュメ", 4), "exact length is kept")
}
