package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, timeout)
	require.NoError(t, err)
	return c
}

func TestChat_SendsEnvelope(t *testing.T) {
	var got Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"hi there","metadata":[{"title":"Doc","url":"https://x.test"},{"title":"No link"}]}`))
	}, time.Second)

	resp, err := c.Chat(context.Background(), Request{Prompt: "hello", SessionID: "sess-1"})
	require.NoError(t, err)

	assert.Equal(t, Request{Prompt: "hello", SessionID: "sess-1"}, got)
	assert.Equal(t, "hi there", resp.Response)
	require.Len(t, resp.Metadata, 2)
	assert.Equal(t, []Reference{{Title: "Doc", URL: "https://x.test"}}, resp.LinkedReferences())
}

func TestChat_RateLimited(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail", `{"detail":"slow down"}`, "slow down"},
		{"empty body", ``, DefaultRateLimitMessage},
		{"malformed body", `<html>busy</html>`, DefaultRateLimitMessage},
		{"blank detail", `{"detail":"  "}`, DefaultRateLimitMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(tt.body))
			}, time.Second)

			_, err := c.Chat(context.Background(), Request{Prompt: "p", SessionID: "s"})
			var rl *RateLimitedError
			require.True(t, errors.As(err, &rl), "got %v", err)
			assert.Equal(t, tt.want, rl.Detail)
		})
	}
}

func TestChat_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"Failed to process the request"}`))
	}, time.Second)

	_, err := c.Chat(context.Background(), Request{Prompt: "p", SessionID: "s"})
	var se *StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "Internal Server Error", se.Status)
	assert.Equal(t, "Server error: Internal Server Error", se.Error())
	assert.Equal(t, "Failed to process the request", se.Detail)
}

func TestChat_MalformedSuccessBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}, time.Second)

	_, err := c.Chat(context.Background(), Request{Prompt: "p", SessionID: "s"})
	var te *TransportError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.False(t, te.TimedOut())
}

func TestChat_ConnectionReset(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if assert.NoError(t, err) {
			conn.Close()
		}
	}, time.Second)

	_, err := c.Chat(context.Background(), Request{Prompt: "p", SessionID: "s"})
	var te *TransportError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Contains(t, te.Error(), "request failed")
}

func TestChat_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 50*time.Millisecond)

	_, err := c.Chat(context.Background(), Request{Prompt: "p", SessionID: "s"})
	var te *TransportError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.True(t, te.TimedOut())
	assert.Equal(t, "request timed out after 50ms", te.Error())
}

func TestHealthCheck(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}, time.Second)

	assert.NoError(t, c.HealthCheck(context.Background()))
}

func TestNewClient_EndpointWithChatSuffix(t *testing.T) {
	c, err := NewClient("https://chat.example.test/chat", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.test/chat", c.chatURL)
	assert.Equal(t, "https://chat.example.test", c.baseURL)
}
