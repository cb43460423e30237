package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSync(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ChatResponse{Message: Message{Role: "assistant", Content: "pong"}, Done: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	answer, err := c.ChatSync(context.Background(), "llama3.1:8b", []Message{{Role: "user", Content: "ping"}})
	require.NoError(t, err)

	assert.Equal(t, "pong", answer)
	assert.Equal(t, "llama3.1:8b", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, []Message{{Role: "user", Content: "ping"}}, got.Messages)
}

func TestChatSync_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).ChatSync(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewClient(srv.URL, time.Second).HealthCheck(context.Background()))
}
