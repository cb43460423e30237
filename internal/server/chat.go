package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"chat-widget/internal/chatapi"
)

const (
	maxRequestBytes = 64 << 10

	detailPromptRequired = "Prompt is required"
	detailFailed         = "Failed to process the request"
	detailMalformed      = "Request body must be a JSON object with a prompt"
)

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatapi.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, detailMalformed)
		return
	}

	// Requests without a session share one bucket per client address, so
	// minting a fresh id cannot dodge the limit.
	sessionID, limitKey := req.SessionID, "session:"+req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
		limitKey = "addr:" + clientHost(r.RemoteAddr)
	}
	logger := s.logger.With().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("session_id", sessionID).
		Logger()

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		writeError(w, http.StatusBadRequest, detailPromptRequired)
		return
	}

	if !s.limiter.Allow(limitKey) {
		logger.Warn().Msg("rate limit exceeded")
		writeError(w, http.StatusTooManyRequests, chatapi.DefaultRateLimitMessage)
		return
	}

	answer, err := s.agent.Answer(r.Context(), sessionID, prompt)
	if err != nil {
		logger.Error().Err(err).Msg("agent failed")
		writeError(w, http.StatusInternalServerError, detailFailed)
		return
	}
	if answer.Text == "" {
		logger.Error().Msg("agent returned no answer")
		writeError(w, http.StatusInternalServerError, detailFailed)
		return
	}

	writeJSON(w, http.StatusOK, chatapi.Response{
		SessionID: sessionID,
		Response:  answer.Text,
		Metadata:  answer.References,
	})
}

// clientHost strips the port from a remote address
func clientHost(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
