package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dostify/dostify/internal/chat"
	"github.com/dostify/dostify/internal/types"
	"github.com/dostify/dostify/pkg/llm"
)

type chatRequest struct {
	SessionKey  string `json:"session_key"`
	Message     string `json:"message"`
	ContentType string `json:"content_type"`
	ImageURL    string `json:"image_url"`
}

type chatResponse struct {
	SessionKey  string             `json:"session_key"`
	Reply       string             `json:"reply"`
	Messages    []types.Message    `json:"messages"`
	ToolResults []types.ToolResult `json:"tool_results,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Message == "" || req.SessionKey == "" {
		writeError(w, http.StatusBadRequest, "message and session_key are required")
		return
	}
	if req.ContentType == types.ContentImage && req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "image_url is required for image messages")
		return
	}

	result, err := s.orch.Turn(r.Context(), mustUser(r), chat.TurnRequest{
		SessionKey:  req.SessionKey,
		Message:     req.Message,
		ContentType: req.ContentType,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		slog.Error("chat turn failed", "session_key", req.SessionKey, "error", err)
		status := http.StatusInternalServerError
		var upstream *llm.UpstreamError
		if errors.As(err, &upstream) {
			status = http.StatusBadGateway
		}
		// Tool side effects may already be committed; the partial result
		// tells the client what ran before the failure.
		if result != nil {
			writeJSON(w, status, map[string]any{
				"error":        "assistant unavailable",
				"session_key":  result.SessionKey,
				"tool_results": result.ToolResults,
			})
			return
		}
		writeError(w, status, "assistant unavailable")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionKey:  result.SessionKey,
		Reply:       result.Reply,
		Messages:    result.Messages,
		ToolResults: result.ToolResults,
		Timestamp:   result.Timestamp,
	})
}

type feedbackRequest struct {
	SessionKey   string `json:"session_key"`
	MessageIndex *int   `json:"message_index"`
	Rating       int    `json:"rating"`
}

// handleFeedback applies a rating to an assistant message without going
// through the model, using the same end-relative index as the
// give_feedback tool.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SessionKey == "" || req.MessageIndex == nil {
		writeError(w, http.StatusBadRequest, "session_key and message_index are required")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	userID := mustUser(r)
	sess, err := s.sessions.Get(r.Context(), userID, req.SessionKey)
	if err != nil {
		if errors.Is(err, types.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("load session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	index := *req.MessageIndex
	resolved := len(sess.Messages) - 1 - index
	if index < 0 || resolved < 0 || resolved >= len(sess.Messages) {
		writeError(w, http.StatusBadRequest, "message index out of range")
		return
	}
	target := sess.Messages[resolved]
	if target.Role != types.RoleAssistant {
		writeError(w, http.StatusBadRequest, "feedback can only be given on assistant messages")
		return
	}

	if err := s.sessions.SetFeedback(r.Context(), userID, req.SessionKey, target.ID, req.Rating); err != nil {
		slog.Error("set feedback failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message_id": string(target.ID)})
}
