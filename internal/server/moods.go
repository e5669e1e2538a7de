package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dostify/dostify/internal/types"
)

type moodView struct {
	ID        string    `json:"id"`
	Mood      int       `json:"mood"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleLogMood(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mood int    `json:"mood"`
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Mood < 1 || req.Mood > 10 {
		writeError(w, http.StatusBadRequest, "mood must be between 1 and 10")
		return
	}

	log := &types.MoodLog{
		ID:        types.NewMoodLogID(),
		UserID:    mustUser(r),
		Mood:      req.Mood,
		Note:      req.Note,
		CreatedAt: time.Now(),
	}
	if err := s.moods.Create(r.Context(), log); err != nil {
		slog.Error("log mood failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, moodView{
		ID: string(log.ID), Mood: log.Mood, Note: log.Note, CreatedAt: log.CreatedAt,
	})
}

func (s *Server) handleListMoods(w http.ResponseWriter, r *http.Request) {
	days := 30
	if q := r.URL.Query().Get("days"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	logs, err := s.moods.ListSince(r.Context(), mustUser(r), time.Now().AddDate(0, 0, -days))
	if err != nil {
		slog.Error("list moods failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	views := make([]moodView, 0, len(logs))
	for _, log := range logs {
		views = append(views, moodView{
			ID: string(log.ID), Mood: log.Mood, Note: log.Note, CreatedAt: log.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}
