package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aikonstudios/aikon/internal/store"
)

const defaultHistoryLimit = 50

type putProfileRequest struct {
	UserID             string `json:"user_id"`
	AboutYou           string `json:"about_you"`
	CustomInstructions string `json:"custom_instructions"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.store.GetProfile(r.Context(), userIDOf(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req putProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	profile := store.Profile{
		UserID:             req.UserID,
		AboutYou:           strings.TrimSpace(req.AboutYou),
		CustomInstructions: strings.TrimSpace(req.CustomInstructions),
	}
	if err := s.store.PutProfile(r.Context(), profile); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	messages, err := s.store.RecentMessages(r.Context(), userIDOf(r), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
