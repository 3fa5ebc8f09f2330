package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aikonstudios/aikon/internal/persona"
)

type createPersonaRequest struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Instruction string `json:"instruction"`
}

func (s *Server) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	list, err := s.personas.List(r.Context(), userIDOf(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"personas": list})
}

func (s *Server) handleCreatePersona(w http.ResponseWriter, r *http.Request) {
	var req createPersonaRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	created, err := s.personas.CreateCustom(r.Context(), req.UserID, persona.Persona{
		Name:        req.Name,
		Icon:        req.Icon,
		Description: req.Description,
		Instruction: req.Instruction,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_persona", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeletePersona(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.personas.DeleteCustom(r.Context(), userIDOf(r), id); err != nil {
		if errors.Is(err, persona.ErrNotFound) {
			respondError(w, http.StatusNotFound, "persona_not_found", err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_persona", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
