package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aikonstudios/aikon/internal/tasks"
)

type createTaskRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
}

type setTaskDoneRequest struct {
	UserID string `json:"user_id"`
	Done   bool   `json:"done"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.tasks.List(r.Context(), userIDOf(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	task, err := s.tasks.Create(r.Context(), req.UserID, req.Title)
	if err != nil {
		if errors.Is(err, tasks.ErrEmptyTitle) {
			respondError(w, http.StatusBadRequest, "empty_title", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

func (s *Server) handleSetTaskDone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req setTaskDoneRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	if err := s.tasks.SetDone(r.Context(), req.UserID, id, req.Done); err != nil {
		if errors.Is(err, tasks.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "done": req.Done})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.tasks.Delete(r.Context(), userIDOf(r), id); err != nil {
		if errors.Is(err, tasks.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
