package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse represents a simple status response
type StatusResponse struct {
	Status string `json:"status"`
}

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady checks the connections the service cannot run without.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Source endpoints

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.sourceService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}

	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var source domain.Source
	if err := json.NewDecoder(r.Body).Decode(&source); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.sourceService.Create(r.Context(), &source)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create source")
		}
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing source id")
		return
	}

	source, err := s.sourceService.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "source not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get source")
		}
		return
	}

	writeJSON(w, http.StatusOK, source)
}

func (s *Server) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing source id")
		return
	}

	var source domain.Source
	if err := json.NewDecoder(r.Body).Decode(&source); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	source.ID = id

	updated, err := s.sourceService.Update(r.Context(), &source)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "source not found")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update source")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing source id")
		return
	}

	if err := s.sourceService.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "source not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete source")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Sync endpoints

// SyncAcceptedResponse represents the response when a sync is queued
type SyncAcceptedResponse struct {
	Status   string `json:"status"`
	SourceID string `json:"source_id"`
	TaskID   string `json:"task_id"`
}

// handleTriggerSync queues a reconciliation run for a source. With
// ?wait=true the run executes inline and the outcome is returned;
// ?force=true bypasses the remote-count probe.
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing source id")
		return
	}

	force := r.URL.Query().Get("force") == "true"

	if r.URL.Query().Get("wait") == "true" {
		outcome, err := s.syncService.SyncSource(r.Context(), id, force)
		if err != nil && errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "source not found")
			return
		}
		if outcome == nil {
			writeError(w, http.StatusInternalServerError, "sync failed")
			return
		}
		// Business failures are reported in the outcome body.
		writeJSON(w, http.StatusOK, outcome)
		return
	}

	// Existence check up front so a queued task cannot 404 later
	if _, err := s.sourceService.Get(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "source not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get source")
		}
		return
	}

	task := domain.NewSyncSourceTask(id)
	if force {
		task.Payload["force"] = "true"
	}
	if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to queue sync")
		return
	}

	writeJSON(w, http.StatusAccepted, SyncAcceptedResponse{
		Status:   "accepted",
		SourceID: id,
		TaskID:   task.ID,
	})
}

func (s *Server) handleGetSyncState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing source id")
		return
	}

	state, err := s.syncService.GetSyncState(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get sync state")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleListSyncStates(w http.ResponseWriter, r *http.Request) {
	states, err := s.syncService.ListSyncStates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sync states")
		return
	}

	writeJSON(w, http.StatusOK, states)
}

// Change log endpoints

func (s *Server) handleListChangeLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	typeFilter := domain.ChangeType(q.Get("type"))

	entries, err := s.changeLogService.List(r.Context(), page, limit, typeFilter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list change log")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleClearChangeLog(w http.ResponseWriter, r *http.Request) {
	removed, err := s.changeLogService.Clear(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear change log")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// Statistics endpoint

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	sourceID := r.URL.Query().Get("source_id")

	stats, err := s.sourceService.Stats(r.Context(), sourceID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "source not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get stats")
		}
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
