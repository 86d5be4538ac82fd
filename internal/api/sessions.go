package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/sentinel/internal/flow"
	"github.com/MikeSquared-Agency/sentinel/internal/input"
	"github.com/MikeSquared-Agency/sentinel/internal/metrics"
	"github.com/MikeSquared-Agency/sentinel/internal/session"
	"github.com/MikeSquared-Agency/sentinel/internal/store"
)

const maxBodyBytes = 64 << 10

var messageSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"required": ["message"],
	"properties": {
		"message": {"type": "string"},
		"modality": {"type": "string", "enum": ["text", "voice"]}
	},
	"additionalProperties": false
}`)

type messageRequest struct {
	Message  string `json:"message"`
	Modality string `json:"modality"`
}

type sessionView struct {
	ID          string       `json:"id"`
	State       flow.State   `json:"state"`
	Profile     flow.Profile `json:"profile"`
	ValidFields []flow.Field `json:"valid_fields"`
	Stats       flow.Stats   `json:"stats"`
	History     []flow.Turn  `json:"history"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess := flow.NewSession(uuid.NewString(), s.now().UTC())
	if err := s.opts.Sessions.Save(r.Context(), sess); err != nil {
		s.logger.Error("failed to create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	metrics.SessionsCreated.Inc()
	s.logger.Info("session created", zap.String("session_id", sess.ID))
	writeJSON(w, http.StatusCreated, map[string]any{"id": sess.ID, "state": sess.State})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	history := sess.History
	if history == nil {
		history = []flow.Turn{}
	}
	writeJSON(w, http.StatusOK, sessionView{
		ID:          sess.ID,
		State:       sess.State.Normalize(),
		Profile:     sess.Profile,
		ValidFields: input.ValidFields(sess.Profile),
		Stats:       sess.Stats(s.now().UTC()),
		History:     history,
	})
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	result, err := gojsonschema.Validate(messageSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request", "details": details})
		return
	}

	var req messageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := input.Validate(req.Message); err != nil {
		s.logger.Info("message rejected", zap.String("session_id", chi.URLParam(r, "id")), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	message := input.Sanitize(req.Message)

	unlock := s.locks.lock(chi.URLParam(r, "id"))
	defer unlock()

	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.TurnTimeout)
	defer cancel()
	res := s.opts.Processor.ProcessMessage(ctx, sess, message, flow.ParseModality(req.Modality))

	if err := s.opts.Sessions.Save(context.WithoutCancel(r.Context()), sess); err != nil {
		s.logger.Error("failed to save session", zap.String("session_id", sess.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not save session")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	unlock := s.locks.lock(chi.URLParam(r, "id"))
	defer unlock()

	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	// Positions restart at zero after a reset, so the old transcript goes
	// first or the next turns would be written over it.
	if s.opts.Archive != nil {
		if err := s.opts.Archive.DeleteSession(r.Context(), sess.ID); err != nil {
			s.logger.Error("failed to purge archived turns", zap.String("session_id", sess.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not clear session")
			return
		}
	}
	sess.Reset(s.now().UTC())
	if err := s.opts.Sessions.Save(r.Context(), sess); err != nil {
		s.logger.Error("failed to clear session", zap.String("session_id", sess.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not clear session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": sess.ID, "state": sess.State})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.opts.Sessions.Delete(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("failed to delete session", zap.String("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not delete session")
		return
	}
	metrics.SessionsDeleted.Inc()

	if s.opts.Archive != nil {
		if err := s.opts.Archive.DeleteSession(r.Context(), id); err != nil {
			s.logger.Warn("failed to purge archived turns", zap.String("session_id", id), zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listArchivedTurns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive not configured")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	turns, err := s.opts.Archive.ListTurns(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.logger.Error("failed to list archived turns", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list turns")
		return
	}
	if turns == nil {
		turns = []flow.Turn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns, "count": len(turns)})
}

func (s *Server) getEscalation(w http.ResponseWriter, r *http.Request) {
	if s.opts.Archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive not configured")
		return
	}
	ticket, err := s.opts.Archive.GetEscalation(r.Context(), chi.URLParam(r, "ticketID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "escalation not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get escalation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not get escalation")
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// loadSession fetches the session named in the URL, writing the error
// response itself when it cannot.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*flow.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := s.opts.Sessions.Get(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("failed to load session", zap.String("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load session")
		return nil, false
	}
	return sess, true
}
