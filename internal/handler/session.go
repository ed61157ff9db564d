package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/randstring/randstring-go/internal/crypto"
	"github.com/randstring/randstring-go/internal/middleware"
	"github.com/randstring/randstring-go/internal/model"
	"github.com/randstring/randstring-go/internal/repository"
)

// SessionHandler exposes a generator session as the widget's presentation surface.
type SessionHandler struct {
	repo        *repository.SessionRepository
	secret      string
	tokenExpiry time.Duration
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(repo *repository.SessionRepository, secret string, tokenExpiry time.Duration) *SessionHandler {
	return &SessionHandler{repo: repo, secret: secret, tokenExpiry: tokenExpiry}
}

// HandleCreate handles POST /api/v1/sessions requests.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	s, err := h.repo.Create(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := crypto.GenerateToken(s.ID, h.secret, h.tokenExpiry)
	if err != nil {
		_ = h.repo.Delete(r.Context(), s.ID)
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.SessionResponse{
		Token:     token,
		SessionID: s.ID,
		State:     s.Generator.Snapshot(),
	})
}

// HandleGet handles GET /api/v1/session requests.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Generator.Snapshot())
}

// HandleDelete handles DELETE /api/v1/session requests.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.SessionIDFromContext(r.Context())
	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefreshToken handles POST /api/v1/session/token requests, issuing a
// fresh token for the caller's session.
func (h *SessionHandler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	token, err := crypto.GenerateToken(s.ID, h.secret, h.tokenExpiry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.TokenResponse{Token: token})
}

// HandleGenerate handles POST /api/v1/session/generate requests.
func (h *SessionHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Generator.Generate())
}

// HandleSetLength handles PUT /api/v1/session/length requests.
func (h *SessionHandler) HandleSetLength(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req model.LengthRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	snap, err := s.Generator.SetLength(req.Length)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleSetClass handles PUT /api/v1/session/classes/{class} requests.
func (h *SessionHandler) HandleSetClass(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	class, err := crypto.ParseCharacterClass(chi.URLParam(r, "class"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req model.ToggleRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if req.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("enabled is required"))
		return
	}

	snap, err := s.Generator.SetClass(class, *req.Enabled)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleSetAuto handles PUT /api/v1/session/auto requests.
func (h *SessionHandler) HandleSetAuto(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req model.ToggleRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if req.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("enabled is required"))
		return
	}

	snap, err := s.Generator.SetAutoGenerate(*req.Enabled)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().
		Str("session_id", s.ID).
		Bool("enabled", *req.Enabled).
		Msg("session.auto.generate")
	writeJSON(w, http.StatusOK, snap)
}

// HandleCopy handles POST /api/v1/session/copy requests.
func (h *SessionHandler) HandleCopy(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req model.CopyRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	var (
		resp model.CopyResponse
		err  error
	)
	if req.HistoryIndex != nil {
		resp, err = s.Generator.CopyHistory(*req.HistoryIndex)
	} else {
		resp, err = s.Generator.Copy()
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*repository.Session, bool) {
	id, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return nil, false
	}

	s, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return s, true
}
