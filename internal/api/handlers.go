// Package api exposes the interview service over an HTTP REST surface and an
// MCP server for tool-based access.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/jobprep/interviewd/internal/evaluation"
	"github.com/jobprep/interviewd/internal/session"
	"github.com/jobprep/interviewd/internal/storage"
)

const (
	maxRequestBodySize = 1 << 20  // 1MB
	maxUploadSize      = 10 << 20 // 10MB, resume and JD files combined
)

// Deps holds the handler collaborators.
type Deps struct {
	Manager *session.Manager
	Store   *storage.Store
	Harness *evaluation.Harness
}

// NewHandler returns the REST API router. When token is non-empty, every
// route except /health requires it as a bearer token.
func NewHandler(deps Deps, token string) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if token != "" {
			r.Use(BearerAuth(token))
		}

		r.Post("/auth/signup", handleSignup(deps))
		r.Post("/auth/login", handleLogin(deps))

		r.Post("/interview/context", handleEstablishContext(deps))
		r.Post("/interview/{id}/clone", handleClone(deps))
		r.Post("/interview/{id}/start", handleStart(deps))
		r.Post("/interview/{id}/answer", handleAnswer(deps))
		r.Post("/interview/{id}/telemetry", handleTelemetry(deps))
		r.Get("/interview/{id}/summary", handleSummary(deps))
		r.Get("/interview/{id}", handleGetSession(deps))

		r.Post("/interview/{id}/evaluate", handleEvaluate(deps))
		r.Get("/interview/{id}/evaluation", handleGetEvaluation(deps))

		r.Get("/sessions", handleListSessions(deps))
		r.Post("/sessions/prune", handlePrune(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func handleSignup(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds credentials
		if !decodeBody(w, r, &creds) {
			return
		}
		if creds.Email == "" || creds.Password == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "email and password are required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "server_error", "hashing password: %v", err)
			return
		}
		if err := deps.Store.CreateUser(creds.Email, string(hash)); err != nil {
			if errors.Is(err, storage.ErrUserExists) {
				httpError(w, http.StatusConflict, "invalid_request_error", "user already exists")
				return
			}
			httpError(w, http.StatusInternalServerError, "server_error", "creating user: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"email": creds.Email})
	}
}

func handleLogin(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds credentials
		if !decodeBody(w, r, &creds) {
			return
		}

		user, err := deps.Store.GetUser(creds.Email)
		if err != nil {
			// Uniform response for unknown user and bad password.
			httpError(w, http.StatusUnauthorized, "authentication_error", "invalid credentials")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
			httpError(w, http.StatusUnauthorized, "authentication_error", "invalid credentials")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"email": user.Email, "status": "ok"})
	}
}

// handleEstablishContext accepts a multipart form with "resume" and
// "job_description" files plus an "email" field, and creates a session.
func handleEstablishContext(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "parsing multipart form: %v", err)
			return
		}

		email := r.FormValue("email")
		if email == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "email is required")
			return
		}

		resumeBytes, err := readFormFile(r, "resume")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading resume: %v", err)
			return
		}
		jdBytes, err := readFormFile(r, "job_description")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading job description: %v", err)
			return
		}

		s, err := deps.Manager.EstablishContext(r.Context(), email, resumeBytes, jdBytes)
		if err != nil {
			httpError(w, http.StatusUnprocessableEntity, "invalid_request_error", "establishing context: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"session_id":  s.ID,
			"state":       s.State,
			"skill_match": s.Source.SkillMatch,
		})
	}
}

func handleClone(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Manager.Clone(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"session_id": s.ID,
			"state":      s.State,
		})
	}
}

func handleStart(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := deps.Manager.Start(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleAnswer(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answer string `json:"answer"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		result, err := deps.Manager.SubmitAnswer(r.Context(), chi.URLParam(r, "id"), req.Answer)
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleTelemetry(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update session.TelemetryUpdate
		if !decodeBody(w, r, &update) {
			return
		}

		if err := deps.Manager.RecordTelemetry(chi.URLParam(r, "id"), update); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
	}
}

func handleSummary(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := deps.Manager.Summarize(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			sessionError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	}
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Manager.Get(chi.URLParam(r, "id"))
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id":  s.ID,
			"user_email":  s.UserEmail,
			"state":       s.State,
			"stage_index": s.StageIndex,
			"created_at":  s.CreatedAt,
		})
	}
}

func handleEvaluate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s, err := deps.Manager.Get(id)
		if err != nil {
			sessionError(w, err)
			return
		}

		report := deps.Harness.Evaluate(r.Context(), evaluation.Input{
			SessionID:  s.ID,
			ResumeText: s.Source.ResumeText,
			JDText:     s.Source.JDText,
			Transcript: s.Transcript,
		})

		doc, err := json.Marshal(report)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "server_error", "encoding report: %v", err)
			return
		}
		if err := deps.Store.SaveEvaluation(id, doc); err != nil {
			slog.Warn("persisting evaluation report failed", "session_id", id, "error", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	}
}

func handleGetEvaluation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok, err := deps.Store.GetEvaluation(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "server_error", "loading evaluation: %v", err)
			return
		}
		if !ok {
			httpError(w, http.StatusNotFound, "not_found_error", "no evaluation report for this session")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	}
}

func handleListSessions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		if email == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "email query parameter is required")
			return
		}

		metas, err := deps.Manager.List(email)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "server_error", "listing sessions: %v", err)
			return
		}
		if metas == nil {
			metas = []session.Meta{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": metas})
	}
}

func handlePrune(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			Keep  int    `json:"keep"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Email == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "email is required")
			return
		}

		deleted, err := deps.Manager.Prune(req.Email, req.Keep)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "server_error", "pruning sessions: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
	}
}

// sessionError maps session state machine errors to HTTP responses.
func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found_error", "session not found")
	case errors.Is(err, session.ErrMissingSource):
		httpError(w, http.StatusPreconditionFailed, "invalid_request_error", "%v", err)
	case errors.Is(err, session.ErrNotStarted), errors.Is(err, session.ErrNotCompleted):
		httpError(w, http.StatusConflict, "invalid_request_error", "%v", err)
	case errors.Is(err, session.ErrBlankAnswer):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	default:
		httpError(w, http.StatusBadGateway, "api_error", "%v", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing %q file: %w", field, err)
	}
	defer file.Close()
	return io.ReadAll(file)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
