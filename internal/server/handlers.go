package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ahagon/internal/config"
	"ahagon/internal/events"
	"ahagon/internal/handler"
	"ahagon/internal/history"
	"ahagon/internal/notifier"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/go-github/v57/github"
	"github.com/google/uuid"
)

// NotFoundBody is the fixed body of every 404 response
const NotFoundBody = "404: Not Found"

// pipeline carries what is known about a delivery as it moves through
// authenticate, decode, classify and dispatch.
type pipeline struct {
	id       string
	source   notifier.Source
	kind     events.Kind
	repo     *config.Repo
	body     []byte
	received time.Time
}

// HandleGitHub handles GitHub webhook deliveries
func (s *Server) HandleGitHub(w http.ResponseWriter, r *http.Request) {
	p := &pipeline{
		id:       github.DeliveryID(r),
		source:   notifier.SourceGitHub,
		received: time.Now(),
	}
	if p.id == "" {
		p.id = uuid.NewString()
	}

	if err := s.github.CheckHeaders(r.Header); err != nil {
		s.finish(w, r, p, err)
		return
	}

	body, err := readBody(r)
	if err != nil {
		s.finish(w, r, p, err)
		return
	}
	p.body = body

	candidates, err := s.github.Verify(r.Header, body)
	if err != nil {
		s.finish(w, r, p, err)
		return
	}

	payload, err := notifier.DecodeJSON(body)
	if err != nil {
		s.finish(w, r, p, err)
		return
	}

	repo, err := s.github.Attribute(candidates, payload)
	if err != nil {
		s.finish(w, r, p, err)
		return
	}
	p.repo = repo

	kind, err := events.Parse(github.WebHookType(r))
	if err != nil {
		s.finish(w, r, p, err)
		return
	}
	p.kind = kind

	s.dispatch(w, r, p, payload)
}

// HandleTravis handles Travis CI build notifications
func (s *Server) HandleTravis(w http.ResponseWriter, r *http.Request) {
	p := &pipeline{
		id:       uuid.NewString(),
		source:   notifier.SourceTravis,
		received: time.Now(),
	}

	repo, err := s.travis.Authenticate(r.Header)
	if err != nil {
		s.finish(w, r, p, err)
		return
	}
	p.repo = repo

	body, err := readBody(r)
	if err != nil {
		s.finish(w, r, p, err)
		return
	}
	p.body = body

	if err := s.travis.Verify(r.Header, repo, body); err != nil {
		s.finish(w, r, p, err)
		return
	}

	payload, err := notifier.DecodeForm(body)
	if err != nil {
		s.finish(w, r, p, err)
		return
	}

	// Travis only reports build status
	p.kind = events.Status

	s.dispatch(w, r, p, payload)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, p *pipeline, payload *notifier.Payload) {
	d := &handler.Delivery{
		ID:         p.id,
		Source:     p.source,
		Kind:       p.kind,
		Repo:       p.repo,
		Payload:    payload,
		ReceivedAt: p.received,
	}

	if err := s.Handlers.Dispatch(r.Context(), d); err != nil {
		s.Logger.Error("Handler failed",
			"delivery", p.id,
			"source", p.source,
			"event", p.kind,
			"repo", p.repo.Slug(),
			"error", err)
		respondError(w, http.StatusInternalServerError)
		s.record(r.Context(), p, history.StatusFailed, http.StatusInternalServerError, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	s.record(r.Context(), p, history.StatusAccepted, http.StatusOK, nil)
}

// finish answers a delivery the pipeline refused
func (s *Server) finish(w http.ResponseWriter, r *http.Request, p *pipeline, err error) {
	status := statusFor(err)

	attrs := []any{
		"delivery", p.id,
		"source", p.source,
		"status", status,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	}
	if p.repo != nil {
		attrs = append(attrs, "repo", p.repo.Slug())
	}
	s.Logger.Warn("Delivery rejected", attrs...)

	respondError(w, status)
	s.record(r.Context(), p, history.StatusRejected, status, err)
}

// record writes the outcome to history. Failures are logged only.
func (s *Server) record(ctx context.Context, p *pipeline, status string, code int, cause error) {
	if s.Recorder == nil {
		return
	}

	rec := &history.DeliveryRecord{
		DeliveryID: p.id,
		Source:     string(p.source),
		Event:      p.kind.String(),
		Status:     status,
		HTTPStatus: code,
		ReceivedAt: p.received,
	}
	if p.repo != nil {
		rec.Repo = p.repo.Slug()
	}
	if cause != nil {
		rec.Reason = stringPtr(cause.Error())
	}
	if len(p.body) > 0 {
		rec.PayloadDigest = stringPtr(history.Digest(p.body))
	}

	// The request context may already be past its deadline
	ctx = context.WithoutCancel(ctx)
	if _, err := s.Recorder.Record(ctx, rec); err != nil {
		s.Logger.Error("Failed to record delivery in history", "error", err, "delivery", p.id)
	}
}

// HandleIndex serves the index page from the assets directory
func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, r, "index.html", "text/html; charset=utf-8")
}

// HandleFavicon serves the favicon from the assets directory
func (s *Server) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, r, "favicon.ico", "image/x-icon")
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request, name, contentType string) {
	path := filepath.Join(s.Config.Web.Assets, name)

	f, err := os.Open(path)
	if err != nil {
		s.Logger.Warn("Static asset unavailable", "path", path, "error", err)
		s.HandleNotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		s.HandleNotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
		"name":   s.Config.Name,
		"repos":  s.Repos.Count(),
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleNotFound answers every unmatched path or method
func (s *Server) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	io.WriteString(w, NotFoundBody)
}

// readBody reads the whole request body. Reads past the BodyLimit bound
// surface as *http.MaxBytesError.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}

// statusFor maps a pipeline error to its response status
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, notifier.ErrSignature):
		return http.StatusForbidden
	case errors.Is(err, notifier.ErrAuthentication),
		errors.Is(err, notifier.ErrEmptyBody),
		errors.Is(err, notifier.ErrMalformedJSON),
		errors.Is(err, notifier.ErrNotObject),
		errors.Is(err, notifier.ErrMalformedForm),
		errors.Is(err, notifier.ErrMissingPayloadField),
		errors.Is(err, events.ErrUnknownKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError sends a generic JSON error; detail stays in the log
func respondError(w http.ResponseWriter, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(statusCode)})
}

func stringPtr(s string) *string {
	return &s
}
