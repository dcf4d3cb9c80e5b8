// Package http exposes the checkout engine to an external controller layer
// over a small JSON API. The adapter is deliberately thin: it loads a
// checkout, applies one engine call under the session lock, persists the
// result, and reports the outcome with its enumerable reason.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ferrou/turnstile"
	"github.com/ferrou/turnstile/pkg/domain"
	"github.com/ferrou/turnstile/pkg/session"
)

// Engine is the subset of the checkout engine the adapter drives.
type Engine interface {
	ResolveFlow(c domain.Context) ([]string, error)
	PermittedFields(step string) []string
	Start(ctx context.Context, id string) (*domain.Checkout, error)
	Advance(ctx context.Context, c *domain.Checkout) domain.Result
	Retreat(ctx context.Context, c *domain.Checkout) domain.Result
	Jump(ctx context.Context, c *domain.Checkout, step string) domain.Result
}

// Server wires the engine and the session manager into HTTP handlers.
type Server struct {
	Engine   Engine
	Sessions *session.Manager
	Logger   *slog.Logger
}

// NewHandler builds the router. The logger may be nil.
func NewHandler(engine Engine, sessions *session.Manager, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{Engine: engine, Sessions: sessions, Logger: logger}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/flow", s.ResolveFlow)
	r.Get("/steps/{name}/fields", s.GetStepFields)
	r.Post("/checkouts/{id}/start", s.StartCheckout)
	r.Get("/checkouts/{id}", s.GetCheckout)
	r.Post("/checkouts/{id}/advance", s.move("advance"))
	r.Post("/checkouts/{id}/retreat", s.move("retreat"))
	r.Post("/checkouts/{id}/jump", s.move("jump"))
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MoveRequest is the body of the jump endpoint. Advance and retreat take no
// body.
type MoveRequest struct {
	Step string `json:"step,omitempty"`
}

// MoveResponse reports one transition attempt.
type MoveResponse struct {
	Outcome  domain.Outcome      `json:"outcome"`
	NewStep  string              `json:"new_step,omitempty"`
	Terminal bool                `json:"terminal,omitempty"`
	Reason   domain.RejectReason `json:"reason,omitempty"`
	Checkout *domain.Checkout    `json:"checkout"`
}

// FlowResponse is the resolved step sequence for one checkout context.
type FlowResponse struct {
	Steps []string `json:"steps"`
}

// ResolveFlow handles POST /flow: the body is a checkout snapshot, the
// response the step sequence active for it.
func (s *Server) ResolveFlow(w http.ResponseWriter, r *http.Request) {
	var c domain.Checkout
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("ResolveFlow: invalid request body", "error", err)
		return
	}

	steps, err := s.Engine.ResolveFlow(&c)
	if err != nil {
		http.Error(w, fmt.Sprintf("Flow resolution error: %v", err), http.StatusUnprocessableEntity)
		s.Logger.Error("ResolveFlow failed", "error", err)
		return
	}

	writeJSON(w, s.Logger, FlowResponse{Steps: steps})
}

// GetStepFields handles GET /steps/{name}/fields.
func (s *Server) GetStepFields(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	writeJSON(w, s.Logger, map[string]any{
		"step":   name,
		"fields": s.Engine.PermittedFields(name),
	})
}

// StartCheckout handles POST /checkouts/{id}/start. Starting an existing
// checkout returns it unchanged.
func (s *Server) StartCheckout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Store access goes through Sessions.Store() here: the lock is already
	// held, and Manager.Load/Save would try to take it again.
	var c *domain.Checkout
	err := s.Sessions.WithLock(r.Context(), id, func(ctx context.Context) error {
		existing, err := s.Sessions.Store().Load(ctx, id)
		if err == nil {
			c = existing
			return nil
		}
		if !errors.Is(err, domain.ErrCheckoutNotFound) {
			return err
		}
		c, err = s.Engine.Start(ctx, id)
		if err != nil {
			return err
		}
		return s.Sessions.Store().Save(ctx, c)
	})
	if err != nil {
		s.writeError(w, "start", err)
		return
	}

	writeJSON(w, s.Logger, c)
}

// GetCheckout handles GET /checkouts/{id}: current state plus the resolved
// flow and the fields writable at the current step.
func (s *Server) GetCheckout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.Sessions.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, "get", err)
		return
	}

	steps, err := s.Engine.ResolveFlow(c)
	if err != nil {
		s.writeError(w, "get", err)
		return
	}

	writeJSON(w, s.Logger, map[string]any{
		"checkout": c,
		"flow":     steps,
		"fields":   s.Engine.PermittedFields(c.CurrentStep),
	})
}

func (s *Server) move(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var body MoveRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				s.Logger.Warn("move: invalid request body", "kind", kind, "error", err)
				return
			}
		}
		if kind == "jump" && body.Step == "" {
			http.Error(w, "jump requires a step", http.StatusBadRequest)
			return
		}

		var resp MoveResponse
		err := s.Sessions.WithLock(r.Context(), id, func(ctx context.Context) error {
			c, err := s.Sessions.Store().Load(ctx, id)
			if err != nil {
				return err
			}

			var res domain.Result
			switch kind {
			case "advance":
				res = s.Engine.Advance(ctx, c)
			case "retreat":
				res = s.Engine.Retreat(ctx, c)
			case "jump":
				res = s.Engine.Jump(ctx, c, body.Step)
			}

			if res.Outcome == domain.OutcomeErrored {
				return res.Err
			}
			if res.Committed() {
				if err := s.Sessions.Store().Save(ctx, c); err != nil {
					return err
				}
			}

			resp = MoveResponse{
				Outcome:  res.Outcome,
				NewStep:  res.NewStep,
				Terminal: res.Terminal,
				Reason:   res.Reason,
				Checkout: c,
			}
			return nil
		})
		if err != nil {
			s.writeError(w, kind, err)
			return
		}

		writeJSON(w, s.Logger, resp)
	}
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, map[string]string{
		"app":     "turnstile-http",
		"version": turnstile.Version,
	})
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrCheckoutNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownStep):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrVersionConflict):
		status = http.StatusConflict
	case turnstile.IsHookError(err):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", "op", op, "error", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}
