package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.trace.GetMetrics()
	NewJSONResponse().
		Field("status", "ok").
		Field("timestamp", time.Now().Format(time.RFC3339)).
		Field("uptime", time.Since(s.started).Round(time.Second).String()).
		Field("requests", stats.TotalRequests).
		Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			NewJSONResponse().
				Status(http.StatusServiceUnavailable).
				Field("status", "not_ready").
				Error(err.Error()).
				Write(w)
			return
		}
	}
	NewJSONResponse().Field("status", "ready").Write(w)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Field("state", newStateView(s.engine.Snapshot())).Write(w)
}

// handleStateStream pushes every state change as a server-sent event until the
// client goes away.
func (s *Server) handleStateStream(w http.ResponseWriter, r *http.Request) {
	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	// Shutdown does not cancel request contexts, so streams watch the server too.
	defer context.AfterFunc(s.closing, stop)()

	logger := applog.FromContext(ctx)
	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.ErrorContext(ctx, "State stream cannot flush", applog.FieldError, err)
		return
	}

	for st := range s.engine.Watch(ctx) {
		data, err := json.Marshal(newStateView(st))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to encode state", applog.FieldError, err)
			return
		}
		if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	req, err := ParseExpenseRequest(r, s.uploadDir)
	if err != nil {
		if isValidationError(err) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		logger.WarnContext(ctx, "Invalid expense request", applog.FieldError, err)
		BadRequestError(err.Error()).Write(w)
		return
	}

	exp, res, err := s.engine.AddExpense(ctx, req.Amount, req.Description, req.PhotoRef)
	if err != nil {
		if isValidationError(err) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		logger.ErrorContext(ctx, "Failed to add expense", applog.FieldError, err)
		InternalServerError("failed to save expense").Write(w)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Field("expense", newExpenseView(exp)).
		Field("result", newResultView(res)).
		Write(w)
}

func (s *Server) handleShareExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	exp, ok := findExpense(s.engine.Snapshot(), chi.URLParam(r, "id"))
	if !ok {
		NotFoundError("expense not found").Write(w)
		return
	}
	email, err := ParseShareRequest(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	shared, res, err := s.engine.ShareExpense(ctx, exp, email)
	if err != nil {
		if isValidationError(err) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to share expense", applog.FieldError, err)
		InternalServerError("failed to share expense").Write(w)
		return
	}

	resp := NewJSONResponse().
		Field("expense", newExpenseView(shared)).
		Field("result", newResultView(res))
	if res.OK() {
		resp.Message(core.SharedMessage(shared.SharedWithEmail))
	}
	resp.Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	exp, ok := findExpense(s.engine.Snapshot(), chi.URLParam(r, "id"))
	if !ok {
		NotFoundError("expense not found").Write(w)
		return
	}

	res, err := s.engine.DeleteExpense(ctx, exp)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to delete expense", applog.FieldError, err)
		InternalServerError("failed to delete expense").Write(w)
		return
	}
	NewJSONResponse().Field("result", newResultView(res)).Write(w)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, res, err := s.engine.PullRemote(ctx)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to store pulled expenses", applog.FieldError, err)
		InternalServerError("failed to store pulled expenses").Write(w)
		return
	}

	resp := NewJSONResponse().
		Field("pulled", n).
		Field("result", newResultView(res)).
		Field("state", newStateView(s.engine.Snapshot()))
	if res.Ran(services.StepSelectRows) && res.OK() {
		resp.Message(core.RefreshedMessage)
	}
	resp.Write(w)
}

// handleSignIn reports only success or failure; the cause stays in the logs.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	res := s.engine.SignIn(r.Context())
	if !res.OK() {
		UnauthorizedError("sign-in failed").Field("ok", false).Write(w)
		return
	}
	NewJSONResponse().
		Field("ok", true).
		Field("state", newStateView(s.engine.Snapshot())).
		Write(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.engine.SignOut(ctx)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to clear local expenses", applog.FieldError, err)
		InternalServerError("failed to clear local expenses").Write(w)
		return
	}
	NewJSONResponse().
		Field("result", newResultView(res)).
		Field("state", newStateView(s.engine.Snapshot())).
		Write(w)
}

func isValidationError(err error) bool {
	for _, target := range []error{
		ErrMissingAmount,
		core.ErrInvalidAmount,
		core.ErrAmountTooLarge,
		core.ErrDescriptionTooLong,
		core.ErrInvalidEmail,
		core.ErrMissingID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
