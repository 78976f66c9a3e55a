package http

import (
	"errors"
	"net/http"
	"time"

	"fintrack/internal/apiclient"
	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	applog "fintrack/internal/log"
	"fintrack/internal/session"
)

const (
	msgLoadFailed   = "Could not load your transactions. Please try again."
	msgCreateFailed = "Could not add the transaction. Check the form and try again."
	msgDeleteFailed = "Could not delete the transaction. Please try again."
)

type dashboardPage struct {
	Title      string
	Claims     *session.Claims
	Error      string
	State      *dashboard.State
	Chart      dashboard.Chart
	Draft      core.Draft
	Categories []string
}

func (s *Server) newDashboardPage(r *http.Request, st *dashboard.State, draft core.Draft, msg string) dashboardPage {
	page := dashboardPage{
		Title:      "Dashboard",
		Error:      msg,
		State:      st,
		Draft:      draft,
		Categories: core.Categories,
	}
	if st != nil {
		page.Chart = dashboard.NewChart(st.Summary)
	}
	if c, err := s.session.Claims(r.Context()); err == nil && !c.Expired(time.Now()) {
		page.Claims = &c
	}
	return page
}

// unauthorized redirects to login when the API rejected the credential.
// The session has already been cleared by the API client by then.
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, apiclient.ErrUnauthorized) && s.session.Authenticated() {
		return false
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Session rejected by API, redirecting to login",
		applog.FieldPath, r.URL.Path)
	seeOther(w, r, "/login")
	return true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	st, err := s.dashboard.Load(r.Context())
	if err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load dashboard",
			applog.NewFields().WithOperation(applog.OpRead).WithError(err).ToSlice()...)
		s.render(w, r, http.StatusBadGateway, "dashboard.html",
			s.newDashboardPage(r, nil, s.dashboard.NewDraft(), msgLoadFailed))
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", s.newDashboardPage(r, st, s.dashboard.NewDraft(), ""))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	submitted := draftFromForm(r)
	_, draft, err := s.dashboard.Add(ctx, submitted)
	if err == nil {
		seeOther(w, r, "/dashboard")
		return
	}
	if s.unauthorized(w, r, err) {
		return
	}
	if draft != submitted {
		// Created, but the refresh afterwards failed; the dashboard GET reports it.
		logger.WarnContext(ctx, "Failed to refresh after create", applog.FieldError, err)
		seeOther(w, r, "/dashboard")
		return
	}
	logger.WarnContext(ctx, "Failed to add transaction",
		applog.FieldOperation, applog.OpCreate, applog.FieldError, err)

	status := http.StatusBadGateway
	if isDraftError(err) {
		status = http.StatusUnprocessableEntity
	}
	// Re-render what is currently on the server alongside the untouched draft.
	current, loadErr := s.dashboard.Load(ctx)
	if loadErr != nil && s.unauthorized(w, r, loadErr) {
		return
	}
	s.render(w, r, status, "dashboard.html", s.newDashboardPage(r, current, draft, msgCreateFailed))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	st, err := s.dashboard.Delete(ctx, id)
	if err == nil {
		seeOther(w, r, "/dashboard")
		return
	}
	if s.unauthorized(w, r, err) {
		return
	}
	applog.FromContext(ctx).WarnContext(ctx, "Failed to delete transaction",
		applog.FieldOperation, applog.OpDelete, applog.FieldTransactionID, id, applog.FieldError, err)

	msg := msgDeleteFailed
	if st == nil {
		msg = msgLoadFailed
	}
	s.render(w, r, http.StatusBadGateway, "dashboard.html", s.newDashboardPage(r, st, s.dashboard.NewDraft(), msg))
}

func isDraftError(err error) bool {
	return errors.Is(err, core.ErrEmptyTitle) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidType) ||
		errors.Is(err, core.ErrInvalidDate)
}
