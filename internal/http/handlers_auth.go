package http

import (
	"net/http"

	applog "fintrack/internal/log"
)

const (
	msgLoginFailed    = "Invalid email or password."
	msgRegisterFailed = "Registration failed. Please try again."
	msgTooManyTries   = "Too many attempts. Please wait a minute and try again."
	maxFormBytes      = 64 << 10
)

type authPage struct {
	Title    string
	Email    string
	FullName string
	Error    string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", authPage{Title: "Sign in"})
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", authPage{Title: "Create account"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	page := authPage{Title: "Sign in", Email: sanitizeInput(r.PostFormValue("email"))}
	password := r.PostFormValue("password")

	if err := s.session.Login(r.Context(), page.Email, password); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Login failed",
			applog.FieldOperation, applog.OpLogin, applog.FieldError, err)
		page.Error = msgLoginFailed
		s.render(w, r, http.StatusUnauthorized, "login.html", page)
		return
	}
	seeOther(w, r, "/dashboard")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	page := authPage{
		Title:    "Create account",
		Email:    sanitizeInput(r.PostFormValue("email")),
		FullName: sanitizeInput(r.PostFormValue("full_name")),
	}
	password := r.PostFormValue("password")

	if err := s.session.Register(r.Context(), page.Email, password, page.FullName); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Registration failed",
			applog.FieldOperation, applog.OpRegister, applog.FieldError, err)
		page.Error = msgRegisterFailed
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", page)
		return
	}
	seeOther(w, r, "/dashboard")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.session.Logout(r.Context())
	seeOther(w, r, "/login")
}

// renderRateLimited answers a throttled auth submission on the page it came from.
func (s *Server) renderRateLimited(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/register" {
		s.render(w, r, http.StatusTooManyRequests, "register.html", authPage{Title: "Create account", Error: msgTooManyTries})
		return
	}
	s.render(w, r, http.StatusTooManyRequests, "login.html", authPage{Title: "Sign in", Error: msgTooManyTries})
}
