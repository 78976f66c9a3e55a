package http

import "net/http"

// requireAuth sends unauthenticated visitors to the login page.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.session.Authenticated() {
			seeOther(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// redirectIfAuthenticated keeps signed-in users off the login and register pages.
func (s *Server) redirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.session.Authenticated() {
			seeOther(w, r, "/dashboard")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleFallback routes the root and any unknown path by session state.
func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	if s.session.Authenticated() {
		seeOther(w, r, "/dashboard")
		return
	}
	seeOther(w, r, "/login")
}
