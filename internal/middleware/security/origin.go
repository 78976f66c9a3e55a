package security

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	applog "fintrack/internal/log"
)

// SameOrigin rejects state-changing requests sent by another site. Every
// request is served with the signed-in user's credential, so a form post from
// any other origin must not get through.
//
// Safe methods pass. Otherwise Sec-Fetch-Site must be "same-origin" or "none"
// when present, and Origin (or Referer when Origin is absent) must name this
// host. Requests carrying neither header, such as curl, pass.
func SameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if reason := crossOriginReason(r); reason != "" {
			slog.WarnContext(r.Context(), "Cross-origin request rejected",
				applog.FieldComponent, applog.ComponentSecurity,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				"reason", reason,
				"origin", r.Header.Get("Origin"))
			http.Error(w, "cross-origin request rejected", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func crossOriginReason(r *http.Request) string {
	switch site := r.Header.Get("Sec-Fetch-Site"); site {
	case "", "same-origin", "none":
	default:
		return "sec-fetch-site " + site
	}

	source := r.Header.Get("Origin")
	if source == "" {
		source = r.Header.Get("Referer")
	}
	if source == "" {
		return ""
	}
	if source == "null" {
		return "opaque origin"
	}
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return "malformed origin"
	}
	if !strings.EqualFold(u.Host, r.Host) {
		return "origin " + u.Host
	}
	return ""
}
