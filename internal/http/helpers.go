package http

import (
	"encoding/json"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

var templateFuncs = template.FuncMap{
	"dollars":   func(m core.Money) string { return m.Dollars() },
	"coord":     formatCoord,
	"center":    func(x, w float64) float64 { return x + w/2 },
	"shortDate": shortDate,
}

// formatCoord renders an SVG coordinate rounded to two decimals.
func formatCoord(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// shortDate formats a date like "Mar 1, 2025"; zero dates render empty.
func shortDate(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("Jan 2, 2006")
}

// parseID extracts a positive transaction id from a path value.
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// draftFromForm reads the add-transaction form without interpreting it.
func draftFromForm(r *http.Request) core.Draft {
	return core.Draft{
		Title:       sanitizeInput(r.FormValue("title")),
		Amount:      sanitizeInput(r.FormValue("amount")),
		Type:        sanitizeInput(r.FormValue("type")),
		Category:    sanitizeInput(r.FormValue("category")),
		Description: sanitizeInput(r.FormValue("description")),
		Date:        sanitizeInput(r.FormValue("date")),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func seeOther(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}
