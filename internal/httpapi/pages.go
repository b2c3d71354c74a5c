package httpapi

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/wanderlate/middleware"
)

type pageView struct {
	Locale        string `json:"locale"`
	Path          string `json:"path"`
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
}

// Page stands in for the page renderer behind the gate. It reports what the
// gate resolved for the request.
func Page(w http.ResponseWriter, r *http.Request) {
	locale, ok := middleware.LocaleFromContext(r.Context())
	if !ok || strings.Contains(r.URL.Path, ".") {
		http.NotFound(w, r)
		return
	}

	view := pageView{Locale: locale, Path: r.URL.Path}
	if p, authed := middleware.SessionFromContext(r.Context()); authed {
		view.Authenticated = true
		view.UserID = p.UserID
	}
	writeJSON(w, http.StatusOK, view)
}
