package middleware

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/MrEthical07/wanderlate/jwt"
)

// SessionReader resolves the session carried by a request. *session.Store
// satisfies it.
type SessionReader interface {
	Get(r *http.Request) (jwt.Payload, bool)
}

// Decision is the outcome of one gate evaluation.
type Decision int

const (
	// DecisionPass hands the request to the next handler with gate state in
	// its context.
	DecisionPass Decision = iota
	// DecisionAPIBypass hands an API request on untouched.
	DecisionAPIBypass
	// DecisionStaticBypass hands a static asset request on untouched.
	DecisionStaticBypass
	// DecisionLocaleRedirect sends the visitor to a locale-prefixed URL.
	DecisionLocaleRedirect
	// DecisionAuthedRedirect sends a signed-in visitor away from a
	// public-only page.
	DecisionAuthedRedirect
	// DecisionLoginRedirect sends an anonymous visitor to the login page.
	DecisionLoginRedirect
)

// String returns the metric label for d.
func (d Decision) String() string {
	switch d {
	case DecisionPass:
		return "pass"
	case DecisionAPIBypass:
		return "api_bypass"
	case DecisionStaticBypass:
		return "static_bypass"
	case DecisionLocaleRedirect:
		return "locale_redirect"
	case DecisionAuthedRedirect:
		return "authed_redirect"
	case DecisionLoginRedirect:
		return "login_redirect"
	default:
		return "unknown"
	}
}

// GateObserver is notified of every decision the gate takes.
type GateObserver interface {
	ObserveGate(Decision)
}

// GateConfig describes the site's locales and access rules. Paths in
// PublicOnly, Protected, LoginPath and HomePath are locale-less.
type GateConfig struct {
	Locales       []string
	DefaultLocale string
	// APIPrefix disables the API bypass when empty.
	APIPrefix string
	// BypassAssets passes paths containing a dot without a session check,
	// unless they fall under Protected with or without a locale prefix.
	BypassAssets bool
	PublicOnly   []string
	Protected    []string
	LoginPath    string
	HomePath     string
	Observer     GateObserver
}

// DefaultGateConfig returns the site's routing rules.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Locales:       []string{"en", "fr"},
		DefaultLocale: "fr",
		APIPrefix:     "/api",
		BypassAssets:  true,
		PublicOnly:    []string{"/login", "/register"},
		Protected:     []string{"/dashboard", "/wishlist", "/account", "/orders", "/settings"},
		LoginPath:     "/login",
		HomePath:      "/dashboard",
	}
}

func (c GateConfig) normalized() GateConfig {
	def := DefaultGateConfig()
	if len(c.Locales) == 0 {
		c.Locales = def.Locales
	}
	if !slices.Contains(c.Locales, c.DefaultLocale) {
		c.DefaultLocale = c.Locales[0]
	}
	c.APIPrefix = strings.TrimSuffix(c.APIPrefix, "/")
	if c.LoginPath == "" {
		c.LoginPath = def.LoginPath
	}
	if c.HomePath == "" {
		c.HomePath = def.HomePath
	}
	return c
}

type gate struct {
	cfg      GateConfig
	sessions SessionReader
	next     http.Handler
}

// Gate returns middleware enforcing cfg in front of page handlers. A nil
// sessions reader treats every visitor as anonymous.
func Gate(sessions SessionReader, cfg GateConfig) func(http.Handler) http.Handler {
	cfg = cfg.normalized()
	return func(next http.Handler) http.Handler {
		return &gate{cfg: cfg, sessions: sessions, next: next}
	}
}

func (g *gate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if g.cfg.APIPrefix != "" && hasPathPrefix(path, g.cfg.APIPrefix) {
		g.observe(DecisionAPIBypass)
		g.next.ServeHTTP(w, r)
		return
	}
	if g.cfg.BypassAssets && strings.Contains(path, ".") && !g.underProtected(path) {
		g.observe(DecisionStaticBypass)
		g.next.ServeHTTP(w, r)
		return
	}

	first, stripped := splitLocale(path)
	if !slices.Contains(g.cfg.Locales, first) {
		locale := preferredLocale(r.Header.Get("Accept-Language"), g.cfg.Locales, g.cfg.DefaultLocale)
		target := "/" + locale
		if escaped := r.URL.EscapedPath(); escaped != "/" && escaped != "" {
			target += escaped
		}
		g.redirect(w, r, DecisionLocaleRedirect, withQuery(target, r.URL.RawQuery))
		return
	}
	locale := first

	payload, authed := g.authenticate(r)

	if authed && matchesAny(stripped, g.cfg.PublicOnly) {
		g.redirect(w, r, DecisionAuthedRedirect, "/"+locale+g.cfg.HomePath)
		return
	}
	if !authed && matchesAny(stripped, g.cfg.Protected) {
		next := withQuery(r.URL.EscapedPath(), r.URL.RawQuery)
		g.redirect(w, r, DecisionLoginRedirect, "/"+locale+g.cfg.LoginPath+"?next="+url.QueryEscape(next))
		return
	}

	g.observe(DecisionPass)
	g.next.ServeHTTP(w, r.WithContext(withGateState(r.Context(), locale, payload, authed)))
}

func (g *gate) underProtected(path string) bool {
	first, rest := splitLocale(path)
	if slices.Contains(g.cfg.Locales, first) && matchesAny(rest, g.cfg.Protected) {
		return true
	}
	raw := "/" + first
	if rest != "/" {
		raw += rest
	}
	return matchesAny(raw, g.cfg.Protected)
}

// authenticate never fails: reader errors and panics mean anonymous.
func (g *gate) authenticate(r *http.Request) (p jwt.Payload, ok bool) {
	if g.sessions == nil {
		return jwt.Payload{}, false
	}
	defer func() {
		if recover() != nil {
			p, ok = jwt.Payload{}, false
		}
	}()

	p, ok = g.sessions.Get(r)
	if ok && p.UserID == "" {
		return jwt.Payload{}, false
	}
	return p, ok
}

func (g *gate) redirect(w http.ResponseWriter, r *http.Request, d Decision, target string) {
	g.observe(d)
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (g *gate) observe(d Decision) {
	if g.cfg.Observer != nil {
		g.cfg.Observer.ObserveGate(d)
	}
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
