package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/wanderlate/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	payload jwt.Payload
	ok      bool
	panics  bool
	calls   int
}

func (f *fakeSessions) Get(*http.Request) (jwt.Payload, bool) {
	f.calls++
	if f.panics {
		panic("session backend exploded")
	}
	return f.payload, f.ok
}

type recordingObserver struct {
	decisions []Decision
}

func (o *recordingObserver) ObserveGate(d Decision) {
	o.decisions = append(o.decisions, d)
}

func signedIn() *fakeSessions {
	return &fakeSessions{
		payload: jwt.Payload{UserID: "user-42", ExpiresAt: time.Now().Add(time.Hour)},
		ok:      true,
	}
}

func anonymous() *fakeSessions {
	return &fakeSessions{}
}

type passed struct {
	called  bool
	path    string
	locale  string
	session jwt.Payload
	authed  bool
}

func serveGate(t *testing.T, sessions SessionReader, target string, header http.Header) (*httptest.ResponseRecorder, *passed, *recordingObserver) {
	t.Helper()
	obs := &recordingObserver{}
	cfg := DefaultGateConfig()
	cfg.Observer = obs

	got := &passed{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.called = true
		got.path = r.URL.Path
		got.locale, _ = LocaleFromContext(r.Context())
		got.session, got.authed = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	Gate(sessions, cfg)(next).ServeHTTP(rec, req)
	return rec, got, obs
}

func requireRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	require.Equal(t, want, rec.Header().Get("Location"))
}

func TestGateProtectedPageRedirectsAnonymousToLogin(t *testing.T) {
	rec, got, obs := serveGate(t, anonymous(), "/en/dashboard", nil)

	requireRedirect(t, rec, "/en/login?next=%2Fen%2Fdashboard")
	assert.False(t, got.called)
	assert.Equal(t, []Decision{DecisionLoginRedirect}, obs.decisions)
}

func TestGateLoginRedirectKeepsQueryInNext(t *testing.T) {
	rec, _, _ := serveGate(t, anonymous(), "/fr/orders/123?tab=invoices&page=2", nil)

	requireRedirect(t, rec, "/fr/login?next=%2Ffr%2Forders%2F123%3Ftab%3Dinvoices%26page%3D2")
}

func TestGatePublicOnlyPageRedirectsSignedInHome(t *testing.T) {
	rec, got, obs := serveGate(t, signedIn(), "/fr/login?next=%2Ffr%2Fsettings", nil)

	requireRedirect(t, rec, "/fr/dashboard")
	assert.False(t, got.called)
	assert.Equal(t, []Decision{DecisionAuthedRedirect}, obs.decisions)
}

func TestGateLocaleRedirectFromAcceptLanguage(t *testing.T) {
	sessions := anonymous()
	rec, _, obs := serveGate(t, sessions, "/dashboard", http.Header{"Accept-Language": {"en"}})

	requireRedirect(t, rec, "/en/dashboard")
	assert.Equal(t, []Decision{DecisionLocaleRedirect}, obs.decisions)
	assert.Zero(t, sessions.calls, "locale redirect must happen before authentication")
}

func TestGateLocaleRedirectKeepsQuery(t *testing.T) {
	rec, _, _ := serveGate(t, anonymous(), "/hotels?city=paris&adults=2", http.Header{"Accept-Language": {"en-GB,en;q=0.9"}})

	requireRedirect(t, rec, "/en/hotels?city=paris&adults=2")
}

func TestGateLocaleRedirectFallsBackToDefault(t *testing.T) {
	for _, header := range []string{"", "de-DE,de;q=0.9", "not a header;;;"} {
		rec, _, _ := serveGate(t, anonymous(), "/wishlist", http.Header{"Accept-Language": {header}})
		requireRedirect(t, rec, "/fr/wishlist")
	}
}

func TestGateRootRedirectsToLocaleHome(t *testing.T) {
	rec, _, _ := serveGate(t, anonymous(), "/", http.Header{"Accept-Language": {"en-US"}})

	requireRedirect(t, rec, "/en")
}

func TestGateUnsupportedLocaleIsTreatedAsPath(t *testing.T) {
	rec, _, _ := serveGate(t, anonymous(), "/de/dashboard", nil)

	requireRedirect(t, rec, "/fr/de/dashboard")
}

func TestGateAPIBypass(t *testing.T) {
	for _, target := range []string{"/api", "/api/anything", "/api/auth/session?x=1"} {
		sessions := anonymous()
		rec, got, obs := serveGate(t, sessions, target, nil)

		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.True(t, got.called, target)
		assert.Empty(t, got.locale, "api requests carry no locale")
		assert.Zero(t, sessions.calls, "api requests are not authenticated by the gate")
		assert.Equal(t, []Decision{DecisionAPIBypass}, obs.decisions)
	}
}

func TestGateAPIPrefixRespectsSegmentBoundary(t *testing.T) {
	rec, _, _ := serveGate(t, anonymous(), "/apidocs", nil)

	requireRedirect(t, rec, "/fr/apidocs")
}

func TestGateStaticAssetBypass(t *testing.T) {
	rec, got, obs := serveGate(t, anonymous(), "/images/logo.svg", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.called)
	assert.Equal(t, []Decision{DecisionStaticBypass}, obs.decisions)
}

func TestGateDottedPathsUnderProtectedAreGated(t *testing.T) {
	rec, got, obs := serveGate(t, anonymous(), "/en/dashboard/export.csv", nil)
	requireRedirect(t, rec, "/en/login?next=%2Fen%2Fdashboard%2Fexport.csv")
	assert.False(t, got.called)
	assert.Equal(t, []Decision{DecisionLoginRedirect}, obs.decisions)

	rec, got, obs = serveGate(t, signedIn(), "/en/dashboard/export.csv", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.called)
	assert.True(t, got.authed)
	assert.Equal(t, []Decision{DecisionPass}, obs.decisions)

	// Without a locale the path is first redirected, then gated on arrival.
	rec, got, _ = serveGate(t, anonymous(), "/account/invoice.pdf", nil)
	requireRedirect(t, rec, "/fr/account/invoice.pdf")
	assert.False(t, got.called)

	rec, got, obs = serveGate(t, anonymous(), "/favicon.ico", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.called)
	assert.Equal(t, []Decision{DecisionStaticBypass}, obs.decisions)

	rec, got, obs = serveGate(t, anonymous(), "/en/guides/paris.html", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.called)
	assert.Equal(t, []Decision{DecisionStaticBypass}, obs.decisions)
}

func TestGateProtectedPrefixRespectsSegmentBoundary(t *testing.T) {
	rec, got, obs := serveGate(t, anonymous(), "/en/dashboardextra", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.called)
	assert.Equal(t, []Decision{DecisionPass}, obs.decisions)

	rec, _, _ = serveGate(t, anonymous(), "/en/dashboard/trips", nil)
	requireRedirect(t, rec, "/en/login?next=%2Fen%2Fdashboard%2Ftrips")
}

func TestGatePassStoresLocaleAndSession(t *testing.T) {
	sessions := signedIn()
	rec, got, obs := serveGate(t, sessions, "/en/dashboard", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, got.called)
	assert.Equal(t, "/en/dashboard", got.path, "the gate must not rewrite passed URLs")
	assert.Equal(t, "en", got.locale)
	assert.True(t, got.authed)
	assert.Equal(t, "user-42", got.session.UserID)
	assert.Equal(t, []Decision{DecisionPass}, obs.decisions)
}

func TestGatePassAnonymousOnPublicPage(t *testing.T) {
	rec, got, _ := serveGate(t, anonymous(), "/fr/register", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.called)
	assert.Equal(t, "fr", got.locale)
	assert.False(t, got.authed)
}

func TestGateLocaleRootPasses(t *testing.T) {
	rec, got, _ := serveGate(t, anonymous(), "/en", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.called)
	assert.Equal(t, "en", got.locale)
}

func TestGateSessionPanicMeansAnonymous(t *testing.T) {
	rec, _, _ := serveGate(t, &fakeSessions{panics: true}, "/en/settings", nil)

	requireRedirect(t, rec, "/en/login?next=%2Fen%2Fsettings")
}

func TestGateNilSessionReader(t *testing.T) {
	rec, _, _ := serveGate(t, nil, "/en/account", nil)

	requireRedirect(t, rec, "/en/login?next=%2Fen%2Faccount")
}

func TestGateEmptyUserIDMeansAnonymous(t *testing.T) {
	sessions := &fakeSessions{ok: true}
	rec, _, _ := serveGate(t, sessions, "/en/dashboard", nil)

	requireRedirect(t, rec, "/en/login?next=%2Fen%2Fdashboard")
}

func TestGateConfigNormalization(t *testing.T) {
	cfg := GateConfig{Locales: []string{"en", "de"}, DefaultLocale: "fr"}.normalized()

	assert.Equal(t, "en", cfg.DefaultLocale)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "/dashboard", cfg.HomePath)
	assert.Empty(t, cfg.APIPrefix)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "pass", DecisionPass.String())
	assert.Equal(t, "login_redirect", DecisionLoginRedirect.String())
	assert.Equal(t, "unknown", Decision(99).String())
}
