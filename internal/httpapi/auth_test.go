package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/wanderlate/internal/accounts"
	"github.com/MrEthical07/wanderlate/internal/users"
	"github.com/MrEthical07/wanderlate/jwt"
	"github.com/MrEthical07/wanderlate/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeAccounts struct {
	registerUser users.User
	registerErr  error
	loginUser    users.User
	loginErr     error
	loginIP      string
	loggedOut    []string
}

func (f *fakeAccounts) Register(_ context.Context, _ accounts.RegisterInput) (users.User, error) {
	return f.registerUser, f.registerErr
}

func (f *fakeAccounts) Login(_ context.Context, _ accounts.LoginInput, ip string) (users.User, error) {
	f.loginIP = ip
	return f.loginUser, f.loginErr
}

func (f *fakeAccounts) Logout(_ context.Context, userID, _ string) {
	f.loggedOut = append(f.loggedOut, userID)
}

type fakeLookup struct {
	byID map[string]users.User
	err  error
}

func (f fakeLookup) FindByID(_ context.Context, id string) (users.User, error) {
	if f.err != nil {
		return users.User{}, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func lookupOf(list ...users.User) fakeLookup {
	byID := map[string]users.User{}
	for _, u := range list {
		byID[u.ID] = u
	}
	return fakeLookup{byID: byID}
}

type fakeRetry struct{ d time.Duration }

func (f fakeRetry) RetryAfter(context.Context, string) (time.Duration, error) { return f.d, nil }

func newStore(t *testing.T) *session.Store {
	t.Helper()
	codec, err := jwt.NewCodec(jwt.Config{Secret: testSecret})
	require.NoError(t, err)
	store, err := session.NewStore(codec)
	require.NoError(t, err)
	return store
}

func post(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:51234"
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func signedIn(t *testing.T, store *session.Store, userID string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	_, err := store.Create(rec, userID)
	require.NoError(t, err)
	c := cookieNamed(rec, store.CookieName())
	require.NotNil(t, c)
	return &http.Cookie{Name: c.Name, Value: c.Value}
}

var ana = users.User{ID: "u-1", Email: "ana@example.com", FirstName: "Ana", LastName: "Martin", AccountType: users.AccountTraveler, IsActive: true}

func TestRegisterCreatesSession(t *testing.T) {
	store := newStore(t)
	h := NewAuthHandler(&fakeAccounts{registerUser: ana}, store, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.Register(rec, post(`{"email":"ana@example.com"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "u-1", body["user"].(map[string]any)["id"])
	assert.NotContains(t, rec.Body.String(), "password")

	c := cookieNamed(rec, session.DefaultCookieName)
	require.NotNil(t, c)
	p, ok := store.Get(requestWithCookie(c))
	require.True(t, ok)
	assert.Equal(t, "u-1", p.UserID)
}

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"bad json", `{"email":`, nil, http.StatusBadRequest},
		{"validation", `{}`, &accounts.ValidationError{Issues: []accounts.Issue{{Field: "email", Message: "Invalid email address"}}}, http.StatusBadRequest},
		{"duplicate", `{}`, accounts.ErrEmailTaken, http.StatusConflict},
		{"internal", `{}`, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&fakeAccounts{registerErr: tt.err}, newStore(t), nil, nil, nil)
			rec := httptest.NewRecorder()
			h.Register(rec, post(tt.body))

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
			assert.NotContains(t, rec.Body.String(), "db down")
			assert.Nil(t, cookieNamed(rec, session.DefaultCookieName))
		})
	}
}

func TestRegisterValidationListsIssues(t *testing.T) {
	verr := &accounts.ValidationError{Issues: []accounts.Issue{
		{Field: "firstName", Message: "First name must be at least 2 characters"},
		{Field: "acceptTerms", Message: "You must accept the terms and conditions"},
	}}
	h := NewAuthHandler(&fakeAccounts{registerErr: verr}, newStore(t), nil, nil, nil)

	rec := httptest.NewRecorder()
	h.Register(rec, post(`{}`))

	body := decode(t, rec)
	assert.Equal(t, "First name must be at least 2 characters", body["message"])
	assert.Len(t, body["errors"], 2)
}

func TestLoginSetsCookieAndPassesClientIP(t *testing.T) {
	acc := &fakeAccounts{loginUser: ana}
	h := NewAuthHandler(acc, newStore(t), nil, nil, nil)

	rec := httptest.NewRecorder()
	h.Login(rec, post(`{"email":"ana@example.com","password":"Voyage#2024"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "203.0.113.7", acc.loginIP)
	assert.NotNil(t, cookieNamed(rec, session.DefaultCookieName))
}

func TestLoginErrorStatuses(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&accounts.ValidationError{Issues: []accounts.Issue{{Field: "email", Message: "Invalid email address"}}}, http.StatusBadRequest},
		{accounts.ErrInvalidCredentials, http.StatusUnauthorized},
		{accounts.ErrPasswordlessAccount, http.StatusUnauthorized},
		{accounts.ErrAccountDisabled, http.StatusForbidden},
		{accounts.ErrRateLimited, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := NewAuthHandler(&fakeAccounts{loginErr: tt.err}, newStore(t), nil, fakeRetry{d: 90*time.Second + 200*time.Millisecond}, nil)
			rec := httptest.NewRecorder()
			h.Login(rec, post(`{"email":"ana@example.com","password":"x"}`))

			assert.Equal(t, tt.status, rec.Code)
			assert.Nil(t, cookieNamed(rec, session.DefaultCookieName))
			if tt.status == http.StatusTooManyRequests {
				assert.Equal(t, "91", rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestLoginRateLimitedWithoutAdvisor(t *testing.T) {
	h := NewAuthHandler(&fakeAccounts{loginErr: accounts.ErrRateLimited}, newStore(t), nil, nil, nil)
	rec := httptest.NewRecorder()
	h.Login(rec, post(`{"email":"ana@example.com","password":"x"}`))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestLogout(t *testing.T) {
	store := newStore(t)
	acc := &fakeAccounts{}
	h := NewAuthHandler(acc, store, nil, nil, nil)

	req := post("")
	req.AddCookie(signedIn(t, store, "u-1"))
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"u-1"}, acc.loggedOut)
	c := cookieNamed(rec, session.DefaultCookieName)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)

	// Anonymous logout still clears the cookie and succeeds.
	rec = httptest.NewRecorder()
	h.Logout(rec, post(""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, acc.loggedOut, 1)
	assert.NotNil(t, cookieNamed(rec, session.DefaultCookieName))
}

func TestSessionAnonymous(t *testing.T) {
	h := NewAuthHandler(&fakeAccounts{}, newStore(t), lookupOf(), nil, nil)
	rec := httptest.NewRecorder()
	h.Session(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"authenticated": false}, decode(t, rec))
	assert.Nil(t, cookieNamed(rec, session.DefaultCookieName))
}

func TestSessionSlidesWindow(t *testing.T) {
	store := newStore(t)
	h := NewAuthHandler(&fakeAccounts{}, store, lookupOf(users.User{ID: "u-1", Email: "ana@example.com", FirstName: "Ana", IsActive: true}), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(signedIn(t, store, "u-1"))
	rec := httptest.NewRecorder()
	h.Session(rec, req)

	body := decode(t, rec)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "u-1", body["userId"])
	assert.Equal(t, true, body["exists"])
	assert.NotEmpty(t, body["expiresAt"])
	require.IsType(t, map[string]any{}, body["user"])
	assert.Equal(t, "ana@example.com", body["user"].(map[string]any)["email"])
	assert.NotNil(t, cookieNamed(rec, session.DefaultCookieName), "expected a refreshed cookie")
}

func TestSessionForDeletedUserIsCleared(t *testing.T) {
	store := newStore(t)
	h := NewAuthHandler(&fakeAccounts{}, store, lookupOf(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(signedIn(t, store, "u-gone"))
	rec := httptest.NewRecorder()
	h.Session(rec, req)

	body := decode(t, rec)
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, false, body["exists"])
	c := cookieNamed(rec, session.DefaultCookieName)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestSessionLookupFailureKeepsSession(t *testing.T) {
	store := newStore(t)
	h := NewAuthHandler(&fakeAccounts{}, store, fakeLookup{err: errors.New("timeout")}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(signedIn(t, store, "u-1"))
	rec := httptest.NewRecorder()
	h.Session(rec, req)

	body := decode(t, rec)
	assert.Equal(t, true, body["authenticated"])
	assert.NotContains(t, body, "exists")
	assert.NotContains(t, body, "user")
	c := cookieNamed(rec, session.DefaultCookieName)
	require.NotNil(t, c)
	assert.Positive(t, c.MaxAge, "lookup failure must not clear the session")
}

func TestSessionForInactiveUserIsCleared(t *testing.T) {
	store := newStore(t)
	h := NewAuthHandler(&fakeAccounts{}, store, lookupOf(users.User{ID: "u-off", IsActive: false}), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(signedIn(t, store, "u-off"))
	rec := httptest.NewRecorder()
	h.Session(rec, req)

	assert.Equal(t, map[string]any{"authenticated": false}, decode(t, rec))
	c := cookieNamed(rec, session.DefaultCookieName)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:443"
	assert.Equal(t, "198.51.100.4", clientIP(req))

	req.RemoteAddr = "198.51.100.4"
	assert.Equal(t, "198.51.100.4", clientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(req))
}

func requestWithCookie(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	return req
}
