package httpapi

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/wanderlate/internal/accounts"
	"github.com/MrEthical07/wanderlate/internal/users"
	"github.com/MrEthical07/wanderlate/jwt"
	"go.uber.org/zap"
)

// Accounts is satisfied by *accounts.Service.
type Accounts interface {
	Register(ctx context.Context, in accounts.RegisterInput) (users.User, error)
	Login(ctx context.Context, in accounts.LoginInput, ip string) (users.User, error)
	Logout(ctx context.Context, userID, ip string)
}

// Sessions is satisfied by *session.Store.
type Sessions interface {
	Create(w http.ResponseWriter, userID string) (jwt.Payload, error)
	Get(r *http.Request) (jwt.Payload, bool)
	Update(w http.ResponseWriter, r *http.Request) (jwt.Payload, bool)
	Delete(w http.ResponseWriter, r *http.Request)
}

// UserLookup is satisfied by users.Repository.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (users.User, error)
}

// RetryAdvisor is satisfied by *rate.Limiter.
type RetryAdvisor interface {
	RetryAfter(ctx context.Context, identifier string) (time.Duration, error)
}

// AuthHandler serves the /api/auth endpoints. It turns account outcomes into
// status codes and owns the session cookie around them.
type AuthHandler struct {
	accounts Accounts
	sessions Sessions
	users    UserLookup
	retry    RetryAdvisor
	log      *zap.Logger
}

// NewAuthHandler builds an AuthHandler. lookup and retry may be nil; the
// session endpoint then skips the account check and throttled logins advise
// a one second retry.
func NewAuthHandler(acc Accounts, sessions Sessions, lookup UserLookup, retry RetryAdvisor, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{accounts: acc, sessions: sessions, users: lookup, retry: retry, log: log}
}

type userView struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	AccountType string `json:"accountType"`
	Language    string `json:"language,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

func viewOf(u users.User) userView {
	return userView{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		AccountType: u.AccountType,
		Language:    u.Language,
		Currency:    u.Currency,
	}
}

type authResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	User    userView `json:"user"`
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in accounts.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		var verr *accounts.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: verr.First(), Errors: verr.Issues})
		case errors.Is(err, accounts.ErrEmailTaken):
			writeError(w, http.StatusConflict, "An account with this email already exists")
		default:
			h.log.Error("register failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Something went wrong, please try again")
		}
		return
	}

	if _, err := h.sessions.Create(w, u.ID); err != nil {
		h.log.Error("session create failed after register", zap.String("user_id", u.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Account created but sign-in failed, please log in")
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Success: true, Message: "Account created", User: viewOf(u)})
}

// Login checks credentials and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in accounts.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.accounts.Login(r.Context(), in, clientIP(r))
	if err != nil {
		var verr *accounts.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: verr.First(), Errors: verr.Issues})
		case errors.Is(err, accounts.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, accounts.ErrPasswordlessAccount):
			writeError(w, http.StatusUnauthorized, "This account uses another sign-in method")
		case errors.Is(err, accounts.ErrAccountDisabled):
			writeError(w, http.StatusForbidden, "This account has been deactivated")
		case errors.Is(err, accounts.ErrRateLimited):
			w.Header().Set("Retry-After", strconv.Itoa(h.retryAfterSeconds(r.Context(), users.NormalizeEmail(in.Email))))
			writeError(w, http.StatusTooManyRequests, "Too many login attempts, please try again later")
		default:
			h.log.Error("login failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Something went wrong, please try again")
		}
		return
	}

	if _, err := h.sessions.Create(w, u.ID); err != nil {
		h.log.Error("session create failed after login", zap.String("user_id", u.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Something went wrong, please try again")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, Message: "Logged in", User: viewOf(u)})
}

// Logout revokes and clears the session cookie. It succeeds without one.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.sessions.Get(r)
	h.sessions.Delete(w, r)
	if ok {
		h.accounts.Logout(r.Context(), payload.UserID, clientIP(r))
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Logged out"})
}

type sessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	UserID        string     `json:"userId,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Exists        *bool      `json:"exists,omitempty"`
	User          *userView  `json:"user,omitempty"`
}

// Session reports the caller's session and slides its window. A session whose
// account was deleted or deactivated is cleared. Lookup failures keep the
// session and omit the account fields.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.sessions.Update(w, r)
	if !ok {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}

	resp := sessionResponse{Authenticated: true, UserID: payload.UserID, ExpiresAt: &payload.ExpiresAt}
	if h.users != nil {
		u, err := h.users.FindByID(r.Context(), payload.UserID)
		switch {
		case errors.Is(err, users.ErrNotFound):
			h.sessions.Delete(w, r)
			exists := false
			writeJSON(w, http.StatusOK, sessionResponse{Exists: &exists})
			return
		case err != nil:
			h.log.Warn("session user lookup failed", zap.String("user_id", payload.UserID), zap.Error(err))
		case !u.IsActive:
			h.sessions.Delete(w, r)
			writeJSON(w, http.StatusOK, sessionResponse{})
			return
		default:
			exists := true
			view := viewOf(u)
			resp.Exists = &exists
			resp.User = &view
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) retryAfterSeconds(ctx context.Context, identifier string) int {
	if h.retry == nil {
		return 1
	}
	d, err := h.retry.RetryAfter(ctx, identifier)
	if err != nil || d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}
