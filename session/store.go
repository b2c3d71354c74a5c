package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/wanderlate/jwt"
	"go.uber.org/zap"
)

const (
	// DefaultCookieName is the cookie that carries the session token.
	DefaultCookieName = "session"
	// DefaultWindow is the sliding session lifetime.
	DefaultWindow = 7 * 24 * time.Hour
)

// ErrNilCodec is returned by NewStore when no codec is supplied.
var ErrNilCodec = errors.New("session: codec is required")

// Codec turns payloads into opaque tokens and back. *jwt.Codec satisfies it.
type Codec interface {
	Encode(p jwt.Payload) (string, error)
	Decode(token string) (jwt.Payload, bool)
}

// Store reads and writes the session cookie. It holds no per-request state
// and is safe for concurrent use.
type Store struct {
	codec   Codec
	name    string
	window  time.Duration
	secure  bool
	now     func() time.Time
	revoker Revoker
	logger  *zap.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithCookieName overrides DefaultCookieName.
func WithCookieName(name string) Option {
	return func(s *Store) {
		if name = strings.TrimSpace(name); name != "" {
			s.name = name
		}
	}
}

// WithWindow overrides DefaultWindow.
func WithWindow(window time.Duration) Option {
	return func(s *Store) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRevoker enables the token-id denylist.
func WithRevoker(r Revoker) Option {
	return func(s *Store) {
		s.revoker = r
	}
}

// WithLogger sets the logger used for revoker and encode failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSecureCookie controls the Secure attribute. It defaults to true and
// should only be disabled for local plain-HTTP development.
func WithSecureCookie(secure bool) Option {
	return func(s *Store) {
		s.secure = secure
	}
}

// NewStore builds a Store around codec.
func NewStore(codec Codec, opts ...Option) (*Store, error) {
	if codec == nil {
		return nil, ErrNilCodec
	}

	s := &Store{
		codec:  codec,
		name:   DefaultCookieName,
		window: DefaultWindow,
		secure: true,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// CookieName reports the name of the session cookie.
func (s *Store) CookieName() string {
	return s.name
}

// Create starts a session for userID and writes the cookie, replacing any
// session cookie already queued on w.
func (s *Store) Create(w http.ResponseWriter, userID string) (jwt.Payload, error) {
	p := jwt.Payload{
		UserID:    userID,
		ExpiresAt: s.now().Add(s.window).UTC(),
	}

	token, err := s.codec.Encode(p)
	if err != nil {
		return jwt.Payload{}, fmt.Errorf("create session: %w", err)
	}

	s.writeCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    token,
		Path:     "/",
		Expires:  p.ExpiresAt,
		MaxAge:   int(s.window / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return p, nil
}

// Get returns the session carried by r. A missing cookie, an invalid token
// and a revoked or unverifiable token id all report false.
func (s *Store) Get(r *http.Request) (jwt.Payload, bool) {
	cookie, err := r.Cookie(s.name)
	if err != nil || cookie.Value == "" {
		return jwt.Payload{}, false
	}

	p, ok := s.codec.Decode(cookie.Value)
	if !ok {
		return jwt.Payload{}, false
	}

	if s.revoker != nil {
		if p.TokenID == "" {
			return jwt.Payload{}, false
		}
		revoked, err := s.revoker.IsRevoked(r.Context(), p.TokenID)
		if err != nil {
			s.logger.Warn("session revocation check failed", zap.Error(err))
			return jwt.Payload{}, false
		}
		if revoked {
			return jwt.Payload{}, false
		}
	}

	return p, true
}

// Update slides the expiry of the current session. Without a valid session it
// writes nothing and reports false.
func (s *Store) Update(w http.ResponseWriter, r *http.Request) (jwt.Payload, bool) {
	current, ok := s.Get(r)
	if !ok {
		return jwt.Payload{}, false
	}

	p, err := s.Create(w, current.UserID)
	if err != nil {
		s.logger.Error("session refresh failed", zap.String("user_id", current.UserID), zap.Error(err))
		return jwt.Payload{}, false
	}

	return p, true
}

// Delete ends the session by emitting an expiring cookie. Calling it without
// a session, or more than once, has the same effect as calling it once.
func (s *Store) Delete(w http.ResponseWriter, r *http.Request) {
	if s.revoker != nil && r != nil {
		if cookie, err := r.Cookie(s.name); err == nil && cookie.Value != "" {
			if p, ok := s.codec.Decode(cookie.Value); ok && p.TokenID != "" {
				if err := s.revoker.Revoke(r.Context(), p.TokenID, p.ExpiresAt); err != nil {
					s.logger.Warn("session revoke failed", zap.String("user_id", p.UserID), zap.Error(err))
				}
			}
		}
	}

	s.writeCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeCookie keeps at most one Set-Cookie line for the session cookie.
func (s *Store) writeCookie(w http.ResponseWriter, c *http.Cookie) {
	h := w.Header()
	prefix := s.name + "="

	existing := h.Values("Set-Cookie")
	kept := make([]string, 0, len(existing))
	for _, line := range existing {
		if !strings.HasPrefix(line, prefix) {
			kept = append(kept, line)
		}
	}
	if len(kept) != len(existing) {
		h.Del("Set-Cookie")
		for _, line := range kept {
			h.Add("Set-Cookie", line)
		}
	}

	http.SetCookie(w, c)
}
