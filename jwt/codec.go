package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// MinSecretLength is the shortest HMAC secret NewCodec accepts.
	MinSecretLength = 32
	// DefaultTTL is the fixed session validity window.
	DefaultTTL = 7 * 24 * time.Hour

	maxLeeway = 2 * time.Minute
)

var (
	// ErrMissingSecret is returned by NewCodec when no signing secret is configured.
	ErrMissingSecret = errors.New("jwt: signing secret is missing")
	// ErrSecretTooShort is returned by NewCodec when the secret is under MinSecretLength bytes.
	ErrSecretTooShort = fmt.Errorf("jwt: signing secret must be at least %d bytes", MinSecretLength)
	// ErrInvalidTTL is returned by NewCodec for a negative TTL.
	ErrInvalidTTL = errors.New("jwt: invalid TTL configuration")
	// ErrInvalidLeeway is returned by NewCodec for a leeway outside [0, 2m].
	ErrInvalidLeeway = errors.New("jwt: invalid leeway configuration")
	// ErrInvalidPayload is returned by Encode for an empty user id or a non-future expiry.
	ErrInvalidPayload = errors.New("jwt: invalid session payload")
)

// Config holds the immutable codec settings. Secret is copied by NewCodec.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// Payload is the authenticated-identity claim carried by a session token.
type Payload struct {
	UserID    string
	ExpiresAt time.Time
	// TokenID is the token's jti. It is set by Decode and ignored by Encode.
	TokenID string
}

type sessionClaims struct {
	UserID string `json:"userId"`
	Expiry string `json:"expiresAt"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with a single pinned algorithm (HS256).
// A Codec is safe for concurrent use.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// Option customizes a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec validates cfg and returns a ready Codec. Callers are expected to
// treat an error here as a fatal startup misconfiguration.
func NewCodec(cfg Config, opts ...Option) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if cfg.TTL < 0 {
		return nil, ErrInvalidTTL
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, ErrInvalidLeeway
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	c := &Codec{
		secret: secret,
		ttl:    cfg.TTL,
		issuer: strings.TrimSpace(cfg.Issuer),
		leeway: cfg.Leeway,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// TTL reports the upper bound applied to every token's exp claim.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Encode signs p into a compact token. It has no side effects.
func (c *Codec) Encode(p Payload) (string, error) {
	if !validUserID(p.UserID) {
		return "", fmt.Errorf("%w: empty user id", ErrInvalidPayload)
	}

	now := c.now()
	if !p.ExpiresAt.After(now) {
		return "", fmt.Errorf("%w: expiry is not in the future", ErrInvalidPayload)
	}

	exp := p.ExpiresAt
	if limit := now.Add(c.ttl); exp.After(limit) {
		exp = limit
	}

	claims := sessionClaims{
		UserID: p.UserID,
		Expiry: p.ExpiresAt.UTC().Format(time.RFC3339Nano),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}

// Decode verifies token and returns its payload. Every failure mode yields
// (Payload{}, false).
func (c *Codec) Decode(token string) (p Payload, ok bool) {
	defer func() {
		if recover() != nil {
			p, ok = Payload{}, false
		}
	}()

	if token == "" {
		return Payload{}, false
	}

	claims, err := c.parse(token)
	if err != nil {
		return Payload{}, false
	}
	if !validUserID(claims.UserID) {
		return Payload{}, false
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, claims.Expiry)
	if err != nil {
		return Payload{}, false
	}
	if !expiresAt.After(c.now()) {
		return Payload{}, false
	}

	return Payload{
		UserID:    claims.UserID,
		ExpiresAt: expiresAt.UTC(),
		TokenID:   claims.ID,
	}, true
}

func (c *Codec) parse(token string) (*sessionClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	}
	if c.leeway > 0 {
		options = append(options, jwt.WithLeeway(c.leeway))
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	// WithIssuedAt only checks iat when present.
	if claims.IssuedAt == nil {
		return nil, jwt.ErrTokenRequiredClaimMissing
	}

	return claims, nil
}

func validUserID(id string) bool {
	return strings.TrimSpace(id) != ""
}
