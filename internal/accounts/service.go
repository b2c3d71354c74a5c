// Package accounts implements registration and password login on top of the
// users repository. Minting the session cookie is left to the HTTP layer.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/wanderlate/internal/audit"
	"github.com/MrEthical07/wanderlate/internal/rate"
	"github.com/MrEthical07/wanderlate/internal/users"
	"go.uber.org/zap"
)

// PasswordHasher is satisfied by *password.Argon2.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

// LoginLimiter is satisfied by *rate.Limiter.
type LoginLimiter interface {
	CheckLogin(ctx context.Context, identifier, ip string) error
	IncrementLogin(ctx context.Context, identifier, ip string) error
	ResetLogin(ctx context.Context, identifier, ip string) error
}

// AuthObserver counts account outcomes. *metrics.Recorder satisfies it.
type AuthObserver interface {
	ObserveAuth(event, outcome string)
}

// Deps wires a Service. Users and Hasher are required.
type Deps struct {
	Users   users.Repository
	Hasher  PasswordHasher
	Limiter LoginLimiter
	Audit   audit.Emitter
	Metrics AuthObserver
	Logger  *zap.Logger
	Now     func() time.Time
}

// Service runs the account flows. It is safe for concurrent use.
type Service struct {
	users   users.Repository
	hasher  PasswordHasher
	limiter LoginLimiter
	audit   audit.Emitter
	metrics AuthObserver
	logger  *zap.Logger
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService validates deps and fills optional ones with no-ops.
func NewService(deps Deps) (*Service, error) {
	if deps.Users == nil || deps.Hasher == nil {
		return nil, errors.New("accounts: users repository and password hasher are required")
	}
	if deps.Audit == nil {
		deps.Audit = audit.NoOpSink{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Service{
		users:   deps.Users,
		hasher:  deps.Hasher,
		limiter: deps.Limiter,
		audit:   deps.Audit,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     deps.Now,
	}, nil
}

// Register validates in, stores a new active email account and returns it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (users.User, error) {
	birth, err := in.validate()
	if err != nil {
		s.observe(audit.EventRegister, "invalid")
		return users.User{}, err
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		s.registerFailed(ctx, ErrEmailTaken)
		return users.User{}, ErrEmailTaken
	} else if !errors.Is(err, users.ErrNotFound) {
		return users.User{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return users.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, users.User{
		Email:         in.Email,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Phone:         in.Phone,
		BirthDate:     birth,
		Country:       in.Country,
		Language:      in.Language,
		Currency:      in.Currency,
		AccountType:   in.AccountType,
		PasswordHash:  hash,
		LoginProvider: users.ProviderEmail,
		IsActive:      true,
	})
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			s.registerFailed(ctx, ErrEmailTaken)
			return users.User{}, ErrEmailTaken
		}
		return users.User{}, fmt.Errorf("create user: %w", err)
	}

	s.observe(audit.EventRegister, "success")
	s.emit(ctx, audit.Event{EventType: audit.EventRegister, UserID: u.ID, Success: true})
	return u, nil
}

// Login checks the credentials in in for a client at ip. Unknown emails and
// wrong passwords return the same error, and both pay for one password
// verification. A hash stored under weaker parameters than the hasher's
// current ones is replaced after a successful login.
func (s *Service) Login(ctx context.Context, in LoginInput, ip string) (users.User, error) {
	if err := in.validate(); err != nil {
		s.observe(audit.EventLogin, "invalid")
		return users.User{}, err
	}
	identifier := users.NormalizeEmail(in.Email)

	if s.limiter != nil {
		if err := s.limiter.CheckLogin(ctx, identifier, ip); err != nil {
			if !errors.Is(err, rate.ErrRateLimited) {
				s.logger.Error("login throttle unavailable", zap.Error(err))
			}
			return users.User{}, s.rateLimited(ctx, "", ip)
		}
	}

	u, err := s.users.FindByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.burnVerify(in.Password)
			return users.User{}, s.loginFailed(ctx, identifier, ip, "", "user_not_found", ErrInvalidCredentials)
		}
		return users.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if u.PasswordHash == "" {
		return users.User{}, s.loginFailed(ctx, identifier, ip, u.ID, "passwordless", ErrPasswordlessAccount)
	}

	ok, err := s.hasher.Verify(in.Password, u.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			s.logger.Warn("stored password hash unusable", zap.String("user_id", u.ID), zap.Error(err))
		}
		return users.User{}, s.loginFailed(ctx, identifier, ip, u.ID, "password_mismatch", ErrInvalidCredentials)
	}

	if !u.IsActive {
		s.observe(audit.EventLogin, "disabled")
		s.emit(ctx, audit.Event{EventType: audit.EventLogin, UserID: u.ID, IP: ip, Error: ErrAccountDisabled.Error(),
			Metadata: map[string]string{"reason": "account_inactive"}})
		return users.User{}, ErrAccountDisabled
	}

	s.upgradeHash(ctx, u, in.Password)

	if s.limiter != nil {
		if err := s.limiter.ResetLogin(ctx, identifier, ip); err != nil {
			s.logger.Warn("login throttle reset failed", zap.String("user_id", u.ID), zap.Error(err))
		}
	}

	s.observe(audit.EventLogin, "success")
	s.emit(ctx, audit.Event{EventType: audit.EventLogin, UserID: u.ID, IP: ip, Success: true})
	return u, nil
}

// Logout records the end of a session for userID.
func (s *Service) Logout(ctx context.Context, userID, ip string) {
	s.observe(audit.EventLogout, "success")
	s.emit(ctx, audit.Event{EventType: audit.EventLogout, UserID: userID, IP: ip, Success: true})
}

// loginFailed counts the failure against the throttle and returns cause, or
// ErrRateLimited when this failure exhausted the budget.
func (s *Service) loginFailed(ctx context.Context, identifier, ip, userID, reason string, cause error) error {
	if s.limiter != nil {
		if err := s.limiter.IncrementLogin(ctx, identifier, ip); err != nil {
			if !errors.Is(err, rate.ErrRateLimited) {
				s.logger.Error("login throttle unavailable", zap.Error(err))
			}
			return s.rateLimited(ctx, userID, ip)
		}
	}

	s.observe(audit.EventLogin, "failure")
	s.emit(ctx, audit.Event{EventType: audit.EventLogin, UserID: userID, IP: ip, Error: cause.Error(),
		Metadata: map[string]string{"reason": reason}})
	return cause
}

// burnVerify runs a verification against a throwaway hash so that a miss on
// the email lookup costs as much as a wrong password.
func (s *Service) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("wanderlate-unknown-account")
		if err != nil {
			s.logger.Warn("dummy password hash failed", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

// upgradeHash rehashes password when u's stored hash uses outdated
// parameters. Failures are logged and never fail the login.
func (s *Service) upgradeHash(ctx context.Context, u users.User, password string) {
	stale, err := s.hasher.NeedsUpgrade(u.PasswordHash)
	if err != nil || !stale {
		return
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("password rehash failed", zap.String("user_id", u.ID), zap.Error(err))
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		s.logger.Warn("password hash upgrade not stored", zap.String("user_id", u.ID), zap.Error(err))
		return
	}
	s.logger.Info("password hash upgraded", zap.String("user_id", u.ID))
}

func (s *Service) rateLimited(ctx context.Context, userID, ip string) error {
	s.observe(audit.EventLogin, "rate_limited")
	s.emit(ctx, audit.Event{EventType: audit.EventLoginRateLimited, UserID: userID, IP: ip, Error: ErrRateLimited.Error()})
	return ErrRateLimited
}

func (s *Service) registerFailed(ctx context.Context, cause error) {
	s.observe(audit.EventRegister, "conflict")
	s.emit(ctx, audit.Event{EventType: audit.EventRegister, Error: cause.Error()})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	event.Timestamp = s.now().UTC()
	s.audit.Emit(ctx, event)
}

func (s *Service) observe(event, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveAuth(event, outcome)
	}
}
