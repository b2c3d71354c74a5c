package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const selectUser = `
SELECT id, email, first_name, last_name, phone, birth_date,
	COALESCE(country, ''), COALESCE(language, ''), currency, account_type,
	COALESCE(password_hash, ''), login_provider, is_active, created_at
FROM users
`

// PostgresRepository implements Repository on a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository wraps pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindByID loads the account with id. Ids that are not UUIDs cannot exist
// and report ErrNotFound without a query.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	if r.pool == nil {
		return User{}, fmt.Errorf("postgres pool is nil")
	}
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}

	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+`WHERE id = $1`, id))
	if err != nil {
		return User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// FindByEmail loads the account for the normalized form of email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	if r.pool == nil {
		return User{}, fmt.Errorf("postgres pool is nil")
	}
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, ErrNotFound
	}

	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+`WHERE email = $1`, email))
	if err != nil {
		return User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// Create inserts u with a fresh id and returns the stored row.
func (r *PostgresRepository) Create(ctx context.Context, u User) (User, error) {
	if r.pool == nil {
		return User{}, fmt.Errorf("postgres pool is nil")
	}

	u.ID = uuid.NewString()
	u.Email = NormalizeEmail(u.Email)
	if strings.TrimSpace(u.LoginProvider) == "" {
		u.LoginProvider = ProviderEmail
	}

	var birthDate *time.Time
	if !u.BirthDate.IsZero() {
		birthDate = &u.BirthDate
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO users (id, email, first_name, last_name, phone, birth_date,
	country, language, currency, account_type, password_hash, login_provider,
	is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10,
	NULLIF($11, ''), $12, $13, NOW())
RETURNING created_at
`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Phone, birthDate,
		u.Country, u.Language, u.Currency, u.AccountType,
		u.PasswordHash, u.LoginProvider, u.IsActive,
	).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

// UpdatePasswordHash replaces the stored hash of account id.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u         User
		birthDate *time.Time
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &birthDate,
		&u.Country, &u.Language, &u.Currency, &u.AccountType,
		&u.PasswordHash, &u.LoginProvider, &u.IsActive, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if birthDate != nil {
		u.BirthDate = *birthDate
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
