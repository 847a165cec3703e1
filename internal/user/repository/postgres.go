package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tenant-admin-console/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, password_hash, provider, provider_subject, status,
	mfa_method, phone, country_code, totp_secret, mfa_setup_completed,
	last_login_at, created_at, updated_at`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email (lowercase), or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// Create persists the user to the database. The user must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, provider, provider_subject, status,
			mfa_method, phone, country_code, totp_secret, mfa_setup_completed,
			last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		u.ID, u.Email, nullString(u.PasswordHash), string(u.Provider), nullString(u.ProviderSubject),
		string(u.Status), nullString(string(u.MFAMethod)), nullString(u.Phone), nullString(u.CountryCode),
		nullString(u.TOTPSecret), u.MFASetupCompleted, nullTime(u.LastLoginAt), u.CreatedAt, u.UpdatedAt)
	return err
}

// Update persists mutable user fields keyed by ID.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET email = $2, password_hash = $3, provider = $4, provider_subject = $5,
			status = $6, mfa_method = $7, phone = $8, country_code = $9, totp_secret = $10,
			mfa_setup_completed = $11, last_login_at = $12, updated_at = $13
		WHERE id = $1`,
		u.ID, u.Email, nullString(u.PasswordHash), string(u.Provider), nullString(u.ProviderSubject),
		string(u.Status), nullString(string(u.MFAMethod)), nullString(u.Phone), nullString(u.CountryCode),
		nullString(u.TOTPSecret), u.MFASetupCompleted, nullTime(u.LastLoginAt), time.Now().UTC())
	return err
}

// UpdateLastLogin records a successful authentication timestamp.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $2, updated_at = $2 WHERE id = $1`, userID, at)
	return err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var passwordHash, providerSubject, mfaMethod, phone, countryCode, totpSecret sql.NullString
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &passwordHash, (*string)(&u.Provider), &providerSubject,
		(*string)(&u.Status), &mfaMethod, &phone, &countryCode, &totpSecret, &u.MFASetupCompleted,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.PasswordHash = passwordHash.String
	u.ProviderSubject = providerSubject.String
	u.MFAMethod = domain.MFAMethod(mfaMethod.String)
	u.Phone = phone.String
	u.CountryCode = countryCode.String
	u.TOTPSecret = totpSecret.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
