package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, name, profile_photo, subscription_tier, subscription_status, subscription_start,
	subscription_end, monthly_searches, monthly_search_limit, total_searches, last_search,
	can_export, can_see_full_profiles, can_see_contact_info, password_hash, google_subject,
	is_active, is_verified, is_google_auth, verification_id, verification_code_hash, verification_sent_at,
	otp_hash, otp_created_at, reset_token_hash, reset_expires_at, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var tier string
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.ProfilePhoto, &tier, &u.SubscriptionStatus, &u.SubscriptionStart,
		&u.SubscriptionEnd, &u.MonthlySearches, &u.MonthlySearchLimit, &u.TotalSearches, &u.LastSearch,
		&u.CanExport, &u.CanSeeFullProfiles, &u.CanSeeContactInfo, &u.PasswordHash, &u.GoogleSubject,
		&u.IsActive, &u.IsVerified, &u.IsGoogleAuth, &u.VerificationID, &u.VerificationCodeHash, &u.VerificationSentAt,
		&u.OTPHash, &u.OTPCreatedAt, &u.ResetTokenHash, &u.ResetExpiresAt, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.SubscriptionTier = plans.Tier(tier)
	return &u, nil
}

func (db *DB) getUser(ctx context.Context, what, where string, arg any) (*models.User, error) {
	u, err := scanUser(db.Pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg))
	if err != nil {
		return nil, fmt.Errorf("get user by %s: %w", what, mapError(err))
	}
	return u, nil
}

// GetUserByID returns a user by primary key.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return db.getUser(ctx, "ID", "id = $1", id)
}

// GetUserByEmail returns a user by case-insensitive email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, "email", "LOWER(email) = LOWER($1)", email)
}

// GetUserByVerificationID returns the user awaiting the given email verification.
func (db *DB) GetUserByVerificationID(ctx context.Context, verificationID string) (*models.User, error) {
	return db.getUser(ctx, "verification ID", "verification_id = $1", verificationID)
}

// GetUserByResetTokenHash returns the user holding an unexpired reset token.
func (db *DB) GetUserByResetTokenHash(ctx context.Context, hash string) (*models.User, error) {
	return db.getUser(ctx, "reset token", "reset_token_hash = $1 AND reset_expires_at > NOW()", hash)
}

// CreateUser inserts a new account.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO users (id, email, name, profile_photo, subscription_tier, subscription_status, subscription_start,
			monthly_search_limit, can_export, can_see_full_profiles, can_see_contact_info, password_hash,
			google_subject, is_active, is_verified, is_google_auth, verification_id, verification_code_hash,
			verification_sent_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`, u.ID, u.Email, u.Name, u.ProfilePhoto, string(u.SubscriptionTier), u.SubscriptionStatus, u.SubscriptionStart,
		u.MonthlySearchLimit, u.CanExport, u.CanSeeFullProfiles, u.CanSeeContactInfo, u.PasswordHash,
		u.GoogleSubject, u.IsActive, u.IsVerified, u.IsGoogleAuth, u.VerificationID, u.VerificationCodeHash,
		u.VerificationSentAt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", mapError(err))
	}
	return nil
}

func (db *DB) execUser(ctx context.Context, what string, id uuid.UUID, query string, args ...any) error {
	tag, err := db.Pool.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// UpdateUserProfile sets the editable profile fields.
func (db *DB) UpdateUserProfile(ctx context.Context, id uuid.UUID, name, photo *string) error {
	return db.execUser(ctx, "update user profile", id, `
		UPDATE users SET name = $2, profile_photo = $3, updated_at = NOW() WHERE id = $1
	`, name, photo)
}

// SetPassword stores a new password hash and clears any pending reset.
func (db *DB) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	return db.execUser(ctx, "set password", id, `
		UPDATE users SET password_hash = $2, reset_token_hash = NULL, reset_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`, hash)
}

// SetVerificationCode stores a pending email verification code.
func (db *DB) SetVerificationCode(ctx context.Context, id uuid.UUID, verificationID, codeHash string) error {
	return db.execUser(ctx, "set verification code", id, `
		UPDATE users SET verification_id = $2, verification_code_hash = $3, verification_sent_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, verificationID, codeHash)
}

// MarkVerified flags the email as verified and clears the pending code.
func (db *DB) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return db.execUser(ctx, "mark user verified", id, `
		UPDATE users SET is_verified = true, verification_id = NULL, verification_code_hash = NULL,
			verification_sent_at = NULL, updated_at = NOW()
		WHERE id = $1
	`)
}

// SetOTP stores a pending login code.
func (db *DB) SetOTP(ctx context.Context, id uuid.UUID, codeHash string) error {
	return db.execUser(ctx, "set otp", id, `
		UPDATE users SET otp_hash = $2, otp_created_at = NOW(), updated_at = NOW() WHERE id = $1
	`, codeHash)
}

// CompleteLogin clears the login code and records the sign-in time.
func (db *DB) CompleteLogin(ctx context.Context, id uuid.UUID) error {
	return db.execUser(ctx, "complete login", id, `
		UPDATE users SET otp_hash = NULL, otp_created_at = NULL, last_login = NOW(), updated_at = NOW() WHERE id = $1
	`)
}

// SetResetToken stores a password reset token hash.
func (db *DB) SetResetToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	return db.execUser(ctx, "set reset token", id, `
		UPDATE users SET reset_token_hash = $2, reset_expires_at = $3, updated_at = NOW() WHERE id = $1
	`, hash, expiresAt)
}

// SetSubscriptionTier changes the tier and its feature flags.
func (db *DB) SetSubscriptionTier(ctx context.Context, id uuid.UUID, tier plans.Tier) error {
	l := plans.LimitsFor(tier)
	return db.execUser(ctx, "set subscription tier", id, `
		UPDATE users SET subscription_tier = $2, monthly_search_limit = $3, can_export = $4,
			can_see_full_profiles = $5, can_see_contact_info = $6, subscription_start = NOW(), updated_at = NOW()
		WHERE id = $1
	`, string(tier), l.MonthlySearches, l.CanExport, l.CanSeeFullProfiles, l.CanSeeContactInfo)
}

// DeactivateUser disables the account and revokes its refresh tokens.
func (db *DB) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "UPDATE users SET is_active = false, updated_at = NOW() WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("deactivate user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("deactivate user: %w", ErrNotFound)
		}
		if _, err := tx.Exec(ctx, "UPDATE refresh_tokens SET revoked = true WHERE user_id = $1", id); err != nil {
			return fmt.Errorf("revoke tokens: %w", err)
		}
		return nil
	})
}

// RecordSearch consumes one search from the monthly quota. limit is the
// effective monthly limit of the caller's tier, negative for unlimited. It
// returns the counter after the attempt and reports false without changing
// anything when the quota is exhausted.
func (db *DB) RecordSearch(ctx context.Context, id uuid.UUID, limit int) (int, bool, error) {
	var used int
	err := db.Pool.QueryRow(ctx, `
		UPDATE users
		SET monthly_searches = monthly_searches + 1, total_searches = total_searches + 1, last_search = NOW()
		WHERE id = $1 AND ($2::int < 0 OR monthly_searches < $2::int)
		RETURNING monthly_searches
	`, id, limit).Scan(&used)
	if err == nil {
		return used, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("record search: %w", err)
	}

	if err := db.Pool.QueryRow(ctx, "SELECT monthly_searches FROM users WHERE id = $1", id).Scan(&used); err != nil {
		return 0, false, fmt.Errorf("record search: %w", mapError(err))
	}
	return used, false, nil
}

// RefundSearch gives back a search consumed by a query that then failed.
func (db *DB) RefundSearch(ctx context.Context, id uuid.UUID) error {
	return db.execUser(ctx, "refund search", id, `
		UPDATE users
		SET monthly_searches = GREATEST(monthly_searches - 1, 0), total_searches = GREATEST(total_searches - 1, 0)
		WHERE id = $1`)
}

// ResetUsage zeroes the monthly counter of one user.
func (db *DB) ResetUsage(ctx context.Context, id uuid.UUID) error {
	return db.execUser(ctx, "reset usage", id, "UPDATE users SET monthly_searches = 0, updated_at = NOW() WHERE id = $1")
}

// ResetMonthlyUsage zeroes every monthly counter and returns the number of
// accounts touched.
func (db *DB) ResetMonthlyUsage(ctx context.Context) (int64, error) {
	tag, err := db.Pool.Exec(ctx, "UPDATE users SET monthly_searches = 0 WHERE monthly_searches <> 0")
	if err != nil {
		return 0, fmt.Errorf("reset monthly usage: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GoogleProfile is the identity asserted by a verified Google ID token.
type GoogleProfile struct {
	Subject string
	Email   string
	Name    *string
	Picture *string
}

// UpsertGoogleUser links a Google identity to an account, creating one when
// none exists. Google accounts are treated as verified.
func (db *DB) UpsertGoogleUser(ctx context.Context, p GoogleProfile) (*models.User, error) {
	var user *models.User
	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		existing, err := scanUser(tx.QueryRow(ctx,
			"SELECT "+userColumns+" FROM users WHERE google_subject = $1 OR LOWER(email) = LOWER($2) ORDER BY google_subject IS NULL LIMIT 1 FOR UPDATE",
			p.Subject, p.Email))
		switch {
		case err == nil:
			_, err = tx.Exec(ctx, `
				UPDATE users SET google_subject = $2, is_google_auth = true, is_verified = true,
					name = COALESCE(name, $3), profile_photo = COALESCE($4, profile_photo),
					last_login = NOW(), updated_at = NOW()
				WHERE id = $1
			`, existing.ID, p.Subject, p.Name, p.Picture)
			if err != nil {
				return fmt.Errorf("link google account: %w", err)
			}
			user, err = scanUser(tx.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", existing.ID))
			return err
		case errors.Is(err, pgx.ErrNoRows):
			u := models.NewUser(p.Email, p.Name)
			u.GoogleSubject = &p.Subject
			u.ProfilePhoto = p.Picture
			u.IsGoogleAuth = true
			u.IsVerified = true
			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, email, name, profile_photo, subscription_tier, subscription_status,
					subscription_start, monthly_search_limit, can_export, can_see_full_profiles, can_see_contact_info,
					google_subject, is_active, is_verified, is_google_auth, last_login, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, true, true, true, NOW(), $13, $14)
			`, u.ID, u.Email, u.Name, u.ProfilePhoto, string(u.SubscriptionTier), u.SubscriptionStatus,
				u.SubscriptionStart, u.MonthlySearchLimit, u.CanExport, u.CanSeeFullProfiles, u.CanSeeContactInfo,
				u.GoogleSubject, u.CreatedAt, u.UpdatedAt)
			if err != nil {
				return fmt.Errorf("create google user: %w", mapError(err))
			}
			user = u
			return nil
		default:
			return fmt.Errorf("find google user: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
