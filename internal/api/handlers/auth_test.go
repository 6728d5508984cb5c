package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MacJediWizard/dealbook/internal/auth"
	"github.com/MacJediWizard/dealbook/internal/db"
	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/MacJediWizard/dealbook/internal/notify"
	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// mockAuthStore keeps accounts and refresh tokens in memory with the same
// semantics as the Postgres store.
type mockAuthStore struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*models.User
	tokens map[string]*models.RefreshToken
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{users: map[uuid.UUID]*models.User{}, tokens: map[string]*models.RefreshToken{}}
}

func (m *mockAuthStore) find(pred func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if pred(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get user: %w", db.ErrNotFound)
}

func (m *mockAuthStore) update(id uuid.UUID, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("update user: %w", db.ErrNotFound)
	}
	fn(u)
	return nil
}

func (m *mockAuthStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *mockAuthStore) GetUserByVerificationID(_ context.Context, id string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.VerificationID != nil && *u.VerificationID == id })
}

func (m *mockAuthStore) GetUserByResetTokenHash(_ context.Context, hash string) (*models.User, error) {
	return m.find(func(u *models.User) bool {
		return u.ResetTokenHash != nil && *u.ResetTokenHash == hash && u.ResetExpiresAt != nil && u.ResetExpiresAt.After(time.Now())
	})
}

func (m *mockAuthStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("create user: %w", db.ErrConflict)
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockAuthStore) UpdateUserProfile(_ context.Context, id uuid.UUID, name, photo *string) error {
	return m.update(id, func(u *models.User) { u.Name, u.ProfilePhoto = name, photo })
}

func (m *mockAuthStore) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	return m.update(id, func(u *models.User) {
		u.PasswordHash = hash
		u.ResetTokenHash, u.ResetExpiresAt = nil, nil
	})
}

func (m *mockAuthStore) SetVerificationCode(_ context.Context, id uuid.UUID, verificationID, codeHash string) error {
	now := time.Now()
	return m.update(id, func(u *models.User) {
		u.VerificationID, u.VerificationCodeHash, u.VerificationSentAt = &verificationID, &codeHash, &now
	})
}

func (m *mockAuthStore) MarkVerified(_ context.Context, id uuid.UUID) error {
	return m.update(id, func(u *models.User) {
		u.IsVerified = true
		u.VerificationID, u.VerificationCodeHash, u.VerificationSentAt = nil, nil, nil
	})
}

func (m *mockAuthStore) SetOTP(_ context.Context, id uuid.UUID, codeHash string) error {
	now := time.Now()
	return m.update(id, func(u *models.User) { u.OTPHash, u.OTPCreatedAt = &codeHash, &now })
}

func (m *mockAuthStore) CompleteLogin(_ context.Context, id uuid.UUID) error {
	now := time.Now()
	return m.update(id, func(u *models.User) { u.OTPHash, u.OTPCreatedAt, u.LastLogin = nil, nil, &now })
}

func (m *mockAuthStore) SetResetToken(_ context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	return m.update(id, func(u *models.User) { u.ResetTokenHash, u.ResetExpiresAt = &hash, &expiresAt })
}

func (m *mockAuthStore) DeactivateUser(_ context.Context, id uuid.UUID) error {
	if err := m.update(id, func(u *models.User) { u.IsActive = false }); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.UserID == id {
			t.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthStore) CreateRefreshToken(_ context.Context, t *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tokens[t.TokenHash] = &cp
	return nil
}

func (m *mockAuthStore) RotateRefreshToken(_ context.Context, presentedHash string, next *models.RefreshToken) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tokens[presentedHash]
	if !ok {
		return uuid.Nil, fmt.Errorf("find refresh token: %w", db.ErrNotFound)
	}
	if cur.Revoked {
		for _, t := range m.tokens {
			if t.UserID == cur.UserID {
				t.Revoked = true
			}
		}
		return cur.UserID, db.ErrTokenReused
	}
	if !cur.Usable(time.Now()) {
		return uuid.Nil, fmt.Errorf("refresh token expired: %w", db.ErrNotFound)
	}
	cur.Revoked = true
	next.UserID = cur.UserID
	cp := *next
	m.tokens[next.TokenHash] = &cp
	return cur.UserID, nil
}

func (m *mockAuthStore) RevokeRefreshToken(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[hash]; ok {
		t.Revoked = true
	}
	return nil
}

func (m *mockAuthStore) user(email string) *models.User {
	u, _ := m.GetUserByEmail(context.Background(), email)
	return u
}

// captureNotifier records the last message of each kind.
type captureNotifier struct {
	mu           sync.Mutex
	verification notify.Message
	login        notify.Message
	reset        notify.Message
}

func (n *captureNotifier) SendVerificationCode(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verification = msg
	return nil
}

func (n *captureNotifier) SendLoginCode(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.login = msg
	return nil
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset = msg
	return nil
}

type authFixture struct {
	store    *mockAuthStore
	notifier *captureNotifier
	tokens   *auth.TokenService
	handler  *AuthHandler
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	tokens, err := auth.NewTokenService(strings.Repeat("s", 32), "dealbook-test", 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	f := &authFixture{store: newMockAuthStore(), notifier: &captureNotifier{}, tokens: tokens}
	f.handler = NewAuthHandler(f.store, tokens, f.notifier, AuthConfig{
		RefreshTokenTTL:  7 * 24 * time.Hour,
		FrontendURL:      "https://app.dealbook.test/",
		AdminEmailDomain: "dealbook.io",
	}, zerolog.Nop())
	return f
}

func (f *authFixture) router(user *models.User) http.Handler {
	r, api := newTestRouter(user)
	f.handler.RegisterPublicRoutes(api, nil)
	f.handler.RegisterRoutes(api)
	return r
}

// signUp registers, verifies and returns the account with a token pair.
func (f *authFixture) signUp(t *testing.T, email string) (*models.User, TokenResponse) {
	t.Helper()
	r := f.router(nil)
	w := doRequest(r, "POST", "/api/v1/auth/register", map[string]any{"email": email, "password": "correct-horse", "first_name": "Jane", "last_name": "Doe"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("register: expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var reg map[string]string
	decodeBody(t, w, &reg)

	w = doRequest(r, "POST", "/api/v1/auth/verify-email", map[string]any{"verification_id": reg["verification_id"], "code": f.notifier.verification.Code})
	if w.Code != http.StatusOK {
		t.Fatalf("verify-email: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var tokens TokenResponse
	decodeBody(t, w, &tokens)
	return f.store.user(email), tokens
}

func TestAuthRegister(t *testing.T) {
	f := newAuthFixture(t)
	r := f.router(nil)

	w := doRequest(r, "POST", "/api/v1/auth/register", map[string]any{"email": "Jane@Example.com", "password": "correct-horse", "name": "Jane"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	decodeBody(t, w, &resp)
	if resp["flow"] != FlowEmailVerification || resp["verification_id"] == "" {
		t.Fatalf("unexpected response %v", resp)
	}

	u := f.store.user("jane@example.com")
	if u == nil || u.IsVerified || u.SubscriptionTier != plans.TierFree {
		t.Fatalf("unexpected stored user %+v", u)
	}
	if u.PasswordHash == "correct-horse" || u.VerificationCodeHash == nil || *u.VerificationCodeHash == f.notifier.verification.Code {
		t.Fatal("expected secrets stored hashed")
	}
	if len(f.notifier.verification.Code) != auth.CodeLength || f.notifier.verification.To != "jane@example.com" {
		t.Fatalf("unexpected verification message %+v", f.notifier.verification)
	}

	w = doRequest(r, "POST", "/api/v1/auth/register", map[string]any{"email": "jane@example.com", "password": "correct-horse"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", w.Code)
	}

	for name, body := range map[string]map[string]any{
		"short password": {"email": "a@example.com", "password": "short"},
		"bad email":      {"email": "not-an-email", "password": "correct-horse"},
		"missing fields": {},
	} {
		if w := doRequest(r, "POST", "/api/v1/auth/register", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, w.Code)
		}
	}
}

func TestAuthVerifyEmail(t *testing.T) {
	f := newAuthFixture(t)
	r := f.router(nil)
	doRequest(r, "POST", "/api/v1/auth/register", map[string]any{"email": "jane@example.com", "password": "correct-horse"})
	u := f.store.user("jane@example.com")

	w := doRequest(r, "POST", "/api/v1/auth/verify-email", map[string]any{"verification_id": *u.VerificationID, "code": wrongCode(f.notifier.verification.Code)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong code, got %d", w.Code)
	}

	_, tokens := f.signUp(t, "john@example.com")
	if tokens.TokenType != "bearer" || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("unexpected tokens %+v", tokens)
	}
	claims, err := f.tokens.Validate(tokens.AccessToken)
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.Tier != string(plans.TierFree) || claims.Email != "john@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if john := f.store.user("john@example.com"); !john.IsVerified || john.VerificationID != nil || john.LastLogin == nil {
		t.Fatalf("expected verified account with login recorded, got %+v", john)
	}
}

func TestAuthLogin(t *testing.T) {
	f := newAuthFixture(t)
	user, _ := f.signUp(t, "jane@example.com")
	r := f.router(nil)

	t.Run("wrong password", func(t *testing.T) {
		w := doRequest(r, "POST", "/api/v1/auth/login", map[string]any{"email": "jane@example.com", "password": "nope-nope"})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		if w.Header().Get("WWW-Authenticate") != "Bearer" {
			t.Fatal("expected WWW-Authenticate header")
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		w := doRequest(r, "POST", "/api/v1/auth/login", map[string]any{"email": "ghost@example.com", "password": "correct-horse"})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("two factor flow", func(t *testing.T) {
		w := doRequest(r, "POST", "/api/v1/auth/login", map[string]any{"email": "JANE@example.com", "password": "correct-horse"})
		if w.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
		}
		var resp map[string]string
		decodeBody(t, w, &resp)
		if resp["flow"] != FlowTwoFactor || resp["user_id"] != user.ID.String() {
			t.Fatalf("unexpected response %v", resp)
		}

		w = doRequest(r, "POST", "/api/v1/auth/verify-otp", map[string]any{"user_id": user.ID.String(), "code": wrongCode(f.notifier.login.Code)})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for wrong code, got %d", w.Code)
		}

		w = doRequest(r, "POST", "/api/v1/auth/verify-otp", map[string]any{"user_id": user.ID.String(), "code": f.notifier.login.Code})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var tokens TokenResponse
		decodeBody(t, w, &tokens)
		if tokens.TokenType != "bearer" || tokens.ExpiresIn != int64((15*time.Minute).Seconds()) {
			t.Fatalf("unexpected tokens %+v", tokens)
		}

		// The code is single use.
		w = doRequest(r, "POST", "/api/v1/auth/verify-otp", map[string]any{"user_id": user.ID.String(), "code": f.notifier.login.Code})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 on replay, got %d", w.Code)
		}
	})

	t.Run("expired code", func(t *testing.T) {
		doRequest(r, "POST", "/api/v1/auth/login", map[string]any{"email": "jane@example.com", "password": "correct-horse"})
		stale := time.Now().Add(-auth.OTPTTL - time.Minute)
		_ = f.store.update(user.ID, func(u *models.User) { u.OTPCreatedAt = &stale })

		w := doRequest(r, "POST", "/api/v1/auth/verify-otp", map[string]any{"user_id": user.ID.String(), "code": f.notifier.login.Code})
		if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "expired") {
			t.Fatalf("expected expiry error, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("unverified account restarts verification", func(t *testing.T) {
		doRequest(r, "POST", "/api/v1/auth/register", map[string]any{"email": "new@example.com", "password": "correct-horse"})
		w := doRequest(r, "POST", "/api/v1/auth/login", map[string]any{"email": "new@example.com", "password": "correct-horse"})
		if w.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", w.Code)
		}
		var resp map[string]string
		decodeBody(t, w, &resp)
		if resp["flow"] != FlowEmailVerification || resp["verification_id"] == "" {
			t.Fatalf("unexpected response %v", resp)
		}
	})

	t.Run("deactivated account", func(t *testing.T) {
		_ = f.store.update(user.ID, func(u *models.User) { u.IsActive = false })
		defer func() { _ = f.store.update(user.ID, func(u *models.User) { u.IsActive = true }) }()
		w := doRequest(r, "POST", "/api/v1/auth/login", map[string]any{"email": "jane@example.com", "password": "correct-horse"})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})
}

func wrongCode(code string) string {
	if code == "111111" {
		return "222222"
	}
	return "111111"
}

func TestAuthAdminDomainTier(t *testing.T) {
	f := newAuthFixture(t)
	_, tokens := f.signUp(t, "ops@dealbook.io")
	claims, err := f.tokens.Validate(tokens.AccessToken)
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.Tier != string(plans.TierAdmin) {
		t.Fatalf("expected admin tier claim, got %q", claims.Tier)
	}
}

func TestAuthRefreshRotation(t *testing.T) {
	f := newAuthFixture(t)
	_, first := f.signUp(t, "jane@example.com")
	r := f.router(nil)

	w := doRequest(r, "POST", "/api/v1/auth/refresh", map[string]any{"refresh_token": first.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var second TokenResponse
	decodeBody(t, w, &second)
	if second.RefreshToken == "" || second.RefreshToken == first.RefreshToken {
		t.Fatal("expected a new refresh token")
	}

	// Replaying the rotated token revokes the whole family.
	w = doRequest(r, "POST", "/api/v1/auth/refresh", map[string]any{"refresh_token": first.RefreshToken})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on reuse, got %d", w.Code)
	}
	w = doRequest(r, "POST", "/api/v1/auth/refresh", map[string]any{"refresh_token": second.RefreshToken})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected descendant revoked after reuse, got %d", w.Code)
	}

	w = doRequest(r, "POST", "/api/v1/auth/refresh", map[string]any{"refresh_token": "garbage"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", w.Code)
	}
}

func TestAuthLogout(t *testing.T) {
	f := newAuthFixture(t)
	_, tokens := f.signUp(t, "jane@example.com")
	r := f.router(nil)

	if w := doRequest(r, "POST", "/api/v1/auth/logout", map[string]any{"refresh_token": tokens.RefreshToken}); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := doRequest(r, "POST", "/api/v1/auth/logout", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 without body, got %d", w.Code)
	}
	if !f.store.tokens[auth.HashToken(tokens.RefreshToken)].Revoked {
		t.Fatal("expected token revoked")
	}
}

func TestAuthPasswordReset(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t, "jane@example.com")
	r := f.router(nil)

	w := doRequest(r, "POST", "/api/v1/auth/forgot-password", map[string]any{"email": "jane@example.com"})
	known := w.Body.String()
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w = doRequest(r, "POST", "/api/v1/auth/forgot-password", map[string]any{"email": "ghost@example.com"})
	if w.Code != http.StatusOK || w.Body.String() != known {
		t.Fatalf("expected identical response for unknown email, got %d %s", w.Code, w.Body.String())
	}

	link := f.notifier.reset.Link
	prefix := "https://app.dealbook.test/reset-password?token="
	if !strings.HasPrefix(link, prefix) || f.notifier.reset.ExpiresIn != auth.ResetTokenTTL {
		t.Fatalf("unexpected reset message %+v", f.notifier.reset)
	}
	token := strings.TrimPrefix(link, prefix)

	w = doRequest(r, "POST", "/api/v1/auth/reset-password", map[string]any{"token": token, "new_password": "new-password-1", "confirm_password": "different"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for mismatch, got %d", w.Code)
	}
	w = doRequest(r, "POST", "/api/v1/auth/reset-password", map[string]any{"token": token, "new_password": "new-password-1", "confirm_password": "new-password-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = doRequest(r, "POST", "/api/v1/auth/reset-password", map[string]any{"token": token, "new_password": "new-password-2", "confirm_password": "new-password-2"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected reset token to be single use, got %d", w.Code)
	}

	if err := auth.CheckPassword(f.store.user("jane@example.com").PasswordHash, "new-password-1"); err != nil {
		t.Fatalf("expected new password stored: %v", err)
	}
}

func TestAuthProfile(t *testing.T) {
	f := newAuthFixture(t)
	user, _ := f.signUp(t, "jane@example.com")
	r := f.router(user)

	w := doRequest(r, "GET", "/api/v1/auth/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "password") || strings.Contains(w.Body.String(), user.PasswordHash) {
		t.Fatal("expected secrets omitted from profile")
	}

	w = doRequest(r, "PUT", "/api/v1/auth/me", map[string]any{"profile_photo": "https://cdn.example.com/jane.png"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	stored := f.store.user("jane@example.com")
	if stored.ProfilePhoto == nil || *stored.ProfilePhoto != "https://cdn.example.com/jane.png" {
		t.Fatalf("expected photo stored, got %v", stored.ProfilePhoto)
	}
	if stored.Name == nil || *stored.Name != "Jane Doe" {
		t.Fatalf("expected name untouched, got %v", stored.Name)
	}

	w = doRequest(r, "POST", "/api/v1/auth/change-password", map[string]any{"current_password": "wrong", "new_password": "brand-new-pass", "confirm_password": "brand-new-pass"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong current password, got %d", w.Code)
	}
	w = doRequest(r, "POST", "/api/v1/auth/change-password", map[string]any{"current_password": "correct-horse", "new_password": "brand-new-pass", "confirm_password": "brand-new-pass"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, "POST", "/api/v1/auth/deactivate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if f.store.user("jane@example.com").IsActive {
		t.Fatal("expected account deactivated")
	}

	anon := f.router(nil)
	if w := doRequest(anon, "GET", "/api/v1/auth/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", w.Code)
	}
}
