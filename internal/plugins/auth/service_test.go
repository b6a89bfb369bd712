package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/daybook-app/daybook/internal/apperror"
)

// --- Mock Repository ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn         func(ctx context.Context, user *User) error
	findByIDFn       func(ctx context.Context, id string) (*User, error)
	findByUsernameFn func(ctx context.Context, username string) (*User, error)
	usernameExistsFn func(ctx context.Context, username string) (bool, error)
	updatePasswordFn func(ctx context.Context, userID, passwordHash string) error
	purgeUserFn      func(ctx context.Context, userID string) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.usernameExistsFn != nil {
		return m.usernameExistsFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, userID, passwordHash)
	}
	return nil
}

func (m *mockUserRepo) PurgeUser(ctx context.Context, userID string) error {
	if m.purgeUserFn != nil {
		return m.purgeUserFn(ctx, userID)
	}
	return nil
}

// --- Test Helpers ---

// newTestAuthService creates an authService backed by a miniredis instance.
// The miniredis server is cleaned up when the test finishes.
func newTestAuthService(t *testing.T, repo *mockUserRepo) *authService {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return &authService{
		repo:       repo,
		redis:      rdb,
		sessionTTL: 24 * time.Hour,
	}
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// sampleUser returns a user with a valid hash of the given password.
func sampleUser(t *testing.T, password string) *User {
	t.Helper()
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	return &User{
		ID:           "user-123",
		Username:     "alice",
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	repo := &mockUserRepo{
		usernameExistsFn: func(ctx context.Context, username string) (bool, error) {
			return false, nil
		},
		createFn: func(ctx context.Context, user *User) error {
			if user.Username != "alice" {
				t.Errorf("expected username alice, got %s", user.Username)
			}
			if user.PasswordHash == "" {
				t.Error("expected password hash to be set")
			}
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "Alice",
		Password: "secure-password-123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.ID == "" {
		t.Error("expected user ID to be generated")
	}
}

func TestRegister_UsernameNormalization(t *testing.T) {
	var capturedUsername string
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			capturedUsername = user.Username
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "  Alice_99  ",
		Password: "secure-password-123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedUsername != "alice_99" {
		t.Errorf("expected normalized username alice_99, got %s", capturedUsername)
	}
}

func TestRegister_InvalidUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
	}{
		{"empty", ""},
		{"too short", "ab"},
		{"too long", "abcdefghijklmnopqrstuvwxyz-0123456789"},
		{"spaces inside", "al ice"},
		{"illegal characters", "alice!"},
	}

	svc := newTestAuthService(t, &mockUserRepo{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), RegisterInput{
				Username: tt.username,
				Password: "secure-password-123",
			})
			assertAppError(t, err, 422)
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	repo := &mockUserRepo{
		usernameExistsFn: func(ctx context.Context, username string) (bool, error) {
			return true, nil
		},
	}

	svc := newTestAuthService(t, repo)
	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "taken",
		Password: "secure-password-123",
	})
	assertAppError(t, err, 409)
}

func TestRegister_UsernameCheckError(t *testing.T) {
	repo := &mockUserRepo{
		usernameExistsFn: func(ctx context.Context, username string) (bool, error) {
			return false, errors.New("db connection lost")
		},
	}

	svc := newTestAuthService(t, repo)
	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Password: "secure-password-123",
	})
	assertAppError(t, err, 500)
}

func TestRegister_CreateError(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			return errors.New("db write error")
		},
	}

	svc := newTestAuthService(t, repo)
	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Password: "secure-password-123",
	})
	assertAppError(t, err, 500)
}

// --- Login / Session Tests ---

func TestLogin_Success(t *testing.T) {
	user := sampleUser(t, "correct-password")
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
			if username != "alice" {
				t.Errorf("expected normalized lookup alice, got %s", username)
			}
			return user, nil
		},
	}

	svc := newTestAuthService(t, repo)
	token, got, err := svc.Login(context.Background(), LoginInput{
		Username: "  Alice  ",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected session token")
	}
	if got.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, got.ID)
	}

	// The token should resolve to a live session.
	session, err := svc.ValidateSession(context.Background(), token)
	if err != nil {
		t.Fatalf("expected valid session: %v", err)
	}
	if session.UserID != user.ID {
		t.Errorf("expected session for %s, got %s", user.ID, session.UserID)
	}
	if session.Username != "alice" {
		t.Errorf("expected session username alice, got %s", session.Username)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	user := sampleUser(t, "correct-password")
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
			return user, nil
		},
	}

	svc := newTestAuthService(t, repo)
	_, _, err := svc.Login(context.Background(), LoginInput{
		Username: "alice",
		Password: "wrong-password",
	})
	assertAppError(t, err, 401)
}

func TestLogin_UnknownUsername(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})
	_, _, err := svc.Login(context.Background(), LoginInput{
		Username: "nobody",
		Password: "any-password",
	})
	// Same 401 as a wrong password -- no username enumeration.
	assertAppError(t, err, 401)
}

func TestValidateSession_UnknownToken(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})
	_, err := svc.ValidateSession(context.Background(), "no-such-token")
	assertAppError(t, err, 401)
}

func TestDestroySession(t *testing.T) {
	user := sampleUser(t, "correct-password")
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
			return user, nil
		},
	}

	svc := newTestAuthService(t, repo)
	token, _, err := svc.Login(context.Background(), LoginInput{
		Username: "alice",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DestroySession(context.Background(), token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.ValidateSession(context.Background(), token)
	assertAppError(t, err, 401)
}

// --- ChangePassword Tests ---

func TestChangePassword_Success(t *testing.T) {
	user := sampleUser(t, "old-password")
	var updatedHash string
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*User, error) {
			return user, nil
		},
		updatePasswordFn: func(ctx context.Context, userID, passwordHash string) error {
			updatedHash = passwordHash
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	err := svc.ChangePassword(context.Background(), user.ID, "old-password", "new-password-456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updatedHash == "" {
		t.Fatal("expected password hash to be updated")
	}
	if !verifyPassword("new-password-456", updatedHash) {
		t.Error("expected new password to verify against updated hash")
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	user := sampleUser(t, "old-password")
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*User, error) {
			return user, nil
		},
		updatePasswordFn: func(ctx context.Context, userID, passwordHash string) error {
			t.Error("password must not be updated when current password is wrong")
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	err := svc.ChangePassword(context.Background(), user.ID, "not-the-password", "new-password-456")
	assertAppError(t, err, 401)
}

// --- DeleteAccount Tests ---

func TestDeleteAccount_Success(t *testing.T) {
	user := sampleUser(t, "correct-password")
	var purged bool
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*User, error) {
			return user, nil
		},
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
			return user, nil
		},
		purgeUserFn: func(ctx context.Context, userID string) error {
			if userID != user.ID {
				t.Errorf("expected purge of %s, got %s", user.ID, userID)
			}
			purged = true
			return nil
		},
	}

	svc := newTestAuthService(t, repo)

	// Two live sessions -- both must be revoked by account deletion.
	token1, _, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "correct-password"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token2, _, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "correct-password"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeleteAccount(context.Background(), user.ID, "correct-password"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !purged {
		t.Error("expected user data to be purged")
	}

	for _, token := range []string{token1, token2} {
		if _, err := svc.ValidateSession(context.Background(), token); err == nil {
			t.Error("expected session to be revoked after account deletion")
		}
	}
}

func TestDeleteAccount_WrongPassword(t *testing.T) {
	user := sampleUser(t, "correct-password")
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*User, error) {
			return user, nil
		},
		purgeUserFn: func(ctx context.Context, userID string) error {
			t.Error("purge must not run when password is wrong")
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	err := svc.DeleteAccount(context.Background(), user.ID, "wrong-password")
	assertAppError(t, err, 401)
}

func TestDeleteAccount_PurgeError(t *testing.T) {
	user := sampleUser(t, "correct-password")
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*User, error) {
			return user, nil
		},
		purgeUserFn: func(ctx context.Context, userID string) error {
			return errors.New("db error")
		},
	}

	svc := newTestAuthService(t, repo)
	err := svc.DeleteAccount(context.Background(), user.ID, "correct-password")
	assertAppError(t, err, 500)
}

// --- Password Hashing Tests ---

func TestHashAndVerifyPassword(t *testing.T) {
	password := "my-secret-password-123"

	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}

	// Correct password should verify.
	if !verifyPassword(password, hash) {
		t.Error("expected correct password to verify")
	}

	// Wrong password should not verify.
	if verifyPassword("wrong-password", hash) {
		t.Error("expected wrong password to fail verification")
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty string", ""},
		{"random text", "not-a-hash"},
		{"too few parts", "$argon2id$v=19$m=65536"},
		{"corrupted salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!invalid$aGFzaA"},
		{"corrupted hash", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$!!!invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if verifyPassword("password", tt.hash) {
				t.Error("expected invalid hash to fail verification")
			}
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	hash1, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	hash2, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash1 == hash2 {
		t.Error("expected different salts to produce different hashes")
	}
}
