package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockTokenService struct {
	CreateTokenFunc func(userID uuid.UUID, email string, duration time.Duration) (string, error)
	VerifyTokenFunc func(tokenStr string) (*TokenClaims, error)
}

func (m *mockTokenService) CreateToken(userID uuid.UUID, email string, duration time.Duration) (string, error) {
	return m.CreateTokenFunc(userID, email, duration)
}

func (m *mockTokenService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	return m.VerifyTokenFunc(tokenStr)
}

type mockRefreshRepo struct {
	StoreRefreshTokenFunc   func(ctx context.Context, userID uuid.UUID, email, token string, expiresAt time.Time) error
	GetRefreshTokenFunc     func(ctx context.Context, token string) (*RefreshToken, error)
	RevokeRefreshTokenFunc  func(ctx context.Context, token string) error
	RevokeAllUserTokensFunc func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockRefreshRepo) StoreRefreshToken(ctx context.Context, userID uuid.UUID, email, token string, expiresAt time.Time) error {
	return m.StoreRefreshTokenFunc(ctx, userID, email, token, expiresAt)
}

func (m *mockRefreshRepo) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	return m.GetRefreshTokenFunc(ctx, token)
}

func (m *mockRefreshRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	return m.RevokeRefreshTokenFunc(ctx, token)
}

func (m *mockRefreshRepo) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	return m.RevokeAllUserTokensFunc(ctx, userID)
}

func TestIssueTokens(t *testing.T) {
	userID := uuid.New()
	var storedToken, storedEmail string

	tokens := &mockTokenService{
		CreateTokenFunc: func(uid uuid.UUID, email string, duration time.Duration) (string, error) {
			if uid != userID {
				t.Errorf("CreateToken userID = %v; want %v", uid, userID)
			}
			return "access-token", nil
		},
	}
	repo := &mockRefreshRepo{
		StoreRefreshTokenFunc: func(ctx context.Context, uid uuid.UUID, email, token string, expiresAt time.Time) error {
			storedToken, storedEmail = token, email
			return nil
		},
	}
	svc := NewService(tokens, repo, 15*time.Minute, 24*time.Hour)

	pair, err := svc.IssueTokens(context.Background(), userID, "bob@example.com")
	if err != nil {
		t.Fatalf("IssueTokens returned error: %v", err)
	}

	if pair.AccessToken != "access-token" {
		t.Errorf("AccessToken = %q", pair.AccessToken)
	}
	if pair.RefreshToken == "" || pair.RefreshToken != storedToken {
		t.Error("refresh token must be generated and stored")
	}
	if storedEmail != "bob@example.com" {
		t.Errorf("stored email = %q; want %q", storedEmail, "bob@example.com")
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("TokenType = %q; want Bearer", pair.TokenType)
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("ExpiresIn = %d; want %d", pair.ExpiresIn, int64((15*time.Minute).Seconds()))
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	userID := uuid.New()
	revoked := false

	tokens := &mockTokenService{
		CreateTokenFunc: func(uid uuid.UUID, email string, duration time.Duration) (string, error) {
			if email != "bob@example.com" {
				t.Errorf("new access token issued for %q; want the stored email", email)
			}
			return "new-access", nil
		},
	}
	repo := &mockRefreshRepo{
		GetRefreshTokenFunc: func(ctx context.Context, token string) (*RefreshToken, error) {
			return &RefreshToken{
				UserID:    userID,
				Email:     "bob@example.com",
				ExpiresAt: time.Now().Add(time.Hour),
				CreatedAt: time.Now().Add(-time.Hour),
			}, nil
		},
		RevokeRefreshTokenFunc: func(ctx context.Context, token string) error {
			revoked = true
			return nil
		},
		StoreRefreshTokenFunc: func(ctx context.Context, uid uuid.UUID, email, token string, expiresAt time.Time) error {
			if !revoked {
				t.Error("old token must be revoked before a new one is stored")
			}
			return nil
		},
	}
	svc := NewService(tokens, repo, 15*time.Minute, 24*time.Hour)

	pair, err := svc.Refresh(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if pair.AccessToken != "new-access" {
		t.Errorf("AccessToken = %q", pair.AccessToken)
	}
	if !revoked {
		t.Error("Refresh must revoke the presented token")
	}
}

func TestRefresh_RejectedTokens(t *testing.T) {
	now := time.Now()
	revokedAt := now.Add(-time.Minute)

	tests := []struct {
		name    string
		stored  *RefreshToken
		getErr  error
		wantErr error
	}{
		{"unknown", nil, ErrRefreshTokenNotFound, ErrInvalidToken},
		{"revoked", &RefreshToken{UserID: uuid.New(), ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}, nil, ErrRefreshTokenRevoked},
		{"expired", &RefreshToken{UserID: uuid.New(), ExpiresAt: now.Add(-time.Hour)}, nil, ErrRefreshTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRefreshRepo{
				GetRefreshTokenFunc: func(ctx context.Context, token string) (*RefreshToken, error) {
					return tt.stored, tt.getErr
				},
				RevokeRefreshTokenFunc: func(ctx context.Context, token string) error {
					t.Error("an unusable token must not reach revocation")
					return nil
				},
			}
			svc := NewService(&mockTokenService{}, repo, time.Minute, time.Hour)

			_, err := svc.Refresh(context.Background(), "some-token")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Refresh error = %v; want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRevokeAll(t *testing.T) {
	userID := uuid.New()
	called := false

	repo := &mockRefreshRepo{
		RevokeAllUserTokensFunc: func(ctx context.Context, uid uuid.UUID) error {
			called = true
			if uid != userID {
				t.Errorf("RevokeAllUserTokens userID = %v; want %v", uid, userID)
			}
			return nil
		},
	}
	svc := NewService(&mockTokenService{}, repo, time.Minute, time.Hour)

	if err := svc.RevokeAll(context.Background(), userID); err != nil {
		t.Fatalf("RevokeAll returned error: %v", err)
	}
	if !called {
		t.Error("RevokeAll must delegate to the repository")
	}
}
