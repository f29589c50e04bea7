package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service issues and rotates token pairs for verified users. Credential
// verification itself lives in the user package; this service only ever sees
// an already-authenticated identity.
type Service struct {
	tokenService         TokenService
	refreshRepo          RefreshTokenRepository
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
}

func NewService(
	tokenService TokenService,
	refreshRepo RefreshTokenRepository,
	accessTokenDuration time.Duration,
	refreshTokenDuration time.Duration,
) *Service {
	return &Service{
		tokenService:         tokenService,
		refreshRepo:          refreshRepo,
		accessTokenDuration:  accessTokenDuration,
		refreshTokenDuration: refreshTokenDuration,
	}
}

// IssueTokens creates an access/refresh token pair for a verified user.
func (s *Service) IssueTokens(ctx context.Context, userID uuid.UUID, email string) (*AuthTokens, error) {
	accessToken, err := s.tokenService.CreateToken(userID, email, s.accessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := time.Now().Add(s.refreshTokenDuration)
	if err := s.refreshRepo.StoreRefreshToken(ctx, userID, email, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTokenDuration.Seconds()),
	}, nil
}

// Refresh rotates a refresh token: the old token is revoked before a new
// pair is issued, so a stolen token can be replayed at most once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	rt, err := s.refreshRepo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil, ErrInvalidToken
		}
		if errors.Is(err, ErrRefreshTokenRevoked) || errors.Is(err, ErrRefreshTokenExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if !rt.IsValid() {
		if rt.IsRevoked() {
			return nil, ErrRefreshTokenRevoked
		}
		return nil, ErrRefreshTokenExpired
	}

	if err := s.refreshRepo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old refresh token: %w", err)
	}

	return s.IssueTokens(ctx, rt.UserID, rt.Email)
}

// Revoke invalidates a refresh token.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	return s.refreshRepo.RevokeRefreshToken(ctx, refreshToken)
}

// RevokeAll invalidates every refresh token belonging to a user. Called on
// password change.
func (s *Service) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return s.refreshRepo.RevokeAllUserTokens(ctx, userID)
}
