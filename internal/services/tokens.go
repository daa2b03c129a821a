package services

import (
	"context"
	"time"

	"github.com/compahunt/mailsync/internal/clients/google"
	"github.com/compahunt/mailsync/internal/entities"
	"github.com/compahunt/mailsync/internal/logger"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const gmailReadonlyScope = "https://www.googleapis.com/auth/gmail.readonly"

type oauthClient interface {
	RefreshToken(refreshToken string) (google.TokenResponse, error)
}

type tokenRepository interface {
	GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entities.OAuthToken, error)
	Replace(ctx context.Context, token entities.OAuthToken) error
	DeleteByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) error
}

type TokenService struct {
	tokens      tokenRepository
	oauthClient oauthClient
}

func NewTokenService(tokens tokenRepository, oauthClient oauthClient) *TokenService {
	return &TokenService{tokens: tokens, oauthClient: oauthClient}
}

// GetValidToken returns a usable access token for the user or "" when the
// user must re-authorize. A failed refresh is logged and reported as "no
// valid token", never retried inline.
func (s *TokenService) GetValidToken(ctx context.Context, userID uuid.UUID) (string, error) {

	token, err := s.tokens.GetByUserAndProvider(ctx, userID, entities.ProviderGoogle)
	if err != nil {
		return "", err
	}
	if token == nil {
		return "", nil
	}

	if !token.IsExpired() {
		return token.AccessToken, nil
	}

	return s.refresh(ctx, token), nil
}

func (s *TokenService) refresh(ctx context.Context, token *entities.OAuthToken) string {

	if token.RefreshToken == "" {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeOAuth).
			Errorf("no refresh token available for user %v", token.UserID)
		return ""
	}

	resp, err := s.oauthClient.RefreshToken(token.RefreshToken)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeOAuth).
			Errorf("failed to refresh token for user %v: %v", token.UserID, err)
		return ""
	}

	expiresIn := resp.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}

	if err = s.Save(ctx, token.UserID, resp.AccessToken, token.RefreshToken, expiresIn); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to persist refreshed token for user %v: %v", token.UserID, err)
		return ""
	}

	log.Infof("refreshed token for user %v", token.UserID)
	return resp.AccessToken
}

// Save replaces the stored grant: the prior row is deleted and a fresh
// one inserted, so no reader ever observes a partially updated token.
func (s *TokenService) Save(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiresInSeconds int64) error {
	return s.tokens.Replace(ctx, entities.OAuthToken{
		UserID:       userID,
		Provider:     entities.ProviderGoogle,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(expiresInSeconds) * time.Second),
		Scopes:       gmailReadonlyScope,
	})
}

func (s *TokenService) Revoke(ctx context.Context, userID uuid.UUID) error {
	if err := s.tokens.DeleteByUserAndProvider(ctx, userID, entities.ProviderGoogle); err != nil {
		return err
	}
	log.Infof("revoked mailbox access for user %v", userID)
	return nil
}

func (s *TokenService) HasAccess(ctx context.Context, userID uuid.UUID) (bool, error) {
	token, err := s.tokens.GetByUserAndProvider(ctx, userID, entities.ProviderGoogle)
	if err != nil {
		return false, err
	}
	return token != nil, nil
}
