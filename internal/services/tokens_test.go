package services

import (
	"context"
	"testing"
	"time"

	"github.com/compahunt/mailsync/internal/clients/google"
	"github.com/compahunt/mailsync/internal/entities"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockTokenRepository struct {
	mock.Mock
}

func (m *mockTokenRepository) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entities.OAuthToken, error) {
	args := m.Called(ctx, userID, provider)
	token, _ := args.Get(0).(*entities.OAuthToken)
	return token, args.Error(1)
}

func (m *mockTokenRepository) Replace(ctx context.Context, token entities.OAuthToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockTokenRepository) DeleteByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) error {
	return m.Called(ctx, userID, provider).Error(0)
}

type mockOAuthClient struct {
	mock.Mock
}

func (m *mockOAuthClient) RefreshToken(refreshToken string) (google.TokenResponse, error) {
	args := m.Called(refreshToken)
	return args.Get(0).(google.TokenResponse), args.Error(1)
}

func Test_GetValidToken_ReturnsFreshTokenWithoutRefresh(t *testing.T) {

	userID := uuid.New()
	tokens := &mockTokenRepository{}
	tokens.On("GetByUserAndProvider", mock.Anything, userID, entities.ProviderGoogle).
		Return(&entities.OAuthToken{
			UserID:      userID,
			AccessToken: "still-good",
			ExpiresAt:   time.Now().Add(time.Hour),
		}, nil)

	oauth := &mockOAuthClient{}

	service := NewTokenService(tokens, oauth)
	token, err := service.GetValidToken(context.Background(), userID)

	assert.NoError(t, err)
	assert.Equal(t, "still-good", token)
	oauth.AssertNotCalled(t, "RefreshToken", mock.Anything)
}

func Test_GetValidToken_RefreshesTokenNearExpiry(t *testing.T) {

	userID := uuid.New()
	tokens := &mockTokenRepository{}
	tokens.On("GetByUserAndProvider", mock.Anything, userID, entities.ProviderGoogle).
		Return(&entities.OAuthToken{
			UserID:       userID,
			AccessToken:  "almost-dead",
			RefreshToken: "refresh-me",
			ExpiresAt:    time.Now().Add(time.Minute), // inside the expiry buffer
		}, nil)
	tokens.On("Replace", mock.Anything, mock.MatchedBy(func(token entities.OAuthToken) bool {
		return token.UserID == userID && token.AccessToken == "brand-new" && token.RefreshToken == "refresh-me"
	})).Return(nil)

	oauth := &mockOAuthClient{}
	oauth.On("RefreshToken", "refresh-me").
		Return(google.TokenResponse{AccessToken: "brand-new", ExpiresIn: 3600}, nil)

	service := NewTokenService(tokens, oauth)
	token, err := service.GetValidToken(context.Background(), userID)

	assert.NoError(t, err)
	assert.Equal(t, "brand-new", token)
	tokens.AssertExpectations(t)
}

func Test_GetValidToken_ReportsReauthorizationOnFailedRefresh(t *testing.T) {

	userID := uuid.New()
	tokens := &mockTokenRepository{}
	tokens.On("GetByUserAndProvider", mock.Anything, userID, entities.ProviderGoogle).
		Return(&entities.OAuthToken{
			UserID:       userID,
			RefreshToken: "revoked",
			ExpiresAt:    time.Now().Add(-time.Hour),
		}, nil)

	oauth := &mockOAuthClient{}
	oauth.On("RefreshToken", "revoked").
		Return(google.TokenResponse{}, errors.New("invalid_grant"))

	service := NewTokenService(tokens, oauth)
	token, err := service.GetValidToken(context.Background(), userID)

	assert.NoError(t, err)
	assert.Empty(t, token)
	tokens.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
}

func Test_GetValidToken_ReturnsEmptyWhenNoGrantStored(t *testing.T) {

	userID := uuid.New()
	tokens := &mockTokenRepository{}
	tokens.On("GetByUserAndProvider", mock.Anything, userID, entities.ProviderGoogle).Return(nil, nil)

	service := NewTokenService(tokens, &mockOAuthClient{})
	token, err := service.GetValidToken(context.Background(), userID)

	assert.NoError(t, err)
	assert.Empty(t, token)
}
