package services

import (
	"context"
	"testing"
	"time"

	"github.com/compahunt/mailsync/internal/repositories"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockWindowStore struct {
	mock.Mock
}

func (m *mockWindowStore) CheckAndConsume(ctx context.Context, key string, window time.Duration,
	maxRequests, increment int64) (repositories.WindowResult, error) {
	args := m.Called(ctx, key, window, maxRequests, increment)
	return args.Get(0).(repositories.WindowResult), args.Error(1)
}

func (m *mockWindowStore) CurrentUsage(ctx context.Context, key string, window time.Duration) (int64, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Error(1)
}

func Test_CheckLimit_AllowsWhenBothWindowsHaveRoom(t *testing.T) {

	userID := uuid.New()
	key := "sliding_window:weekly:ai:email_classification:" + userID.String()
	dailyKey := "sliding_window:daily:ai:email_classification:" + userID.String()

	store := &mockWindowStore{}
	store.On("CheckAndConsume", mock.Anything, key, 7*24*time.Hour, int64(100), int64(1)).
		Return(repositories.WindowResult{Allowed: true, Remaining: 57, Total: 100}, nil)
	store.On("CheckAndConsume", mock.Anything, dailyKey, 24*time.Hour, int64(20), int64(1)).
		Return(repositories.WindowResult{Allowed: true, Remaining: 4, Total: 20}, nil)

	service := NewAILimitService(NewSlidingWindowLimiter(store), 20, 100)
	result, err := service.CheckLimit(context.Background(), userID, "email_classification")

	assert.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, int64(57), result.WeeklyRemaining)
	assert.Equal(t, int64(4), result.DailyRemaining)
	store.AssertExpectations(t)
}

func Test_CheckLimit_WeeklyExhaustionGatesDailyWindow(t *testing.T) {

	userID := uuid.New()
	resetTime := time.Now().Add(48 * time.Hour)

	store := &mockWindowStore{}
	store.On("CheckAndConsume", mock.Anything, mock.Anything, 7*24*time.Hour, int64(100), int64(1)).
		Return(repositories.WindowResult{Allowed: false, Remaining: 0, Total: 100, ResetTime: &resetTime}, nil)

	service := NewAILimitService(NewSlidingWindowLimiter(store), 20, 100)
	result, err := service.CheckLimit(context.Background(), userID, "email_classification")

	assert.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, "weekly", result.LimitType)
	assert.Equal(t, &resetTime, result.ResetTime)
	// the daily window must not be consulted, let alone consumed
	store.AssertNumberOfCalls(t, "CheckAndConsume", 1)
}

func Test_CheckLimit_DailyExhaustionReportsDailyLimitType(t *testing.T) {

	userID := uuid.New()
	store := &mockWindowStore{}
	store.On("CheckAndConsume", mock.Anything, mock.Anything, 7*24*time.Hour, int64(100), int64(1)).
		Return(repositories.WindowResult{Allowed: true, Remaining: 80, Total: 100}, nil)
	store.On("CheckAndConsume", mock.Anything, mock.Anything, 24*time.Hour, int64(20), int64(1)).
		Return(repositories.WindowResult{Allowed: false, Remaining: 0, Total: 20}, nil)

	service := NewAILimitService(NewSlidingWindowLimiter(store), 20, 100)
	result, err := service.CheckLimit(context.Background(), userID, "email_classification")

	assert.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, "daily", result.LimitType)
}

func Test_CheckLimit_StoreFailurePropagatesAsError(t *testing.T) {

	userID := uuid.New()
	store := &mockWindowStore{}
	store.On("CheckAndConsume", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(repositories.WindowResult{Allowed: false}, errors.New("db locked"))

	service := NewAILimitService(NewSlidingWindowLimiter(store), 20, 100)
	_, err := service.CheckLimit(context.Background(), userID, "email_classification")

	assert.Error(t, err)
}
