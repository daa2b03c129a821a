package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/compahunt/mailsync/internal/repositories"
)

type WindowType string

const (
	WindowHourly  WindowType = "HOURLY"
	WindowDaily   WindowType = "DAILY"
	WindowWeekly  WindowType = "WEEKLY"
	WindowMonthly WindowType = "MONTHLY"
)

func (t WindowType) Duration() time.Duration {
	switch t {
	case WindowHourly:
		return time.Hour
	case WindowDaily:
		return 24 * time.Hour
	case WindowWeekly:
		return 7 * 24 * time.Hour
	case WindowMonthly:
		return 30 * 24 * time.Hour
	}
	return 24 * time.Hour
}

type windowStore interface {
	CheckAndConsume(ctx context.Context, key string, window time.Duration, maxRequests, increment int64) (repositories.WindowResult, error)
	CurrentUsage(ctx context.Context, key string, window time.Duration) (int64, error)
}

// SlidingWindowLimiter counts events in a trailing time span. The
// check-and-increment runs as one atomic operation in the store; a store
// failure is returned as an error and the request stays rejected
// (fail closed, the limiter protects paid API quota).
type SlidingWindowLimiter struct {
	store windowStore
}

func NewSlidingWindowLimiter(store windowStore) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{store: store}
}

func (l *SlidingWindowLimiter) CheckAndConsume(ctx context.Context, key string, windowType WindowType,
	maxRequests, increment int64) (repositories.WindowResult, error) {

	fullKey := fullWindowKey(key, windowType)
	return l.store.CheckAndConsume(ctx, fullKey, windowType.Duration(), maxRequests, increment)
}

func (l *SlidingWindowLimiter) CurrentUsage(ctx context.Context, key string, windowType WindowType) (int64, error) {
	return l.store.CurrentUsage(ctx, fullWindowKey(key, windowType), windowType.Duration())
}

func fullWindowKey(key string, windowType WindowType) string {
	return fmt.Sprintf("sliding_window:%s:%s", strings.ToLower(string(windowType)), key)
}
