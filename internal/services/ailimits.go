package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AILimitResult reports a quota decision and, when rejected, which window
// was violated and when retrying makes sense again.
type AILimitResult struct {
	Allowed         bool
	LimitType       string
	Remaining       int64
	WeeklyRemaining int64
	DailyRemaining  int64
	ResetTime       *time.Time
	Message         string
}

// AILimitService gates AI classification calls behind two sliding
// windows. The weekly check runs first so that an exhausted weekly quota
// blocks requests even when the daily window still has room.
type AILimitService struct {
	limiter     *SlidingWindowLimiter
	dailyLimit  int64
	weeklyLimit int64
}

func NewAILimitService(limiter *SlidingWindowLimiter, dailyLimit, weeklyLimit int64) *AILimitService {
	if dailyLimit <= 0 {
		dailyLimit = 20
	}
	if weeklyLimit <= 0 {
		weeklyLimit = 100
	}
	return &AILimitService{limiter: limiter, dailyLimit: dailyLimit, weeklyLimit: weeklyLimit}
}

func (s *AILimitService) CheckLimit(ctx context.Context, userID uuid.UUID, operationType string) (AILimitResult, error) {

	if operationType == "" {
		operationType = "general"
	}
	key := fmt.Sprintf("ai:%s:%s", operationType, userID)

	weekly, err := s.limiter.CheckAndConsume(ctx, key, WindowWeekly, s.weeklyLimit, 1)
	if err != nil {
		return AILimitResult{}, fmt.Errorf("weekly window check: %w", err)
	}

	if !weekly.Allowed {
		return AILimitResult{
			Allowed:   false,
			LimitType: "weekly",
			Remaining: weekly.Remaining,
			ResetTime: weekly.ResetTime,
			Message:   fmt.Sprintf("Weekly AI limit exceeded (%d/week)", weekly.Total),
		}, nil
	}

	daily, err := s.limiter.CheckAndConsume(ctx, key, WindowDaily, s.dailyLimit, 1)
	if err != nil {
		return AILimitResult{}, fmt.Errorf("daily window check: %w", err)
	}

	if !daily.Allowed {
		return AILimitResult{
			Allowed:   false,
			LimitType: "daily",
			Remaining: daily.Remaining,
			ResetTime: daily.ResetTime,
			Message:   fmt.Sprintf("Daily AI limit exceeded (%d/day)", daily.Total),
		}, nil
	}

	return AILimitResult{
		Allowed:         true,
		LimitType:       "allowed",
		WeeklyRemaining: weekly.Remaining,
		DailyRemaining:  daily.Remaining,
		Message:         "AI request allowed",
	}, nil
}
