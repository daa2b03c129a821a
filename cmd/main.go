package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/compahunt/mailsync/internal/clients/gemini"
	"github.com/compahunt/mailsync/internal/clients/gmail"
	"github.com/compahunt/mailsync/internal/clients/google"
	"github.com/compahunt/mailsync/internal/config"
	"github.com/compahunt/mailsync/internal/logger"
	"github.com/compahunt/mailsync/internal/notifier"
	"github.com/compahunt/mailsync/internal/repositories"
	"github.com/compahunt/mailsync/internal/scheduler"
	"github.com/compahunt/mailsync/internal/server"
	"github.com/compahunt/mailsync/internal/services"
	log "github.com/sirupsen/logrus"
)

const resolvedEventRetentionDays = 30

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(cfg.Logger)
	defer logger.Cleanup()

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	err = dbContext.Migrate()
	if err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	tokens := repositories.NewTokensRepository(dbContext.DB)
	subscriptions := repositories.NewSubscriptionsRepository(dbContext.DB)
	pendingEvents := repositories.NewPendingEventsRepository(dbContext.DB)
	vacancies := repositories.NewVacanciesRepository(dbContext.DB)
	audits := repositories.NewAuditsRepository(dbContext.DB)
	interviews := repositories.NewInterviewsRepository(dbContext.DB)
	notifications := repositories.NewNotificationEventsRepository(dbContext.DB)
	windows := repositories.NewWindowsRepository(dbContext.DB)
	jobs := repositories.NewJobsRepository(dbContext.DB)
	users := repositories.NewUsersRepository(dbContext.DB)

	gmailClient := gmail.NewClient()
	gmailClient.SetRateLimit(cfg.Google.MaxRequestsPerSec)
	oauthClient := google.NewOAuthClient(cfg.Google.ClientID, cfg.Google.ClientSecret)

	aiClient, err := gemini.NewClient(ctx, cfg.AI.Key, gemini.Model15Flash)
	if err != nil {
		log.Fatalf("can't create AI client: %v", err)
	}
	aiClient.SetMinuteRateLimit(cfg.AI.MaxRequestsPerMinute)
	aiClient.SetDayRateLimit(cfg.AI.MaxRequestsPerDay)

	bus := EventBus.New()

	tokenService := services.NewTokenService(tokens, oauthClient)
	historyService := services.NewHistoryService(gmailClient, cfg.Google.WatchLabel)
	watchService := services.NewWatchService(subscriptions, tokenService, gmailClient,
		historyService, cfg.Google.PubSubTopic, cfg.Google.WatchLabel)

	limiter := services.NewSlidingWindowLimiter(windows)
	limitService := services.NewAILimitService(limiter, cfg.AI.DailyUserLimit, cfg.AI.WeeklyUserLimit)
	aiService := services.NewAIService(aiClient)

	// the scheduler and the pending-event service reference each other, so
	// the handler closes over a variable assigned right after
	var pendingService *services.PendingEventService
	jobRunner, err := scheduler.New(jobs, func(ctx context.Context, payload []byte) error {
		return pendingService.HandleFeedbackDue(ctx, payload)
	})
	if err != nil {
		log.Fatalf("can't create scheduler: %v", err)
	}

	pendingService = services.NewPendingEventService(pendingEvents, vacancies, interviews, jobRunner, bus)
	interviewService := services.NewInterviewService(interviews, pendingService)
	updateService := services.NewVacancyUpdateService(vacancies, audits, interviewService)

	_, err = services.NewChangeProcessor(bus, watchService, notifications, limitService, aiService, pendingService)
	if err != nil {
		log.Fatalf("can't create change processor: %v", err)
	}

	jobRunner.Start()
	defer jobRunner.Stop()

	cleaner, err := services.NewEventsCleaner(pendingService, resolvedEventRetentionDays)
	if err != nil {
		log.Fatalf("can't create events cleaner: %v", err)
	}
	defer cleaner.Stop()

	renewer, err := services.NewWatchRenewer(watchService, time.Hour)
	if err != nil {
		log.Fatalf("can't create watch renewer: %v", err)
	}
	defer renewer.Stop()

	if cfg.Server.TelegramToken != "" {
		_, err = notifier.New(cfg.Server.TelegramToken, bus, users)
		if err != nil {
			log.Fatalf("can't create telegram notifier: %v", err)
		}
	}

	httpServer := server.New(cfg.Server.Port, bus, users, subscriptions,
		watchService, pendingService, updateService, tokenService)
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down services...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Errorf("http server shutdown failed: %v", err)
	}
	log.Info("Services stopped.")
}
