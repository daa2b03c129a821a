package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/compahunt/mailsync/internal/clients/gmail"
	"github.com/compahunt/mailsync/internal/events"
	"github.com/compahunt/mailsync/internal/logger"
	"github.com/compahunt/mailsync/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

type userLookup interface {
	FindIDByEmail(ctx context.Context, email string) (uuid.UUID, error)
}

type subscriptionChecker interface {
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type watchControl interface {
	Enable(ctx context.Context, userID uuid.UUID) error
	Disable(ctx context.Context, userID uuid.UUID) error
}

// pushEnvelope is the Pub/Sub push wrapper around a mailbox notification.
type pushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// pushPayload is the base64-decoded notification body.
type pushPayload struct {
	EmailAddress string            `json:"emailAddress"`
	HistoryID    gmail.Uint64String `json:"historyId"`
}

// Server exposes the mailbox webhook and the metrics endpoint. The
// webhook always acks: a retry storm from the push broker helps nobody,
// and the history cursor makes a missed delivery recoverable.
type Server struct {
	httpServer    *http.Server
	bus           EventBus.Bus
	users         userLookup
	subscriptions subscriptionChecker
	watch         watchControl
	events        pendingEventsService
	updates       changeApplier
	tokens        tokenManager
	emailCache    *gocache.Cache
}

func New(port int, bus EventBus.Bus, users userLookup, subscriptions subscriptionChecker,
	watch watchControl, events pendingEventsService, updates changeApplier, tokens tokenManager) *Server {

	s := &Server{
		bus:           bus,
		users:         users,
		subscriptions: subscriptions,
		watch:         watch,
		events:        events,
		updates:       updates,
		tokens:        tokens,
		emailCache:    gocache.New(5*time.Minute, 10*time.Minute),
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/gmail/webhook/push", s.handlePush).Methods("POST")
	router.HandleFunc("/api/watch/enable", s.handleWatchEnable).Methods("POST")
	router.HandleFunc("/api/watch/disable", s.handleWatchDisable).Methods("POST")
	router.HandleFunc("/api/google/token", s.handleSaveToken).Methods("POST")
	router.HandleFunc("/api/google/token", s.handleRevokeToken).Methods("DELETE")
	router.HandleFunc("/api/google/token/status", s.handleTokenStatus).Methods("GET")
	router.HandleFunc("/api/events", s.handleListEvents).Methods("GET")
	router.HandleFunc("/api/events/by-vacancy", s.handleGroupedEvents).Methods("GET")
	router.HandleFunc("/api/events/count", s.handleCountEvents).Methods("GET")
	router.HandleFunc("/api/events/resolve", s.handleResolveEvents).Methods("POST")
	router.HandleFunc("/api/events/{id}/confirm", s.handleConfirmEvent).Methods("POST")
	router.HandleFunc("/api/events/{id}/dismiss", s.handleDismissEvent).Methods("POST")
	router.HandleFunc("/api/vacancies/{id}/audit", s.handleVacancyAudit).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	log.Infof("http server listening on %v", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {

	// Ack unconditionally once the body is read. Malformed or stale
	// notifications are logged and dropped, not retried.
	defer w.WriteHeader(http.StatusOK)

	var envelope pushEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		log.Warnf("failed to decode push envelope: %v", err)
		return
	}

	data, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		log.Warnf("failed to decode push data of message %v: %v", envelope.Message.MessageID, err)
		return
	}

	var payload pushPayload
	if err = json.Unmarshal(data, &payload); err != nil {
		log.Warnf("failed to parse push payload of message %v: %v", envelope.Message.MessageID, err)
		return
	}

	userID, err := s.resolveUser(r.Context(), payload.EmailAddress)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to resolve user for push notification: %v", err)
		return
	}
	if userID == uuid.Nil {
		log.Warnf("push notification for unknown mailbox, dropping")
		return
	}

	active, err := s.subscriptions.CountActiveByUser(r.Context(), userID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to check subscription for user %v: %v", userID, err)
		return
	}
	if active == 0 {
		log.Debugf("push notification for user %v without an active subscription, dropping", userID)
		return
	}

	metrics.NotificationsCounter.Inc()
	s.bus.Publish(events.MailboxChangedTopic, events.MailboxChanged{
		UserID:    userID,
		HistoryID: uint64(payload.HistoryID),
	})
}

// resolveUser maps an email address to a user id, caching hits briefly
// since push bursts hammer the same mailbox.
func (s *Server) resolveUser(ctx context.Context, email string) (uuid.UUID, error) {

	if cached, found := s.emailCache.Get(email); found {
		return cached.(uuid.UUID), nil
	}

	userID, err := s.users.FindIDByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, err
	}
	if userID != uuid.Nil {
		if cacheErr := s.emailCache.Add(email, userID, gocache.DefaultExpiration); cacheErr != nil {
			log.Errorf("failed to cache user id: %v", cacheErr)
		}
	}
	return userID, nil
}
