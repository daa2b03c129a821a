package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/compahunt/mailsync/internal/domain/models"
	"github.com/compahunt/mailsync/internal/entities"
	"github.com/compahunt/mailsync/internal/repositories"
	"github.com/compahunt/mailsync/internal/services"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type pendingEventsService interface {
	Get(ctx context.Context, id, userID uuid.UUID) (*entities.PendingEvent, error)
	ListUnresolved(ctx context.Context, userID uuid.UUID) ([]entities.PendingEvent, error)
	GroupByVacancy(ctx context.Context, userID uuid.UUID) (map[uuid.UUID][]entities.PendingEvent, error)
	CountUnresolved(ctx context.Context, userID uuid.UUID) (int64, error)
	Resolve(ctx context.Context, id, userID uuid.UUID) error
	ResolveMany(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) error
}

type changeApplier interface {
	ApplyChanges(ctx context.Context, vacancyID, userID uuid.UUID, changeSet models.ChangeSet) error
	AuditTrail(ctx context.Context, vacancyID, userID uuid.UUID) ([]entities.VacancyAudit, error)
}

// userIDFromRequest trusts the X-User-ID header; authentication lives in
// the gateway in front of this service.
func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.Header.Get("X-User-ID"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleWatchEnable(w http.ResponseWriter, r *http.Request) {

	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid user id")
		return
	}

	if err = s.watch.Enable(r.Context(), userID); err != nil {
		if errors.Is(err, services.ErrNoValidToken) {
			writeError(w, http.StatusUnauthorized, "mailbox authorization required")
			return
		}
		log.Errorf("failed to enable watch for user %v: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to enable mailbox watch")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWatchDisable(w http.ResponseWriter, r *http.Request) {

	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid user id")
		return
	}

	if err = s.watch.Disable(r.Context(), userID); err != nil {
		log.Errorf("failed to disable watch for user %v: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to disable mailbox watch")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {

	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid user id")
		return
	}

	unresolved, err := s.events.ListUnresolved(r.Context(), userID)
	if err != nil {
		log.Errorf("failed to list events for user %v: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, unresolved)
}

func (s *Server) handleGroupedEvents(w http.ResponseWriter, r *http.Request) {

	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid user id")
		return
	}

	grouped, err := s.events.GroupByVacancy(r.Context(), userID)
	if err != nil {
		log.Errorf("failed to group events for user %v: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to group events")
		return
	}
	writeJSON(w, http.StatusOK, grouped)
}

func (s *Server) handleCountEvents(w http.ResponseWriter, r *http.Request) {

	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid user id")
		return
	}

	count, err := s.events.CountUnresolved(r.Context(), userID)
	if err != nil {
		log.Errorf("failed to count events for user %v: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to count events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (s *Server) handleResolveEvents(w http.ResponseWriter, r *http.Request) {

	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid user id")
		return
	}

	var request struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err = json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err = s.events.ResolveMany(r.Context(), request.IDs, userID); err != nil {
		if errors.Is(err, repositories.ErrNotOwned) {
			writeError(w, http.StatusForbidden, "batch contains events of another user")
			return
		}
		log.Errorf("failed to resolve events for user %v: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to resolve events")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleConfirmEvent applies the changes an AI event proposed and marks
// it resolved. Confirming an event without applicable changes just
// resolves it.
func (s *Server) handleConfirmEvent(w http.ResponseWriter, r *http.Request) {

	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid user id")
		return
	}
	eventID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	event, err := s.events.Get(r.Context(), eventID, userID)
	if err != nil {
		if errors.Is(err, services.ErrEventNotOwned) {
			writeError(w, http.StatusForbidden, "event belongs to another user")
			return
		}
		log.Errorf("failed to load event %v: %v", eventID, err)
		writeError(w, http.StatusInternalServerError, "failed to load event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	if err = s.applyEvent(r.Context(), event, userID); err != nil {
		log.Errorf("failed to apply event %v: %v", eventID, err)
		writeError(w, http.StatusInternalServerError, "failed to apply event")
		return
	}

	if err = s.events.Resolve(r.Context(), eventID, userID); err != nil {
		log.Errorf("failed to resolve event %v: %v", eventID, err)
		writeError(w, http.StatusInternalServerError, "failed to resolve event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDismissEvent(w http.ResponseWriter, r *http.Request) {

	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid user id")
		return
	}
	eventID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	if err = s.events.Resolve(r.Context(), eventID, userID); err != nil {
		if errors.Is(err, services.ErrEventNotOwned) {
			writeError(w, http.StatusForbidden, "event belongs to another user")
			return
		}
		log.Errorf("failed to dismiss event %v: %v", eventID, err)
		writeError(w, http.StatusInternalServerError, "failed to dismiss event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVacancyAudit(w http.ResponseWriter, r *http.Request) {

	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid user id")
		return
	}
	vacancyID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid vacancy id")
		return
	}

	trail, err := s.updates.AuditTrail(r.Context(), vacancyID, userID)
	if err != nil {
		log.Errorf("failed to load audit trail for vacancy %v: %v", vacancyID, err)
		writeError(w, http.StatusInternalServerError, "failed to load audit trail")
		return
	}
	writeJSON(w, http.StatusOK, trail)
}

func (s *Server) applyEvent(ctx context.Context, event *entities.PendingEvent, userID uuid.UUID) error {

	if event.VacancyID == nil || event.Metadata == "" {
		return nil
	}

	var changeSet models.ChangeSet
	if err := json.Unmarshal([]byte(event.Metadata), &changeSet); err != nil {
		return errors.Wrap(err, "failed to parse event metadata")
	}

	switch event.EventType {
	case entities.EventAIStatusChange:
		// the interview proposal rides on its own event, do not create it
		// twice when both got confirmed
		changeSet.ProposedInterview = nil
		return s.updates.ApplyChanges(ctx, *event.VacancyID, userID, changeSet)
	case entities.EventAIInterview:
		changeSet.Changes = nil
		return s.updates.ApplyChanges(ctx, *event.VacancyID, userID, changeSet)
	default:
		return nil
	}
}
