package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type tokenManager interface {
	Save(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiresInSeconds int64) error
	Revoke(ctx context.Context, userID uuid.UUID) error
	HasAccess(ctx context.Context, userID uuid.UUID) (bool, error)
}

// handleSaveToken stores a freshly granted mailbox token. The OAuth
// consent flow itself runs in the frontend; this endpoint only receives
// its outcome.
func (s *Server) handleSaveToken(w http.ResponseWriter, r *http.Request) {

	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid user id")
		return
	}

	var request struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err = json.NewDecoder(r.Body).Decode(&request); err != nil || request.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err = s.tokens.Save(r.Context(), userID, request.AccessToken, request.RefreshToken, request.ExpiresIn); err != nil {
		log.Errorf("failed to save token for user %v: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to save token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRevokeToken drops the stored grant. The mailbox watch is stopped
// first since it cannot outlive the token that feeds it.
func (s *Server) handleRevokeToken(w http.ResponseWriter, r *http.Request) {

	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid user id")
		return
	}

	if err = s.watch.Disable(r.Context(), userID); err != nil {
		log.Errorf("failed to disable watch while revoking token for user %v: %v", userID, err)
	}

	if err = s.tokens.Revoke(r.Context(), userID); err != nil {
		log.Errorf("failed to revoke token for user %v: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to revoke token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTokenStatus(w http.ResponseWriter, r *http.Request) {

	userID, err := userIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid user id")
		return
	}

	hasAccess, err := s.tokens.HasAccess(r.Context(), userID)
	if err != nil {
		log.Errorf("failed to check token status for user %v: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to check token status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"connected": hasAccess})
}
