package api

import (
	"encoding/json"
	"net/http"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/models"

	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type preferenceCreateRequest struct {
	UserID           uuid.UUID               `json:"user_id"`
	PushToken        *string                 `json:"fcm_token"`
	EmailEnabled     *bool                   `json:"email_enabled"`
	PushEnabled      *bool                   `json:"push_enabled"`
	EventPreferences models.EventPreferences `json:"event_preferences"`
}

type preferenceUpdateRequest struct {
	PushToken        *string                 `json:"fcm_token"`
	EmailEnabled     *bool                   `json:"email_enabled"`
	PushEnabled      *bool                   `json:"push_enabled"`
	EventPreferences models.EventPreferences `json:"event_preferences"`
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func (s *Server) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUUIDParam(r, "userID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.store.GetPreference(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if p == nil {
		s.writeError(w, r, errors.NewPreferenceNotFoundError(userID.String()))
		return
	}
	render.JSON(w, r, p)
}

func (s *Server) handleCreatePreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, errors.NewInvalidRequestError(err.Error()))
		return
	}
	if req.UserID == uuid.Nil {
		s.writeError(w, r, errors.NewInvalidRequestError("user_id is required"))
		return
	}

	p := &models.UserNotificationPreference{
		UserID:           req.UserID,
		PushToken:        req.PushToken,
		EmailEnabled:     boolOr(req.EmailEnabled, true),
		PushEnabled:      boolOr(req.PushEnabled, true),
		EventPreferences: req.EventPreferences,
	}
	if err := s.store.CreatePreference(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, p)
}

func (s *Server) handleUpdatePreference(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUUIDParam(r, "userID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req preferenceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, errors.NewInvalidRequestError(err.Error()))
		return
	}

	p, err := s.store.GetPreference(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if p == nil {
		s.writeError(w, r, errors.NewPreferenceNotFoundError(userID.String()))
		return
	}
	if req.PushToken != nil {
		p.PushToken = req.PushToken
	}
	p.EmailEnabled = boolOr(req.EmailEnabled, p.EmailEnabled)
	p.PushEnabled = boolOr(req.PushEnabled, p.PushEnabled)
	if req.EventPreferences != nil {
		p.EventPreferences = req.EventPreferences
	}

	if err := s.store.UpdatePreference(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

func (s *Server) handleUpdatePushToken(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUUIDParam(r, "userID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	token := r.URL.Query().Get("fcm_token")
	if token == "" {
		s.writeError(w, r, errors.NewInvalidRequestError("fcm_token is required"))
		return
	}
	if _, err := s.store.UpsertPushToken(r.Context(), userID, token); err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{
		"message": "FCM token updated successfully",
		"user_id": userID.String(),
	})
}
