package api

import (
	"net/http"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/models"
	"notification-dispatcher/internal/store"

	"github.com/go-chi/render"
	"github.com/google/uuid"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, 100)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	filter := store.NotificationFilter{Page: page}
	q := r.URL.Query()
	if v := q.Get("user_id"); v != "" {
		userID, err := uuid.Parse(v)
		if err != nil {
			s.writeError(w, r, errors.NewInvalidRequestError("user_id must be a UUID"))
			return
		}
		filter.UserID = &userID
	}
	if v := q.Get("status"); v != "" {
		status := models.Status(v)
		if !status.Valid() {
			s.writeError(w, r, errors.NewInvalidRequestError("unknown status: "+v))
			return
		}
		filter.Status = &status
	}

	out, err := s.store.ListNotifications(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, out)
}

// handleDueRetries lists retrying notifications whose backoff has elapsed,
// for an external poller to feed back into the retry endpoint.
func (s *Server) handleDueRetries(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, 100)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.store.ListDueRetries(r.Context(), s.now(), page.Limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, out)
}

func (s *Server) handleGetNotification(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.store.GetNotification(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, n)
}

func (s *Server) handleUserNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUUIDParam(r, "userID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := parsePage(r, 50)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.store.ListUserNotifications(r.Context(), userID, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, out)
}

func (s *Server) handleSearchNotifications(w http.ResponseWriter, r *http.Request) {
	if s.opts.Searcher == nil {
		s.writeError(w, r, errors.NewResourceNotFoundError("search", "search index is not configured"))
		return
	}
	page, err := parsePage(r, 20)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.opts.Searcher.Search(r.Context(), r.URL.Query().Get("q"), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

// handleRetryNotification makes an immediate attempt on a notification in
// retrying status. The response carries the notification's new state.
func (s *Server) handleRetryNotification(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.resender.Resend(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, n)
}
