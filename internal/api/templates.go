package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/validation"
	"notification-dispatcher/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type templateCreateRequest struct {
	EventType       string  `json:"event_type"`
	Channel         string  `json:"notification_type"`
	SubjectTemplate *string `json:"subject_template"`
	TitleTemplate   *string `json:"title_template"`
	BodyTemplate    string  `json:"body_template"`
	Priority        string  `json:"priority"`
	IsActive        *bool   `json:"is_active"`
}

type templateUpdateRequest struct {
	SubjectTemplate *string `json:"subject_template"`
	TitleTemplate   *string `json:"title_template"`
	BodyTemplate    *string `json:"body_template"`
	Priority        *string `json:"priority"`
	IsActive        *bool   `json:"is_active"`
}

var templateValidator = func() *validation.Validator {
	v, err := validation.NewValidator(validation.TemplateSchema)
	if err != nil {
		panic(err)
	}
	return v
}()

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, 100)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.store.ListTemplates(r.Context(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, out)
}

func (s *Server) handleTemplatesByEventType(w http.ResponseWriter, r *http.Request) {
	eventType := chi.URLParam(r, "eventType")
	out, err := s.store.TemplatesByEventType(r.Context(), eventType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(out) == 0 {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{Detail: "No templates found for event type: " + eventType})
		return
	}
	render.JSON(w, r, out)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, errors.NewInvalidRequestError(err.Error()))
		return
	}
	result, err := templateValidator.ValidateBytes(body)
	if err != nil {
		s.writeError(w, r, errors.NewInvalidRequestError("body must be a JSON object"))
		return
	}
	if !result.Valid {
		s.writeError(w, r, errors.NewTemplateValidationFailedError(result.Error()))
		return
	}

	var req templateCreateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, errors.NewInvalidRequestError(err.Error()))
		return
	}

	t := &models.NotificationTemplate{
		EventType:       req.EventType,
		Channel:         models.Channel(req.Channel),
		SubjectTemplate: req.SubjectTemplate,
		TitleTemplate:   req.TitleTemplate,
		BodyTemplate:    req.BodyTemplate,
		Priority:        models.Priority(req.Priority),
		Active:          req.IsActive == nil || *req.IsActive,
	}
	if t.Priority == "" {
		t.Priority = models.PriorityNormal
	}
	if err := s.store.CreateTemplate(r.Context(), t); err != nil {
		s.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, t)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req templateUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, errors.NewInvalidRequestError(err.Error()))
		return
	}

	t, err := s.store.GetTemplate(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.SubjectTemplate != nil {
		t.SubjectTemplate = req.SubjectTemplate
	}
	if req.TitleTemplate != nil {
		t.TitleTemplate = req.TitleTemplate
	}
	if req.BodyTemplate != nil {
		if *req.BodyTemplate == "" {
			s.writeError(w, r, errors.NewTemplateValidationFailedError("body_template must not be empty"))
			return
		}
		t.BodyTemplate = *req.BodyTemplate
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		if !p.Valid() {
			s.writeError(w, r, errors.NewTemplateValidationFailedError(fmt.Sprintf("unknown priority: %s", *req.Priority)))
			return
		}
		t.Priority = p
	}
	if req.IsActive != nil {
		t.Active = *req.IsActive
	}

	if err := s.store.UpdateTemplate(r.Context(), t); err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteTemplate(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
