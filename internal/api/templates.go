package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	apperrors "vetcare-reminders/internal/common/errors"
	"vetcare-reminders/internal/engine/templates"
	"vetcare-reminders/internal/models"
)

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond.Write(w, apperrors.NewValidationError("body", "invalid JSON: "+err.Error()))
		return
	}

	tpl, err := s.templates.Create(r.Context(), &req)
	if err != nil {
		s.respond.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := templates.ListFilter{
		TemplateType: models.TemplateType(q.Get("template_type")),
		Channel:      models.Channel(q.Get("channel")),
	}
	if filter.TemplateType != "" && !filter.TemplateType.Valid() {
		s.respond.Write(w, apperrors.NewValidationError("template_type", "unknown template_type: "+string(filter.TemplateType)))
		return
	}
	if filter.Channel != "" && !filter.Channel.Valid() {
		s.respond.Write(w, apperrors.NewValidationError("channel", "unknown channel: "+string(filter.Channel)))
		return
	}

	list, err := s.templates.List(r.Context(), filter)
	if err != nil {
		s.respond.Write(w, err)
		return
	}
	if list == nil {
		list = []*models.NotificationTemplate{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": list})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.templates.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respond.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond.Write(w, apperrors.NewValidationError("body", "invalid JSON: "+err.Error()))
		return
	}

	tpl, err := s.templates.Update(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		s.respond.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respond.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
