package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	apperrors "vetcare-reminders/internal/common/errors"
	"vetcare-reminders/internal/engine/reminders"
	"vetcare-reminders/internal/models"
)

// publicView masks the internal claim state: in_flight rows are reported as
// pending to the console.
func publicView(rem *models.Reminder) *models.Reminder {
	if rem.Status == rem.Status.Public() {
		return rem
	}
	view := *rem
	view.Status = rem.Status.Public()
	return &view
}

func publicViews(list []*models.Reminder) []*models.Reminder {
	out := make([]*models.Reminder, 0, len(list))
	for _, rem := range list {
		out = append(out, publicView(rem))
	}
	return out
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond.Write(w, apperrors.NewValidationError("body", "invalid JSON: "+err.Error()))
		return
	}

	rem, err := s.reminders.Create(r.Context(), &req)
	if err != nil {
		s.respond.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, publicView(rem))
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := reminders.ListFilter{
		Status:       models.ReminderStatus(q.Get("status")),
		ReminderType: models.ReminderType(q.Get("reminder_type")),
		ClientID:     q.Get("client_id"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		s.respond.Write(w, apperrors.NewValidationError("status", "unknown status: "+string(filter.Status)))
		return
	}
	if filter.ReminderType != "" && !filter.ReminderType.Valid() {
		s.respond.Write(w, apperrors.NewValidationError("reminder_type", "unknown reminder_type: "+string(filter.ReminderType)))
		return
	}

	list, err := s.reminders.List(r.Context(), filter)
	if err != nil {
		s.respond.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reminders": publicViews(list)})
}

func (s *Server) handlePendingReminders(w http.ResponseWriter, r *http.Request) {
	list, err := s.reminders.Pending(r.Context())
	if err != nil {
		s.respond.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reminders": publicViews(list)})
}

func (s *Server) handleUpcomingReminders(w http.ResponseWriter, r *http.Request) {
	list, err := s.reminders.Upcoming(r.Context(), s.window)
	if err != nil {
		s.respond.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reminders": publicViews(list)})
}

func (s *Server) handleGetReminder(w http.ResponseWriter, r *http.Request) {
	rem, err := s.reminders.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respond.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicView(rem))
}

func (s *Server) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond.Write(w, apperrors.NewValidationError("body", "invalid JSON: "+err.Error()))
		return
	}

	rem, err := s.reminders.Update(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		s.respond.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicView(rem))
}

func (s *Server) handleCancelReminder(w http.ResponseWriter, r *http.Request) {
	rem, err := s.reminders.Cancel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respond.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicView(rem))
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.reminders.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respond.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
