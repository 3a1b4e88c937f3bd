package collaborations

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scholarship-finder/backend/internal/httputil"
)

// RegisterRoutes mounts the collaboration endpoints on the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/collaborations", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/collaborations", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/collaborations/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/collaborations/{id}", s.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/collaborations/{id}/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/collaborations/{id}/history", s.handleAddHistory).Methods(http.MethodPost)
	r.HandleFunc("/collaborations/{id}/invitations", s.handleSendInvitation).Methods(http.MethodPost)
	r.HandleFunc("/collaborations/{id}/invitations/schedule", s.handleScheduleInvitation).Methods(http.MethodPost)
	r.HandleFunc("/collaborations/{id}/invitations/resend", s.handleResendInvitation).Methods(http.MethodPost)
	r.HandleFunc("/applications/{id}/collaborations", s.handleListByApplication).Methods(http.MethodGet)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	out, err := s.List(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Service) handleListByApplication(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(mux.Vars(r), "id")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	out, err := s.ListByApplication(r.Context(), id, userID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var input CreateInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}

	created, err := s.Create(r.Context(), userID, input)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(mux.Vars(r), "id")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	c, err := s.GetByID(r.Context(), id, userID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (s *Service) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(mux.Vars(r), "id")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var input UpdateInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}

	c, err := s.Update(r.Context(), id, userID, input)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(mux.Vars(r), "id")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	out, err := s.History(r.Context(), id, userID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type addHistoryRequest struct {
	Action  string  `json:"action"`
	Details *string `json:"details"`
}

func (s *Service) handleAddHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(mux.Vars(r), "id")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var input addHistoryRequest
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}

	entry, err := s.AddHistory(r.Context(), id, userID, input.Action, input.Details)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

func (s *Service) handleSendInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(mux.Vars(r), "id")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	invite, err := s.SendInvitation(r.Context(), id, userID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, invite)
}

type scheduleInvitationRequest struct {
	ScheduledFor string `json:"scheduled_for"`
}

func (s *Service) handleScheduleInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(mux.Vars(r), "id")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var input scheduleInvitationRequest
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}

	invite, err := s.ScheduleInvitation(r.Context(), id, userID, input.ScheduledFor)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, invite)
}

func (s *Service) handleResendInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(mux.Vars(r), "id")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	invite, err := s.ResendInvitation(r.Context(), id, userID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, invite)
}
