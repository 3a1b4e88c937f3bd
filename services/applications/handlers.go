package applications

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scholarship-finder/backend/internal/httputil"
)

// RegisterRoutes mounts the application endpoints on the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/applications", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/applications", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/applications/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/applications/{id}", s.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/applications/{id}", s.handleDelete).Methods(http.MethodDelete)
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

	a, err := s.GetByID(r.Context(), id, userID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
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

	a, err := s.Update(r.Context(), id, userID, input)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(mux.Vars(r), "id")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	if err := s.Delete(r.Context(), id, userID); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}
