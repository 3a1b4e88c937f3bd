package essays

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scholarship-finder/backend/internal/httputil"
)

// RegisterRoutes mounts the essay endpoints on the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/essays", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/essays/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/essays/{id}", s.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/essays/{id}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/essays/{id}/collaborations", s.handleGoneCollaborations).Methods(http.MethodGet)
	r.HandleFunc("/applications/{id}/essays", s.handleListByApplication).Methods(http.MethodGet)
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

	e, err := s.GetByID(r.Context(), id, userID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
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

	e, err := s.Update(r.Context(), id, userID, input)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
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

// Essay-scoped collaboration listing was removed when essay reviews
// stopped binding to a single essay. The route answers 410 so old
// clients get a deliberate signal rather than a 404.
func (s *Service) handleGoneCollaborations(w http.ResponseWriter, r *http.Request) {
	if _, ok := httputil.RequireUserID(w, r); !ok {
		return
	}
	httputil.WriteErrorResponse(w, r, http.StatusGone, "GONE",
		"essay-scoped collaborations are no longer available; list collaborations by application instead", nil)
}
