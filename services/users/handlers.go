package users

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scholarship-finder/backend/internal/httputil"
)

// RegisterRoutes mounts the profile endpoints on the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/users/me", s.handleProfile).Methods(http.MethodGet)
	r.HandleFunc("/users/me", s.handleUpdateProfile).Methods(http.MethodPut)
}

func (s *Service) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	u, err := s.Profile(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (s *Service) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var input UpdateInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}

	u, err := s.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}
