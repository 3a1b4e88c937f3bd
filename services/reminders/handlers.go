package reminders

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scholarship-finder/backend/internal/httputil"
)

// RegisterRoutes mounts the reminder endpoint on the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/reminders", s.handleReminders).Methods(http.MethodGet)
}

func (s *Service) handleReminders(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	dashboard, err := s.ForUser(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dashboard)
}
