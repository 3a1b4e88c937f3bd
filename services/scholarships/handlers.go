package scholarships

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/scholarship-finder/backend/internal/httputil"
)

// RegisterRoutes mounts the scholarship endpoints on the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/scholarships", s.handleSearch).Methods(http.MethodGet)
	r.HandleFunc("/scholarships/recommended", s.handleRecommended).Methods(http.MethodGet)
	r.HandleFunc("/scholarships/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/scholarships/{id}/interactions", s.handleInteraction).Methods(http.MethodPost)
	r.HandleFunc("/search-preferences", s.handleGetPreferences).Methods(http.MethodGet)
	r.HandleFunc("/search-preferences", s.handlePutPreferences).Methods(http.MethodPut)
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	if _, ok := httputil.RequireUserID(w, r); !ok {
		return
	}

	q := r.URL.Query()
	filter := SearchFilter{
		Query:          q.Get("q"),
		Category:       q.Get("category"),
		TargetType:     q.Get("target_type"),
		EducationLevel: q.Get("education_level"),
	}
	if raw := q.Get("min_amount"); raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			httputil.BadRequest(w, "min_amount must be a number")
			return
		}
		filter.MinAmount = &amount
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	out, err := s.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Service) handleRecommended(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	out, err := s.Recommended(r.Context(), userID, limit)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := httputil.RequireUserID(w, r); !ok {
		return
	}
	id, err := httputil.PathID(mux.Vars(r), "id")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	sch, err := s.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sch)
}

type interactionRequest struct {
	Status string `json:"status"`
}

func (s *Service) handleInteraction(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(mux.Vars(r), "id")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var input interactionRequest
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}

	interaction, err := s.RecordInteraction(r.Context(), userID, id, input.Status)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, interaction)
}

func (s *Service) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	prefs, err := s.Preferences(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, prefs)
}

func (s *Service) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var input PreferencesInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}

	prefs, err := s.UpdatePreferences(r.Context(), userID, input)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, prefs)
}
