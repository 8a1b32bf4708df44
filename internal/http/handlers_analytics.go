package http

import (
	"net/http"
	"strconv"
)

const (
	defaultSeriesMonths = 6
	maxSeriesMonths     = 24
)

func (s *Server) handleMonthlyAnalytics(w http.ResponseWriter, r *http.Request) {
	months := defaultSeriesMonths
	if raw := r.URL.Query().Get("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxSeriesMonths {
			writeError(w, http.StatusUnprocessableEntity, "months must be between 1 and 24")
			return
		}
		months = parsed
	}

	series, err := s.engine.MonthlySeries(r.Context(), months)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleCategoryAnalytics(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")

	breakdown, err := s.engine.CategoryBreakdown(r.Context(), month)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}
