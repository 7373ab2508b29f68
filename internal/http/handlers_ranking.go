package http

import (
	"net/http"
	"strconv"
	"time"
)

func (s *Server) handleMonte(w http.ResponseWriter, r *http.Request) {
	t, err := s.rankings.MonteStandings(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, t)
}

func (s *Server) handleMedaillen(w http.ResponseWriter, r *http.Request) {
	t, err := s.rankings.MedaillenStandings(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, t)
}

func (s *Server) handleSetInitialValues(w http.ResponseWriter, r *http.Request) {
	memberID, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req initialValuesRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.rankings.SetInitialValues(r.Context(), req.toDomain(memberID)); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

// handleStatistics serves the club overview. The monthly summary covers
// ?year=, by default the current year.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1900 || y > 9999 {
			s.fail(w, r, &requestError{msg: "invalid year " + strconv.Quote(raw), field: "year"})
			return
		}
		year = y
	}
	st, err := s.gamedays.Statistics(r.Context(), year)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, st)
}
