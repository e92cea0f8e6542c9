package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pingrank/internal/config"
	"pingrank/internal/domain"
	"pingrank/internal/middleware"
	"pingrank/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Server is the JSON boundary over the ledger. Reads are public; every
// mutation requires the admin capability token.
type Server struct {
	ledger *service.LedgerService
	logger zerolog.Logger
}

func New(ledger *service.LedgerService, logger zerolog.Logger) *Server {
	return &Server{ledger: ledger, logger: logger}
}

func NewRouter(s *Server, cfg *config.Config, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/players", s.handleListPlayers)
		r.Get("/players/{id}/opponents", s.handleEligibleOpponents)
		r.Get("/matches", s.handleListMatches)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(cfg.AdminToken, logger))
			r.Post("/players", s.handleAddPlayer)
			r.Delete("/players/{id}", s.handleRemovePlayer)
			r.Post("/matches/schedule", s.handleScheduleMatch)
			r.Post("/matches/result", s.handleRegisterResult)
			r.Delete("/matches/{id}", s.handleDeleteMatch)
			r.Post("/admin/seed", s.handleSeed)
		})
	})

	return r
}

type playerResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Rating   int       `json:"rating"`
	Rank     int       `json:"rank"`
	Wins     int       `json:"wins"`
	Losses   int       `json:"losses"`
	Streak   int       `json:"streak"`
	JoinedAt time.Time `json:"joinedAt"`
}

type matchResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Player1ID   string    `json:"player1Id,omitempty"`
	Player1Name string    `json:"player1Name,omitempty"`
	Player2ID   string    `json:"player2Id,omitempty"`
	Player2Name string    `json:"player2Name,omitempty"`
	WinnerID    string    `json:"winnerId,omitempty"`
	WinnerName  string    `json:"winnerName,omitempty"`
	LoserID     string    `json:"loserId,omitempty"`
	LoserName   string    `json:"loserName,omitempty"`
	WinnerScore int       `json:"winnerScore,omitempty"`
	LoserScore  int       `json:"loserScore,omitempty"`
	Date        time.Time `json:"date"`
	RatingChange int      `json:"ratingChange,omitempty"`
	RankSwap    bool      `json:"rankSwap,omitempty"`
	Commentary  string    `json:"commentary,omitempty"`
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.ledger.ListPlayers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := make([]playerResponse, len(players))
	for i, p := range players {
		resp[i] = toPlayerResponse(p)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	matches, err := s.ledger.ListMatches(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := make([]matchResponse, len(matches))
	for i, m := range matches {
		resp[i] = toMatchResponse(m)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEligibleOpponents(w http.ResponseWriter, r *http.Request) {
	window, _ := strconv.Atoi(r.URL.Query().Get("window"))

	opponents, err := s.ledger.EligibleOpponents(r.Context(), chi.URLParam(r, "id"), window)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := make([]playerResponse, len(opponents))
	for i, p := range opponents {
		resp[i] = toPlayerResponse(p)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, domain.ErrNameRequired)
		return
	}

	player, err := s.ledger.AddPlayer(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toPlayerResponse(*player))
}

func (s *Server) handleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemovePlayer(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScheduleMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChallengerID string    `json:"challengerId"`
		OpponentID   string    `json:"opponentId"`
		Date         time.Time `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}
	if req.Date.IsZero() {
		s.writeBadRequest(w, "date is required")
		return
	}

	match, err := s.ledger.ScheduleMatch(r.Context(), req.ChallengerID, req.OpponentID, req.Date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toMatchResponse(*match))
}

func (s *Server) handleRegisterResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MatchID     string `json:"matchId"`
		WinnerID    string `json:"winnerId"`
		LoserID     string `json:"loserId"`
		WinnerScore int    `json:"winnerScore"`
		LoserScore  int    `json:"loserScore"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	match, err := s.ledger.RegisterResult(r.Context(), req.MatchID, req.WinnerID, req.LoserID, req.WinnerScore, req.LoserScore)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMatchResponse(*match))
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteMatch(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Names []string `json:"names"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	count, err := s.ledger.SeedPlayers(r.Context(), req.Names)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]int{"count": count})
}

func toPlayerResponse(p domain.Player) playerResponse {
	return playerResponse{
		ID:       p.ID,
		Name:     p.Name,
		Rating:   p.Rating,
		Rank:     p.Rank,
		Wins:     p.Wins,
		Losses:   p.Losses,
		Streak:   p.Streak,
		JoinedAt: p.JoinedAt,
	}
}

func toMatchResponse(m domain.Match) matchResponse {
	return matchResponse{
		ID:           m.ID,
		Status:       string(m.Status),
		Player1ID:    m.Player1ID,
		Player1Name:  m.Player1Name,
		Player2ID:    m.Player2ID,
		Player2Name:  m.Player2Name,
		WinnerID:     m.WinnerID,
		WinnerName:   m.WinnerName,
		LoserID:      m.LoserID,
		LoserName:    m.LoserName,
		WinnerScore:  m.WinnerScore,
		LoserScore:   m.LoserScore,
		Date:         m.Date,
		RatingChange: m.RatingChange,
		RankSwap:     m.RankSwap,
		Commentary:   m.Commentary,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrPlayerNotFound), errors.Is(err, domain.ErrMatchNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidResult), errors.Is(err, domain.ErrNameRequired):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSlotConflict), errors.Is(err, domain.ErrRosterNotEmpty),
		errors.Is(err, domain.ErrNotEligible):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
