package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/user/etiquette-quest/internal/game"
	"github.com/user/etiquette-quest/internal/interfaces"
	"github.com/user/etiquette-quest/internal/metrics"
	"github.com/user/etiquette-quest/internal/types"
	"go.uber.org/zap"
)

// Server exposes the game over HTTP
type Server struct {
	games   interfaces.GameManager
	catalog *game.Catalog
	metrics *metrics.Metrics
	logger  *zap.Logger
	timeout time.Duration
}

// NewServer creates a new HTTP server for the game
func NewServer(games interfaces.GameManager, catalog *game.Catalog, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		games:   games,
		catalog: catalog,
		metrics: m,
		logger:  logger,
		timeout: 60 * time.Second,
	}
}

// SetTimeout sets the per-request timeout
func (s *Server) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.timeout = timeout
	}
}

// Router builds the chi router with every route mounted
func (s *Server) Router() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(s.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(s.timeout))

	router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	router.Get("/countries", s.handleCatalog)

	router.Route("/players", func(r chi.Router) {
		r.Get("/", s.handleListPlayers)
		r.Post("/", s.handleRegisterPlayer)

		r.Route("/{playerID}", func(r chi.Router) {
			r.Get("/", s.handleGetPlayer)
			r.Get("/countries", s.handleListCountries)
			r.Get("/countries/{countryID}/scenarios", s.handleListScenarios)
			r.Get("/competence/{countryID}", s.handleGetCompetence)
			r.Post("/competence/reset", s.handleResetCompetence)
			r.Post("/scenarios/{scenarioID}/start", s.handleStartScenario)
			r.Get("/attempt", s.handleCurrentInteraction)
			r.Post("/attempt/select", s.handleSelectOption)
			r.Delete("/attempt", s.handleAbandon)
		})
	})

	return router
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("Request handled",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

type registerRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type resetRequest struct {
	CountryID string `json:"country_id"`
}

type selectRequest struct {
	InteractionID string `json:"interaction_id"`
	Option        *int   `json:"option"`
}

type interactionResponse struct {
	Interaction *types.Interaction `json:"interaction"`
	Display     []types.View       `json:"display"`
}

type stepResponse struct {
	Step    *types.Step  `json:"step"`
	Display []types.View `json:"display"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Countries())
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.games.GetAllPlayers())
}

func (s *Server) handleRegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "Invalid request")
		return
	}
	if req.Name == "" {
		s.writeBadRequest(w, "name is required")
		return
	}

	player, err := s.games.RegisterPlayer(req.ID, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.games.GetPlayer(chi.URLParam(r, "playerID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.games.ListCountries(chi.URLParam(r, "playerID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.games.ListScenarios(chi.URLParam(r, "playerID"), chi.URLParam(r, "countryID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scenarios)
}

func (s *Server) handleGetCompetence(w http.ResponseWriter, r *http.Request) {
	status, err := s.games.GetCompetence(chi.URLParam(r, "playerID"), chi.URLParam(r, "countryID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleResetCompetence(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeBadRequest(w, "Invalid request")
		return
	}

	if err := s.games.ResetCompetence(chi.URLParam(r, "playerID"), req.CountryID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartScenario(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	interaction, err := s.games.StartScenario(playerID, chi.URLParam(r, "scenarioID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interactionResponse{
		Interaction: interaction,
		Display:     s.games.DrainDisplay(playerID),
	})
}

func (s *Server) handleCurrentInteraction(w http.ResponseWriter, r *http.Request) {
	interaction, err := s.games.CurrentInteraction(chi.URLParam(r, "playerID"))
	if errors.Is(err, game.ErrNoActiveAttempt) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: CodeNoActiveAttempt, Message: err.Error()})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interactionResponse{Interaction: interaction, Display: []types.View{}})
}

func (s *Server) handleSelectOption(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "Invalid request")
		return
	}
	if req.InteractionID == "" || req.Option == nil {
		s.writeBadRequest(w, "interaction_id and option are required")
		return
	}

	step, err := s.games.SelectOption(playerID, req.InteractionID, *req.Option)
	if err != nil {
		s.writeErrorWithDisplay(w, r, err, s.games.DrainDisplay(playerID))
		return
	}
	writeJSON(w, http.StatusOK, stepResponse{
		Step:    step,
		Display: s.games.DrainDisplay(playerID),
	})
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	if err := s.games.AbandonScenario(chi.URLParam(r, "playerID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorWithDisplay(w, r, err, nil)
}

// writeErrorWithDisplay also returns the views the failed call queued
func (s *Server) writeErrorWithDisplay(w http.ResponseWriter, r *http.Request, err error, display []types.View) {
	code, status := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: err.Error(), Display: display})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: CodeInvalidRequest, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
