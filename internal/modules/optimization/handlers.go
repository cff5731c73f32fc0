package optimization

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
)

// Handler handles optimization HTTP requests
type Handler struct {
	engine *Engine
	log    zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(engine *Engine, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		log:    log.With().Str("handler", "optimization").Logger(),
	}
}

type optimizeRequest struct {
	PortfolioUID string                    `json:"portfolio_uid"`
	Strategies   map[string]StrategyParams `json:"strategies"`
}

// HandleOptimize runs the requested strategies against a portfolio
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PortfolioUID == "" {
		h.writeError(w, http.StatusBadRequest, "portfolio_uid is required")
		return
	}
	if len(req.Strategies) == 0 {
		h.writeError(w, http.StatusBadRequest, "at least one strategy is required")
		return
	}

	report, err := h.engine.Run(req.PortfolioUID, req.Strategies)
	if err != nil {
		var unsupported *domain.UnsupportedScenarioError
		switch {
		case domain.IsMissingData(err):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &unsupported):
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// HandleStrategies lists the available strategy names
func (h *Handler) HandleStrategies(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": StrategyNames(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
