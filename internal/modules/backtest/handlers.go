package backtest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
)

// Handler handles backtest HTTP requests
type Handler struct {
	runner *Runner
	log    zerolog.Logger
}

// NewHandler creates a new backtest handler
func NewHandler(runner *Runner, log zerolog.Logger) *Handler {
	return &Handler{
		runner: runner,
		log:    log.With().Str("handler", "backtest").Logger(),
	}
}

// HandleRun backtests one signal against a uid's price history
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == "" {
		h.writeError(w, http.StatusBadRequest, "uid is required")
		return
	}

	sig, err := signalFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.runner.Run(uid, sig)
	if err != nil {
		if domain.IsMissingData(err) {
			h.writeError(w, http.StatusNotFound, err.Error())
		} else {
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// signalFromQuery builds a signal from request parameters, applying the
// usual defaults for anything omitted.
func signalFromQuery(r *http.Request) (Signal, error) {
	switch r.URL.Query().Get("signal") {
	case "", "sma_cross":
		return SMACross{
			Fast: intParam(r, "fast", 20),
			Slow: intParam(r, "slow", 50),
		}, nil
	case "rsi":
		return RSIReversion{
			Period:     intParam(r, "period", 14),
			Oversold:   floatParam(r, "oversold", 30),
			Overbought: floatParam(r, "overbought", 70),
		}, nil
	default:
		return nil, errUnknownSignal
	}
}

var errUnknownSignal = &signalError{"unknown signal, expected sma_cross or rsi"}

type signalError struct{ msg string }

func (e *signalError) Error() string { return e.msg }

func intParam(r *http.Request, name string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func floatParam(r *http.Request, name string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(r.URL.Query().Get(name), 64); err == nil {
		return v
	}
	return fallback
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
