package portfolio

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	reconstructor *Reconstructor
	valuer        *Valuer
	ledger        domain.TradeLedger
	log           zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(reconstructor *Reconstructor, valuer *Valuer, ledger domain.TradeLedger, log zerolog.Logger) *Handler {
	return &Handler{
		reconstructor: reconstructor,
		valuer:        valuer,
		ledger:        ledger,
		log:           log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleSummary returns the consolidated position report for a portfolio
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	p, val, ok := h.reconstructAndValue(w, uid, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	flows, err := h.ledger.GetCashFlows(uid)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, h.valuer.Summary(p, val, flows))
}

// HandleWeights returns per-position values and weights
func (h *Handler) HandleWeights(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	_, val, ok := h.reconstructAndValue(w, uid, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, val)
}

// HandleConcentrations returns country/currency/sector weight breakdowns
func (h *Handler) HandleConcentrations(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	p, val, ok := h.reconstructAndValue(w, uid, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, h.valuer.Concentrations(p, val))
}

// reconstructAndValue runs the shared reconstruct-then-value path and writes
// the error response itself when something fails.
func (h *Handler) reconstructAndValue(w http.ResponseWriter, uid, dateParam string) (*Portfolio, *Valuation, bool) {
	if uid == "" {
		h.writeError(w, http.StatusBadRequest, "portfolio uid is required")
		return nil, nil, false
	}

	p, err := h.reconstructor.Reconstruct(uid)
	if err != nil {
		h.writeReconstructError(w, err)
		return nil, nil, false
	}

	on := p.History.Dates[len(p.History.Dates)-1]
	if dateParam != "" {
		parsed, err := time.Parse("2006-01-02", dateParam)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return nil, nil, false
		}
		on = parsed
	}

	val, err := h.valuer.Value(p, on)
	if err != nil {
		if domain.IsMissingData(err) {
			h.writeError(w, http.StatusNotFound, err.Error())
		} else {
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, nil, false
	}

	return p, val, true
}

func (h *Handler) writeReconstructError(w http.ResponseWriter, err error) {
	var unsupported *domain.UnsupportedScenarioError
	var integrity *domain.IntegrityError
	switch {
	case domain.IsMissingData(err):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &unsupported):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &integrity):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
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
