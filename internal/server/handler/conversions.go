package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/service"
)

// ConversionsHandler serves the recorded-conversion endpoints.
type ConversionsHandler struct {
	convSvc *service.ConversionService
	logger  *slog.Logger
}

// NewConversionsHandler creates a ConversionsHandler.
func NewConversionsHandler(convSvc *service.ConversionService, logger *slog.Logger) *ConversionsHandler {
	return &ConversionsHandler{
		convSvc: convSvc,
		logger:  logger.With(slog.String("handler", "conversions")),
	}
}

// conversionJSON is the wire shape of a recorded conversion.
type conversionJSON struct {
	ID             string `json:"id"`
	Caller         string `json:"caller"`
	Token          string `json:"token"`
	InputAmount    string `json:"input_amount"`
	MinimumOutput  string `json:"minimum_output,omitempty"`
	RealizedOutput string `json:"realized_output,omitempty"`
	FeeTier        uint32 `json:"fee_tier,omitempty"`
	CampaignID     string `json:"campaign_id,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
	Status         string `json:"status"`
	FailureKind    string `json:"failure_kind,omitempty"`
	SwapTxHash     string `json:"swap_tx_hash,omitempty"`
	SettlementRef  string `json:"settlement_ref,omitempty"`
	CreatedAt      string `json:"created_at"`
	SettledAt      string `json:"settled_at,omitempty"`
}

func toConversionJSON(rec domain.ConversionRecord) conversionJSON {
	out := conversionJSON{
		ID:            rec.ID,
		Caller:        strings.ToLower(rec.Caller.Hex()),
		Token:         strings.ToLower(rec.Token.Hex()),
		Status:        rec.Status,
		FailureKind:   rec.FailureKind,
		FeeTier:       rec.FeeTier,
		SwapTxHash:    rec.SwapTxHash,
		SettlementRef: rec.SettlementRef,
		CreatedAt:     rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if rec.InputAmount != nil {
		out.InputAmount = rec.InputAmount.String()
	}
	if rec.MinimumOutput != nil {
		out.MinimumOutput = rec.MinimumOutput.String()
	}
	if rec.RealizedOutput != nil {
		out.RealizedOutput = rec.RealizedOutput.String()
	}
	if rec.CampaignID != nil {
		out.CampaignID = rec.CampaignID.String()
	}
	if rec.ProjectID != nil {
		out.ProjectID = rec.ProjectID.String()
	}
	if rec.SettledAt != nil {
		out.SettledAt = rec.SettledAt.UTC().Format(time.RFC3339)
	}
	return out
}

// GetConversion returns a single recorded conversion by ID.
// GET /api/conversions/{id}
func (h *ConversionsHandler) GetConversion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing conversion id")
		return
	}

	rec, err := h.convSvc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversion not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toConversionJSON(rec))
}

// ListConversions returns a caller's conversions, newest first.
// GET /api/conversions?caller=0x..&limit=50&offset=0
func (h *ConversionsHandler) ListConversions(w http.ResponseWriter, r *http.Request) {
	caller, err := parseAddress("caller", r.URL.Query().Get("caller"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset := parsePagination(r)

	recs, err := h.convSvc.History(r.Context(), caller, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]conversionJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toConversionJSON(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversions": out})
}
