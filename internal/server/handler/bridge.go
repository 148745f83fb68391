package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/bridge"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/service"
)

// BridgeHandler serves the conversion bridge endpoints.
type BridgeHandler struct {
	bridge  *bridge.Bridge
	convSvc *service.ConversionService
	logger  *slog.Logger
}

// NewBridgeHandler creates a BridgeHandler.
func NewBridgeHandler(b *bridge.Bridge, convSvc *service.ConversionService, logger *slog.Logger) *BridgeHandler {
	return &BridgeHandler{
		bridge:  b,
		convSvc: convSvc,
		logger:  logger.With(slog.String("handler", "bridge")),
	}
}

// GetConfig returns the deployment configuration.
// GET /api/bridge/config
func (h *BridgeHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.bridge.Configuration()
	writeJSON(w, http.StatusOK, map[string]any{
		"wallet":             strings.ToLower(cfg.Wallet.Hex()),
		"router":             strings.ToLower(cfg.Router.Hex()),
		"settlement_token":   strings.ToLower(cfg.SettlementToken.Hex()),
		"probe_token":        strings.ToLower(cfg.ProbeToken.Hex()),
		"fee_tiers":          cfg.FeeTiers,
		"slippage_bps":       cfg.SlippageBps,
		"min_liquidity":      cfg.MinLiquidity.String(),
		"cache_ttl_seconds":  int(cfg.CacheTTL.Seconds()),
		"approve_multiplier": cfg.ApproveMultiplier,
	})
}

// GetStatus returns the operational diagnostics.
// GET /api/bridge/status
func (h *BridgeHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bridge.Diagnostics(r.Context()))
}

// GetEstimate returns a display estimate for converting a token amount.
// GET /api/bridge/estimate?token=0x..&amount=123&fee_tier=3000
func (h *BridgeHandler) GetEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	token, err := parseAddress("token", q.Get("token"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount("amount", q.Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	feeTier, err := parseFeeTier(q.Get("fee_tier"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	est := h.bridge.Estimate(r.Context(), token, amount, feeTier)
	writeJSON(w, http.StatusOK, est)
}

// GetPools returns the per-tier pool analysis for a token.
// GET /api/bridge/pools?token=0x..&amount=123
func (h *BridgeHandler) GetPools(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	token, err := parseAddress("token", q.Get("token"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount("amount", q.Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	analyses, err := h.bridge.AnalyzeAllPools(r.Context(), token, amount)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pools": analyses})
}

// GetCache inspects the raw cache entry for a pair and tier.
// GET /api/bridge/cache?token_a=0x..&token_b=0x..&fee_tier=3000
func (h *BridgeHandler) GetCache(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	tokenA, err := parseAddress("token_a", q.Get("token_a"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tokenB, err := parseAddress("token_b", q.Get("token_b"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	feeTier, err := parseFeeTier(q.Get("fee_tier"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lookup := h.bridge.CacheInfo(tokenA, tokenB, feeTier)

	resp := map[string]any{
		"found":      lookup.Found,
		"is_expired": lookup.IsExpired,
	}
	if lookup.AgeSeconds == domain.AgeUnknown {
		resp["age_seconds"] = nil
	} else {
		resp["age_seconds"] = lookup.AgeSeconds
	}
	if lookup.Found {
		resp["pool_address"] = strings.ToLower(lookup.Info.PoolAddress.Hex())
		resp["fee_tier"] = lookup.Info.FeeTier
		resp["exists"] = lookup.Info.Exists
		if lookup.Info.Liquidity != nil {
			resp["liquidity"] = lookup.Info.Liquidity.String()
		}
		resp["queried_at"] = lookup.Info.QueriedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// convertRequest is the JSON body of a conversion submission. Amounts are
// decimal strings in base units.
type convertRequest struct {
	Caller             string `json:"caller"`
	Token              string `json:"token"`
	Amount             string `json:"amount"`
	CampaignID         string `json:"campaign_id"`
	ProjectID          string `json:"project_id"`
	BypassCode         string `json:"bypass_code,omitempty"`
	MinOutput          string `json:"min_output,omitempty"`
	FeeTier            uint32 `json:"fee_tier,omitempty"`
	ConfirmWaitSeconds int    `json:"confirm_wait_seconds,omitempty"`
}

// Convert executes a conversion and forwards the proceeds to the settlement
// ledger.
// POST /api/bridge/convert
func (h *BridgeHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var body convertRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	req, err := h.buildRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, receipt, convErr := h.convSvc.Convert(r.Context(), req)
	if convErr != nil {
		status, kind := convertErrorStatus(convErr)
		resp := map[string]any{
			"id":    id,
			"error": convErr.Error(),
			"kind":  kind,
		}
		// A settlement rejection still converted funds; expose the partial
		// outcome so the caller can follow up.
		if errors.Is(convErr, domain.ErrSettlementRejected) {
			if receipt.RealizedOutput != nil {
				resp["realized_output"] = receipt.RealizedOutput.String()
			}
			resp["swap_tx_hash"] = receipt.SwapTxHash
		}
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":                      id,
		"realized_output":         receipt.RealizedOutput.String(),
		"settlement_confirmation": receipt.SettlementConfirmation,
		"swap_tx_hash":            receipt.SwapTxHash,
	})
}

// buildRequest validates and converts the wire request into a domain request.
func (h *BridgeHandler) buildRequest(body convertRequest) (domain.ConversionRequest, error) {
	var req domain.ConversionRequest
	var err error

	if req.Caller, err = parseAddress("caller", body.Caller); err != nil {
		return req, err
	}
	if req.Token, err = parseAddress("token", body.Token); err != nil {
		return req, err
	}
	if req.Amount, err = parseAmount("amount", body.Amount); err != nil {
		return req, err
	}
	if req.CampaignID, err = parseID("campaign_id", body.CampaignID); err != nil {
		return req, err
	}
	if req.ProjectID, err = parseID("project_id", body.ProjectID); err != nil {
		return req, err
	}
	if req.BypassCode, err = parseBypassCode(body.BypassCode); err != nil {
		return req, err
	}
	if body.MinOutput != "" {
		if req.MinOutputOverride, err = parseAmount("min_output", body.MinOutput); err != nil {
			return req, err
		}
	}
	req.PreferredFeeTier = body.FeeTier
	if body.ConfirmWaitSeconds > 0 {
		req.ConfirmWait = time.Duration(body.ConfirmWaitSeconds) * time.Second
	}
	return req, nil
}

// convertErrorStatus maps conversion errors to HTTP statuses and stable kind
// strings.
func convertErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotOperational):
		return http.StatusServiceUnavailable, "not_operational"
	case errors.Is(err, domain.ErrNoViablePool):
		return http.StatusUnprocessableEntity, "no_viable_pool"
	case errors.Is(err, domain.ErrQuoteUnavailable):
		return http.StatusBadGateway, "quote_unavailable"
	case errors.Is(err, domain.ErrSlippageExceeded):
		return http.StatusConflict, "slippage_exceeded"
	case errors.Is(err, domain.ErrSettlementRejected):
		return http.StatusBadGateway, "settlement_rejected"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, domain.ErrConversionInFlight):
		return http.StatusTooManyRequests, "conversion_in_flight"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
