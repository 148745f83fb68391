package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

func TestConvertErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{domain.ErrNotOperational, http.StatusServiceUnavailable, "not_operational"},
		{domain.ErrNoViablePool, http.StatusUnprocessableEntity, "no_viable_pool"},
		{fmt.Errorf("wrapped: %w", domain.ErrQuoteUnavailable), http.StatusBadGateway, "quote_unavailable"},
		{domain.ErrSlippageExceeded, http.StatusConflict, "slippage_exceeded"},
		{fmt.Errorf("%w: campaign inactive", domain.ErrSettlementRejected), http.StatusBadGateway, "settlement_rejected"},
		{domain.ErrTimeout, http.StatusGatewayTimeout, "timeout"},
		{domain.ErrConversionInFlight, http.StatusTooManyRequests, "conversion_in_flight"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		status, kind := convertErrorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.kind)
		assert.Equal(t, tt.kind, kind)
	}
}

func testBridgeHandler() *BridgeHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Parameter validation happens before the bridge is touched.
	return NewBridgeHandler(nil, nil, logger)
}

func TestGetEstimateRejectsBadParams(t *testing.T) {
	h := testBridgeHandler()

	for _, target := range []string{
		"/api/bridge/estimate",
		"/api/bridge/estimate?token=0x123&amount=5",
		"/api/bridge/estimate?token=0x765DE816845861e75A25fCA122bb6898B8B1282a&amount=-5",
		"/api/bridge/estimate?token=0x765DE816845861e75A25fCA122bb6898B8B1282a&amount=5&fee_tier=abc",
	} {
		w := httptest.NewRecorder()
		h.GetEstimate(w, httptest.NewRequest("GET", target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Contains(t, w.Body.String(), "error")
	}
}

func TestConvertRejectsBadBody(t *testing.T) {
	h := testBridgeHandler()

	bodies := []string{
		"{not json",
		`{}`,
		`{"caller":"0x4444444444444444444444444444444444444444"}`,
		`{"caller":"0x4444444444444444444444444444444444444444","token":"0x765DE816845861e75A25fCA122bb6898B8B1282a","amount":"0","campaign_id":"1","project_id":"1"}`,
		`{"caller":"0x4444444444444444444444444444444444444444","token":"0x765DE816845861e75A25fCA122bb6898B8B1282a","amount":"5","campaign_id":"1","project_id":"1","bypass_code":"0x1234"}`,
	}
	for _, body := range bodies {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/api/bridge/convert", strings.NewReader(body))
		h.Convert(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestBuildRequestMapsFields(t *testing.T) {
	h := testBridgeHandler()

	req, err := h.buildRequest(convertRequest{
		Caller:             "0x4444444444444444444444444444444444444444",
		Token:              "0x765DE816845861e75A25fCA122bb6898B8B1282a",
		Amount:             "5000",
		CampaignID:         "7",
		ProjectID:          "12",
		MinOutput:          "4900",
		FeeTier:            3000,
		ConfirmWaitSeconds: 30,
	})

	assert.NoError(t, err)
	assert.Equal(t, "5000", req.Amount.String())
	assert.Equal(t, "7", req.CampaignID.String())
	assert.Equal(t, "12", req.ProjectID.String())
	assert.Equal(t, "4900", req.MinOutputOverride.String())
	assert.Equal(t, uint32(3000), req.PreferredFeeTier)
	assert.Equal(t, "30s", req.ConfirmWait.String())
}

func TestBuildRequestAcceptsZeroIDs(t *testing.T) {
	h := testBridgeHandler()

	req, err := h.buildRequest(convertRequest{
		Caller:     "0x4444444444444444444444444444444444444444",
		Token:      "0x765DE816845861e75A25fCA122bb6898B8B1282a",
		Amount:     "5000",
		CampaignID: "0",
		ProjectID:  "0",
	})

	assert.NoError(t, err)
	assert.Zero(t, req.CampaignID.Sign())
	assert.Zero(t, req.ProjectID.Sign())
}
