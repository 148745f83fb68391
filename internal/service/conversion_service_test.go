package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/bridge"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

var (
	svcToken      = common.HexToAddress("0x765DE816845861e75A25fCA122bb6898B8B1282a")
	svcSettlement = common.HexToAddress("0x471EcE3750Da237f93B8E339c536989b8978a438")
	svcPool       = common.HexToAddress("0x3333333333333333333333333333333333333333")
	svcCaller     = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

// stubVenue answers one viable tier and an honest swap.
type stubVenue struct {
	quoteOut *big.Int
	swapOut  *big.Int
}

func (v *stubVenue) PoolFor(context.Context, common.Address, common.Address, uint32) (common.Address, bool, error) {
	return svcPool, true, nil
}

func (v *stubVenue) LiquidityOf(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (v *stubVenue) Quote(context.Context, common.Address, common.Address, uint32, *big.Int) (domain.QuoteResult, error) {
	return domain.QuoteResult{AmountOut: v.quoteOut}, nil
}

func (v *stubVenue) Swap(context.Context, domain.SwapParams) (domain.SwapResult, error) {
	return domain.SwapResult{AmountOut: v.swapOut, TxHash: common.HexToHash("0xabc")}, nil
}

type stubTokens struct{}

func (stubTokens) BalanceOf(context.Context, common.Address, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (stubTokens) Allowance(context.Context, common.Address, common.Address, common.Address) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (stubTokens) Approve(context.Context, common.Address, common.Address, *big.Int) error {
	return nil
}

type stubLedger struct {
	err error
}

func (l *stubLedger) Contribute(context.Context, domain.Contribution) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	return "0xref", nil
}

// recordingStore captures Create and Finish calls.
type recordingStore struct {
	created  []domain.ConversionRecord
	finished map[string]domain.ConversionRecord
}

func newRecordingStore() *recordingStore {
	return &recordingStore{finished: map[string]domain.ConversionRecord{}}
}

func (s *recordingStore) Create(_ context.Context, rec domain.ConversionRecord) error {
	s.created = append(s.created, rec)
	return nil
}

func (s *recordingStore) Finish(_ context.Context, id string, rec domain.ConversionRecord) error {
	s.finished[id] = rec
	return nil
}

func (s *recordingStore) Get(_ context.Context, id string) (domain.ConversionRecord, error) {
	for _, rec := range s.created {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.ConversionRecord{}, domain.ErrNotFound
}

func (s *recordingStore) ListByCaller(context.Context, common.Address, int, int) ([]domain.ConversionRecord, error) {
	return s.created, nil
}

func (s *recordingStore) ListSettledBefore(context.Context, time.Time, int) ([]domain.ConversionRecord, error) {
	return nil, nil
}

func (s *recordingStore) MarkArchived(context.Context, []string) error { return nil }

// recordingBus captures published payloads.
type recordingBus struct {
	events []map[string]any
}

func (b *recordingBus) Publish(_ context.Context, _ string, payload []byte) error {
	var evt map[string]any
	if err := json.Unmarshal(payload, &evt); err != nil {
		return err
	}
	b.events = append(b.events, evt)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func newServiceUnderTest(t *testing.T, ledger *stubLedger) (*ConversionService, *recordingStore, *recordingBus) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := bridge.Config{
		Wallet:            common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Router:            common.HexToAddress("0x2222222222222222222222222222222222222222"),
		SettlementToken:   svcSettlement,
		ProbeToken:        svcToken,
		FeeTiers:          []uint32{3000},
		SlippageBps:       200,
		MinLiquidity:      big.NewInt(1000),
		CacheTTL:          time.Minute,
		ApproveMultiplier: 2,
	}
	venue := &stubVenue{quoteOut: big.NewInt(10_000), swapOut: big.NewInt(9_900)}
	b := bridge.New(cfg, venue, stubTokens{}, ledger,
		bridge.NewMemoryVenueCache(cfg.CacheTTL), bridge.NewMemoryGate(), logger)

	store := newRecordingStore()
	bus := &recordingBus{}
	return NewConversionService(b, store, bus, nil, logger), store, bus
}

func serviceRequest() domain.ConversionRequest {
	return domain.ConversionRequest{
		Caller:     svcCaller,
		Token:      svcToken,
		Amount:     big.NewInt(5_000),
		CampaignID: big.NewInt(7),
		ProjectID:  big.NewInt(12),
	}
}

func TestConvertSettled(t *testing.T) {
	svc, store, bus := newServiceUnderTest(t, &stubLedger{})

	id, receipt, err := svc.Convert(context.Background(), serviceRequest())

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, big.NewInt(9_900), receipt.RealizedOutput)

	// Initial record then the settled outcome.
	require.Len(t, store.created, 1)
	assert.Equal(t, id, store.created[0].ID)
	assert.Equal(t, domain.ConversionFailed, store.created[0].Status)

	final, ok := store.finished[id]
	require.True(t, ok)
	assert.Equal(t, domain.ConversionSettled, final.Status)
	assert.Empty(t, final.FailureKind)
	assert.Equal(t, big.NewInt(9_900), final.RealizedOutput)
	assert.Equal(t, "0xref", final.SettlementRef)
	require.NotNil(t, final.SettledAt)

	require.Len(t, bus.events, 1)
	assert.Equal(t, "conversion_settled", bus.events[0]["event"])
	assert.Equal(t, "9900", bus.events[0]["realized_output"])
}

func TestConvertSettlementRejected(t *testing.T) {
	svc, store, bus := newServiceUnderTest(t, &stubLedger{err: errors.New("campaign inactive")})

	id, receipt, err := svc.Convert(context.Background(), serviceRequest())

	require.ErrorIs(t, err, domain.ErrSettlementRejected)
	assert.Equal(t, big.NewInt(9_900), receipt.RealizedOutput)

	final := store.finished[id]
	assert.Equal(t, domain.ConversionSwapped, final.Status)
	assert.Equal(t, "settlement_rejected", final.FailureKind)
	assert.NotNil(t, final.SettledAt)

	require.Len(t, bus.events, 1)
	assert.Equal(t, "settlement_rejected", bus.events[0]["event"])
}

func TestConvertFailure(t *testing.T) {
	svc, store, bus := newServiceUnderTest(t, &stubLedger{})

	req := serviceRequest()
	req.Amount = big.NewInt(-5)

	id, _, err := svc.Convert(context.Background(), req)

	require.Error(t, err)
	final := store.finished[id]
	assert.Equal(t, domain.ConversionFailed, final.Status)
	assert.Equal(t, "internal", final.FailureKind)
	assert.Nil(t, final.SettledAt)

	require.Len(t, bus.events, 1)
	assert.Equal(t, "conversion_failed", bus.events[0]["event"])
}

func TestConvertToleratesNilStoreAndBus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, _, _ := newServiceUnderTest(t, &stubLedger{})
	svc = NewConversionService(svc.bridge, nil, nil, nil, logger)

	_, receipt, err := svc.Convert(context.Background(), serviceRequest())

	require.NoError(t, err)
	assert.Equal(t, big.NewInt(9_900), receipt.RealizedOutput)

	_, err = svc.Get(context.Background(), "whatever")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	recs, err := svc.History(context.Background(), svcCaller, 10, 0)
	require.NoError(t, err)
	assert.Nil(t, recs)
}

func TestFailureKindClassification(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrNotOperational, "not_operational"},
		{domain.ErrNoViablePool, "no_viable_pool"},
		{fmt.Errorf("wrapped: %w", domain.ErrQuoteUnavailable), "quote_unavailable"},
		{domain.ErrSlippageExceeded, "slippage_exceeded"},
		{fmt.Errorf("%w: campaign inactive", domain.ErrSettlementRejected), "settlement_rejected"},
		{domain.ErrTimeout, "timeout"},
		{domain.ErrConversionInFlight, "conversion_in_flight"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, failureKind(tt.err))
	}
}
