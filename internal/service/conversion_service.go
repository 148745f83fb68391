// Package service coordinates the bridge with persistence, events, and
// operator notifications.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/bridge"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/notify"
)

// conversionsChannel is the signal bus channel for conversion lifecycle
// events.
const conversionsChannel = "conversions"

// ConversionService executes conversions through the bridge and records every
// attempt: a persisted audit record, a bus event, and an operator
// notification for terminal outcomes.
type ConversionService struct {
	bridge   *bridge.Bridge
	store    domain.ConversionStore
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewConversionService creates a ConversionService with all required
// dependencies. The store, bus, and notifier may individually be nil when the
// deployment runs without them.
func NewConversionService(
	b *bridge.Bridge,
	store domain.ConversionStore,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *ConversionService {
	return &ConversionService{
		bridge:   b,
		store:    store,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "conversion_service")),
	}
}

// Estimate proxies the bridge's read-only estimate.
func (s *ConversionService) Estimate(ctx context.Context, token common.Address, amount *big.Int, preferredFeeTier uint32) domain.ConversionEstimate {
	return s.bridge.Estimate(ctx, token, amount, preferredFeeTier)
}

// Convert runs one conversion end to end and returns the receipt together
// with the persisted record's ID.
func (s *ConversionService) Convert(ctx context.Context, req domain.ConversionRequest) (string, domain.ConversionReceipt, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	rec := domain.ConversionRecord{
		ID:          id,
		Caller:      req.Caller,
		Token:       req.Token,
		InputAmount: req.Amount,
		CampaignID:  req.CampaignID,
		ProjectID:   req.ProjectID,
		Status:      domain.ConversionFailed,
		CreatedAt:   now,
	}
	if s.store != nil {
		if err := s.store.Create(ctx, rec); err != nil {
			// Losing the audit row must not block the conversion itself.
			s.logger.ErrorContext(ctx, "create conversion record failed",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	receipt, convErr := s.bridge.ConvertAndForward(ctx, req)

	s.finishRecord(ctx, id, req, receipt, convErr)
	s.publishOutcome(ctx, id, req, receipt, convErr)
	s.notifyOutcome(ctx, id, req, receipt, convErr)

	return id, receipt, convErr
}

// finishRecord updates the persisted record with the conversion outcome.
func (s *ConversionService) finishRecord(ctx context.Context, id string, req domain.ConversionRequest, receipt domain.ConversionReceipt, convErr error) {
	if s.store == nil {
		return
	}

	settledAt := time.Now().UTC()
	rec := domain.ConversionRecord{
		RealizedOutput: receipt.RealizedOutput,
		SwapTxHash:     receipt.SwapTxHash,
		SettlementRef:  receipt.SettlementConfirmation,
		SettledAt:      &settledAt,
	}

	switch {
	case convErr == nil:
		rec.Status = domain.ConversionSettled
	case errors.Is(convErr, domain.ErrSettlementRejected):
		// Funds converted but the ledger refused the forward.
		rec.Status = domain.ConversionSwapped
		rec.FailureKind = failureKind(convErr)
	default:
		rec.Status = domain.ConversionFailed
		rec.FailureKind = failureKind(convErr)
		rec.SettledAt = nil
	}

	if err := s.store.Finish(ctx, id, rec); err != nil {
		s.logger.ErrorContext(ctx, "finish conversion record failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
}

// failureKind maps a conversion error to a stable classification string.
func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotOperational):
		return "not_operational"
	case errors.Is(err, domain.ErrNoViablePool):
		return "no_viable_pool"
	case errors.Is(err, domain.ErrQuoteUnavailable):
		return "quote_unavailable"
	case errors.Is(err, domain.ErrSlippageExceeded):
		return "slippage_exceeded"
	case errors.Is(err, domain.ErrSettlementRejected):
		return "settlement_rejected"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrConversionInFlight):
		return "conversion_in_flight"
	default:
		return "internal"
	}
}

// publishOutcome emits a lifecycle event on the signal bus. Publish failures
// are logged, never propagated.
func (s *ConversionService) publishOutcome(ctx context.Context, id string, req domain.ConversionRequest, receipt domain.ConversionReceipt, convErr error) {
	if s.bus == nil {
		return
	}

	evt := map[string]any{
		"id":        id,
		"caller":    strings.ToLower(req.Caller.Hex()),
		"token":     strings.ToLower(req.Token.Hex()),
		"amount":    req.Amount.String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	switch {
	case convErr == nil:
		evt["event"] = "conversion_settled"
		evt["realized_output"] = receipt.RealizedOutput.String()
		evt["swap_tx"] = receipt.SwapTxHash
		evt["settlement_ref"] = receipt.SettlementConfirmation
	case errors.Is(convErr, domain.ErrSettlementRejected):
		evt["event"] = "settlement_rejected"
		if receipt.RealizedOutput != nil {
			evt["realized_output"] = receipt.RealizedOutput.String()
		}
		evt["swap_tx"] = receipt.SwapTxHash
		evt["error"] = convErr.Error()
	default:
		evt["event"] = "conversion_failed"
		evt["failure_kind"] = failureKind(convErr)
		evt["error"] = convErr.Error()
	}

	payload, _ := json.Marshal(evt)
	if err := s.bus.Publish(ctx, conversionsChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "publish conversion event failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
}

// notifyOutcome alerts operators about terminal outcomes worth waking up for.
func (s *ConversionService) notifyOutcome(ctx context.Context, id string, req domain.ConversionRequest, receipt domain.ConversionReceipt, convErr error) {
	if s.notifier == nil {
		return
	}

	switch {
	case convErr == nil:
		msg := fmt.Sprintf("id=%s caller=%s token=%s in=%s out=%s",
			id, req.Caller.Hex(), req.Token.Hex(), req.Amount.String(), receipt.RealizedOutput.String())
		_ = s.notifier.Notify(ctx, notify.EventConversionSettled, "Conversion settled", msg)
	case errors.Is(convErr, domain.ErrSettlementRejected):
		// Requires manual follow-up: proceeds sit in the bridge wallet.
		msg := fmt.Sprintf("id=%s caller=%s swap_tx=%s error=%v",
			id, req.Caller.Hex(), receipt.SwapTxHash, convErr)
		_ = s.notifier.Notify(ctx, notify.EventSettlementRejected, "Settlement rejected after swap", msg)
	case errors.Is(convErr, domain.ErrNotOperational):
		msg := fmt.Sprintf("id=%s caller=%s: %v", id, req.Caller.Hex(), convErr)
		_ = s.notifier.Notify(ctx, notify.EventBridgeDegraded, "Bridge not operational", msg)
	}
}

// History returns a caller's recorded conversions, newest first.
func (s *ConversionService) History(ctx context.Context, caller common.Address, limit, offset int) ([]domain.ConversionRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListByCaller(ctx, caller, limit, offset)
}

// Get returns a single recorded conversion.
func (s *ConversionService) Get(ctx context.Context, id string) (domain.ConversionRecord, error) {
	if s.store == nil {
		return domain.ConversionRecord{}, domain.ErrNotFound
	}
	return s.store.Get(ctx, id)
}
