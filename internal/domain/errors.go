package domain

import "errors"

// Bridge failure kinds. Each is terminal for the call that produced it; the
// bridge never retries internally because retrying a swap with stale
// parameters risks double-spending allowance or resubmitting against moved
// market state.
var (
	// ErrNotOperational means the bridge configuration is incomplete or no
	// configured fee tier currently meets the liquidity threshold.
	ErrNotOperational = errors.New("bridge not operational")

	// ErrNoViablePool means every configured fee tier was rejected by the
	// existence/liquidity filter.
	ErrNoViablePool = errors.New("no viable pool")

	// ErrQuoteUnavailable means the venue quote call failed transiently.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrSlippageExceeded means the realized swap output fell below the
	// enforced minimum. No settlement call is made in this case.
	ErrSlippageExceeded = errors.New("slippage exceeded")

	// ErrSettlementRejected means the settlement ledger refused the forwarded
	// contribution after the swap itself settled. Funds have already been
	// converted when this is returned.
	ErrSettlementRejected = errors.New("settlement rejected")

	// ErrTimeout means a confirmation wait exceeded its bound before the swap
	// was submitted.
	ErrTimeout = errors.New("confirmation timeout")

	// ErrConversionInFlight means another conversion for the same caller is
	// currently executing. Conversions per caller are single-slot.
	ErrConversionInFlight = errors.New("conversion already in flight")
)

// Infrastructure sentinels.
var (
	ErrNotFound = errors.New("not found")
	ErrLockHeld = errors.New("lock already held")
)
