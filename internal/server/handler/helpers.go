// Package handler contains the HTTP handlers for the bridge API.
package handler

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseAddress validates and parses a hex address parameter.
func parseAddress(name, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s: %q is not a valid address", name, value)
	}
	return common.HexToAddress(value), nil
}

// parseAmount parses a positive decimal integer amount in base units.
func parseAmount(name, value string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("%s: %q is not a decimal integer", name, value)
	}
	if n.Sign() <= 0 {
		return nil, fmt.Errorf("%s must be positive", name)
	}
	return n, nil
}

// parseID parses a non-negative decimal ledger identifier. Campaign and
// project numbering starts at zero on chain.
func parseID(name, value string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("%s: %q is not a decimal integer", name, value)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("%s must not be negative", name)
	}
	return n, nil
}

// parseFeeTier parses an optional fee tier query parameter. An empty value
// returns zero, meaning no tier restriction.
func parseFeeTier(value string) (uint32, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("fee_tier: %q is not a number", value)
	}
	return uint32(n), nil
}

// parseBypassCode parses an optional 32-byte hex bypass code.
func parseBypassCode(value string) ([32]byte, error) {
	var code [32]byte
	if value == "" {
		return code, nil
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return code, fmt.Errorf("bypass_code: invalid hex: %v", err)
	}
	if len(raw) != 32 {
		return code, fmt.Errorf("bypass_code: expected 32 bytes, got %d", len(raw))
	}
	copy(code[:], raw)
	return code, nil
}

// parsePagination extracts limit/offset query parameters.
// Defaults: limit=50 (max 500), offset=0.
func parsePagination(r *http.Request) (limit, offset int) {
	q := r.URL.Query()

	limit = 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
