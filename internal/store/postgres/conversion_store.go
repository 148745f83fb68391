package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

// ConversionStore implements domain.ConversionStore using PostgreSQL.
// Amounts are stored as NUMERIC(78,0), wide enough for any uint256 value.
type ConversionStore struct {
	pool *pgxpool.Pool
}

// NewConversionStore creates a ConversionStore backed by the given pool.
func NewConversionStore(pool *pgxpool.Pool) *ConversionStore {
	return &ConversionStore{pool: pool}
}

const conversionSelectCols = `id, caller, token, input_amount::text, minimum_output::text,
	realized_output::text, fee_tier, campaign_id::text, project_id::text,
	status, failure_kind, swap_tx_hash, settlement_ref, created_at, settled_at`

// numericArg renders a *big.Int for a NUMERIC column, passing NULL for nil.
func numericArg(n *big.Int) any {
	if n == nil {
		return nil
	}
	return n.String()
}

// parseNumeric converts a NUMERIC::text column back to *big.Int. NULL columns
// come back as nil.
func parseNumeric(s *string) (*big.Int, error) {
	if s == nil {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return nil, fmt.Errorf("postgres: malformed numeric %q", *s)
	}
	return n, nil
}

func scanConversionRow(row pgx.Row) (domain.ConversionRecord, error) {
	var (
		rec                                  domain.ConversionRecord
		caller, token                        string
		inputAmt                             string
		minOut, realized, campaign, project  *string
		feeTier                              int32
	)
	err := row.Scan(
		&rec.ID, &caller, &token, &inputAmt, &minOut,
		&realized, &feeTier, &campaign, &project,
		&rec.Status, &rec.FailureKind, &rec.SwapTxHash, &rec.SettlementRef,
		&rec.CreatedAt, &rec.SettledAt,
	)
	if err != nil {
		return domain.ConversionRecord{}, err
	}

	rec.Caller = common.HexToAddress(caller)
	rec.Token = common.HexToAddress(token)
	rec.FeeTier = uint32(feeTier)

	if rec.InputAmount, err = parseNumeric(&inputAmt); err != nil {
		return domain.ConversionRecord{}, err
	}
	if rec.MinimumOutput, err = parseNumeric(minOut); err != nil {
		return domain.ConversionRecord{}, err
	}
	if rec.RealizedOutput, err = parseNumeric(realized); err != nil {
		return domain.ConversionRecord{}, err
	}
	if rec.CampaignID, err = parseNumeric(campaign); err != nil {
		return domain.ConversionRecord{}, err
	}
	if rec.ProjectID, err = parseNumeric(project); err != nil {
		return domain.ConversionRecord{}, err
	}
	return rec, nil
}

func scanConversionRows(rows pgx.Rows) ([]domain.ConversionRecord, error) {
	var recs []domain.ConversionRecord
	for rows.Next() {
		rec, err := scanConversionRow(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Create inserts a new conversion record.
func (s *ConversionStore) Create(ctx context.Context, rec domain.ConversionRecord) error {
	const query = `
		INSERT INTO conversions (
			id, caller, token, input_amount, minimum_output,
			realized_output, fee_tier, campaign_id, project_id,
			status, failure_kind, swap_tx_hash, settlement_ref,
			created_at, settled_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15
		)`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, query,
		rec.ID,
		strings.ToLower(rec.Caller.Hex()),
		strings.ToLower(rec.Token.Hex()),
		numericArg(rec.InputAmount),
		numericArg(rec.MinimumOutput),
		numericArg(rec.RealizedOutput),
		int32(rec.FeeTier),
		numericArg(rec.CampaignID),
		numericArg(rec.ProjectID),
		rec.Status,
		rec.FailureKind,
		rec.SwapTxHash,
		rec.SettlementRef,
		createdAt,
		rec.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create conversion %s: %w", rec.ID, err)
	}
	return nil
}

// Finish updates the outcome fields of an existing record.
func (s *ConversionStore) Finish(ctx context.Context, id string, rec domain.ConversionRecord) error {
	const query = `
		UPDATE conversions SET
			minimum_output = $2,
			realized_output = $3,
			fee_tier = $4,
			status = $5,
			failure_kind = $6,
			swap_tx_hash = $7,
			settlement_ref = $8,
			settled_at = $9
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		id,
		numericArg(rec.MinimumOutput),
		numericArg(rec.RealizedOutput),
		int32(rec.FeeTier),
		rec.Status,
		rec.FailureKind,
		rec.SwapTxHash,
		rec.SettlementRef,
		rec.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: finish conversion %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get returns a single conversion record by ID.
func (s *ConversionStore) Get(ctx context.Context, id string) (domain.ConversionRecord, error) {
	query := `SELECT ` + conversionSelectCols + ` FROM conversions WHERE id = $1`
	rec, err := scanConversionRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ConversionRecord{}, domain.ErrNotFound
		}
		return domain.ConversionRecord{}, fmt.Errorf("postgres: get conversion %s: %w", id, err)
	}
	return rec, nil
}

// ListByCaller returns a caller's conversions, newest first.
func (s *ConversionStore) ListByCaller(ctx context.Context, caller common.Address, limit, offset int) ([]domain.ConversionRecord, error) {
	query := `SELECT ` + conversionSelectCols + ` FROM conversions
		WHERE caller = $1 ORDER BY created_at DESC`
	args := []any{strings.ToLower(caller.Hex())}
	argIdx := 2

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
		argIdx++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list conversions by caller: %w", err)
	}
	defer rows.Close()

	recs, err := scanConversionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan conversions by caller: %w", err)
	}
	return recs, nil
}

// ListSettledBefore returns settled records older than cutoff, oldest first,
// for archival.
func (s *ConversionStore) ListSettledBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.ConversionRecord, error) {
	query := `SELECT ` + conversionSelectCols + ` FROM conversions
		WHERE status = $1 AND settled_at IS NOT NULL AND settled_at < $2
		ORDER BY settled_at ASC`
	args := []any{domain.ConversionSettled, cutoff}

	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settled conversions: %w", err)
	}
	defer rows.Close()

	recs, err := scanConversionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan settled conversions: %w", err)
	}
	return recs, nil
}

// MarkArchived flips the given records to the archived status.
func (s *ConversionStore) MarkArchived(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE conversions SET status = $1 WHERE id = ANY($2)`,
		domain.ConversionArchived, ids,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark conversions archived: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ConversionStore = (*ConversionStore)(nil)
