package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

// archiveBatchSize bounds how many records one export batch carries.
const archiveBatchSize = 1000

// ArchiveStore provides the read and update access the archiver needs. The
// Postgres ConversionStore satisfies it.
type ArchiveStore interface {
	ListSettledBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.ConversionRecord, error)
	MarkArchived(ctx context.Context, ids []string) error
}

// Archiver implements domain.Archiver by querying the conversion store for
// aged settled records, serializing them to JSONL, and uploading the result
// to S3. Exported records are flipped to the archived status, not deleted.
type Archiver struct {
	writer domain.BlobWriter
	store  ArchiveStore
	logger *slog.Logger
	now    func() time.Time
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, store ArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		store:  store,
		logger: logger.With("component", "archiver"),
		now:    time.Now,
	}
}

// archiveRecord is the JSONL shape of an exported conversion.
type archiveRecord struct {
	ID             string     `json:"id"`
	Caller         string     `json:"caller"`
	Token          string     `json:"token"`
	InputAmount    string     `json:"input_amount"`
	MinimumOutput  string     `json:"minimum_output,omitempty"`
	RealizedOutput string     `json:"realized_output,omitempty"`
	FeeTier        uint32     `json:"fee_tier"`
	CampaignID     string     `json:"campaign_id,omitempty"`
	ProjectID      string     `json:"project_id,omitempty"`
	Status         string     `json:"status"`
	SwapTxHash     string     `json:"swap_tx_hash,omitempty"`
	SettlementRef  string     `json:"settlement_ref,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	SettledAt      *time.Time `json:"settled_at,omitempty"`
}

func bigToString(n *big.Int) string {
	if n == nil {
		return ""
	}
	return n.String()
}

func toArchiveRecord(rec domain.ConversionRecord) archiveRecord {
	return archiveRecord{
		ID:             rec.ID,
		Caller:         strings.ToLower(rec.Caller.Hex()),
		Token:          strings.ToLower(rec.Token.Hex()),
		InputAmount:    bigToString(rec.InputAmount),
		MinimumOutput:  bigToString(rec.MinimumOutput),
		RealizedOutput: bigToString(rec.RealizedOutput),
		FeeTier:        rec.FeeTier,
		CampaignID:     bigToString(rec.CampaignID),
		ProjectID:      bigToString(rec.ProjectID),
		Status:         rec.Status,
		SwapTxHash:     rec.SwapTxHash,
		SettlementRef:  rec.SettlementRef,
		CreatedAt:      rec.CreatedAt,
		SettledAt:      rec.SettledAt,
	}
}

// ArchiveConversions exports settled conversions older than retentionDays to
// S3 as JSONL, one batch per object, marking each batch archived after a
// successful upload. It returns the total number of records exported.
func (a *Archiver) ArchiveConversions(ctx context.Context, retentionDays int) (int, error) {
	cutoff := a.now().UTC().AddDate(0, 0, -retentionDays)
	total := 0

	for batch := 0; ; batch++ {
		recs, err := a.store.ListSettledBefore(ctx, cutoff, archiveBatchSize)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive conversions query: %w", err)
		}
		if len(recs) == 0 {
			return total, nil
		}

		buf, err := marshalJSONL(recs)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive conversions marshal: %w", err)
		}

		path := archivePath(cutoff, a.now(), batch)
		if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return total, fmt.Errorf("s3blob: archive conversions upload: %w", err)
		}

		ids := make([]string, len(recs))
		for i, rec := range recs {
			ids[i] = rec.ID
		}
		if err := a.store.MarkArchived(ctx, ids); err != nil {
			// The batch is already uploaded; surfacing the error lets the
			// caller retry, and re-uploading the same records is harmless.
			return total, fmt.Errorf("s3blob: mark conversions archived: %w", err)
		}

		total += len(recs)
		a.logger.Info("archived conversion batch",
			"path", path,
			"count", len(recs),
			"cutoff", cutoff.Format(time.RFC3339),
		)

		if len(recs) < archiveBatchSize {
			return total, nil
		}
	}
}

// archivePath builds the S3 key for an export, partitioned by the cutoff
// year-month. The upload timestamp plus batch index keeps keys distinct even
// when several batches land within the same second.
//
//	archive/conversions/2026-05/20260830T120000Z-0000.jsonl
func archivePath(cutoff, uploadedAt time.Time, batch int) string {
	return fmt.Sprintf("archive/conversions/%s/%s-%04d.jsonl",
		cutoff.Format("2006-01"),
		uploadedAt.UTC().Format("20060102T150405Z"),
		batch,
	)
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// object per line.
func marshalJSONL(recs []domain.ConversionRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range recs {
		if err := enc.Encode(toArchiveRecord(rec)); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
