package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

type memWriter struct {
	objects map[string][]byte
	err     error
}

func (w *memWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if w.err != nil {
		return w.err
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if w.objects == nil {
		w.objects = map[string][]byte{}
	}
	w.objects[path] = buf
	return nil
}

type memStore struct {
	pending  []domain.ConversionRecord
	archived []string
	listErr  error
	markErr  error
}

func (s *memStore) ListSettledBefore(_ context.Context, _ time.Time, limit int) ([]domain.ConversionRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if limit > len(s.pending) {
		limit = len(s.pending)
	}
	return s.pending[:limit], nil
}

func (s *memStore) MarkArchived(_ context.Context, ids []string) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.archived = append(s.archived, ids...)
	s.pending = s.pending[len(ids):]
	return nil
}

func record(id string) domain.ConversionRecord {
	settled := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	return domain.ConversionRecord{
		ID:             id,
		Caller:         common.HexToAddress("0x4444444444444444444444444444444444444444"),
		Token:          common.HexToAddress("0x765DE816845861e75A25fCA122bb6898B8B1282a"),
		InputAmount:    big.NewInt(5_000),
		RealizedOutput: big.NewInt(4_900),
		FeeTier:        3000,
		CampaignID:     big.NewInt(7),
		Status:         domain.ConversionSettled,
		SwapTxHash:     "0xabc",
		CreatedAt:      settled.Add(-time.Minute),
		SettledAt:      &settled,
	}
}

func newTestArchiver(w *memWriter, s *memStore) *Archiver {
	a := NewArchiver(w, s, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestArchiveConversionsExportsAndMarks(t *testing.T) {
	w := &memWriter{}
	s := &memStore{pending: []domain.ConversionRecord{record("a"), record("b")}}

	n, err := newTestArchiver(w, s).ArchiveConversions(context.Background(), 90)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b"}, s.archived)

	require.Len(t, w.objects, 1)
	for path, body := range w.objects {
		// Partitioned by the cutoff month (2026-08-30 minus 90 days).
		assert.True(t, strings.HasPrefix(path, "archive/conversions/2026-06/"), path)
		assert.True(t, strings.HasSuffix(path, ".jsonl"), path)

		lines := bytes.Split(bytes.TrimSpace(body), []byte("\n"))
		require.Len(t, lines, 2)
		assert.Contains(t, string(lines[0]), `"id":"a"`)
		assert.Contains(t, string(lines[0]), `"input_amount":"5000"`)
		assert.Contains(t, string(lines[0]), `"caller":"0x4444444444444444444444444444444444444444"`)
	}
}

func TestArchiveConversionsNothingToDo(t *testing.T) {
	w := &memWriter{}
	s := &memStore{}

	n, err := newTestArchiver(w, s).ArchiveConversions(context.Background(), 90)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, w.objects)
}

func TestArchiveConversionsBatches(t *testing.T) {
	var pending []domain.ConversionRecord
	for i := range archiveBatchSize + 5 {
		pending = append(pending, record(fmt.Sprintf("rec-%d", i)))
	}
	w := &memWriter{}
	s := &memStore{pending: pending}

	n, err := newTestArchiver(w, s).ArchiveConversions(context.Background(), 30)

	require.NoError(t, err)
	assert.Equal(t, archiveBatchSize+5, n)
	// Two objects, distinct keys despite the frozen clock.
	assert.Len(t, w.objects, 2)
	assert.Empty(t, s.pending)
}

func TestArchiveConversionsUploadFailureStopsRun(t *testing.T) {
	w := &memWriter{err: errors.New("bucket gone")}
	s := &memStore{pending: []domain.ConversionRecord{record("a")}}

	n, err := newTestArchiver(w, s).ArchiveConversions(context.Background(), 90)

	require.Error(t, err)
	assert.Zero(t, n)
	// Nothing marked archived when the upload failed.
	assert.Empty(t, s.archived)
}

func TestArchiveConversionsMarkFailureSurfaces(t *testing.T) {
	w := &memWriter{}
	s := &memStore{pending: []domain.ConversionRecord{record("a")}, markErr: errors.New("db down")}

	_, err := newTestArchiver(w, s).ArchiveConversions(context.Background(), 90)
	assert.Error(t, err)
}
