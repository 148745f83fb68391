package domain

import (
	"context"
	"io"
)

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports aged conversion records to blob storage and marks them
// archived in the store.
type Archiver interface {
	// ArchiveConversions archives settled records older than retentionDays
	// and returns how many were exported.
	ArchiveConversions(ctx context.Context, retentionDays int) (int, error)
}
