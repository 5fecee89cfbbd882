package storage

import (
	"context"

	"baikuk-automation/models"
)

// ListingWriter is the interface any listing storage backend must satisfy.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}

// JobRecorder persists finished automation jobs.
type JobRecorder interface {
	RecordJob(ctx context.Context, job models.Job) error
	Close() error
}
