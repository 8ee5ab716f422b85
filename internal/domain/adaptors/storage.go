package adaptors

import (
	"context"
	"errors"

	"site_auditor/internal/domain/models"
)

var ErrNotFound = errors.New("not found")

type RecordRepository interface {
	Upsert(ctx context.Context, record *models.AnalysisRecord) error
	Get(ctx context.Context, id string) (*models.AnalysisRecord, error)
}

// ObjectStore keeps binary assets. Put returns a reference that Get accepts.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// ResponseCache stores judgment responses keyed by request fingerprint.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
}
