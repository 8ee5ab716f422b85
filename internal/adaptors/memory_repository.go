package adaptors

import (
	"context"
	"sync"

	domain "site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"

	json "github.com/json-iterator/go"
)

// MemoryRepository keeps records in process. Records are stored as encoded
// documents so callers never share state with the store.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: map[string][]byte{}}
}

func (m *MemoryRepository) Upsert(ctx context.Context, record *models.AnalysisRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, `failed to encode record`)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[record.ID] = doc
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	doc, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	var record models.AnalysisRecord
	if err := json.Unmarshal(doc, &record); err != nil {
		return nil, errors.Wrap(err, `failed to decode record`)
	}
	return &record, nil
}
