package persistence

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/queue"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Persister stores screenshots and analysis records. Every backend call goes
// through the shared queue.
type Persister struct {
	log   *log.Logger
	queue *queue.Queue
	store adaptors.ObjectStore
	repo  adaptors.RecordRepository
}

func NewPersister(log *log.Logger, q *queue.Queue, store adaptors.ObjectStore, repo adaptors.RecordRepository) *Persister {
	return &Persister{log: log, queue: q, store: store, repo: repo}
}

// SaveScreenshots uploads every screenshot of the successful pages and returns a
// copy of crawl where references replace the image bytes. Screenshots that could
// not be stored keep an empty reference; their errors are joined into a
// PersistenceError.
func (p *Persister) SaveScreenshots(ctx context.Context, runID string, crawl models.CrawlResult) (models.CrawlResult, error) {
	out := crawl
	out.Pages = make([]models.CrawledPage, len(crawl.Pages))

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	upload := func(path string, shot *models.Screenshot) *models.Screenshot {
		if shot == nil {
			return nil
		}
		stored := &models.Screenshot{Viewport: shot.Viewport}
		if len(shot.Data) == 0 {
			return stored
		}
		key := ScreenshotKey(runID, path, shot.Viewport)
		data := shot.Data
		g.Go(func() error {
			err := p.queue.Do(ctx, `put `+key, func(ctx context.Context) error {
				ref, err := p.store.Put(ctx, key, data, `image/png`)
				if err != nil {
					return err
				}
				mu.Lock()
				stored.Ref = ref
				mu.Unlock()
				return nil
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, errors.Wrap(err, fmt.Sprintf(`failed to store screenshot %s`, key)))
				mu.Unlock()
			}
			return nil
		})
		return stored
	}

	for i, page := range crawl.Pages {
		out.Pages[i] = page
		if !page.Success {
			continue
		}
		out.Pages[i].Desktop = upload(page.Path, page.Desktop)
		out.Pages[i].Mobile = upload(page.Path, page.Mobile)
	}
	_ = g.Wait()

	if len(errs) > 0 {
		p.log.WithContext(ctx).WithFields(log.Fields{
			`run_id`: runID,
			`failed`: len(errs),
		}).Warn(`some screenshots were not stored`)
		return out, errors.NewStageError(errors.KindPersistence, errors.Join(errs...))
	}
	return out, nil
}

// SaveRecord upserts the record. The returned status is also the one the caller
// should attach to the record.
func (p *Persister) SaveRecord(ctx context.Context, record *models.AnalysisRecord) (models.PersistenceStatus, error) {
	err := p.queue.Do(ctx, `upsert `+record.ID, func(ctx context.Context) error {
		return p.repo.Upsert(ctx, record)
	})
	if err != nil {
		p.log.WithContext(ctx).WithField(`run_id`, record.ID).WithError(err).Error(`failed to save analysis record`)
		return models.PersistenceStatus{Saved: false, Error: err.Error()}, err
	}
	return models.PersistenceStatus{Saved: true}, nil
}

// Load reads a previously saved record.
func (p *Persister) Load(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	var record *models.AnalysisRecord
	err := p.queue.Do(ctx, `get `+id, func(ctx context.Context) error {
		var err error
		record, err = p.repo.Get(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, adaptors.ErrNotFound) {
			return nil, adaptors.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

// ScreenshotKey is the object key of one screenshot.
func ScreenshotKey(runID, path string, viewport models.ViewportKind) string {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(path), `-`), `-`)
	if slug == `` {
		slug = `home`
	}
	return fmt.Sprintf(`screenshots/%s/%s-%s.png`, runID, slug, viewport)
}
