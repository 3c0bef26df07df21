package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/archive"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/humaniq-ai/humaniq-core/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// archiveConcurrency bounds blob store calls in ArchiveMany and rebuilds.
const archiveConcurrency = 8

type ArchiveOptions struct {
	AutoIndex         bool
	CreateDirectories bool
	Overwrite         bool
}

type ArchiveFailure struct {
	ID  string
	Err error
}

type BulkArchiveResult struct {
	ArchivedPaths []string
	Failures      []ArchiveFailure
}

type RebuildReport struct {
	Indexed int
	Skipped int
}

type ArchiveService interface {
	// Archive writes doc at the path derived from its key and returns that path.
	Archive(ctx context.Context, doc archive.Document, opts ArchiveOptions) (string, error)
	// ArchiveMany archives every document; one failure never stops the rest.
	// Paths and failures keep the input order.
	ArchiveMany(ctx context.Context, docs []archive.Document, opts ArchiveOptions) BulkArchiveResult
	// RebuildAllIndexes replaces the index with one built from a full scan
	// of the store. Only one rebuild runs at a time, and archive writes wait
	// for it to finish.
	RebuildAllIndexes(ctx context.Context) (*RebuildReport, error)
}

type archiveService struct {
	store     archive.BlobStore
	indexRepo repository.ArchiveIndexRepository
	rebuild   sync.Mutex
	// writes is held shared by each store write plus its index update and
	// exclusively by a rebuild, so no write lands between scan and swap.
	writes    sync.RWMutex
	now       func() time.Time
}

func NewArchiveService(store archive.BlobStore, indexRepo repository.ArchiveIndexRepository) ArchiveService {
	return &archiveService{store: store, indexRepo: indexRepo, now: utcNow}
}

func validateDocument(doc archive.Document) error {
	if err := doc.Key().Validate(); err != nil {
		return apperr.Validation("invalid_key", "%s", err.Error())
	}
	if !model.ValidTestType(doc.TestType) {
		return apperr.Validation("invalid_test_type", "unknown test type %q", doc.TestType)
	}
	if !model.ValidResultStatus(doc.Status) {
		return apperr.Validation("invalid_status", "unknown status %q", doc.Status)
	}
	if doc.CompletedAt.IsZero() {
		return apperr.Validation("invalid_completed_at", "completedAt is required")
	}
	if doc.Score != nil && (math.IsNaN(*doc.Score) || math.IsInf(*doc.Score, 0)) {
		return apperr.Validation("invalid_score", "score must be a finite number")
	}
	return nil
}

func (s *archiveService) Archive(ctx context.Context, doc archive.Document, opts ArchiveOptions) (string, error) {
	if err := validateDocument(doc); err != nil {
		return "", err
	}
	key := doc.Key()
	path := key.Path()
	doc.CompletedAt = doc.CompletedAt.UTC()
	doc.ArchivedAt = s.now()

	data, err := archive.Encode(doc)
	if err != nil {
		return "", apperr.Internal("failed to encode archive document", err)
	}

	s.writes.RLock()
	defer s.writes.RUnlock()

	err = s.store.Put(ctx, path, data, archive.PutOptions{
		Overwrite:         opts.Overwrite,
		CreateDirectories: opts.CreateDirectories,
	})
	switch {
	case errors.Is(err, archive.ErrExists):
		return "", apperr.Conflict("already_exists", "result %s is already archived", doc.ID)
	case errors.Is(err, archive.ErrNoParent):
		return "", apperr.Validation("missing_directory", "archive directory for result %s does not exist", doc.ID)
	case err != nil:
		log.Error().Err(err).Str("resultID", doc.ID).Str("path", path).Msg("Archive: Failed to write archive document")
		return "", apperr.Internal("failed to write archive document", err)
	}

	if opts.AutoIndex {
		entry := indexEntry(doc, path)
		if err := s.indexRepo.Upsert(ctx, &entry); err != nil {
			if opts.Overwrite {
				// The previous document is gone already; a rebuild re-indexes this one.
				log.Error().Err(err).Str("resultID", doc.ID).Str("path", path).Msg("Archive: Document overwritten but index update failed, rebuild indexes to repair")
				return "", apperr.Internal("failed to update archive index", err)
			}
			log.Error().Err(err).Str("resultID", doc.ID).Str("path", path).Msg("Archive: Index update failed, removing written document")
			if delErr := s.store.Delete(ctx, path); delErr != nil {
				log.Error().Err(delErr).Str("path", path).Msg("Archive: Failed to remove unindexed document, rebuild indexes to repair")
			}
			return "", apperr.Internal("failed to update archive index", err)
		}
	}

	log.Info().Str("resultID", doc.ID).Str("path", path).Bool("overwrite", opts.Overwrite).Msg("Archive: Result archived")
	return path, nil
}

func (s *archiveService) ArchiveMany(ctx context.Context, docs []archive.Document, opts ArchiveOptions) BulkArchiveResult {
	paths := make([]string, len(docs))
	errs := make([]error, len(docs))

	var g errgroup.Group
	g.SetLimit(archiveConcurrency)
	for i := range docs {
		g.Go(func() error {
			paths[i], errs[i] = s.Archive(ctx, docs[i], opts)
			return nil
		})
	}
	g.Wait()

	result := BulkArchiveResult{ArchivedPaths: []string{}, Failures: []ArchiveFailure{}}
	for i, err := range errs {
		if err != nil {
			result.Failures = append(result.Failures, ArchiveFailure{ID: docs[i].ID, Err: err})
			continue
		}
		result.ArchivedPaths = append(result.ArchivedPaths, paths[i])
	}
	log.Info().
		Int("archived", len(result.ArchivedPaths)).
		Int("failed", len(result.Failures)).
		Msg("ArchiveMany: Batch processed")
	return result
}

func (s *archiveService) RebuildAllIndexes(ctx context.Context) (*RebuildReport, error) {
	if !s.rebuild.TryLock() {
		return nil, apperr.Conflict("rebuild_in_progress", "an index rebuild is already running")
	}
	defer s.rebuild.Unlock()
	s.writes.Lock()
	defer s.writes.Unlock()

	var paths []string
	if err := s.store.Walk(ctx, func(path string) error {
		paths = append(paths, path)
		return nil
	}); err != nil {
		log.Error().Err(err).Msg("RebuildAllIndexes: Failed to scan archive store")
		return nil, apperr.Internal("failed to scan archive store", err)
	}

	entries := make([]*model.ArchiveIndexEntry, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(archiveConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			data, err := s.store.Get(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Str("path", path).Msg("RebuildAllIndexes: Skipping unreadable document")
				return nil
			}
			doc, err := archive.Decode(data)
			if err == nil {
				err = validateDocument(doc)
			}
			if err == nil && doc.Key().Path() != path {
				err = errors.New("document key does not match its path")
			}
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("RebuildAllIndexes: Skipping invalid document")
				return nil
			}
			entry := indexEntry(doc, path)
			entries[i] = &entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("index rebuild interrupted", err)
	}

	report := &RebuildReport{}
	valid := make([]model.ArchiveIndexEntry, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			report.Skipped++
			continue
		}
		valid = append(valid, *e)
	}
	report.Indexed = len(valid)

	if err := s.indexRepo.ReplaceAll(ctx, valid); err != nil {
		log.Error().Err(err).Msg("RebuildAllIndexes: Failed to replace index")
		return nil, apperr.Internal("failed to replace archive index", err)
	}
	log.Info().Int("indexed", report.Indexed).Int("skipped", report.Skipped).Msg("RebuildAllIndexes: Index rebuilt")
	return report, nil
}

func indexEntry(doc archive.Document, path string) model.ArchiveIndexEntry {
	key := doc.Key()
	return model.ArchiveIndexEntry{
		Key:         key.Digest(),
		ResultID:    doc.ID,
		UserID:      doc.UserID,
		TestType:    doc.TestType,
		TestID:      doc.TestID,
		CompletedAt: doc.CompletedAt.UTC(),
		Status:      doc.Status,
		Score:       doc.Score,
		Metadata:    datatypes.JSONMap(doc.Metadata),
		Path:        path,
		ArchivedAt:  doc.ArchivedAt.UTC(),
	}
}
