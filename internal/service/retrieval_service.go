package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/humaniq-ai/humaniq-core/internal/repository"
	"github.com/humaniq-ai/humaniq-core/internal/scoring"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 1000
	MaxExportLimit     = 10000
)

const (
	ExportFormatCSV  = "csv"
	ExportFormatJSON = "json"
)

// CSVColumns is the fixed column order of CSV exports.
var CSVColumns = []string{"id", "userId", "testType", "testId", "status", "score", "completedAt", "archivedAt", "filePath"}

type ExportFile struct {
	ContentType string
	FileName    string
	Body        []byte
}

type RetrievalService interface {
	Search(ctx context.Context, q dto.ArchiveSearchQuery) (*dto.ArchiveSearchResponseDTO, error)
	// Export renders the search result in format ("csv" or "json") with the
	// export limit cap.
	Export(ctx context.Context, format string, q dto.ArchiveSearchQuery) (*ExportFile, error)
	ArchiveStatistics(ctx context.Context) (*dto.ArchiveStatsDTO, error)
	ResultStatistics(ctx context.Context) (*dto.ResultStatsDTO, error)
}

type retrievalService struct {
	indexRepo repository.ArchiveIndexRepository
	now       func() time.Time
}

func NewRetrievalService(indexRepo repository.ArchiveIndexRepository) RetrievalService {
	return &retrievalService{indexRepo: indexRepo, now: utcNow}
}

// ParseCriteria validates q into an index filter. limitCap bounds the limit;
// the search default applies when no limit is given.
func ParseCriteria(q dto.ArchiveSearchQuery, defaultLimit, limitCap int) (repository.ArchiveFilter, error) {
	f := repository.ArchiveFilter{
		ID:       strings.TrimSpace(q.ID),
		UserID:   strings.TrimSpace(q.UserID),
		TestType: strings.TrimSpace(q.TestType),
		TestID:   strings.TrimSpace(q.TestID),
		Status:   strings.TrimSpace(q.Status),
		Limit:    defaultLimit,
	}
	if f.TestType != "" && !model.ValidTestType(f.TestType) {
		return f, apperr.Validation("invalid_test_type", "unknown test type %q", f.TestType)
	}
	if f.Status != "" && !model.ValidResultStatus(f.Status) {
		return f, apperr.Validation("invalid_status", "unknown status %q", f.Status)
	}

	if q.DateFrom != "" {
		from, _, err := parseDate(q.DateFrom)
		if err != nil {
			return f, apperr.Validation("invalid_date_from", "dateFrom must be RFC3339 or YYYY-MM-DD")
		}
		f.DateFrom = &from
	}
	if q.DateTo != "" {
		to, dateOnly, err := parseDate(q.DateTo)
		if err != nil {
			return f, apperr.Validation("invalid_date_to", "dateTo must be RFC3339 or YYYY-MM-DD")
		}
		// The filter bound is exclusive: a bare date covers the whole day and
		// a timestamp includes itself at the store's microsecond precision.
		if dateOnly {
			to = to.AddDate(0, 0, 1)
		} else {
			to = to.Add(time.Microsecond)
		}
		f.DateTo = &to
	}
	if f.DateFrom != nil && f.DateTo != nil && !f.DateFrom.Before(*f.DateTo) {
		return f, apperr.Validation("invalid_date_range", "dateFrom must not be after dateTo")
	}

	if q.Limit != "" {
		n, err := strconv.Atoi(strings.TrimSpace(q.Limit))
		if err != nil || n < 0 {
			return f, apperr.Validation("invalid_limit", "limit must be a non-negative integer")
		}
		if n > 0 {
			f.Limit = n
		}
	}
	if f.Limit > limitCap {
		f.Limit = limitCap
	}
	if q.Offset != "" {
		n, err := strconv.Atoi(strings.TrimSpace(q.Offset))
		if err != nil || n < 0 {
			return f, apperr.Validation("invalid_offset", "offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}

func parseDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	return t.UTC(), false, err
}

func (s *retrievalService) Search(ctx context.Context, q dto.ArchiveSearchQuery) (*dto.ArchiveSearchResponseDTO, error) {
	f, err := ParseCriteria(q, DefaultSearchLimit, MaxSearchLimit)
	if err != nil {
		return nil, err
	}
	return s.search(ctx, f)
}

func (s *retrievalService) search(ctx context.Context, f repository.ArchiveFilter) (*dto.ArchiveSearchResponseDTO, error) {
	entries, total, err := s.indexRepo.Search(ctx, f)
	if err != nil {
		log.Error().Err(err).Interface("filter", f).Msg("Search: Index query failed")
		return nil, apperr.Internal("failed to search archives", err)
	}
	resp := &dto.ArchiveSearchResponseDTO{Results: make([]dto.ArchiveEntryDTO, 0, len(entries)), TotalCount: total}
	for _, e := range entries {
		resp.Results = append(resp.Results, entryResponse(e))
	}
	return resp, nil
}

func (s *retrievalService) Export(ctx context.Context, format string, q dto.ArchiveSearchQuery) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatJSON
	}
	if format != ExportFormatCSV && format != ExportFormatJSON {
		return nil, apperr.Validation("unsupported_format", "unsupported export format %q", format)
	}
	f, err := ParseCriteria(q, MaxExportLimit, MaxExportLimit)
	if err != nil {
		return nil, err
	}
	found, err := s.search(ctx, f)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stamp := now.Format("20060102T150405Z")
	if format == ExportFormatCSV {
		body, err := encodeCSV(found.Results)
		if err != nil {
			return nil, apperr.Internal("failed to encode csv export", err)
		}
		return &ExportFile{ContentType: "text/csv; charset=utf-8", FileName: "archives-" + stamp + ".csv", Body: body}, nil
	}

	body, err := json.MarshalIndent(dto.ArchiveExportDTO{
		Results:    found.Results,
		TotalCount: found.TotalCount,
		ExportedAt: now,
	}, "", "  ")
	if err != nil {
		return nil, apperr.Internal("failed to encode json export", err)
	}
	return &ExportFile{ContentType: "application/json", FileName: "archives-" + stamp + ".json", Body: body}, nil
}

func encodeCSV(rows []dto.ArchiveEntryDTO) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVColumns); err != nil {
		return nil, err
	}
	for _, r := range rows {
		score := ""
		if r.Score != nil {
			score = strconv.FormatFloat(*r.Score, 'f', -1, 64)
		}
		if err := w.Write([]string{
			r.ID,
			r.UserID,
			r.TestType,
			r.TestID,
			r.Status,
			score,
			r.CompletedAt.UTC().Format(time.RFC3339),
			r.ArchivedAt.UTC().Format(time.RFC3339),
			r.FilePath,
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (s *retrievalService) ArchiveStatistics(ctx context.Context) (*dto.ArchiveStatsDTO, error) {
	stats := &dto.ArchiveStatsDTO{ByTestType: map[string]int64{}, ByStatus: map[string]int64{}}
	var err error
	if stats.TotalArchives, err = s.indexRepo.Count(ctx); err != nil {
		return nil, apperr.Internal("failed to count archives", err)
	}
	byType, err := s.indexRepo.CountByColumn(ctx, "test_type")
	if err != nil {
		return nil, apperr.Internal("failed to group archives by test type", err)
	}
	for _, c := range byType {
		stats.ByTestType[c.Value] = c.Count
	}
	byStatus, err := s.indexRepo.CountByColumn(ctx, "status")
	if err != nil {
		return nil, apperr.Internal("failed to group archives by status", err)
	}
	for _, c := range byStatus {
		stats.ByStatus[c.Value] = c.Count
	}
	if stats.DistinctUsers, err = s.indexRepo.CountDistinctUsers(ctx); err != nil {
		return nil, apperr.Internal("failed to count users", err)
	}
	if stats.OldestResult, stats.NewestResult, err = s.indexRepo.CompletedAtRange(ctx); err != nil {
		return nil, apperr.Internal("failed to read completion range", err)
	}
	return stats, nil
}

// ResultStatistics leaves results without a score out of every average.
func (s *retrievalService) ResultStatistics(ctx context.Context) (*dto.ResultStatsDTO, error) {
	stats := &dto.ResultStatsDTO{AverageScoreByTestType: map[string]*float64{}}
	var err error
	if stats.TotalTests, err = s.indexRepo.Count(ctx); err != nil {
		return nil, apperr.Internal("failed to count results", err)
	}
	byStatus, err := s.indexRepo.CountByColumn(ctx, "status")
	if err != nil {
		return nil, apperr.Internal("failed to group results by status", err)
	}
	for _, c := range byStatus {
		switch c.Value {
		case model.ResultCompleted:
			stats.CompletedTests = c.Count
		case model.ResultIncomplete:
			stats.IncompleteTests = c.Count
		}
	}

	avg, scored, err := s.indexRepo.AverageScore(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to average scores", err)
	}
	stats.ScoredTests = scored
	if avg != nil && scored > 0 {
		v := scoring.Round2(*avg)
		stats.AverageScore = &v
	}

	byType, err := s.indexRepo.AverageScoreByTestType(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to average scores by test type", err)
	}
	for _, a := range byType {
		if a.Average == nil || a.Count == 0 {
			continue
		}
		v := scoring.Round2(*a.Average)
		stats.AverageScoreByTestType[a.Value] = &v
	}
	return stats, nil
}

func entryResponse(e model.ArchiveIndexEntry) dto.ArchiveEntryDTO {
	return dto.ArchiveEntryDTO{
		ID:          e.ResultID,
		UserID:      e.UserID,
		TestType:    e.TestType,
		TestID:      e.TestID,
		CompletedAt: e.CompletedAt.UTC(),
		Status:      e.Status,
		Score:       e.Score,
		Metadata:    map[string]any(e.Metadata),
		FilePath:    e.Path,
		ArchivedAt:  e.ArchivedAt.UTC(),
	}
}
