package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/archive"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedArchives indexes two "outros" results and three of other types.
func seedArchives(t *testing.T, f *fixture) {
	t.Helper()
	day := func(d int) time.Time { return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC) }
	docs := []archive.Document{
		{ID: "o1", UserID: "u1", TestType: "outros", TestID: "t1", CompletedAt: day(1), Status: "completed", Score: ptr(80)},
		{ID: "o2", UserID: "u2", TestType: "outros", TestID: "t1", CompletedAt: day(2), Status: "incomplete"},
		{ID: "p1", UserID: "u1", TestType: "personalidade", TestID: "t2", CompletedAt: day(3), Status: "completed", Score: ptr(60)},
		{ID: "p2", UserID: "u3", TestType: "personalidade", TestID: "t2", CompletedAt: day(4), Status: "completed", Score: ptr(71)},
		{ID: "s1", UserID: "u2", TestType: "psicossociais", TestID: "t3", CompletedAt: day(5), Status: "incomplete", Score: ptr(40)},
	}
	result := f.archives.ArchiveMany(context.Background(), docs, archiveOpts)
	require.Empty(t, result.Failures)
}

func TestSearchLimitKeepsTotalCount(t *testing.T) {
	f := newFixture(t)
	seedArchives(t, f)

	resp, err := f.retrieval.Search(context.Background(), dto.ArchiveSearchQuery{TestType: "outros", Limit: "1"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.EqualValues(t, 2, resp.TotalCount)
	// Newest first.
	assert.Equal(t, "o2", resp.Results[0].ID)
	assert.Equal(t, "outros/u2/t1/o2.json", resp.Results[0].FilePath)

	next, err := f.retrieval.Search(context.Background(), dto.ArchiveSearchQuery{TestType: "outros", Limit: "1", Offset: "1"})
	require.NoError(t, err)
	require.Len(t, next.Results, 1)
	assert.Equal(t, "o1", next.Results[0].ID)
}

func TestSearchFilters(t *testing.T) {
	f := newFixture(t)
	seedArchives(t, f)

	tests := []struct {
		name  string
		query dto.ArchiveSearchQuery
		want  []string
	}{
		{"by user", dto.ArchiveSearchQuery{UserID: "u1"}, []string{"p1", "o1"}},
		{"by status", dto.ArchiveSearchQuery{Status: "incomplete"}, []string{"s1", "o2"}},
		{"by test", dto.ArchiveSearchQuery{TestID: "t2"}, []string{"p2", "p1"}},
		{"date range inclusive", dto.ArchiveSearchQuery{DateFrom: "2024-03-02", DateTo: "2024-03-04"}, []string{"p2", "p1", "o2"}},
		{"timestamp bound includes itself", dto.ArchiveSearchQuery{DateTo: "2024-03-01T12:00:00Z"}, []string{"o1"}},
		{"no match", dto.ArchiveSearchQuery{UserID: "nobody"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.retrieval.Search(context.Background(), tt.query)
			require.NoError(t, err)
			ids := []string{}
			for _, r := range resp.Results {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
			assert.EqualValues(t, len(tt.want), resp.TotalCount)
		})
	}
}

func TestParseCriteriaRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		query dto.ArchiveSearchQuery
		code  string
	}{
		{"test type", dto.ArchiveSearchQuery{TestType: "quiz"}, "invalid_test_type"},
		{"status", dto.ArchiveSearchQuery{Status: "done"}, "invalid_status"},
		{"date from", dto.ArchiveSearchQuery{DateFrom: "yesterday"}, "invalid_date_from"},
		{"date to", dto.ArchiveSearchQuery{DateTo: "03/01/2024"}, "invalid_date_to"},
		{"reversed range", dto.ArchiveSearchQuery{DateFrom: "2024-03-05", DateTo: "2024-03-01"}, "invalid_date_range"},
		{"negative limit", dto.ArchiveSearchQuery{Limit: "-1"}, "invalid_limit"},
		{"text offset", dto.ArchiveSearchQuery{Offset: "ten"}, "invalid_offset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCriteria(tt.query, DefaultSearchLimit, MaxSearchLimit)
			requireAppErr(t, err, apperr.KindValidation, tt.code)
		})
	}
}

func TestParseCriteriaLimits(t *testing.T) {
	f, err := ParseCriteria(dto.ArchiveSearchQuery{}, DefaultSearchLimit, MaxSearchLimit)
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchLimit, f.Limit)

	f, err = ParseCriteria(dto.ArchiveSearchQuery{Limit: "5000"}, DefaultSearchLimit, MaxSearchLimit)
	require.NoError(t, err)
	assert.Equal(t, MaxSearchLimit, f.Limit)

	f, err = ParseCriteria(dto.ArchiveSearchQuery{}, MaxExportLimit, MaxExportLimit)
	require.NoError(t, err)
	assert.Equal(t, MaxExportLimit, f.Limit)
}

func TestExportCSVMatchesSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedArchives(t, f)
	svc := f.retrieval.(*retrievalService)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC) }

	q := dto.ArchiveSearchQuery{UserID: "u2"}
	file, err := f.retrieval.Export(ctx, "csv", q)
	require.NoError(t, err)
	assert.Equal(t, "archives-20240601T083000Z.csv", file.FileName)
	assert.Contains(t, file.ContentType, "text/csv")

	rows, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CSVColumns, rows[0])

	search, err := f.retrieval.Search(ctx, q)
	require.NoError(t, err)
	for i, r := range search.Results {
		assert.Equal(t, r.ID, rows[i+1][0])
		assert.Equal(t, r.FilePath, rows[i+1][8])
	}
	assert.Equal(t, "40", rows[1][5])
	assert.Equal(t, "", rows[2][5])
}

func TestExportJSON(t *testing.T) {
	f := newFixture(t)
	seedArchives(t, f)

	for _, format := range []string{"json", ""} {
		file, err := f.retrieval.Export(context.Background(), format, dto.ArchiveSearchQuery{TestType: "personalidade"})
		require.NoError(t, err)
		assert.Equal(t, "application/json", file.ContentType)

		var export dto.ArchiveExportDTO
		require.NoError(t, json.Unmarshal(file.Body, &export))
		assert.EqualValues(t, 2, export.TotalCount)
		assert.Len(t, export.Results, 2)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	f := newFixture(t)
	_, err := f.retrieval.Export(context.Background(), "xml", dto.ArchiveSearchQuery{})
	requireAppErr(t, err, apperr.KindValidation, "unsupported_format")
}

func TestArchiveStatistics(t *testing.T) {
	f := newFixture(t)
	seedArchives(t, f)

	stats, err := f.retrieval.ArchiveStatistics(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, stats.TotalArchives)
	assert.Equal(t, map[string]int64{"outros": 2, "personalidade": 2, "psicossociais": 1}, stats.ByTestType)
	assert.Equal(t, map[string]int64{"completed": 3, "incomplete": 2}, stats.ByStatus)
	assert.EqualValues(t, 3, stats.DistinctUsers)
	require.NotNil(t, stats.OldestResult)
	require.NotNil(t, stats.NewestResult)
	assert.True(t, stats.OldestResult.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.True(t, stats.NewestResult.Equal(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)))
}

func TestResultStatisticsSkipsUnscored(t *testing.T) {
	f := newFixture(t)
	seedArchives(t, f)

	stats, err := f.retrieval.ResultStatistics(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, stats.TotalTests)
	assert.EqualValues(t, 3, stats.CompletedTests)
	assert.EqualValues(t, 2, stats.IncompleteTests)
	assert.EqualValues(t, 4, stats.ScoredTests)
	require.NotNil(t, stats.AverageScore)
	assert.Equal(t, 62.75, *stats.AverageScore)

	require.Contains(t, stats.AverageScoreByTestType, "outros")
	assert.Equal(t, 80.0, *stats.AverageScoreByTestType["outros"])
	assert.Equal(t, 65.5, *stats.AverageScoreByTestType["personalidade"])
}

func TestStatisticsOnEmptyIndex(t *testing.T) {
	f := newFixture(t)

	stats, err := f.retrieval.ResultStatistics(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stats.AverageScore)
	assert.Empty(t, stats.AverageScoreByTestType)

	archiveStats, err := f.retrieval.ArchiveStatistics(context.Background())
	require.NoError(t, err)
	assert.Nil(t, archiveStats.OldestResult)
	assert.Zero(t, archiveStats.TotalArchives)
}
