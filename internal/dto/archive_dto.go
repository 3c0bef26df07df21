package dto

import "time"

// ArchiveRequestDTO is one result to archive. Field names follow the
// archive document format.
type ArchiveRequestDTO struct {
	ID          string         `json:"id" binding:"required"`
	UserID      string         `json:"userId" binding:"required"`
	TestType    string         `json:"testType" binding:"required"`
	TestID      string         `json:"testId" binding:"required"`
	CompletedAt time.Time      `json:"completedAt" binding:"required"`
	Status      string         `json:"status" binding:"required"`
	Score       *float64       `json:"score"`
	Metadata    map[string]any `json:"metadata"`
	Overwrite   bool           `json:"overwrite"`
}

type BulkArchiveRequestDTO struct {
	// Items are validated one by one so a bad item becomes a failure entry.
	Results   []ArchiveRequestDTO `json:"results" binding:"required"`
	Overwrite bool                `json:"overwrite"`
}

type ArchiveResponseDTO struct {
	Success  bool   `json:"success"`
	FilePath string `json:"filePath"`
}

type ArchiveFailureDTO struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type BulkArchiveResponseDTO struct {
	Success       bool                `json:"success"`
	ArchivedPaths []string            `json:"archivedPaths"`
	Failures      []ArchiveFailureDTO `json:"failures"`
}

type ArchiveEntryDTO struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	TestType    string         `json:"testType"`
	TestID      string         `json:"testId"`
	CompletedAt time.Time      `json:"completedAt"`
	Status      string         `json:"status"`
	Score       *float64       `json:"score,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	FilePath    string         `json:"filePath"`
	ArchivedAt  time.Time      `json:"archivedAt"`
}

type ArchiveSearchResponseDTO struct {
	Results    []ArchiveEntryDTO `json:"results"`
	TotalCount int64             `json:"totalCount"`
}

type ArchiveExportDTO struct {
	Results    []ArchiveEntryDTO `json:"results"`
	TotalCount int64             `json:"totalCount"`
	ExportedAt time.Time         `json:"exportedAt"`
}

type ArchiveStatsDTO struct {
	TotalArchives int64            `json:"totalArchives"`
	ByTestType    map[string]int64 `json:"byTestType"`
	ByStatus      map[string]int64 `json:"byStatus"`
	DistinctUsers int64            `json:"distinctUsers"`
	OldestResult  *time.Time       `json:"oldestResult"`
	NewestResult  *time.Time       `json:"newestResult"`
}

type ResultStatsDTO struct {
	TotalTests      int64 `json:"totalTests"`
	CompletedTests  int64 `json:"completedTests"`
	IncompleteTests int64 `json:"incompleteTests"`
	ScoredTests     int64 `json:"scoredTests"`

	// AverageScore is null when no result carries a score.
	AverageScore           *float64            `json:"averageScore"`
	AverageScoreByTestType map[string]*float64 `json:"averageScoreByTestType"`
}

type RebuildResponseDTO struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Indexed int    `json:"indexed"`
	Skipped int    `json:"skipped"`
}

// ArchiveSearchQuery is the raw query string of search and export. Numbers
// and dates stay strings here so malformed values can be reported as 400.
type ArchiveSearchQuery struct {
	ID       string `form:"id"`
	UserID   string `form:"userId"`
	TestType string `form:"testType"`
	TestID   string `form:"testId"`
	Status   string `form:"status"`
	DateFrom string `form:"dateFrom"`
	DateTo   string `form:"dateTo"`
	Limit    string `form:"limit"`
	Offset   string `form:"offset"`
}
