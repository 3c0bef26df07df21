package archive

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	archivestore "github.com/humaniq-ai/humaniq-core/internal/archive"
	"github.com/humaniq-ai/humaniq-core/internal/controller/httperr"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/service"
)

type ArchiveController struct {
	archiveService   service.ArchiveService
	retrievalService service.RetrievalService
}

func NewArchiveController(as service.ArchiveService, rs service.RetrievalService) *ArchiveController {
	return &ArchiveController{archiveService: as, retrievalService: rs}
}

func toDocument(req dto.ArchiveRequestDTO) archivestore.Document {
	return archivestore.Document{
		ID:          req.ID,
		UserID:      req.UserID,
		TestType:    req.TestType,
		TestID:      req.TestID,
		CompletedAt: req.CompletedAt,
		Status:      req.Status,
		Score:       req.Score,
		Metadata:    req.Metadata,
	}
}

// ArchiveResult godoc
// @Summary Archive one result
// @Description Writes the result to the archive store and indexes it. Without overwrite an existing archive is a conflict.
// @Tags Archives
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param X-User-Role header string true "Caller role (ADMIN or MANAGER)"
// @Param result body dto.ArchiveRequestDTO true "Result to archive"
// @Success 200 {object} dto.ArchiveResponseDTO
// @Failure 400 {object} dto.ErrorResponse "Missing or invalid field"
// @Failure 409 {object} dto.ErrorResponse "Already archived"
// @Failure 500 {object} dto.ErrorResponse
// @Router /archives/archive [post]
func (c *ArchiveController) ArchiveResult(ctx *gin.Context) {
	var req dto.ArchiveRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(ctx, "ArchiveResult", err)
		return
	}
	path, err := c.archiveService.Archive(ctx.Request.Context(), toDocument(req), service.ArchiveOptions{
		AutoIndex:         true,
		CreateDirectories: true,
		Overwrite:         req.Overwrite,
	})
	if err != nil {
		httperr.Respond(ctx, "ArchiveResult", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.ArchiveResponseDTO{Success: true, FilePath: path})
}

// ArchiveResults godoc
// @Summary Archive many results
// @Description Archives every result; failures are reported per item and do not stop the batch.
// @Tags Archives
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param X-User-Role header string true "Caller role (ADMIN or MANAGER)"
// @Param batch body dto.BulkArchiveRequestDTO true "Results to archive"
// @Success 200 {object} dto.BulkArchiveResponseDTO
// @Failure 400 {object} dto.ErrorResponse "results is not an array"
// @Failure 500 {object} dto.ErrorResponse
// @Router /archives/archive [put]
func (c *ArchiveController) ArchiveResults(ctx *gin.Context) {
	var req dto.BulkArchiveRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(ctx, "ArchiveResults", err)
		return
	}
	docs := make([]archivestore.Document, 0, len(req.Results))
	for _, r := range req.Results {
		docs = append(docs, toDocument(r))
	}
	result := c.archiveService.ArchiveMany(ctx.Request.Context(), docs, service.ArchiveOptions{
		AutoIndex:         true,
		CreateDirectories: true,
		Overwrite:         req.Overwrite,
	})

	resp := dto.BulkArchiveResponseDTO{
		Success:       len(result.Failures) == 0,
		ArchivedPaths: result.ArchivedPaths,
		Failures:      make([]dto.ArchiveFailureDTO, 0, len(result.Failures)),
	}
	for _, f := range result.Failures {
		msg := "internal error"
		if e, ok := apperr.As(f.Err); ok && e.Kind != apperr.KindInternal {
			msg = e.Message
		}
		resp.Failures = append(resp.Failures, dto.ArchiveFailureDTO{ID: f.ID, Error: msg})
	}
	ctx.JSON(http.StatusOK, resp)
}

// SearchArchives godoc
// @Summary Search archived results
// @Tags Archives
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param X-User-Role header string true "Caller role (ADMIN or MANAGER)"
// @Param id query string false "Result ID"
// @Param userId query string false "User ID"
// @Param testType query string false "personalidade, psicossociais or outros"
// @Param testId query string false "Test ID"
// @Param status query string false "completed or incomplete"
// @Param dateFrom query string false "RFC3339 or YYYY-MM-DD"
// @Param dateTo query string false "RFC3339 or YYYY-MM-DD, inclusive"
// @Param limit query int false "Page size (default 50, max 1000)"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} dto.ArchiveSearchResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /archives/search [get]
func (c *ArchiveController) SearchArchives(ctx *gin.Context) {
	var q dto.ArchiveSearchQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		httperr.BadRequest(ctx, "SearchArchives", err)
		return
	}
	resp, err := c.retrievalService.Search(ctx.Request.Context(), q)
	if err != nil {
		httperr.Respond(ctx, "SearchArchives", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ExportArchives godoc
// @Summary Export archived results
// @Description Same filters as search with a 10000 row cap, delivered as a CSV or JSON download.
// @Tags Archives
// @Produce json
// @Produce text/csv
// @Param X-User-ID header string true "Caller id"
// @Param X-User-Role header string true "Caller role (ADMIN or MANAGER)"
// @Param format query string false "csv or json (default json)"
// @Param testType query string false "personalidade, psicossociais or outros"
// @Param status query string false "completed or incomplete"
// @Success 200 {object} dto.ArchiveExportDTO
// @Failure 400 {object} dto.ErrorResponse "Unsupported format or invalid filter"
// @Failure 500 {object} dto.ErrorResponse
// @Router /archives/export [get]
func (c *ArchiveController) ExportArchives(ctx *gin.Context) {
	var q dto.ArchiveSearchQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		httperr.BadRequest(ctx, "ExportArchives", err)
		return
	}
	file, err := c.retrievalService.Export(ctx.Request.Context(), ctx.Query("format"), q)
	if err != nil {
		httperr.Respond(ctx, "ExportArchives", err)
		return
	}
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	ctx.Data(http.StatusOK, file.ContentType, file.Body)
}

// ArchiveStats godoc
// @Summary Archive-level statistics
// @Tags Archives
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param X-User-Role header string true "Caller role (ADMIN or MANAGER)"
// @Success 200 {object} dto.ArchiveStatsDTO
// @Failure 500 {object} dto.ErrorResponse
// @Router /archives/stats [get]
func (c *ArchiveController) ArchiveStats(ctx *gin.Context) {
	stats, err := c.retrievalService.ArchiveStatistics(ctx.Request.Context())
	if err != nil {
		httperr.Respond(ctx, "ArchiveStats", err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

// ResultStats godoc
// @Summary Result-level statistics
// @Description averageScore only counts results that have a score.
// @Tags Archives
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param X-User-Role header string true "Caller role (ADMIN or MANAGER)"
// @Success 200 {object} dto.ResultStatsDTO
// @Failure 500 {object} dto.ErrorResponse
// @Router /archives/results-stats [get]
func (c *ArchiveController) ResultStats(ctx *gin.Context) {
	stats, err := c.retrievalService.ResultStatistics(ctx.Request.Context())
	if err != nil {
		httperr.Respond(ctx, "ResultStats", err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

// RebuildIndexes godoc
// @Summary Rebuild the archive index
// @Description Rescans the archive store and replaces the index. A rebuild already in progress answers 409.
// @Tags Archives
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param X-User-Role header string true "Caller role (ADMIN or MANAGER)"
// @Success 200 {object} dto.RebuildResponseDTO
// @Failure 409 {object} dto.ErrorResponse "Rebuild in progress"
// @Failure 500 {object} dto.ErrorResponse
// @Router /archives/rebuild-indexes [post]
func (c *ArchiveController) RebuildIndexes(ctx *gin.Context) {
	report, err := c.archiveService.RebuildAllIndexes(ctx.Request.Context())
	if err != nil {
		httperr.Respond(ctx, "RebuildIndexes", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.RebuildResponseDTO{
		Success: true,
		Message: fmt.Sprintf("Indexed %d archived results, skipped %d", report.Indexed, report.Skipped),
		Indexed: report.Indexed,
		Skipped: report.Skipped,
	})
}
