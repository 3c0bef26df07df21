package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/humaniq-ai/humaniq-core/config"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/humaniq-ai/humaniq-core/internal/repository"
	"github.com/rs/zerolog/log"
)

// errSuperseded marks an attempt whose claim was taken over or reset while
// the analyzer ran.
var errSuperseded = errors.New("analysis attempt superseded")

type DispatchReport struct {
	Claimed  int
	Analyzed int
	Failed   int
	Skipped  int
}

// AnalysisDispatcher hands results in analysis_ready to the analyzer.
// Coordination with other workers goes through the result row lease only.
type AnalysisDispatcher interface {
	RunOnce(ctx context.Context) (DispatchReport, error)
}

type analysisDispatcher struct {
	resultRepo repository.TestResultRepository
	testRepo   repository.TestRepository
	analyzer   ResultAnalyzer
	batchSize  int
	lease      time.Duration
	now        func() time.Time
}

func NewAnalysisDispatcher(
	cfg *config.Config,
	resultRepo repository.TestResultRepository,
	testRepo repository.TestRepository,
	analyzer ResultAnalyzer,
) AnalysisDispatcher {
	batch := cfg.Dispatcher.BatchSize
	if batch <= 0 {
		batch = 25
	}
	lease := cfg.Dispatcher.LeaseDuration
	if lease <= 0 {
		lease = 5 * time.Minute
	}
	return &analysisDispatcher{
		resultRepo: resultRepo,
		testRepo:   testRepo,
		analyzer:   analyzer,
		batchSize:  batch,
		lease:      lease,
		now:        utcNow,
	}
}

// RunOnce processes one batch. Only listing the backlog can fail the run;
// a failure on one result is recorded on it and the batch continues.
func (d *analysisDispatcher) RunOnce(ctx context.Context) (DispatchReport, error) {
	var report DispatchReport
	now := d.now()
	candidates, err := d.resultRepo.FindClaimable(ctx, now, d.batchSize)
	if err != nil {
		return report, fmt.Errorf("list analysis backlog: %w", err)
	}

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		claimed, err := d.resultRepo.Claim(ctx, candidate.ID, now, now.Add(d.lease))
		if err != nil {
			log.Error().Err(err).Str("resultID", candidate.ID).Msg("RunOnce: Failed to claim result")
			report.Failed++
			continue
		}
		if !claimed {
			report.Skipped++
			continue
		}
		report.Claimed++

		switch err := d.process(ctx, candidate.ID); {
		case errors.Is(err, errSuperseded):
			report.Skipped++
			log.Warn().Str("resultID", candidate.ID).Msg("RunOnce: Claim superseded, analysis discarded")
		case err != nil:
			report.Failed++
			log.Error().Err(err).Str("resultID", candidate.ID).Msg("RunOnce: Analysis failed, result stays ready for retry")
		default:
			report.Analyzed++
		}
	}

	log.Info().
		Int("candidates", len(candidates)).
		Int("claimed", report.Claimed).
		Int("analyzed", report.Analyzed).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("RunOnce: Dispatch finished")
	return report, nil
}

func (d *analysisDispatcher) process(ctx context.Context, resultID string) error {
	// Re-read after the claim so the attempt number and status are current.
	// On a failed reload the lease is left to expire.
	result, err := d.resultRepo.FindByID(ctx, resultID)
	if err != nil {
		return fmt.Errorf("reload result: %w", err)
	}
	if result.AnalysisStatus != model.AnalysisReady {
		return errSuperseded
	}

	err = d.analyze(ctx, result)
	if err != nil && !errors.Is(err, errSuperseded) {
		if relErr := d.resultRepo.ReleaseClaim(ctx, result.ID, result.AnalysisAttempts, err.Error()); relErr != nil {
			log.Error().Err(relErr).Str("resultID", result.ID).Msg("process: Failed to release claim")
		}
	}
	return err
}

func (d *analysisDispatcher) analyze(ctx context.Context, result *model.TestResult) error {
	req := AnalysisRequest{
		ResultID:        result.ID,
		IdempotencyKey:  fmt.Sprintf("%s:%d", result.ID, result.AnalysisAttempts),
		TestType:        result.TestType,
		Status:          result.Status,
		OverallScore:    result.OverallScore,
		DimensionScores: result.DimensionScores.Data(),
	}
	if test, err := d.testRepo.FindByID(ctx, result.TestID); err == nil {
		req.TestName = test.Name
	} else {
		log.Warn().Err(err).Str("testID", result.TestID).Msg("analyze: Test lookup failed, analyzing without name")
	}

	out, err := d.analyzer.Analyze(ctx, req)
	if err != nil {
		return err
	}

	analysis := model.AIAnalysis{
		ResultID:       result.ID,
		IdempotencyKey: req.IdempotencyKey,
		Model:          d.analyzer.Model(),
		Confidence:     out.Confidence,
		Explanation:    out.Explanation,
	}
	stored, err := d.resultRepo.CompleteAnalysis(ctx, result.ID, result.AnalysisAttempts, &analysis, d.now())
	if err != nil {
		return fmt.Errorf("store analysis: %w", err)
	}
	if !stored {
		return errSuperseded
	}
	log.Info().
		Str("resultID", result.ID).
		Str("idempotencyKey", req.IdempotencyKey).
		Float64("confidence", out.Confidence).
		Msg("analyze: Analysis stored")
	return nil
}
