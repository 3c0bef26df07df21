package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/humaniq-ai/humaniq-core/config"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeAnalyzer struct {
	mu    sync.Mutex
	fail  map[string]error
	calls []AnalysisRequest

	// during runs inside Analyze, before the reply is returned.
	during func(req AnalysisRequest)
}

func (a *fakeAnalyzer) Model() string { return "fake-model" }

func (a *fakeAnalyzer) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisOutput, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, req)
	if a.during != nil {
		a.during(req)
	}
	if err := a.fail[req.ResultID]; err != nil {
		return nil, err
	}
	return &AnalysisOutput{Confidence: 0.7, Explanation: "analysis of " + req.ResultID}, nil
}

func (f *fixture) insertResult(t *testing.T, id string, completedAt time.Time) {
	t.Helper()
	require.NoError(t, f.resultRepo.Create(context.Background(), &model.TestResult{
		ID:              id,
		SessionID:       "session-" + id,
		UserID:          "u1",
		TestID:          "t1",
		TestType:        model.TestTypeOther,
		OverallScore:    ptr(50),
		DimensionScores: datatypes.NewJSONType(model.DimensionScores{"overall": 50}),
		Status:          model.ResultCompleted,
		CompletedAt:     completedAt,
		AnalysisStatus:  model.AnalysisReady,
	}))
}

func newDispatcher(f *fixture, analyzer ResultAnalyzer) *analysisDispatcher {
	return NewAnalysisDispatcher(f.cfg, f.resultRepo, f.testRepo, analyzer).(*analysisDispatcher)
}

func TestDispatcherFailureDoesNotStopBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.insertResult(t, "r1", base)
	f.insertResult(t, "r2", base.Add(time.Hour))
	f.insertResult(t, "r3", base.Add(2*time.Hour))

	analyzer := &fakeAnalyzer{fail: map[string]error{"r2": errors.New("model overloaded")}}
	report, err := newDispatcher(f, analyzer).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchReport{Claimed: 3, Analyzed: 2, Failed: 1}, report)

	r1, err := f.resultRepo.FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.AnalysisComplete, r1.AnalysisStatus)
	assert.NotNil(t, r1.AnalyzedAt)

	r2, err := f.resultRepo.FindByID(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, model.AnalysisReady, r2.AnalysisStatus)
	assert.Equal(t, "model overloaded", r2.LastAnalysisError)
	assert.Nil(t, r2.AnalysisLeaseUntil)
	assert.Equal(t, 1, r2.AnalysisAttempts)

	analyses, err := f.analysisRepo.FindByResultID(ctx, "r3")
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, "r3:1", analyses[0].IdempotencyKey)
	assert.Equal(t, "fake-model", analyses[0].Model)
}

func TestDispatcherRetriesFailedResultOnNextRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.insertResult(t, "r1", time.Now().UTC())

	analyzer := &fakeAnalyzer{fail: map[string]error{"r1": errors.New("timeout")}}
	d := newDispatcher(f, analyzer)
	_, err := d.RunOnce(ctx)
	require.NoError(t, err)

	delete(analyzer.fail, "r1")
	report, err := d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Analyzed)

	require.Len(t, analyzer.calls, 2)
	assert.Equal(t, "r1:1", analyzer.calls[0].IdempotencyKey)
	assert.Equal(t, "r1:2", analyzer.calls[1].IdempotencyKey)

	// Nothing left to do.
	report, err = d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchReport{}, report)
}

func TestDispatcherSkipsLeasedResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.insertResult(t, "r1", time.Now().UTC())

	now := time.Now().UTC()
	claimed, err := f.resultRepo.Claim(ctx, "r1", now, now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, claimed)

	analyzer := &fakeAnalyzer{}
	report, err := newDispatcher(f, analyzer).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchReport{}, report)
	assert.Empty(t, analyzer.calls)

	// An expired lease is claimable again.
	d := newDispatcher(f, analyzer)
	d.now = func() time.Time { return now.Add(2 * time.Hour) }
	report, err = d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Analyzed)
}

func TestDispatcherHonoursBatchSize(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Dispatcher.BatchSize = 2 })
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		f.insertResult(t, id, base.Add(time.Duration(i)*time.Minute))
	}

	analyzer := &fakeAnalyzer{}
	report, err := newDispatcher(f, analyzer).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Analyzed)
	require.Len(t, analyzer.calls, 2)
	assert.Equal(t, "r1", analyzer.calls[0].ResultID)
	assert.Equal(t, "r2", analyzer.calls[1].ResultID)
}

func TestDispatcherWithoutAPIKeyLeavesResultsReady(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.insertResult(t, "r1", time.Now().UTC())

	analyzer, err := NewGeminiLLMService(&config.Config{})
	require.NoError(t, err)
	report, err := newDispatcher(f, analyzer).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	r1, err := f.resultRepo.FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.AnalysisReady, r1.AnalysisStatus)
	assert.Equal(t, ErrAnalyzerUnavailable.Error(), r1.LastAnalysisError)
}

func TestDispatcherDiscardsAttemptResetByRefinalize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.insertResult(t, "r1", time.Now().UTC())

	analyzer := &fakeAnalyzer{during: func(req AnalysisRequest) {
		if req.IdempotencyKey != "r1:1" {
			return
		}
		// New answers were finalized while the first attempt was running.
		require.NoError(t, f.db.Model(&model.TestResult{}).Where("id = ?", "r1").Updates(map[string]any{
			"analysis_status":      model.AnalysisReady,
			"analysis_lease_until": nil,
		}).Error)
	}}
	d := newDispatcher(f, analyzer)

	report, err := d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchReport{Claimed: 1, Skipped: 1}, report)

	r1, err := f.resultRepo.FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.AnalysisReady, r1.AnalysisStatus)
	assert.Nil(t, r1.AnalyzedAt)
	analyses, err := f.analysisRepo.FindByResultID(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, analyses)

	// The reset result is analyzed again under a fresh attempt.
	report, err = d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Analyzed)
	analyses, err = f.analysisRepo.FindByResultID(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, "r1:2", analyses[0].IdempotencyKey)
}
