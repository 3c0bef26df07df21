package service

import (
	"context"

	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/repository"
	"github.com/rs/zerolog/log"
)

type UserTestService interface {
	GetAllTests(ctx context.Context, activeOnly bool) ([]dto.TestSummaryDTO, error)
	GetTestDetails(ctx context.Context, testID string) (*dto.TestResponseDTO, error)
}

type userTestService struct {
	testRepo repository.TestRepository
}

func NewUserTestService(testRepo repository.TestRepository) UserTestService {
	return &userTestService{testRepo: testRepo}
}

func (s *userTestService) GetAllTests(ctx context.Context, activeOnly bool) ([]dto.TestSummaryDTO, error) {
	testsWithCount, err := s.testRepo.FindAllWithQuestionCount(ctx, activeOnly)
	if err != nil {
		log.Error().Err(err).Msg("GetAllTests: Failed to get tests with question count from repository")
		return nil, apperr.Internal("failed to list tests", err)
	}

	dtos := make([]dto.TestSummaryDTO, 0, len(testsWithCount))
	for _, twc := range testsWithCount {
		dtos = append(dtos, dto.TestSummaryDTO{
			ID:            twc.Test.ID,
			Name:          twc.Test.Name,
			Description:   twc.Test.Description,
			Type:          twc.Test.Type,
			Active:        twc.Test.Active,
			QuestionCount: twc.QuestionCount,
			CreatedAt:     twc.Test.CreatedAt,
		})
	}
	return dtos, nil
}

func (s *userTestService) GetTestDetails(ctx context.Context, testID string) (*dto.TestResponseDTO, error) {
	test, err := s.testRepo.FindByIDWithQuestions(ctx, testID)
	if err != nil {
		log.Warn().Err(err).Str("testID", testID).Msg("GetTestDetails: Failed to get test details from repository")
		return nil, lookupError(err, "test_not_found", "test")
	}
	return testResponse(test), nil
}
