package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/humaniq-ai/humaniq-core/internal/repository"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AdminService interface {
	CreateCompany(ctx context.Context, req dto.CompanyCreateDTO) (*dto.CompanyResponseDTO, error)
	CreateUser(ctx context.Context, req dto.UserCreateDTO) (*dto.UserResponseDTO, error)
	CreateTest(ctx context.Context, req dto.TestCreateDTO) (*dto.TestResponseDTO, error)
	SetTestActive(ctx context.Context, testID string, active bool) (*dto.TestResponseDTO, error)
}

type adminService struct {
	companyRepo repository.CompanyRepository
	userRepo    repository.UserRepository
	testRepo    repository.TestRepository
}

func NewAdminService(
	companyRepo repository.CompanyRepository,
	userRepo repository.UserRepository,
	testRepo repository.TestRepository,
) AdminService {
	return &adminService{companyRepo: companyRepo, userRepo: userRepo, testRepo: testRepo}
}

func (s *adminService) CreateCompany(ctx context.Context, req dto.CompanyCreateDTO) (*dto.CompanyResponseDTO, error) {
	company := model.Company{Name: strings.TrimSpace(req.Name)}
	if company.Name == "" {
		return nil, apperr.Validation("invalid_name", "name is required")
	}
	if err := s.companyRepo.Create(ctx, &company); err != nil {
		log.Error().Err(err).Msg("CreateCompany: Failed to create company")
		return nil, apperr.Internal("failed to create company", err)
	}
	var resp dto.CompanyResponseDTO
	copier.Copy(&resp, &company)
	return &resp, nil
}

func (s *adminService) CreateUser(ctx context.Context, req dto.UserCreateDTO) (*dto.UserResponseDTO, error) {
	if req.CompanyID != nil {
		if _, err := s.companyRepo.FindByID(ctx, *req.CompanyID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.Validation("invalid_company", "company %s does not exist", *req.CompanyID)
			}
			return nil, apperr.Internal("failed to load company", err)
		}
	}

	user := model.User{
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Name:      req.Name,
		Role:      req.Role,
		CompanyID: req.CompanyID,
	}
	if err := s.userRepo.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("email_taken", "a user with email %s already exists", user.Email)
		}
		log.Error().Err(err).Str("email", user.Email).Msg("CreateUser: Failed to create user")
		return nil, apperr.Internal("failed to create user", err)
	}
	var resp dto.UserResponseDTO
	copier.Copy(&resp, &user)
	return &resp, nil
}

// CreateTest validates the whole rubric before anything is written.
// Questions may only reference declared dimensions and orders are unique.
func (s *adminService) CreateTest(ctx context.Context, req dto.TestCreateDTO) (*dto.TestResponseDTO, error) {
	if !model.ValidTestType(req.Type) {
		return nil, apperr.Validation("invalid_test_type", "unknown test type %q", req.Type)
	}

	dimensionIDs := make(map[string]string, len(req.Dimensions))
	dimensions := make([]model.Dimension, 0, len(req.Dimensions))
	for i, d := range req.Dimensions {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return nil, apperr.Validation("invalid_dimension", "dimension %d has no name", i+1)
		}
		if _, dup := dimensionIDs[name]; dup {
			return nil, apperr.Validation("duplicate_dimension", "dimension %q declared twice", name)
		}
		id := uuid.NewString()
		dimensionIDs[name] = id
		dimensions = append(dimensions, model.Dimension{ID: id, Name: name, Weight: d.Weight, Position: i})
	}

	orders := make(map[int]bool, len(req.Questions))
	questions := make([]model.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		if orders[q.OrderInTest] {
			return nil, apperr.Validation("duplicate_order", "duplicate order_in_test %d", q.OrderInTest)
		}
		orders[q.OrderInTest] = true

		switch q.Kind {
		case model.QuestionKindLikert, model.QuestionKindNumeric:
			if !(q.MinValue < q.MaxValue) {
				return nil, apperr.Validation("invalid_range", "question %d needs min_value < max_value", q.OrderInTest)
			}
		case model.QuestionKindCategorical:
			if len(q.OptionScores) == 0 {
				return nil, apperr.Validation("missing_option_scores", "categorical question %d needs option_scores", q.OrderInTest)
			}
		default:
			return nil, apperr.Validation("invalid_kind", "question %d has unknown kind %q", q.OrderInTest, q.Kind)
		}

		question := model.Question{
			Text:        q.Text,
			Kind:        q.Kind,
			OrderInTest: q.OrderInTest,
			MinValue:    q.MinValue,
			MaxValue:    q.MaxValue,
			Weight:      q.Weight,
			Reverse:     q.Reverse,
		}
		if q.OptionScores != nil {
			question.OptionScores = datatypes.NewJSONType(q.OptionScores)
		}
		if q.Dimension != nil {
			id, ok := dimensionIDs[strings.TrimSpace(*q.Dimension)]
			if !ok {
				return nil, apperr.Validation("unknown_dimension", "question %d references unknown dimension %q", q.OrderInTest, *q.Dimension)
			}
			question.DimensionID = &id
		}
		questions = append(questions, question)
	}

	test := model.Test{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Active:      true,
		Dimensions:  dimensions,
		Questions:   questions,
	}
	if err := s.testRepo.Create(ctx, &test); err != nil {
		log.Error().Err(err).Msg("CreateTest: Failed to create test in database")
		return nil, apperr.Internal("failed to create test", err)
	}

	created, err := s.testRepo.FindByIDWithQuestions(ctx, test.ID)
	if err != nil {
		log.Error().Err(err).Str("testID", test.ID).Msg("CreateTest: Failed to reload created test")
		return nil, apperr.Internal("failed to load created test", err)
	}
	return testResponse(created), nil
}

func (s *adminService) SetTestActive(ctx context.Context, testID string, active bool) (*dto.TestResponseDTO, error) {
	if err := s.testRepo.SetActive(ctx, testID, active); err != nil {
		return nil, lookupError(err, "test_not_found", "test")
	}
	test, err := s.testRepo.FindByIDWithQuestions(ctx, testID)
	if err != nil {
		return nil, lookupError(err, "test_not_found", "test")
	}
	log.Info().Str("testID", testID).Bool("active", active).Msg("SetTestActive: Test updated")
	return testResponse(test), nil
}

func testResponse(test *model.Test) *dto.TestResponseDTO {
	resp := dto.TestResponseDTO{
		ID:          test.ID,
		Name:        test.Name,
		Description: test.Description,
		Type:        test.Type,
		Active:      test.Active,
		CreatedAt:   test.CreatedAt,
	}
	copier.Copy(&resp.Dimensions, &test.Dimensions)
	for _, q := range test.Questions {
		qr := dto.QuestionResponseDTO{
			ID:          q.ID,
			TestID:      q.TestID,
			DimensionID: q.DimensionID,
			Text:        q.Text,
			Kind:        q.Kind,
			OrderInTest: q.OrderInTest,
			MinValue:    q.MinValue,
			MaxValue:    q.MaxValue,
		}
		if opts := q.OptionScores.Data(); len(opts) > 0 {
			qr.OptionScores = opts
		}
		resp.Questions = append(resp.Questions, qr)
	}
	return &resp
}
