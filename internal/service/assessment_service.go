package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/constants"
	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/repository"
)

// AssessmentService manages the configuration attached to ASSESSMENT blocks.
type AssessmentService struct {
	assessmentRepo repository.AssessmentRepository
	blockRepo      repository.CourseBlockRepository
	attemptRepo    repository.AttemptRepository
	courses        *CourseService
}

func NewAssessmentService(
	assessmentRepo repository.AssessmentRepository,
	blockRepo repository.CourseBlockRepository,
	attemptRepo repository.AttemptRepository,
	courses *CourseService,
) *AssessmentService {
	return &AssessmentService{
		assessmentRepo: assessmentRepo,
		blockRepo:      blockRepo,
		attemptRepo:    attemptRepo,
		courses:        courses,
	}
}

func (s *AssessmentService) GetByBlock(blockID uint) (*models.Assessment, error) {
	if s == nil || s.assessmentRepo == nil {
		return nil, errors.New("assessment repository is not configured")
	}
	return s.assessmentRepo.GetByBlockID(blockID)
}

// Save creates or updates the assessment configuration of a block. Omitted
// optional fields fall back to the documented defaults.
func (s *AssessmentService) Save(blockID uint, req models.SaveAssessmentRequest) (*models.Assessment, error) {
	if s == nil || s.assessmentRepo == nil || s.blockRepo == nil {
		return nil, errors.New("assessment repository is not configured")
	}

	block, err := s.blockRepo.GetByID(blockID)
	if err != nil {
		return nil, err
	}
	if block.Deleted {
		return nil, newValidationError("block is deleted")
	}
	if block.Kind != models.BlockKindAssessment {
		return nil, newValidationError("block %d is not an assessment block", blockID)
	}

	// Configuration is frozen while a learner is mid-attempt; scoring reads
	// it back at finalization.
	if s.attemptRepo != nil {
		active, err := s.attemptRepo.CountActiveForBlock(blockID)
		if err != nil {
			return nil, err
		}
		if active > 0 {
			return nil, newValidationError("assessment has attempts in progress; try again once they finish")
		}
	}

	if req.NumQuestions < 1 {
		return nil, newValidationError("an assessment needs at least one question")
	}
	if req.TimeLimitMinutes < 1 {
		return nil, newValidationError("time limit must be at least one minute")
	}

	passMark := constants.DefaultPassMarkPercent
	if req.PassMarkPercent != nil {
		passMark = *req.PassMarkPercent
	}
	if passMark <= 0 || passMark > 100 {
		return nil, newValidationError("pass mark must be between 1 and 100")
	}

	maxAttempts := constants.DefaultMaxAttempts
	if req.MaxAttempts != nil {
		maxAttempts = *req.MaxAttempts
	}
	if maxAttempts < 1 {
		return nil, newValidationError("max attempts must be at least 1")
	}

	cooldown := constants.DefaultRetakeCooldownMinutes
	if req.RetakeCooldownMinutes != nil {
		cooldown = *req.RetakeCooldownMinutes
	}
	if cooldown < 0 {
		return nil, newValidationError("retake cooldown must not be negative")
	}

	shuffle := true
	if req.ShuffleQuestions != nil {
		shuffle = *req.ShuffleQuestions
	}

	assessment := models.Assessment{
		BlockID:               blockID,
		NumQuestions:          req.NumQuestions,
		PassMarkPercent:       passMark,
		TimeLimitMinutes:      req.TimeLimitMinutes,
		ShuffleQuestions:      shuffle,
		MaxAttempts:           maxAttempts,
		RetakeCooldownMinutes: cooldown,
	}
	if existing, err := s.assessmentRepo.GetByBlockID(blockID); err == nil {
		assessment.ID = existing.ID
		assessment.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.assessmentRepo.Upsert(&assessment); err != nil {
		return nil, err
	}

	if s.courses != nil {
		s.courses.InvalidateKiosk(block.CourseID)
	}

	return &assessment, nil
}
