package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/repository"
)

// kioskInvalidator drops the cached kiosk snapshot of a course after a
// mutation. Satisfied by CourseService.
type kioskInvalidator interface {
	InvalidateKiosk(courseID uint)
}

/// BlockService owns the position invariant of a course: live blocks occupy
// positions 1..N densely, soft-deleted blocks sit at position 0.
type BlockService struct {
	blockRepo      repository.CourseBlockRepository
	courseRepo     repository.CourseRepository
	contentRepo    repository.ContentUnitRepository
	assessmentRepo repository.AssessmentRepository
	questionRepo   repository.QuestionRepository
	kiosk          kioskInvalidator
}

func NewBlockService(
	blockRepo repository.CourseBlockRepository,
	courseRepo repository.CourseRepository,
	contentRepo repository.ContentUnitRepository,
	assessmentRepo repository.AssessmentRepository,
	questionRepo repository.QuestionRepository,
	kiosk kioskInvalidator,
) *BlockService {
	return &BlockService{
		blockRepo:      blockRepo,
		courseRepo:     courseRepo,
		contentRepo:    contentRepo,
		assessmentRepo: assessmentRepo,
		questionRepo:   questionRepo,
		kiosk:          kiosk,
	}
}

func (s *BlockService) invalidateKiosk(courseID uint) {
	if s.kiosk != nil {
		s.kiosk.InvalidateKiosk(courseID)
	}
}

func (s *BlockService) List(courseID uint, includeDeleted bool) ([]models.CourseBlock, error) {
	if s == nil || s.blockRepo == nil {
		return nil, errors.New("block repository is not configured")
	}
	if courseID == 0 {
		return nil, newValidationError("course id is required")
	}
	return s.blockRepo.ListByCourse(courseID, includeDeleted)
}

func (s *BlockService) GetByID(id uint) (*models.CourseBlock, error) {
	if s == nil || s.blockRepo == nil {
		return nil, errors.New("block repository is not configured")
	}
	return s.blockRepo.GetByID(id)
}

// Add inserts a block into a course. Position 0 or absent appends; an
// explicit position is clamped to [1, N+1] and the blocks at or past it
// shift up by one.
func (s *BlockService) Add(courseID uint, req models.AddBlockRequest) (*models.CourseBlock, error) {
	if s == nil || s.blockRepo == nil {
		return nil, errors.New("block repository is not configured")
	}

	if s.courseRepo != nil {
		exists, err := s.courseRepo.Exists(courseID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, gorm.ErrRecordNotFound
		}
	}

	kind := strings.ToUpper(strings.TrimSpace(req.Kind))
	if kind != models.BlockKindContent && kind != models.BlockKindAssessment {
		return nil, newValidationError("unsupported block kind: %s", req.Kind)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, newValidationError("block title is required")
	}

	configJSON := ""
	if req.ConfigJSON != nil {
		normalized, err := models.NormalizeConfigJSON(*req.ConfigJSON)
		if err != nil {
			return nil, newValidationError("invalid block config: %v", err)
		}
		configJSON = normalized
	}

	live, err := s.blockRepo.ListByCourse(courseID, false)
	if err != nil {
		return nil, err
	}

	position := len(live) + 1
	if req.Position != nil && *req.Position > 0 {
		position = *req.Position
		if position > len(live)+1 {
			position = len(live) + 1
		}
	}

	isMandatory := true
	if req.IsMandatory != nil {
		isMandatory = *req.IsMandatory
	}

	block := models.CourseBlock{
		CourseID:    courseID,
		Kind:        kind,
		Title:       title,
		Position:    position,
		IsMandatory: isMandatory,
		Disabled:    req.Disabled,
		ConfigJSON:  configJSON,
	}

	if err := s.blockRepo.CreateAt(&block); err != nil {
		return nil, err
	}

	s.invalidateKiosk(courseID)
	return &block, nil
}

func (s *BlockService) Update(id uint, req models.UpdateBlockRequest) (*models.CourseBlock, error) {
	if s == nil || s.blockRepo == nil {
		return nil, errors.New("block repository is not configured")
	}

	block, err := s.blockRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if block.Deleted {
		return nil, newValidationError("block is deleted")
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, newValidationError("block title is required")
		}
		block.Title = title
	}

	if req.ConfigJSON != nil {
		normalized, err := models.NormalizeConfigJSON(*req.ConfigJSON)
		if err != nil {
			return nil, newValidationError("invalid block config: %v", err)
		}
		block.ConfigJSON = normalized
	}

	if err := s.blockRepo.Update(block); err != nil {
		return nil, err
	}

	s.invalidateKiosk(block.CourseID)
	return block, nil
}

func (s *BlockService) SetMandatory(id uint, mandatory bool) (*models.CourseBlock, error) {
	return s.setFlag(id, func(block *models.CourseBlock) {
		block.IsMandatory = mandatory
	})
}

func (s *BlockService) SetDisabled(id uint, disabled bool) (*models.CourseBlock, error) {
	return s.setFlag(id, func(block *models.CourseBlock) {
		block.Disabled = disabled
	})
}

func (s *BlockService) setFlag(id uint, apply func(*models.CourseBlock)) (*models.CourseBlock, error) {
	if s == nil || s.blockRepo == nil {
		return nil, errors.New("block repository is not configured")
	}
	block, err := s.blockRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if block.Deleted {
		return nil, newValidationError("block is deleted")
	}
	apply(block)
	if err := s.blockRepo.Update(block); err != nil {
		return nil, err
	}

	s.invalidateKiosk(block.CourseID)
	return block, nil
}

// Delete removes a block. A soft delete keeps the row (position 0, deleted
// flag set) and cascades the flag to its nested content or assessment; a
// hard delete removes rows outright. Either way the surviving blocks are
// renumbered back to a dense 1..N.
func (s *BlockService) Delete(id uint, hard bool) error {
	if s == nil || s.blockRepo == nil {
		return errors.New("block repository is not configured")
	}

	block, err := s.blockRepo.GetByID(id)
	if err != nil {
		return err
	}

	if hard {
		if err := s.blockRepo.HardDelete(block); err != nil {
			return err
		}
		s.invalidateKiosk(block.CourseID)
		return nil
	}

	if block.Deleted {
		return nil
	}

	live, err := s.blockRepo.ListByCourse(block.CourseID, false)
	if err != nil {
		return err
	}

	positions := make(map[uint]int, len(live))
	next := 1
	for _, candidate := range live {
		if candidate.ID == block.ID {
			continue
		}
		positions[candidate.ID] = next
		next++
	}

	if err := s.blockRepo.SoftDeleteCascade(block, positions); err != nil {
		return err
	}

	s.invalidateKiosk(block.CourseID)
	return nil
}

// Duplicate copies a block immediately after the original, shifting later
// blocks up. The copy carries the block's configuration and its nested
// content unit or assessment together with the question bank.
func (s *BlockService) Duplicate(id uint) (*models.CourseBlock, error) {
	if s == nil || s.blockRepo == nil {
		return nil, errors.New("block repository is not configured")
	}

	original, err := s.blockRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if original.Deleted {
		return nil, newValidationError("cannot duplicate a deleted block")
	}

	copyBlock := models.CourseBlock{
		CourseID:    original.CourseID,
		Kind:        original.Kind,
		Title:       original.Title,
		Position:    original.Position + 1,
		IsMandatory: original.IsMandatory,
		Disabled:    original.Disabled,
		ConfigJSON:  original.ConfigJSON,
	}

	if err := s.blockRepo.CreateAt(&copyBlock); err != nil {
		return nil, err
	}

	switch original.Kind {
	case models.BlockKindContent:
		if err := s.copyContent(original.ID, copyBlock.ID); err != nil {
			return nil, err
		}
	case models.BlockKindAssessment:
		if err := s.copyAssessment(original.ID, copyBlock.ID); err != nil {
			return nil, err
		}
	}

	s.invalidateKiosk(copyBlock.CourseID)
	return &copyBlock, nil
}

func (s *BlockService) copyContent(fromBlockID, toBlockID uint) error {
	if s.contentRepo == nil {
		return nil
	}
	unit, err := s.contentRepo.GetByBlockID(fromBlockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	clone := models.ContentUnit{
		BlockID:         toBlockID,
		ContentType:     unit.ContentType,
		SourcePath:      unit.SourcePath,
		HTMLBody:        unit.HTMLBody,
		URL:             unit.URL,
		DurationMinutes: unit.DurationMinutes,
	}
	_, err = s.contentRepo.Replace(&clone)
	return err
}

func (s *BlockService) copyAssessment(fromBlockID, toBlockID uint) error {
	if s.assessmentRepo == nil {
		return nil
	}
	assessment, err := s.assessmentRepo.GetByBlockID(fromBlockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	clone := models.Assessment{
		BlockID:               toBlockID,
		NumQuestions:          assessment.NumQuestions,
		PassMarkPercent:       assessment.PassMarkPercent,
		TimeLimitMinutes:      assessment.TimeLimitMinutes,
		ShuffleQuestions:      assessment.ShuffleQuestions,
		MaxAttempts:           assessment.MaxAttempts,
		RetakeCooldownMinutes: assessment.RetakeCooldownMinutes,
	}
	if err := s.assessmentRepo.Upsert(&clone); err != nil {
		return err
	}

	if s.questionRepo == nil {
		return nil
	}
	questions, err := s.questionRepo.ListByAssessment(assessment.ID)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return nil
	}
	clones := make([]models.Question, 0, len(questions))
	for _, question := range questions {
		clones = append(clones, models.Question{
			AssessmentID: clone.ID,
			Type:         question.Type,
			Body:         question.Body,
			ChoicesJSON:  question.ChoicesJSON,
			CorrectIndex: question.CorrectIndex,
			CorrectBool:  question.CorrectBool,
			Explanation:  question.Explanation,
			Tags:         question.Tags,
		})
	}
	return s.questionRepo.CreateBatch(clones)
}

// Reorder applies a complete new order to a course's live blocks. The
// submitted ids must be an exact permutation of the current live block ids;
// otherwise ErrOrderMismatch is returned and nothing changes.
func (s *BlockService) Reorder(courseID uint, orderedIDs []uint) ([]models.CourseBlock, error) {
	if s == nil || s.blockRepo == nil {
		return nil, errors.New("block repository is not configured")
	}
	if courseID == 0 {
		return nil, newValidationError("course id is required")
	}

	live, err := s.blockRepo.ListByCourse(courseID, false)
	if err != nil {
		return nil, err
	}

	if len(orderedIDs) != len(live) {
		return nil, ErrOrderMismatch
	}

	liveIDs := make(map[uint]bool, len(live))
	for _, block := range live {
		liveIDs[block.ID] = true
	}
	seen := make(map[uint]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !liveIDs[id] || seen[id] {
			return nil, ErrOrderMismatch
		}
		seen[id] = true
	}

	if err := s.blockRepo.SetPositions(courseID, orderedIDs); err != nil {
		return nil, err
	}

	s.invalidateKiosk(courseID)
	return s.blockRepo.ListByCourse(courseID, false)
}
