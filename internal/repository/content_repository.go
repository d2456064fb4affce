package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
)

type ContentUnitRepository interface {
	GetByBlockID(blockID uint) (*models.ContentUnit, error)
	// Replace swaps the single content unit of a block for a new one in one
	// transaction, returning the replaced unit (nil when none existed).
	Replace(unit *models.ContentUnit) (*models.ContentUnit, error)
	// ListSourcePaths returns every stored file path still referenced by a
	// content unit. Used by the orphaned upload sweep.
	ListSourcePaths() ([]string, error)
}

type AssessmentRepository interface {
	GetByID(id uint) (*models.Assessment, error)
	GetByBlockID(blockID uint) (*models.Assessment, error)
	GetByBlockIDs(blockIDs []uint) (map[uint]models.Assessment, error)
	Upsert(assessment *models.Assessment) error
}

type QuestionRepository interface {
	Create(question *models.Question) error
	CreateBatch(questions []models.Question) error
	Update(question *models.Question) error
	Delete(id uint) error
	GetByID(id uint) (*models.Question, error)
	ListByAssessment(assessmentID uint) ([]models.Question, error)
	GetByIDs(ids []uint) ([]models.Question, error)
}

type contentUnitRepository struct {
	db *gorm.DB
}

type assessmentRepository struct {
	db *gorm.DB
}

type questionRepository struct {
	db *gorm.DB
}

func NewContentUnitRepository(db *gorm.DB) ContentUnitRepository {
	return &contentUnitRepository{db: db}
}

func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *contentUnitRepository) GetByBlockID(blockID uint) (*models.ContentUnit, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("content unit repository is not initialised")
	}
	var unit models.ContentUnit
	if err := r.db.Where("block_id = ? AND deleted = ?", blockID, false).First(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *contentUnitRepository) Replace(unit *models.ContentUnit) (*models.ContentUnit, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("content unit repository is not initialised")
	}
	if unit == nil {
		return nil, errors.New("content unit is required")
	}
	var previous *models.ContentUnit
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.ContentUnit
		err := tx.Where("block_id = ?", unit.BlockID).First(&existing).Error
		if err == nil {
			previous = &existing
			if err := tx.Delete(&models.ContentUnit{}, existing.ID).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(unit).Error
	})
	if err != nil {
		return nil, err
	}
	return previous, nil
}

func (r *contentUnitRepository) ListSourcePaths() ([]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("content unit repository is not initialised")
	}
	var paths []string
	if err := r.db.Model(&models.ContentUnit{}).
		Where("source_path <> ''").
		Pluck("source_path", &paths).Error; err != nil {
		return nil, err
	}
	return paths, nil
}

func (r *assessmentRepository) GetByID(id uint) (*models.Assessment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("assessment repository is not initialised")
	}
	var assessment models.Assessment
	if err := r.db.First(&assessment, id).Error; err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (r *assessmentRepository) GetByBlockID(blockID uint) (*models.Assessment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("assessment repository is not initialised")
	}
	var assessment models.Assessment
	if err := r.db.Where("block_id = ? AND deleted = ?", blockID, false).First(&assessment).Error; err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (r *assessmentRepository) GetByBlockIDs(blockIDs []uint) (map[uint]models.Assessment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("assessment repository is not initialised")
	}
	result := make(map[uint]models.Assessment, len(blockIDs))
	if len(blockIDs) == 0 {
		return result, nil
	}
	var assessments []models.Assessment
	if err := r.db.Where("block_id IN ? AND deleted = ?", blockIDs, false).Find(&assessments).Error; err != nil {
		return nil, err
	}
	for _, assessment := range assessments {
		result[assessment.BlockID] = assessment
	}
	return result, nil
}

func (r *assessmentRepository) Upsert(assessment *models.Assessment) error {
	if r == nil || r.db == nil {
		return errors.New("assessment repository is not initialised")
	}
	if assessment == nil {
		return errors.New("assessment is required")
	}
	var existing models.Assessment
	err := r.db.Where("block_id = ?", assessment.BlockID).First(&existing).Error
	if err == nil {
		assessment.ID = existing.ID
		assessment.CreatedAt = existing.CreatedAt
		return r.db.Save(assessment).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.Create(assessment).Error
}

func (r *questionRepository) Create(question *models.Question) error {
	if r == nil || r.db == nil {
		return errors.New("question repository is not initialised")
	}
	if question == nil {
		return errors.New("question is required")
	}
	return r.db.Create(question).Error
}

func (r *questionRepository) CreateBatch(questions []models.Question) error {
	if r == nil || r.db == nil {
		return errors.New("question repository is not initialised")
	}
	if len(questions) == 0 {
		return nil
	}
	return r.db.Create(&questions).Error
}

func (r *questionRepository) Update(question *models.Question) error {
	if r == nil || r.db == nil {
		return errors.New("question repository is not initialised")
	}
	if question == nil {
		return errors.New("question is required")
	}
	return r.db.Save(question).Error
}

func (r *questionRepository) Delete(id uint) error {
	if r == nil || r.db == nil {
		return errors.New("question repository is not initialised")
	}
	return r.db.Delete(&models.Question{}, id).Error
}

func (r *questionRepository) GetByID(id uint) (*models.Question, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("question repository is not initialised")
	}
	var question models.Question
	if err := r.db.First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepository) ListByAssessment(assessmentID uint) ([]models.Question, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("question repository is not initialised")
	}
	var questions []models.Question
	if err := r.db.
		Where("assessment_id = ? AND deleted = ?", assessmentID, false).
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) GetByIDs(ids []uint) ([]models.Question, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("question repository is not initialised")
	}
	if len(ids) == 0 {
		return []models.Question{}, nil
	}
	var questions []models.Question
	if err := r.db.Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}
