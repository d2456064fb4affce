package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
)

type LearnerRepository interface {
	Create(learner *models.Learner) error
	GetByID(id uint) (*models.Learner, error)
	GetByBadgeID(badgeID string) (*models.Learner, error)
}

type EnrollmentRepository interface {
	Create(enrollment *models.Enrollment) error
	Update(enrollment *models.Enrollment) error
	GetByID(id uint) (*models.Enrollment, error)
	GetByLearnerAndCourse(learnerID, courseID uint) (*models.Enrollment, error)
}

type ProgressRepository interface {
	// GetOrCreate returns the progress row for the pair, creating a
	// NOT_STARTED row on first touch.
	GetOrCreate(enrollmentID, blockID uint) (*models.EnrollmentProgress, error)
	Get(enrollmentID, blockID uint) (*models.EnrollmentProgress, error)
	Update(progress *models.EnrollmentProgress) error
	ListByEnrollment(enrollmentID uint) ([]models.EnrollmentProgress, error)
}

type AttemptRepository interface {
	Create(attempt *models.AssessmentAttempt) error
	Update(attempt *models.AssessmentAttempt) error
	GetByToken(token string) (*models.AssessmentAttempt, error)
	// ActiveForBlock returns the in-progress attempt of an enrollment on a
	// block, or gorm.ErrRecordNotFound.
	ActiveForBlock(enrollmentID, blockID uint) (*models.AssessmentAttempt, error)
	// ListOverdue returns in-progress attempts whose deadline has passed.
	ListOverdue(before time.Time, limit int) ([]models.AssessmentAttempt, error)
	// CountActiveForBlock counts in-progress attempts across all enrollments
	// of a block.
	CountActiveForBlock(blockID uint) (int64, error)
}

type learnerRepository struct {
	db *gorm.DB
}

type enrollmentRepository struct {
	db *gorm.DB
}

type progressRepository struct {
	db *gorm.DB
}

type attemptRepository struct {
	db *gorm.DB
}

func NewLearnerRepository(db *gorm.DB) LearnerRepository {
	return &learnerRepository{db: db}
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *learnerRepository) Create(learner *models.Learner) error {
	if r == nil || r.db == nil {
		return errors.New("learner repository is not initialised")
	}
	if learner == nil {
		return errors.New("learner is required")
	}
	return r.db.Create(learner).Error
}

func (r *learnerRepository) GetByID(id uint) (*models.Learner, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("learner repository is not initialised")
	}
	var learner models.Learner
	if err := r.db.First(&learner, id).Error; err != nil {
		return nil, err
	}
	return &learner, nil
}

func (r *learnerRepository) GetByBadgeID(badgeID string) (*models.Learner, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("learner repository is not initialised")
	}
	var learner models.Learner
	if err := r.db.Where("badge_id = ?", badgeID).First(&learner).Error; err != nil {
		return nil, err
	}
	return &learner, nil
}

func (r *enrollmentRepository) Create(enrollment *models.Enrollment) error {
	if r == nil || r.db == nil {
		return errors.New("enrollment repository is not initialised")
	}
	if enrollment == nil {
		return errors.New("enrollment is required")
	}
	return r.db.Create(enrollment).Error
}

func (r *enrollmentRepository) Update(enrollment *models.Enrollment) error {
	if r == nil || r.db == nil {
		return errors.New("enrollment repository is not initialised")
	}
	if enrollment == nil {
		return errors.New("enrollment is required")
	}
	return r.db.Save(enrollment).Error
}

func (r *enrollmentRepository) GetByID(id uint) (*models.Enrollment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("enrollment repository is not initialised")
	}
	var enrollment models.Enrollment
	if err := r.db.First(&enrollment, id).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) GetByLearnerAndCourse(learnerID, courseID uint) (*models.Enrollment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("enrollment repository is not initialised")
	}
	var enrollment models.Enrollment
	if err := r.db.
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		First(&enrollment).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *progressRepository) GetOrCreate(enrollmentID, blockID uint) (*models.EnrollmentProgress, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("progress repository is not initialised")
	}
	var progress models.EnrollmentProgress
	err := r.db.Where("enrollment_id = ? AND block_id = ?", enrollmentID, blockID).First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	progress = models.EnrollmentProgress{
		EnrollmentID: enrollmentID,
		BlockID:      blockID,
		Status:       models.ProgressNotStarted,
	}
	if err := r.db.Create(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *progressRepository) Get(enrollmentID, blockID uint) (*models.EnrollmentProgress, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("progress repository is not initialised")
	}
	var progress models.EnrollmentProgress
	if err := r.db.Where("enrollment_id = ? AND block_id = ?", enrollmentID, blockID).First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *progressRepository) Update(progress *models.EnrollmentProgress) error {
	if r == nil || r.db == nil {
		return errors.New("progress repository is not initialised")
	}
	if progress == nil {
		return errors.New("progress is required")
	}
	return r.db.Save(progress).Error
}

func (r *progressRepository) ListByEnrollment(enrollmentID uint) ([]models.EnrollmentProgress, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("progress repository is not initialised")
	}
	var rows []models.EnrollmentProgress
	if err := r.db.Where("enrollment_id = ?", enrollmentID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *attemptRepository) Create(attempt *models.AssessmentAttempt) error {
	if r == nil || r.db == nil {
		return errors.New("attempt repository is not initialised")
	}
	if attempt == nil {
		return errors.New("attempt is required")
	}
	return r.db.Create(attempt).Error
}

func (r *attemptRepository) Update(attempt *models.AssessmentAttempt) error {
	if r == nil || r.db == nil {
		return errors.New("attempt repository is not initialised")
	}
	if attempt == nil {
		return errors.New("attempt is required")
	}
	return r.db.Save(attempt).Error
}

func (r *attemptRepository) GetByToken(token string) (*models.AssessmentAttempt, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("attempt repository is not initialised")
	}
	var attempt models.AssessmentAttempt
	if err := r.db.Where("token = ?", token).First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) ActiveForBlock(enrollmentID, blockID uint) (*models.AssessmentAttempt, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("attempt repository is not initialised")
	}
	var attempt models.AssessmentAttempt
	if err := r.db.
		Where("enrollment_id = ? AND block_id = ? AND state = ?", enrollmentID, blockID, models.AttemptStateInProgress).
		Order("started_at DESC").
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) CountActiveForBlock(blockID uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("attempt repository is not initialised")
	}
	var count int64
	if err := r.db.Model(&models.AssessmentAttempt{}).
		Where("block_id = ? AND state = ?", blockID, models.AttemptStateInProgress).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *attemptRepository) ListOverdue(before time.Time, limit int) ([]models.AssessmentAttempt, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("attempt repository is not initialised")
	}
	if limit <= 0 {
		limit = 100
	}
	var attempts []models.AssessmentAttempt
	if err := r.db.
		Where("state = ? AND deadline <= ?", models.AttemptStateInProgress, before).
		Order("deadline ASC").
		Limit(limit).
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}
