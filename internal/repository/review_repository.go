package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
)

type ReviewRepository interface {
	Create(review *models.ReviewRequest) error
	GetByID(id uint) (*models.ReviewRequest, error)
	// LatestByCourse returns the newest review request for a course, or
	// gorm.ErrRecordNotFound when the course has never been submitted.
	LatestByCourse(courseID uint) (*models.ReviewRequest, error)
	// Resolve updates a review and its course's status in one transaction.
	// courseVersion of zero leaves the version untouched.
	Resolve(review *models.ReviewRequest, courseStatus string, bumpVersion bool) error
	// CreateWithCourseStatus creates the review and flips the course status
	// atomically.
	CreateWithCourseStatus(review *models.ReviewRequest, courseStatus string) error
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(review *models.ReviewRequest) error {
	if r == nil || r.db == nil {
		return errors.New("review repository is not initialised")
	}
	if review == nil {
		return errors.New("review is required")
	}
	return r.db.Create(review).Error
}

func (r *reviewRepository) GetByID(id uint) (*models.ReviewRequest, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("review repository is not initialised")
	}
	var review models.ReviewRequest
	if err := r.db.First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) LatestByCourse(courseID uint) (*models.ReviewRequest, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("review repository is not initialised")
	}
	var review models.ReviewRequest
	if err := r.db.
		Where("course_id = ?", courseID).
		Order("created_at DESC, id DESC").
		First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) Resolve(review *models.ReviewRequest, courseStatus string, bumpVersion bool) error {
	if r == nil || r.db == nil {
		return errors.New("review repository is not initialised")
	}
	if review == nil {
		return errors.New("review is required")
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(review).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{"status": courseStatus}
		if bumpVersion {
			updates["version"] = gorm.Expr("version + 1")
		}
		return tx.Model(&models.Course{}).
			Where("id = ?", review.CourseID).
			Updates(updates).Error
	})
}

func (r *reviewRepository) CreateWithCourseStatus(review *models.ReviewRequest, courseStatus string) error {
	if r == nil || r.db == nil {
		return errors.New("review repository is not initialised")
	}
	if review == nil {
		return errors.New("review is required")
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		return tx.Model(&models.Course{}).
			Where("id = ?", review.CourseID).
			Update("status", courseStatus).Error
	})
}
