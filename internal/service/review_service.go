package service

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/repository"
	"github.com/ArchaicDeity/badge-to-cert/pkg/logger"
)

// ReviewService drives the publish workflow: DRAFT -> IN_REVIEW on submit,
// then PUBLISHED on approve or back to DRAFT on reject. Approving runs the
// publish validation and bumps the course version in the same transaction as
// the status change.
type ReviewService struct {
	reviewRepo repository.ReviewRepository
	courseRepo repository.CourseRepository
	validator  *CourseValidator
	courses    *CourseService
}

func NewReviewService(
	reviewRepo repository.ReviewRepository,
	courseRepo repository.CourseRepository,
	validator *CourseValidator,
	courses *CourseService,
) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		courseRepo: courseRepo,
		validator:  validator,
		courses:    courses,
	}
}

func (s *ReviewService) GetByID(id uint) (*models.ReviewRequest, error) {
	if s == nil || s.reviewRepo == nil {
		return nil, errors.New("review repository is not configured")
	}
	return s.reviewRepo.GetByID(id)
}

func (s *ReviewService) LatestForCourse(courseID uint) (*models.ReviewRequest, error) {
	if s == nil || s.reviewRepo == nil {
		return nil, errors.New("review repository is not configured")
	}
	return s.reviewRepo.LatestByCourse(courseID)
}

// Submit puts a DRAFT course into review. A course with an open review
// cannot be submitted again.
func (s *ReviewService) Submit(courseID uint, req models.CreateReviewRequest) (*models.ReviewRequest, error) {
	if s == nil || s.reviewRepo == nil || s.courseRepo == nil {
		return nil, errors.New("review repository is not configured")
	}

	course, err := s.courseRepo.GetByID(courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CourseStatusDraft {
		return nil, newValidationError("only draft courses can be submitted for review")
	}

	if latest, err := s.reviewRepo.LatestByCourse(courseID); err == nil {
		if latest.Status == models.ReviewStatusOpen {
			return nil, newValidationError("course already has an open review")
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	review := models.ReviewRequest{
		CourseID:    courseID,
		Status:      models.ReviewStatusOpen,
		SubmittedBy: req.SubmittedBy,
		Notes:       strings.TrimSpace(req.Notes),
	}
	if err := s.reviewRepo.CreateWithCourseStatus(&review, models.CourseStatusInReview); err != nil {
		return nil, err
	}

	logger.Info("Course submitted for review", map[string]interface{}{
		"course_id": courseID,
		"review_id": review.ID,
	})

	return &review, nil
}

// Approve publishes the course behind an open review. The publish validation
// must pass; on success the course flips to PUBLISHED and its version is
// bumped atomically with the review resolution.
func (s *ReviewService) Approve(reviewID uint, req models.ResolveReviewRequest) (*models.ReviewRequest, error) {
	if s == nil || s.reviewRepo == nil || s.courseRepo == nil {
		return nil, errors.New("review repository is not configured")
	}

	review, err := s.openReview(reviewID)
	if err != nil {
		return nil, err
	}

	if s.validator != nil {
		issues, err := s.validator.Validate(review.CourseID)
		if err != nil {
			return nil, err
		}
		if len(issues) > 0 {
			return nil, &PublishError{Issues: issues}
		}
	}

	now := time.Now()
	review.Status = models.ReviewStatusApproved
	review.ReviewedBy = req.ReviewedBy
	review.ReviewedAt = &now
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		review.Notes = notes
	}

	if err := s.reviewRepo.Resolve(review, models.CourseStatusPublished, true); err != nil {
		return nil, err
	}

	if s.courses != nil {
		s.courses.InvalidateKiosk(review.CourseID)
	}

	logger.Info("Course published", map[string]interface{}{
		"course_id": review.CourseID,
		"review_id": review.ID,
	})

	return review, nil
}

// Reject sends the course back to DRAFT.
func (s *ReviewService) Reject(reviewID uint, req models.ResolveReviewRequest) (*models.ReviewRequest, error) {
	if s == nil || s.reviewRepo == nil {
		return nil, errors.New("review repository is not configured")
	}

	review, err := s.openReview(reviewID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	review.Status = models.ReviewStatusRejected
	review.ReviewedBy = req.ReviewedBy
	review.ReviewedAt = &now
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		review.Notes = notes
	}

	if err := s.reviewRepo.Resolve(review, models.CourseStatusDraft, false); err != nil {
		return nil, err
	}

	return review, nil
}

// Publish flips a draft course straight to PUBLISHED without a review. The
// publish validation still gates it; an open review must be resolved first.
func (s *ReviewService) Publish(courseID uint) (*models.Course, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}

	course, err := s.courseRepo.GetByID(courseID)
	if err != nil {
		return nil, err
	}
	if course.Status == models.CourseStatusPublished {
		return nil, newValidationError("course is already published")
	}
	if course.Status == models.CourseStatusInReview {
		return nil, newValidationError("course has an open review; approve or reject it instead")
	}

	if s.validator != nil {
		issues, err := s.validator.Validate(courseID)
		if err != nil {
			return nil, err
		}
		if len(issues) > 0 {
			return nil, &PublishError{Issues: issues}
		}
	}

	course.Status = models.CourseStatusPublished
	course.Version++
	if err := s.courseRepo.Update(course); err != nil {
		return nil, err
	}

	if s.courses != nil {
		s.courses.InvalidateKiosk(courseID)
	}

	logger.Info("Course published", map[string]interface{}{
		"course_id": courseID,
		"version":   course.Version,
	})

	return course, nil
}

// Preflight runs the publish validation without touching the workflow, so
// authors can check a draft before submitting.
func (s *ReviewService) Preflight(courseID uint) ([]Issue, error) {
	if s == nil || s.validator == nil {
		return nil, errors.New("course validator is not configured")
	}
	if s.courseRepo != nil {
		if _, err := s.courseRepo.GetByID(courseID); err != nil {
			return nil, err
		}
	}
	return s.validator.Validate(courseID)
}

func (s *ReviewService) openReview(reviewID uint) (*models.ReviewRequest, error) {
	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status != models.ReviewStatusOpen {
		return nil, newValidationError("review is already resolved")
	}
	return review, nil
}
