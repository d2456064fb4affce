package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/repository"
	"github.com/ArchaicDeity/badge-to-cert/pkg/logger"
)

// ProgressService tracks an enrollment's path through a course: block
// completion, the next block to work on, and course completion with
// certificate issuance once every mandatory block is passed.
type ProgressService struct {
	progressRepo   repository.ProgressRepository
	enrollmentRepo repository.EnrollmentRepository
	learnerRepo    repository.LearnerRepository
	blockRepo      repository.CourseBlockRepository
	courseRepo     repository.CourseRepository
	certificates   *CertificateService
}

func NewProgressService(
	progressRepo repository.ProgressRepository,
	enrollmentRepo repository.EnrollmentRepository,
	learnerRepo repository.LearnerRepository,
	blockRepo repository.CourseBlockRepository,
	courseRepo repository.CourseRepository,
	certificates *CertificateService,
) *ProgressService {
	return &ProgressService{
		progressRepo:   progressRepo,
		enrollmentRepo: enrollmentRepo,
		learnerRepo:    learnerRepo,
		blockRepo:      blockRepo,
		courseRepo:     courseRepo,
		certificates:   certificates,
	}
}

// Enroll ties a learner (identified by badge) to a published course. An
// unfinished existing enrollment is returned instead of creating a second
// one.
func (s *ProgressService) Enroll(req models.CreateEnrollmentRequest) (*models.Enrollment, error) {
	if s == nil || s.enrollmentRepo == nil || s.learnerRepo == nil {
		return nil, errors.New("enrollment repository is not configured")
	}

	learner, err := s.learnerRepo.GetByBadgeID(req.BadgeID)
	if err != nil {
		return nil, err
	}

	course, err := s.courseRepo.GetByID(req.CourseID)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CourseStatusPublished {
		return nil, newValidationError("course is not published")
	}

	if existing, err := s.enrollmentRepo.GetByLearnerAndCourse(learner.ID, course.ID); err == nil {
		if existing.CompletedAt == nil {
			return existing, nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	enrollment := models.Enrollment{
		LearnerID: learner.ID,
		CourseID:  course.ID,
	}
	if err := s.enrollmentRepo.Create(&enrollment); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// MarkContentComplete records that a learner finished a CONTENT block.
func (s *ProgressService) MarkContentComplete(enrollmentID, blockID uint) (*models.EnrollmentProgressView, error) {
	if s == nil || s.progressRepo == nil || s.blockRepo == nil {
		return nil, errors.New("progress repository is not configured")
	}

	enrollment, err := s.enrollmentRepo.GetByID(enrollmentID)
	if err != nil {
		return nil, err
	}

	block, err := s.blockRepo.GetByID(blockID)
	if err != nil {
		return nil, err
	}
	if block.CourseID != enrollment.CourseID {
		return nil, newValidationError("block %d does not belong to the enrolled course", blockID)
	}
	if block.Deleted || block.Disabled {
		return nil, newValidationError("block is not available")
	}
	if block.Kind != models.BlockKindContent {
		return nil, newValidationError("block %d is not a content block", blockID)
	}

	progress, err := s.progressRepo.GetOrCreate(enrollmentID, blockID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if progress.Status != models.ProgressCompleted {
		progress.Status = models.ProgressCompleted
		progress.CompletedAt = &now
		if progress.StartedAt == nil {
			progress.StartedAt = &now
		}
		if err := s.progressRepo.Update(progress); err != nil {
			return nil, err
		}
	}

	if err := s.OnBlockSettled(enrollmentID, blockID, now); err != nil {
		return nil, err
	}

	return s.Summary(enrollmentID)
}

// OnBlockSettled re-evaluates an enrollment after any block outcome lands.
// When every mandatory live block is completed the enrollment finishes and a
// certificate is issued; the enrollment id stays stable so the issue is
// idempotent.
func (s *ProgressService) OnBlockSettled(enrollmentID, blockID uint, now time.Time) error {
	if s == nil || s.enrollmentRepo == nil || s.blockRepo == nil || s.progressRepo == nil {
		return errors.New("progress repository is not configured")
	}

	enrollment, err := s.enrollmentRepo.GetByID(enrollmentID)
	if err != nil {
		return err
	}
	if enrollment.CompletedAt != nil {
		return nil
	}

	blocks, err := s.blockRepo.ListByCourse(enrollment.CourseID, false)
	if err != nil {
		return err
	}
	rows, err := s.progressRepo.ListByEnrollment(enrollmentID)
	if err != nil {
		return err
	}
	byBlock := make(map[uint]models.EnrollmentProgress, len(rows))
	for _, row := range rows {
		byBlock[row.BlockID] = row
	}

	for _, block := range blocks {
		if block.Disabled || !block.IsMandatory {
			continue
		}
		row, ok := byBlock[block.ID]
		if !ok || row.Status != models.ProgressCompleted {
			return nil
		}
	}

	enrollment.CompletedAt = &now
	if err := s.enrollmentRepo.Update(enrollment); err != nil {
		return err
	}

	logger.Info("Enrollment completed", map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"course_id":     enrollment.CourseID,
	})

	if s.certificates != nil {
		if _, err := s.certificates.IssueForEnrollment(enrollment); err != nil {
			return err
		}
	}
	return nil
}

// Summary builds the kiosk's view of an enrollment: per-block outcomes in
// position order, the next actionable block, and the terminal flags. A
// mandatory block in FAILED state ends the run without a certificate.
func (s *ProgressService) Summary(enrollmentID uint) (*models.EnrollmentProgressView, error) {
	if s == nil || s.enrollmentRepo == nil || s.blockRepo == nil || s.progressRepo == nil {
		return nil, errors.New("progress repository is not configured")
	}

	enrollment, err := s.enrollmentRepo.GetByID(enrollmentID)
	if err != nil {
		return nil, err
	}

	blocks, err := s.blockRepo.ListByCourse(enrollment.CourseID, false)
	if err != nil {
		return nil, err
	}
	rows, err := s.progressRepo.ListByEnrollment(enrollmentID)
	if err != nil {
		return nil, err
	}
	byBlock := make(map[uint]models.EnrollmentProgress, len(rows))
	for _, row := range rows {
		byBlock[row.BlockID] = row
	}

	view := models.EnrollmentProgressView{
		EnrollmentID: enrollment.ID,
		CourseID:     enrollment.CourseID,
		Completed:    enrollment.CompletedAt != nil,
		Blocks:       make([]models.ProgressBlockView, 0, len(blocks)),
	}

	for _, block := range blocks {
		if block.Disabled {
			continue
		}

		status := models.ProgressNotStarted
		var score *int
		attempts := 0
		if row, ok := byBlock[block.ID]; ok {
			status = row.Status
			score = row.Score
			attempts = row.Attempts
		}

		view.Blocks = append(view.Blocks, models.ProgressBlockView{
			BlockID:     block.ID,
			Kind:        block.Kind,
			Title:       block.Title,
			Position:    block.Position,
			IsMandatory: block.IsMandatory,
			Status:      status,
			Score:       score,
			Attempts:    attempts,
		})

		if block.IsMandatory && status == models.ProgressFailed {
			view.Failed = true
		}
		// A failed optional block is settled: the run moves past it.
		settled := status == models.ProgressCompleted ||
			(status == models.ProgressFailed && !block.IsMandatory)
		if view.NextBlockID == nil && !view.Failed && !settled {
			id := block.ID
			view.NextBlockID = &id
		}
	}

	if view.Completed && s.certificates != nil {
		if cert, err := s.certificates.GetByEnrollment(enrollment.ID); err == nil {
			view.CertificateCode = cert.Code
		}
	}

	return &view, nil
}
