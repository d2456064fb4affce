package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/repository"
	"github.com/ArchaicDeity/badge-to-cert/pkg/cache"
)

const kioskCourseCacheTTL = 15 * time.Minute

// CourseService manages course metadata and builds the kiosk snapshot of a
// published course.
type CourseService struct {
	courseRepo     repository.CourseRepository
	blockRepo      repository.CourseBlockRepository
	contentRepo    repository.ContentUnitRepository
	assessmentRepo repository.AssessmentRepository
	cache          *cache.Cache
}

func NewCourseService(
	courseRepo repository.CourseRepository,
	blockRepo repository.CourseBlockRepository,
	contentRepo repository.ContentUnitRepository,
	assessmentRepo repository.AssessmentRepository,
	cache *cache.Cache,
) *CourseService {
	return &CourseService{
		courseRepo:     courseRepo,
		blockRepo:      blockRepo,
		contentRepo:    contentRepo,
		assessmentRepo: assessmentRepo,
		cache:          cache,
	}
}

func (s *CourseService) Create(req models.CreateCourseRequest) (*models.Course, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, newValidationError("course title is required")
	}

	course := models.Course{
		Title:       title,
		Code:        strings.TrimSpace(req.Code),
		Description: strings.TrimSpace(req.Description),
		Version:     1,
		Status:      models.CourseStatusDraft,
	}
	if err := s.courseRepo.Create(&course); err != nil {
		if isDuplicateKeyError(err) {
			return nil, newValidationError("course code is already in use")
		}
		return nil, err
	}
	return &course, nil
}

func (s *CourseService) Update(id uint, req models.UpdateCourseRequest) (*models.Course, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}

	course, err := s.courseRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, newValidationError("course title is required")
		}
		course.Title = title
	}
	if req.Code != nil {
		course.Code = strings.TrimSpace(*req.Code)
	}
	if req.Description != nil {
		course.Description = strings.TrimSpace(*req.Description)
	}

	if err := s.courseRepo.Update(course); err != nil {
		if isDuplicateKeyError(err) {
			return nil, newValidationError("course code is already in use")
		}
		return nil, err
	}

	s.InvalidateKiosk(course.ID)
	return course, nil
}

func (s *CourseService) Delete(id uint) error {
	if s == nil || s.courseRepo == nil {
		return errors.New("course repository is not configured")
	}
	if _, err := s.courseRepo.GetByID(id); err != nil {
		return err
	}
	if err := s.courseRepo.Delete(id); err != nil {
		return err
	}
	s.InvalidateKiosk(id)
	return nil
}

func (s *CourseService) GetByID(id uint) (*models.Course, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}
	return s.courseRepo.GetByID(id)
}

func (s *CourseService) List() ([]models.Course, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}
	return s.courseRepo.List()
}

// KioskView returns the snapshot a kiosk renders for a published course:
// live, enabled blocks in position order with content material and
// assessment rules, never the question bank. Snapshots are cached until a
// mutation invalidates them.
func (s *CourseService) KioskView(courseID uint) (*models.KioskCourseView, error) {
	if s == nil || s.courseRepo == nil || s.blockRepo == nil {
		return nil, errors.New("course repository is not configured")
	}

	cacheKey := kioskCourseCacheKey(courseID)
	if s.cache != nil {
		var cached models.KioskCourseView
		if err := s.cache.Get(cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	course, err := s.courseRepo.GetByID(courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CourseStatusPublished {
		return nil, gorm.ErrRecordNotFound
	}

	blocks, err := s.blockRepo.ListByCourse(courseID, false)
	if err != nil {
		return nil, err
	}

	view := models.KioskCourseView{
		ID:      course.ID,
		Title:   course.Title,
		Code:    course.Code,
		Version: course.Version,
		Blocks:  make([]models.KioskBlockView, 0, len(blocks)),
	}

	assessmentBlockIDs := make([]uint, 0, len(blocks))
	for _, block := range blocks {
		if block.Kind == models.BlockKindAssessment && !block.Disabled {
			assessmentBlockIDs = append(assessmentBlockIDs, block.ID)
		}
	}
	assessments := map[uint]models.Assessment{}
	if len(assessmentBlockIDs) > 0 && s.assessmentRepo != nil {
		assessments, err = s.assessmentRepo.GetByBlockIDs(assessmentBlockIDs)
		if err != nil {
			return nil, err
		}
	}

	for _, block := range blocks {
		if block.Disabled {
			continue
		}

		blockView := models.KioskBlockView{
			ID:          block.ID,
			Kind:        block.Kind,
			Title:       block.Title,
			Position:    block.Position,
			IsMandatory: block.IsMandatory,
		}

		switch block.Kind {
		case models.BlockKindContent:
			if s.contentRepo != nil {
				unit, err := s.contentRepo.GetByBlockID(block.ID)
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, err
				}
				if unit != nil {
					blockView.Content = &models.KioskContentView{
						ContentType:     unit.ContentType,
						SourcePath:      unit.SourcePath,
						HTMLBody:        unit.HTMLBody,
						URL:             unit.URL,
						DurationMinutes: unit.DurationMinutes,
					}
				}
			}
		case models.BlockKindAssessment:
			if assessment, ok := assessments[block.ID]; ok {
				blockView.Assessment = &models.KioskAssessmentView{
					NumQuestions:          assessment.NumQuestions,
					PassMarkPercent:       assessment.PassMarkPercent,
					TimeLimitMinutes:      assessment.TimeLimitMinutes,
					MaxAttempts:           assessment.MaxAttempts,
					RetakeCooldownMinutes: assessment.RetakeCooldownMinutes,
					ShuffleQuestions:      assessment.ShuffleQuestions,
				}
			}
		}

		view.Blocks = append(view.Blocks, blockView)
	}

	if s.cache != nil {
		_ = s.cache.Set(cacheKey, view, kioskCourseCacheTTL)
	}

	return &view, nil
}

// InvalidateKiosk drops the cached kiosk snapshot of a course. Safe to call
// with caching disabled.
func (s *CourseService) InvalidateKiosk(courseID uint) {
	if s == nil || s.cache == nil {
		return
	}
	_ = s.cache.Delete(kioskCourseCacheKey(courseID))
}

func kioskCourseCacheKey(courseID uint) string {
	return fmt.Sprintf("kiosk:course:%d", courseID)
}
