package service

import (
	"errors"
	"os"
	"strings"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/repository"
	"github.com/ArchaicDeity/badge-to-cert/pkg/logger"
	"github.com/ArchaicDeity/badge-to-cert/pkg/validator"
)

// ContentService manages the single content unit of CONTENT blocks.
type ContentService struct {
	contentRepo repository.ContentUnitRepository
	blockRepo   repository.CourseBlockRepository
	courses     *CourseService
}

func NewContentService(
	contentRepo repository.ContentUnitRepository,
	blockRepo repository.CourseBlockRepository,
	courses *CourseService,
) *ContentService {
	return &ContentService{
		contentRepo: contentRepo,
		blockRepo:   blockRepo,
		courses:     courses,
	}
}

func (s *ContentService) GetByBlock(blockID uint) (*models.ContentUnit, error) {
	if s == nil || s.contentRepo == nil {
		return nil, errors.New("content repository is not configured")
	}
	return s.contentRepo.GetByBlockID(blockID)
}

// Save replaces the content unit of a CONTENT block. The previous unit's
// uploaded file, when no longer referenced, is removed best-effort after the
// swap commits.
func (s *ContentService) Save(blockID uint, req models.SaveContentRequest) (*models.ContentUnit, error) {
	if s == nil || s.contentRepo == nil || s.blockRepo == nil {
		return nil, errors.New("content repository is not configured")
	}

	block, err := s.blockRepo.GetByID(blockID)
	if err != nil {
		return nil, err
	}
	if block.Deleted {
		return nil, newValidationError("block is deleted")
	}
	if block.Kind != models.BlockKindContent {
		return nil, newValidationError("block %d is not a content block", blockID)
	}

	unit := models.ContentUnit{
		BlockID:         blockID,
		ContentType:     strings.ToLower(strings.TrimSpace(req.ContentType)),
		DurationMinutes: req.DurationMinutes,
	}
	if unit.DurationMinutes < 0 {
		return nil, newValidationError("duration must not be negative")
	}

	switch unit.ContentType {
	case models.ContentTypePDF:
		path := strings.TrimSpace(req.SourcePath)
		if path == "" {
			return nil, newValidationError("pdf content requires a source path")
		}
		if !validator.ValidateDocumentExtension(path) {
			return nil, newValidationError("unsupported document type: %s", path)
		}
		unit.SourcePath = path
	case models.ContentTypeHTML:
		body := strings.TrimSpace(req.HTMLBody)
		if body == "" {
			return nil, newValidationError("html content requires a body")
		}
		unit.HTMLBody = validator.SanitizeHTML(body)
	case models.ContentTypeLink:
		url := strings.TrimSpace(req.URL)
		if url == "" {
			return nil, newValidationError("link content requires a url")
		}
		if !validator.ValidateURL(url) {
			return nil, newValidationError("invalid url: %s", url)
		}
		unit.URL = url
	default:
		return nil, newValidationError("unsupported content type: %s", req.ContentType)
	}

	previous, err := s.contentRepo.Replace(&unit)
	if err != nil {
		return nil, err
	}

	if previous != nil && previous.SourcePath != "" && previous.SourcePath != unit.SourcePath {
		if removeErr := os.Remove(previous.SourcePath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.Warn("Failed to remove replaced content file", map[string]interface{}{
				"block_id": blockID,
				"path":     previous.SourcePath,
				"error":    removeErr.Error(),
			})
		}
	}

	if s.courses != nil {
		s.courses.InvalidateKiosk(block.CourseID)
	}

	return &unit, nil
}
