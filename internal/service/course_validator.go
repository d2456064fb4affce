package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/repository"
)

// CourseValidator collects everything that blocks publishing a course. All
// findings are gathered in one pass so authors fix a complete list instead
// of replaying the workflow issue by issue.
type CourseValidator struct {
	blockRepo      repository.CourseBlockRepository
	contentRepo    repository.ContentUnitRepository
	assessmentRepo repository.AssessmentRepository
	questionRepo   repository.QuestionRepository
}

func NewCourseValidator(
	blockRepo repository.CourseBlockRepository,
	contentRepo repository.ContentUnitRepository,
	assessmentRepo repository.AssessmentRepository,
	questionRepo repository.QuestionRepository,
) *CourseValidator {
	return &CourseValidator{
		blockRepo:      blockRepo,
		contentRepo:    contentRepo,
		assessmentRepo: assessmentRepo,
		questionRepo:   questionRepo,
	}
}

// Validate returns the publish-blocking issues of a course. An empty slice
// means the course is publishable.
func (v *CourseValidator) Validate(courseID uint) ([]Issue, error) {
	if v == nil || v.blockRepo == nil {
		return nil, errors.New("course validator is not configured")
	}

	blocks, err := v.blockRepo.ListByCourse(courseID, false)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return []Issue{{Message: "course has no blocks"}}, nil
	}

	var issues []Issue

	enabled := 0
	mandatory := 0
	for _, block := range blocks {
		if block.Disabled {
			continue
		}
		enabled++
		if block.IsMandatory {
			mandatory++
		}
	}
	if enabled == 0 {
		issues = append(issues, Issue{Message: "course has no enabled blocks"})
	}
	if mandatory == 0 {
		issues = append(issues, Issue{Message: "course has no mandatory blocks"})
	}

	for _, block := range blocks {
		if block.Disabled {
			continue
		}
		switch block.Kind {
		case models.BlockKindContent:
			issues = append(issues, v.validateContent(block)...)
		case models.BlockKindAssessment:
			issues = append(issues, v.validateAssessment(block)...)
		}
	}

	return issues, nil
}

func (v *CourseValidator) validateContent(block models.CourseBlock) []Issue {
	if v.contentRepo == nil {
		return nil
	}
	unit, err := v.contentRepo.GetByBlockID(block.ID)
	if err != nil || unit == nil {
		return []Issue{{
			BlockID: block.ID,
			Message: fmt.Sprintf("content block %q has no material", block.Title),
		}}
	}

	empty := false
	switch unit.ContentType {
	case models.ContentTypePDF:
		empty = strings.TrimSpace(unit.SourcePath) == ""
	case models.ContentTypeHTML:
		empty = strings.TrimSpace(unit.HTMLBody) == ""
	case models.ContentTypeLink:
		empty = strings.TrimSpace(unit.URL) == ""
	}
	if empty {
		return []Issue{{
			BlockID: block.ID,
			Message: fmt.Sprintf("content block %q material is empty", block.Title),
		}}
	}
	return nil
}

func (v *CourseValidator) validateAssessment(block models.CourseBlock) []Issue {
	if v.assessmentRepo == nil {
		return nil
	}

	assessment, err := v.assessmentRepo.GetByBlockID(block.ID)
	if err != nil || assessment == nil {
		return []Issue{{
			BlockID: block.ID,
			Message: fmt.Sprintf("assessment block %q is not configured", block.Title),
		}}
	}

	var issues []Issue
	if assessment.PassMarkPercent <= 0 || assessment.PassMarkPercent > 100 {
		issues = append(issues, Issue{
			BlockID: block.ID,
			Message: fmt.Sprintf("assessment block %q pass mark %d is out of range", block.Title, assessment.PassMarkPercent),
		})
	}
	if v.questionRepo != nil {
		questions, err := v.questionRepo.ListByAssessment(assessment.ID)
		if err != nil {
			issues = append(issues, Issue{
				BlockID: block.ID,
				Message: fmt.Sprintf("assessment block %q question bank could not be read", block.Title),
			})
		} else if len(questions) < assessment.NumQuestions {
			issues = append(issues, Issue{
				BlockID: block.ID,
				Message: fmt.Sprintf("assessment block %q needs %d questions but the bank has %d", block.Title, assessment.NumQuestions, len(questions)),
			})
		}
	}
	return issues
}
