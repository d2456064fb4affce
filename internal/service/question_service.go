package service

import (
	"errors"
	"strconv"
	"strings"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/repository"
	"github.com/ArchaicDeity/badge-to-cert/pkg/validator"
)

// QuestionService manages the question bank of assessments. MCQ questions
// need an ordered choice list with one correct index; TF questions need a
// correct boolean and nothing else.
type QuestionService struct {
	questionRepo   repository.QuestionRepository
	assessmentRepo repository.AssessmentRepository
}

func NewQuestionService(
	questionRepo repository.QuestionRepository,
	assessmentRepo repository.AssessmentRepository,
) *QuestionService {
	return &QuestionService{
		questionRepo:   questionRepo,
		assessmentRepo: assessmentRepo,
	}
}

func (s *QuestionService) ListByAssessment(assessmentID uint) ([]models.Question, error) {
	if s == nil || s.questionRepo == nil {
		return nil, errors.New("question repository is not configured")
	}
	questions, err := s.questionRepo.ListByAssessment(assessmentID)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		if err := questions[i].DecodeChoices(); err != nil {
			return nil, err
		}
	}
	return questions, nil
}

func (s *QuestionService) Create(assessmentID uint, req models.QuestionRequest) (*models.Question, error) {
	if s == nil || s.questionRepo == nil {
		return nil, errors.New("question repository is not configured")
	}
	if s.assessmentRepo != nil {
		if _, err := s.assessmentRepo.GetByID(assessmentID); err != nil {
			return nil, err
		}
	}

	question, err := buildQuestion(assessmentID, req, 0)
	if err != nil {
		return nil, err
	}
	if err := s.questionRepo.Create(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuestionService) Update(id uint, req models.QuestionRequest) (*models.Question, error) {
	if s == nil || s.questionRepo == nil {
		return nil, errors.New("question repository is not configured")
	}

	existing, err := s.questionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	question, err := buildQuestion(existing.AssessmentID, req, 0)
	if err != nil {
		return nil, err
	}
	question.ID = existing.ID
	question.CreatedAt = existing.CreatedAt

	if err := s.questionRepo.Update(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuestionService) Delete(id uint) error {
	if s == nil || s.questionRepo == nil {
		return errors.New("question repository is not configured")
	}
	if _, err := s.questionRepo.GetByID(id); err != nil {
		return err
	}
	return s.questionRepo.Delete(id)
}

// BulkImport validates every item before persisting any, so a bad row aborts
// the whole import.
func (s *QuestionService) BulkImport(assessmentID uint, req models.BulkImportQuestionsRequest) ([]models.Question, error) {
	if s == nil || s.questionRepo == nil {
		return nil, errors.New("question repository is not configured")
	}
	if s.assessmentRepo != nil {
		if _, err := s.assessmentRepo.GetByID(assessmentID); err != nil {
			return nil, err
		}
	}
	if len(req.Items) == 0 {
		return nil, newValidationError("import needs at least one question")
	}

	questions := make([]models.Question, 0, len(req.Items))
	for idx, item := range req.Items {
		question, err := buildQuestion(assessmentID, item, idx+1)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *question)
	}

	if err := s.questionRepo.CreateBatch(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// buildQuestion validates and normalizes one question payload. ordinal is
// used in error messages for bulk imports; zero means a single-question
// operation.
func buildQuestion(assessmentID uint, req models.QuestionRequest, ordinal int) (*models.Question, error) {
	label := ""
	if ordinal > 0 {
		label = "question " + strconv.Itoa(ordinal) + " "
	}

	questionType := strings.ToUpper(strings.TrimSpace(req.Type))
	body := validator.SanitizeString(req.Body)
	if body == "" {
		return nil, newValidationError("%sbody is required", label)
	}

	question := models.Question{
		AssessmentID: assessmentID,
		Type:         questionType,
		Body:         body,
		Explanation:  validator.SanitizeString(req.Explanation),
		Tags:         strings.TrimSpace(req.Tags),
	}

	switch questionType {
	case models.QuestionTypeMCQ:
		if len(req.Choices) < 2 {
			return nil, newValidationError("%smust have at least two choices", label)
		}
		choices := make([]string, 0, len(req.Choices))
		for _, choice := range req.Choices {
			cleaned := validator.SanitizeString(choice)
			if cleaned == "" {
				return nil, newValidationError("%shas an empty choice", label)
			}
			choices = append(choices, cleaned)
		}
		if req.CorrectIndex == nil {
			return nil, newValidationError("%scorrect choice is required", label)
		}
		if *req.CorrectIndex < 0 || *req.CorrectIndex >= len(choices) {
			return nil, newValidationError("%scorrect choice is out of range", label)
		}
		question.Choices = choices
		question.CorrectIndex = req.CorrectIndex
		if err := question.EncodeChoices(); err != nil {
			return nil, err
		}
	case models.QuestionTypeTF:
		if len(req.Choices) > 0 {
			return nil, newValidationError("%strue/false questions take no choices", label)
		}
		if req.CorrectBool == nil {
			return nil, newValidationError("%scorrect answer is required", label)
		}
		question.CorrectBool = req.CorrectBool
	default:
		return nil, newValidationError("%shas unsupported type: %s", label, req.Type)
	}

	return &question, nil
}
