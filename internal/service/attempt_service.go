package service

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/repository"
	"github.com/ArchaicDeity/badge-to-cert/pkg/logger"
)

// Clock abstracts time.Now so deadline and cooldown behaviour is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// AttemptService runs the server-side assessment attempt state machine. An
// attempt is IN_PROGRESS from start until submit or deadline; it finalizes
// exactly once into PASSED, AWAITING_RETAKE or FAILED_FINAL.
type AttemptService struct {
	attemptRepo    repository.AttemptRepository
	assessmentRepo repository.AssessmentRepository
	questionRepo   repository.QuestionRepository
	blockRepo      repository.CourseBlockRepository
	enrollmentRepo repository.EnrollmentRepository
	progressRepo   repository.ProgressRepository
	progress       *ProgressService

	clock Clock
	// shuffleFn defaults to rand.Shuffle; tests swap in a deterministic one.
	shuffleFn func(n int, swap func(i, j int))
}

func NewAttemptService(
	attemptRepo repository.AttemptRepository,
	assessmentRepo repository.AssessmentRepository,
	questionRepo repository.QuestionRepository,
	blockRepo repository.CourseBlockRepository,
	enrollmentRepo repository.EnrollmentRepository,
	progressRepo repository.ProgressRepository,
	progress *ProgressService,
) *AttemptService {
	return &AttemptService{
		attemptRepo:    attemptRepo,
		assessmentRepo: assessmentRepo,
		questionRepo:   questionRepo,
		blockRepo:      blockRepo,
		enrollmentRepo: enrollmentRepo,
		progressRepo:   progressRepo,
		progress:       progress,
		clock:          systemClock{},
		shuffleFn:      rand.Shuffle,
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *AttemptService) SetClock(clock Clock) {
	if s == nil || clock == nil {
		return
	}
	s.clock = clock
}

// SetShuffle overrides the question shuffler. Intended for tests.
func (s *AttemptService) SetShuffle(shuffleFn func(n int, swap func(i, j int))) {
	if s == nil || shuffleFn == nil {
		return
	}
	s.shuffleFn = shuffleFn
}

// Start begins (or resumes) an attempt on an assessment block. A still-live
// in-progress attempt is returned as-is; an overdue one is finalized first.
// Attempt limits and the retake cooldown are enforced here.
func (s *AttemptService) Start(req models.StartAttemptRequest) (*models.AttemptView, error) {
	if s == nil || s.attemptRepo == nil || s.assessmentRepo == nil || s.questionRepo == nil {
		return nil, errors.New("attempt repository is not configured")
	}

	var enrollment *models.Enrollment
	if s.enrollmentRepo != nil {
		found, err := s.enrollmentRepo.GetByID(req.EnrollmentID)
		if err != nil {
			return nil, err
		}
		enrollment = found
	}

	block, err := s.blockRepo.GetByID(req.BlockID)
	if err != nil {
		return nil, err
	}
	if enrollment != nil && block.CourseID != enrollment.CourseID {
		return nil, newValidationError("block %d does not belong to the enrolled course", req.BlockID)
	}
	if block.Deleted || block.Disabled {
		return nil, newValidationError("block is not available")
	}
	if block.Kind != models.BlockKindAssessment {
		return nil, newValidationError("block %d is not an assessment block", req.BlockID)
	}

	assessment, err := s.assessmentRepo.GetByBlockID(req.BlockID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	if active, err := s.attemptRepo.ActiveForBlock(req.EnrollmentID, req.BlockID); err == nil {
		if now.Before(active.Deadline) {
			return s.view(active, assessment, true)
		}
		if _, err := s.finalize(active, assessment, now); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	progress, err := s.progressRepo.GetOrCreate(req.EnrollmentID, req.BlockID)
	if err != nil {
		return nil, err
	}
	if progress.Status == models.ProgressCompleted {
		return nil, newValidationError("assessment is already passed")
	}
	if progress.Attempts >= assessment.MaxAttempts {
		return nil, newValidationError("no attempts remaining")
	}
	if progress.RetakeAvailableAt != nil && now.Before(*progress.RetakeAvailableAt) {
		return nil, newValidationError("retake available at %s", progress.RetakeAvailableAt.UTC().Format(time.RFC3339))
	}

	bank, err := s.questionRepo.ListByAssessment(assessment.ID)
	if err != nil {
		return nil, err
	}
	if len(bank) == 0 {
		return nil, newValidationError("assessment has no questions")
	}

	ids := make([]uint, len(bank))
	for i, question := range bank {
		ids[i] = question.ID
	}
	if assessment.ShuffleQuestions {
		s.shuffleFn(len(ids), func(i, j int) {
			ids[i], ids[j] = ids[j], ids[i]
		})
	}
	count := assessment.NumQuestions
	if count > len(ids) {
		count = len(ids)
	}
	ids = ids[:count]

	answers := make([]int, count)
	for i := range answers {
		answers[i] = -1
	}

	attempt := models.AssessmentAttempt{
		Token:        uuid.NewString(),
		EnrollmentID: req.EnrollmentID,
		BlockID:      req.BlockID,
		AssessmentID: assessment.ID,
		State:        models.AttemptStateInProgress,
		StartedAt:    now,
		Deadline:     now.Add(time.Duration(assessment.TimeLimitMinutes) * time.Minute),
	}
	if err := encodeIDs(&attempt, ids); err != nil {
		return nil, err
	}
	if err := encodeAnswers(&attempt, answers); err != nil {
		return nil, err
	}

	if err := s.attemptRepo.Create(&attempt); err != nil {
		return nil, err
	}

	progress.Attempts++
	if progress.StartedAt == nil {
		progress.StartedAt = &now
	}
	if err := s.progressRepo.Update(progress); err != nil {
		return nil, err
	}

	logger.Info("Attempt started", map[string]interface{}{
		"token":         attempt.Token,
		"enrollment_id": attempt.EnrollmentID,
		"block_id":      attempt.BlockID,
		"questions":     count,
	})

	return s.view(&attempt, assessment, true)
}

// Answer records the choice for one question of an in-progress attempt.
// Touching an attempt past its deadline finalizes it instead.
func (s *AttemptService) Answer(token string, req models.AnswerRequest) (*models.AttemptView, error) {
	if s == nil || s.attemptRepo == nil {
		return nil, errors.New("attempt repository is not configured")
	}

	attempt, err := s.attemptRepo.GetByToken(token)
	if err != nil {
		return nil, err
	}

	assessment, err := s.assessmentRepo.GetByID(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	if attempt.State != models.AttemptStateInProgress {
		return nil, newValidationError("attempt is already finished")
	}

	now := s.clock.Now()
	if !now.Before(attempt.Deadline) {
		return s.finalize(attempt, assessment, now)
	}

	answers, err := decodeAnswers(attempt)
	if err != nil {
		return nil, err
	}
	if req.QuestionIndex < 0 || req.QuestionIndex >= len(answers) {
		return nil, newValidationError("question index is out of range")
	}
	if req.Choice < -1 {
		return nil, newValidationError("choice must be -1 or a choice index")
	}

	answers[req.QuestionIndex] = req.Choice
	if err := encodeAnswers(attempt, answers); err != nil {
		return nil, err
	}
	if err := s.attemptRepo.Update(attempt); err != nil {
		return nil, err
	}

	return s.view(attempt, assessment, true)
}

// Submit finalizes an attempt with its recorded answers. Submitting an
// already-finished attempt returns the stored result unchanged.
func (s *AttemptService) Submit(token string) (*models.AttemptView, error) {
	if s == nil || s.attemptRepo == nil {
		return nil, errors.New("attempt repository is not configured")
	}

	attempt, err := s.attemptRepo.GetByToken(token)
	if err != nil {
		return nil, err
	}

	assessment, err := s.assessmentRepo.GetByID(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	if attempt.State != models.AttemptStateInProgress {
		return s.view(attempt, assessment, false)
	}

	return s.finalize(attempt, assessment, s.clock.Now())
}

// Get returns the current state of an attempt, finalizing it on the spot
// when its deadline has passed.
func (s *AttemptService) Get(token string) (*models.AttemptView, error) {
	if s == nil || s.attemptRepo == nil {
		return nil, errors.New("attempt repository is not configured")
	}

	attempt, err := s.attemptRepo.GetByToken(token)
	if err != nil {
		return nil, err
	}

	assessment, err := s.assessmentRepo.GetByID(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	if attempt.State == models.AttemptStateInProgress && !s.clock.Now().Before(attempt.Deadline) {
		return s.finalize(attempt, assessment, s.clock.Now())
	}

	inProgress := attempt.State == models.AttemptStateInProgress
	return s.view(attempt, assessment, inProgress)
}

// FinalizeOverdue settles attempts whose deadline passed without the learner
// ever touching them again. Returns the number of attempts finalized.
func (s *AttemptService) FinalizeOverdue(limit int) (int, error) {
	if s == nil || s.attemptRepo == nil {
		return 0, errors.New("attempt repository is not configured")
	}

	now := s.clock.Now()
	attempts, err := s.attemptRepo.ListOverdue(now, limit)
	if err != nil {
		return 0, err
	}

	finalized := 0
	for i := range attempts {
		attempt := attempts[i]
		assessment, err := s.assessmentRepo.GetByID(attempt.AssessmentID)
		if err != nil {
			logger.Error(err, "Failed to load assessment for overdue attempt", map[string]interface{}{
				"attempt_token": attempt.Token,
				"assessment_id": attempt.AssessmentID,
			})
			continue
		}
		if _, err := s.finalize(&attempt, assessment, now); err != nil {
			logger.Error(err, "Failed to finalize overdue attempt", map[string]interface{}{
				"attempt_token": attempt.Token,
			})
			continue
		}
		finalized++
	}
	return finalized, nil
}

// finalize scores the recorded answers and settles the attempt and its
// progress row. It is the only place an attempt leaves IN_PROGRESS.
func (s *AttemptService) finalize(attempt *models.AssessmentAttempt, assessment *models.Assessment, now time.Time) (*models.AttemptView, error) {
	ids, err := decodeIDs(attempt)
	if err != nil {
		return nil, err
	}
	answers, err := decodeAnswers(attempt)
	if err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.GetByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}

	correct := 0
	for i, id := range ids {
		if i >= len(answers) {
			break
		}
		question, ok := byID[id]
		if !ok {
			continue
		}
		if answers[i] >= 0 && answers[i] == question.CorrectChoice() {
			correct++
		}
	}

	score := scorePercent(correct, len(ids))
	passed := score >= assessment.PassMarkPercent

	progress, err := s.progressRepo.GetOrCreate(attempt.EnrollmentID, attempt.BlockID)
	if err != nil {
		return nil, err
	}

	attempt.Score = &score
	attempt.FinishedAt = &now
	switch {
	case passed:
		attempt.State = models.AttemptStatePassed
	case progress.Attempts >= assessment.MaxAttempts:
		attempt.State = models.AttemptStateFailedFinal
	default:
		attempt.State = models.AttemptStateAwaitingRetake
	}
	if err := s.attemptRepo.Update(attempt); err != nil {
		return nil, err
	}

	if progress.Score == nil || score > *progress.Score {
		progress.Score = &score
	}
	switch attempt.State {
	case models.AttemptStatePassed:
		progress.Status = models.ProgressCompleted
		progress.CompletedAt = &now
		progress.RetakeAvailableAt = nil
	case models.AttemptStateFailedFinal:
		progress.Status = models.ProgressFailed
		progress.RetakeAvailableAt = nil
	case models.AttemptStateAwaitingRetake:
		retakeAt := now.Add(time.Duration(assessment.RetakeCooldownMinutes) * time.Minute)
		progress.RetakeAvailableAt = &retakeAt
	}
	if err := s.progressRepo.Update(progress); err != nil {
		return nil, err
	}

	logger.Info("Attempt finalized", map[string]interface{}{
		"token": attempt.Token,
		"state": attempt.State,
		"score": score,
	})

	if s.progress != nil {
		if err := s.progress.OnBlockSettled(attempt.EnrollmentID, attempt.BlockID, now); err != nil {
			logger.Error(err, "Failed to settle enrollment progress", map[string]interface{}{
				"enrollment_id": attempt.EnrollmentID,
				"block_id":      attempt.BlockID,
			})
		}
	}

	return s.view(attempt, assessment, false)
}

// view builds the kiosk-facing shape of an attempt. Questions and recorded
// answers are included only while the attempt is in progress.
func (s *AttemptService) view(attempt *models.AssessmentAttempt, assessment *models.Assessment, includeQuestions bool) (*models.AttemptView, error) {
	view := models.AttemptView{
		Token:       attempt.Token,
		State:       attempt.State,
		StartedAt:   attempt.StartedAt,
		Deadline:    attempt.Deadline,
		Score:       attempt.Score,
		MaxAttempts: assessment.MaxAttempts,
	}

	if s.progressRepo != nil {
		if progress, err := s.progressRepo.Get(attempt.EnrollmentID, attempt.BlockID); err == nil {
			view.AttemptsUsed = progress.Attempts
			view.RetakeAvailableAt = progress.RetakeAvailableAt
		}
	}

	if !includeQuestions {
		return &view, nil
	}

	ids, err := decodeIDs(attempt)
	if err != nil {
		return nil, err
	}
	answers, err := decodeAnswers(attempt)
	if err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.GetByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}

	view.Answers = answers
	view.Questions = make([]models.AttemptQuestionView, 0, len(ids))
	for i, id := range ids {
		question, ok := byID[id]
		if !ok {
			continue
		}
		if err := question.DecodeChoices(); err != nil {
			return nil, err
		}
		choices := question.Choices
		if question.Type == models.QuestionTypeTF {
			choices = []string{"True", "False"}
		}
		view.Questions = append(view.Questions, models.AttemptQuestionView{
			Index:   i,
			Type:    question.Type,
			Body:    question.Body,
			Choices: choices,
		})
	}

	return &view, nil
}

// scorePercent rounds half away from zero, so 50.5% of questions correct
// scores 51.
func scorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct*100) / float64(total)))
}

func encodeIDs(attempt *models.AssessmentAttempt, ids []uint) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	attempt.QuestionIDsJSON = string(raw)
	return nil
}

func decodeIDs(attempt *models.AssessmentAttempt) ([]uint, error) {
	var ids []uint
	if err := json.Unmarshal([]byte(attempt.QuestionIDsJSON), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func encodeAnswers(attempt *models.AssessmentAttempt, answers []int) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	attempt.AnswersJSON = string(raw)
	return nil
}

func decodeAnswers(attempt *models.AssessmentAttempt) ([]int, error) {
	var answers []int
	if err := json.Unmarshal([]byte(attempt.AnswersJSON), &answers); err != nil {
		return nil, err
	}
	return answers, nil
}
