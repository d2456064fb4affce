package service

import (
	"strings"
	"testing"
	"time"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
)

type attemptFixture struct {
	svc         *AttemptService
	progressSvc *ProgressService
	clock       *fakeClock

	courses     *mockCourseRepo
	blocks      *mockBlockRepo
	assessments *mockAssessmentRepo
	questions   *mockQuestionRepo
	enrollments *mockEnrollmentRepo
	progress    *mockProgressRepo
	attempts    *mockAttemptRepo
	certs       *mockCertificateRepo

	enrollmentID uint
	blockID      uint
	assessmentID uint
}

// newAttemptFixture wires a published course with one mandatory assessment
// block, a bank of MCQ questions all keyed to choice 0, and one enrollment.
func newAttemptFixture(t *testing.T, cfg models.Assessment, bankSize int) *attemptFixture {
	t.Helper()

	f := &attemptFixture{
		clock:       &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		courses:     newMockCourseRepo(),
		blocks:      newMockBlockRepo(),
		assessments: newMockAssessmentRepo(),
		questions:   newMockQuestionRepo(),
		enrollments: newMockEnrollmentRepo(),
		progress:    newMockProgressRepo(),
		attempts:    newMockAttemptRepo(),
		certs:       newMockCertificateRepo(),
	}

	course := models.Course{Title: "First Aid Basics", Status: models.CourseStatusPublished, Version: 2}
	if err := f.courses.Create(&course); err != nil {
		t.Fatalf("seed course: %v", err)
	}

	block := models.CourseBlock{CourseID: course.ID, Kind: models.BlockKindAssessment, Title: "Final Quiz", Position: 1, IsMandatory: true}
	if err := f.blocks.CreateAt(&block); err != nil {
		t.Fatalf("seed block: %v", err)
	}
	f.blockID = block.ID

	cfg.BlockID = block.ID
	if err := f.assessments.Upsert(&cfg); err != nil {
		t.Fatalf("seed assessment: %v", err)
	}
	f.assessmentID = cfg.ID

	correct := 0
	for i := 0; i < bankSize; i++ {
		question := models.Question{
			AssessmentID: cfg.ID,
			Type:         models.QuestionTypeMCQ,
			Body:         "Question body",
			ChoicesJSON:  `["Right","Wrong","Also wrong"]`,
			CorrectIndex: &correct,
		}
		if err := f.questions.Create(&question); err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}

	learners := newMockLearnerRepo()
	learner := models.Learner{Name: "Jo Bloggs", BadgeID: "BADGE-0001"}
	if err := learners.Create(&learner); err != nil {
		t.Fatalf("seed learner: %v", err)
	}
	enrollment := models.Enrollment{LearnerID: learner.ID, CourseID: course.ID}
	if err := f.enrollments.Create(&enrollment); err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
	f.enrollmentID = enrollment.ID

	certSvc := NewCertificateService(f.certs, f.courses, learners, 36)
	certSvc.SetClock(f.clock)
	f.progressSvc = NewProgressService(f.progress, f.enrollments, learners, f.blocks, f.courses, certSvc)

	f.svc = NewAttemptService(f.attempts, f.assessments, f.questions, f.blocks, f.enrollments, f.progress, f.progressSvc)
	f.svc.SetClock(f.clock)
	f.svc.SetShuffle(func(n int, swap func(i, j int)) {}) // keep bank order unless a test overrides

	return f
}

func (f *attemptFixture) start(t *testing.T) *models.AttemptView {
	t.Helper()
	view, err := f.svc.Start(models.StartAttemptRequest{EnrollmentID: f.enrollmentID, BlockID: f.blockID})
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	return view
}

func (f *attemptFixture) answerAll(t *testing.T, token string, choices []int) {
	t.Helper()
	for i, choice := range choices {
		if _, err := f.svc.Answer(token, models.AnswerRequest{QuestionIndex: i, Choice: choice}); err != nil {
			t.Fatalf("answer question %d: %v", i, err)
		}
	}
}

func baseConfig() models.Assessment {
	return models.Assessment{
		NumQuestions:          2,
		PassMarkPercent:       80,
		TimeLimitMinutes:      10,
		ShuffleQuestions:      false,
		MaxAttempts:           2,
		RetakeCooldownMinutes: 10,
	}
}

func TestStartRejectsForeignCourseBlock(t *testing.T) {
	f := newAttemptFixture(t, baseConfig(), 2)

	other := models.Course{Title: "Fire Safety", Status: models.CourseStatusPublished, Version: 1}
	if err := f.courses.Create(&other); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	foreign := models.CourseBlock{CourseID: other.ID, Kind: models.BlockKindAssessment, Title: "Quiz", Position: 1, IsMandatory: true}
	if err := f.blocks.CreateAt(&foreign); err != nil {
		t.Fatalf("seed block: %v", err)
	}
	cfg := baseConfig()
	cfg.BlockID = foreign.ID
	if err := f.assessments.Upsert(&cfg); err != nil {
		t.Fatalf("seed assessment: %v", err)
	}

	if _, err := f.svc.Start(models.StartAttemptRequest{EnrollmentID: f.enrollmentID, BlockID: foreign.ID}); err == nil || !IsValidationError(err) {
		t.Fatalf("expected a block from another course to be rejected, got %v", err)
	}
}

func TestStartSelectsQuestionsAndBlankAnswers(t *testing.T) {
	cfg := baseConfig()
	cfg.NumQuestions = 3
	f := newAttemptFixture(t, cfg, 5)

	view := f.start(t)

	if view.State != models.AttemptStateInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", view.State)
	}
	if len(view.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(view.Questions))
	}
	for i, answer := range view.Answers {
		if answer != -1 {
			t.Errorf("answer %d: expected -1, got %d", i, answer)
		}
	}
	if want := f.clock.now.Add(10 * time.Minute); !view.Deadline.Equal(want) {
		t.Errorf("expected deadline %v, got %v", want, view.Deadline)
	}
	if view.AttemptsUsed != 1 {
		t.Errorf("expected 1 attempt used, got %d", view.AttemptsUsed)
	}
}

func TestStartCapsSelectionAtBankSize(t *testing.T) {
	cfg := baseConfig()
	cfg.NumQuestions = 10
	f := newAttemptFixture(t, cfg, 4)

	view := f.start(t)
	if len(view.Questions) != 4 {
		t.Fatalf("expected selection capped at 4, got %d", len(view.Questions))
	}
}

func TestStartResumesActiveAttempt(t *testing.T) {
	f := newAttemptFixture(t, baseConfig(), 4)

	first := f.start(t)
	f.clock.Advance(2 * time.Minute)
	second := f.start(t)

	if first.Token != second.Token {
		t.Fatalf("expected the live attempt to be resumed, got a new token")
	}
	if second.AttemptsUsed != 1 {
		t.Errorf("resuming must not consume an attempt, got %d", second.AttemptsUsed)
	}
}

func TestSubmitScoresAndPasses(t *testing.T) {
	f := newAttemptFixture(t, baseConfig(), 2)

	view := f.start(t)
	f.answerAll(t, view.Token, []int{0, 0})

	result, err := f.svc.Submit(view.Token)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.State != models.AttemptStatePassed {
		t.Fatalf("expected PASSED, got %s", result.State)
	}
	if result.Score == nil || *result.Score != 100 {
		t.Fatalf("expected score 100, got %v", result.Score)
	}
}

func TestSubmitHalfCorrectScoresFifty(t *testing.T) {
	f := newAttemptFixture(t, baseConfig(), 2)

	view := f.start(t)
	f.answerAll(t, view.Token, []int{0, 1})

	result, err := f.svc.Submit(view.Token)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score == nil || *result.Score != 50 {
		t.Fatalf("expected score 50, got %v", result.Score)
	}
	if result.State != models.AttemptStateAwaitingRetake {
		t.Fatalf("expected AWAITING_RETAKE, got %s", result.State)
	}
	if result.RetakeAvailableAt == nil {
		t.Fatal("expected a retake time")
	}
	if want := f.clock.now.Add(10 * time.Minute); !result.RetakeAvailableAt.Equal(want) {
		t.Errorf("expected retake at %v, got %v", want, result.RetakeAvailableAt)
	}
}

func TestScoreRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		correct, total, want int
	}{
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{7, 8, 88},
		{1, 8, 13},
		{0, 5, 0},
		{5, 5, 100},
	}
	for _, tc := range cases {
		if got := scorePercent(tc.correct, tc.total); got != tc.want {
			t.Errorf("scorePercent(%d, %d) = %d, want %d", tc.correct, tc.total, got, tc.want)
		}
	}
}

func TestPassBoundaryIsInclusive(t *testing.T) {
	cfg := baseConfig()
	cfg.NumQuestions = 5
	cfg.PassMarkPercent = 80
	f := newAttemptFixture(t, cfg, 5)

	view := f.start(t)
	// 4 of 5 correct: exactly the 80 pass mark.
	f.answerAll(t, view.Token, []int{0, 0, 0, 0, 2})

	result, err := f.svc.Submit(view.Token)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score == nil || *result.Score != 80 {
		t.Fatalf("expected score 80, got %v", result.Score)
	}
	if result.State != models.AttemptStatePassed {
		t.Fatalf("expected a score equal to the pass mark to pass, got %s", result.State)
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	f := newAttemptFixture(t, baseConfig(), 2)

	view := f.start(t)
	f.answerAll(t, view.Token, []int{0, 0})

	first, err := f.svc.Submit(view.Token)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := f.svc.Submit(view.Token)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if first.State != second.State || *first.Score != *second.Score {
		t.Fatalf("repeated submit changed the result: %+v vs %+v", first, second)
	}
}

func TestCooldownBlocksEarlyRetake(t *testing.T) {
	f := newAttemptFixture(t, baseConfig(), 2)

	view := f.start(t)
	f.answerAll(t, view.Token, []int{1, 1})
	if _, err := f.svc.Submit(view.Token); err != nil {
		t.Fatalf("submit: %v", err)
	}

	f.clock.Advance(5 * time.Minute)
	if _, err := f.svc.Start(models.StartAttemptRequest{EnrollmentID: f.enrollmentID, BlockID: f.blockID}); err == nil || !IsValidationError(err) {
		t.Fatalf("expected cooldown to block the retake, got %v", err)
	}

	f.clock.Advance(6 * time.Minute)
	if _, err := f.svc.Start(models.StartAttemptRequest{EnrollmentID: f.enrollmentID, BlockID: f.blockID}); err != nil {
		t.Fatalf("expected retake after cooldown, got %v", err)
	}
}

func TestSecondFailureIsFinal(t *testing.T) {
	f := newAttemptFixture(t, baseConfig(), 2)

	view := f.start(t)
	f.answerAll(t, view.Token, []int{1, 1})
	result, err := f.svc.Submit(view.Token)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if result.State != models.AttemptStateAwaitingRetake {
		t.Fatalf("expected AWAITING_RETAKE after first failure, got %s", result.State)
	}

	f.clock.Advance(11 * time.Minute)
	retake := f.start(t)
	f.answerAll(t, retake.Token, []int{1, 1})
	result, err = f.svc.Submit(retake.Token)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if result.State != models.AttemptStateFailedFinal {
		t.Fatalf("expected FAILED_FINAL after exhausting attempts, got %s", result.State)
	}

	f.clock.Advance(time.Hour)
	if _, err := f.svc.Start(models.StartAttemptRequest{EnrollmentID: f.enrollmentID, BlockID: f.blockID}); err == nil || !IsValidationError(err) {
		t.Fatalf("expected no attempts remaining, got %v", err)
	}

	progress, err := f.progress.Get(f.enrollmentID, f.blockID)
	if err != nil {
		t.Fatalf("progress row: %v", err)
	}
	if progress.Status != models.ProgressFailed {
		t.Errorf("expected FAILED progress, got %s", progress.Status)
	}
}

func TestDeadlineFinalizesWithRecordedAnswers(t *testing.T) {
	f := newAttemptFixture(t, baseConfig(), 2)

	view := f.start(t)
	// Answer only the first question, then let the clock run out.
	if _, err := f.svc.Answer(view.Token, models.AnswerRequest{QuestionIndex: 0, Choice: 0}); err != nil {
		t.Fatalf("answer: %v", err)
	}

	f.clock.Advance(11 * time.Minute)

	result, err := f.svc.Get(view.Token)
	if err != nil {
		t.Fatalf("get after deadline: %v", err)
	}
	if result.State == models.AttemptStateInProgress {
		t.Fatal("expected the attempt to be finalized at the deadline")
	}
	if result.Score == nil || *result.Score != 50 {
		t.Fatalf("expected the recorded answers to score 50, got %v", result.Score)
	}
}

func TestAnswerPastDeadlineFinalizesInstead(t *testing.T) {
	f := newAttemptFixture(t, baseConfig(), 2)

	view := f.start(t)
	f.clock.Advance(11 * time.Minute)

	result, err := f.svc.Answer(view.Token, models.AnswerRequest{QuestionIndex: 0, Choice: 0})
	if err != nil {
		t.Fatalf("answer past deadline: %v", err)
	}
	if result.State == models.AttemptStateInProgress {
		t.Fatal("expected finalization, attempt still in progress")
	}
	if result.Score == nil || *result.Score != 0 {
		t.Fatalf("the late answer must not count, got score %v", result.Score)
	}
}

func TestAnswerValidatesIndex(t *testing.T) {
	f := newAttemptFixture(t, baseConfig(), 2)

	view := f.start(t)
	if _, err := f.svc.Answer(view.Token, models.AnswerRequest{QuestionIndex: 5, Choice: 0}); err == nil || !IsValidationError(err) {
		t.Fatalf("expected out-of-range index to be rejected, got %v", err)
	}
	if _, err := f.svc.Answer(view.Token, models.AnswerRequest{QuestionIndex: 0, Choice: -2}); err == nil || !IsValidationError(err) {
		t.Fatalf("expected choice below -1 to be rejected, got %v", err)
	}
}

func TestTrueFalseScoring(t *testing.T) {
	f := newAttemptFixture(t, baseConfig(), 0)

	correctTrue := true
	correctFalse := false
	for _, correct := range []*bool{&correctTrue, &correctFalse} {
		question := models.Question{
			AssessmentID: f.assessmentID,
			Type:         models.QuestionTypeTF,
			Body:         "Statement",
			CorrectBool:  correct,
		}
		if err := f.questions.Create(&question); err != nil {
			t.Fatalf("seed TF question: %v", err)
		}
	}

	view := f.start(t)
	if len(view.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(view.Questions))
	}
	for _, question := range view.Questions {
		if len(question.Choices) != 2 || question.Choices[0] != "True" || question.Choices[1] != "False" {
			t.Fatalf("expected True/False choices, got %v", question.Choices)
		}
	}

	// true maps to choice 0, false to choice 1.
	f.answerAll(t, view.Token, []int{0, 1})
	result, err := f.svc.Submit(view.Token)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score == nil || *result.Score != 100 {
		t.Fatalf("expected score 100, got %v", result.Score)
	}
}

func TestShuffleUsesInjectedOrder(t *testing.T) {
	cfg := baseConfig()
	cfg.ShuffleQuestions = true
	cfg.NumQuestions = 2
	f := newAttemptFixture(t, cfg, 3)

	// Reverse instead of shuffling so the selection is predictable.
	f.svc.SetShuffle(func(n int, swap func(i, j int)) {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			swap(i, j)
		}
	})

	view := f.start(t)
	if len(view.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(view.Questions))
	}
}

func TestPassingLastBlockCompletesEnrollmentAndIssuesCertificate(t *testing.T) {
	f := newAttemptFixture(t, baseConfig(), 2)

	view := f.start(t)
	f.answerAll(t, view.Token, []int{0, 0})
	if _, err := f.svc.Submit(view.Token); err != nil {
		t.Fatalf("submit: %v", err)
	}

	enrollment, err := f.enrollments.GetByID(f.enrollmentID)
	if err != nil {
		t.Fatalf("enrollment: %v", err)
	}
	if enrollment.CompletedAt == nil {
		t.Fatal("expected the enrollment to be completed")
	}

	cert, err := f.certs.GetByEnrollment(f.enrollmentID)
	if err != nil {
		t.Fatalf("expected a certificate: %v", err)
	}
	if !strings.HasPrefix(cert.Code, "CERT-20250310-") {
		t.Errorf("unexpected certificate code %q", cert.Code)
	}
	if want := f.clock.now.AddDate(0, 36, 0); !cert.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, cert.ExpiresAt)
	}
}

func TestFinalizeOverdueSweepsAbandonedAttempts(t *testing.T) {
	f := newAttemptFixture(t, baseConfig(), 2)

	view := f.start(t)
	f.answerAll(t, view.Token, []int{0, 0})

	// Learner walks away; the deadline passes without a submit.
	f.clock.Advance(11 * time.Minute)

	finalized, err := f.svc.FinalizeOverdue(10)
	if err != nil {
		t.Fatalf("finalize overdue: %v", err)
	}
	if finalized != 1 {
		t.Fatalf("expected 1 finalized attempt, got %d", finalized)
	}

	stored, err := f.attempts.GetByToken(view.Token)
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if stored.State != models.AttemptStatePassed {
		t.Errorf("expected state %s, got %s", models.AttemptStatePassed, stored.State)
	}
	if stored.Score == nil || *stored.Score != 100 {
		t.Errorf("expected recorded answers to score 100, got %v", stored.Score)
	}

	again, err := f.svc.FinalizeOverdue(10)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if again != 0 {
		t.Errorf("expected an empty second sweep, got %d", again)
	}
}
