package service

import (
	"testing"
	"time"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
)

type progressFixture struct {
	svc         *ProgressService
	courses     *mockCourseRepo
	blocks      *mockBlockRepo
	learners    *mockLearnerRepo
	enrollments *mockEnrollmentRepo
	progress    *mockProgressRepo
	certs       *mockCertificateRepo

	courseID  uint
	learnerID uint
	blockIDs  []uint
}

// newProgressFixture builds a published course with three content blocks
// (the middle one optional) and one enrolled learner.
func newProgressFixture(t *testing.T) *progressFixture {
	t.Helper()

	f := &progressFixture{
		courses:     newMockCourseRepo(),
		blocks:      newMockBlockRepo(),
		learners:    newMockLearnerRepo(),
		enrollments: newMockEnrollmentRepo(),
		progress:    newMockProgressRepo(),
		certs:       newMockCertificateRepo(),
	}

	course := models.Course{Title: "First Aid Basics", Status: models.CourseStatusPublished, Version: 2}
	if err := f.courses.Create(&course); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	f.courseID = course.ID

	for i, spec := range []struct {
		title     string
		mandatory bool
	}{
		{"Intro", true},
		{"Extra Reading", false},
		{"Recovery Position", true},
	} {
		block := models.CourseBlock{CourseID: course.ID, Kind: models.BlockKindContent, Title: spec.title, Position: i + 1, IsMandatory: spec.mandatory}
		if err := f.blocks.CreateAt(&block); err != nil {
			t.Fatalf("seed block: %v", err)
		}
		f.blockIDs = append(f.blockIDs, block.ID)
	}

	learner := models.Learner{Name: "Jo Bloggs", BadgeID: "BADGE-0001"}
	if err := f.learners.Create(&learner); err != nil {
		t.Fatalf("seed learner: %v", err)
	}
	f.learnerID = learner.ID

	certSvc := NewCertificateService(f.certs, f.courses, f.learners, 36)
	f.svc = NewProgressService(f.progress, f.enrollments, f.learners, f.blocks, f.courses, certSvc)
	return f
}

func (f *progressFixture) enroll(t *testing.T) *models.Enrollment {
	t.Helper()
	enrollment, err := f.svc.Enroll(models.CreateEnrollmentRequest{BadgeID: "BADGE-0001", CourseID: f.courseID})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	return enrollment
}

func TestEnrollByBadge(t *testing.T) {
	f := newProgressFixture(t)

	enrollment := f.enroll(t)
	if enrollment.LearnerID != f.learnerID || enrollment.CourseID != f.courseID {
		t.Fatalf("unexpected enrollment %+v", enrollment)
	}

	// Enrolling again returns the unfinished run.
	again := f.enroll(t)
	if again.ID != enrollment.ID {
		t.Fatalf("expected the open enrollment back, got %d and %d", enrollment.ID, again.ID)
	}
}

func TestEnrollRejectsUnpublishedCourse(t *testing.T) {
	f := newProgressFixture(t)

	course, _ := f.courses.GetByID(f.courseID)
	course.Status = models.CourseStatusDraft
	if err := f.courses.Update(course); err != nil {
		t.Fatalf("update course: %v", err)
	}

	if _, err := f.svc.Enroll(models.CreateEnrollmentRequest{BadgeID: "BADGE-0001", CourseID: f.courseID}); err == nil || !IsValidationError(err) {
		t.Fatalf("expected draft course to be rejected, got %v", err)
	}
}

func TestEnrollUnknownBadge(t *testing.T) {
	f := newProgressFixture(t)

	if _, err := f.svc.Enroll(models.CreateEnrollmentRequest{BadgeID: "BADGE-MISSING", CourseID: f.courseID}); err == nil {
		t.Fatal("expected unknown badge to fail")
	}
}

func TestSummaryWalksBlocksInOrder(t *testing.T) {
	f := newProgressFixture(t)
	enrollment := f.enroll(t)

	view, err := f.svc.Summary(enrollment.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(view.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(view.Blocks))
	}
	if view.NextBlockID == nil || *view.NextBlockID != f.blockIDs[0] {
		t.Fatalf("expected the first block next, got %v", view.NextBlockID)
	}
	if view.Completed || view.Failed {
		t.Fatalf("fresh enrollment must be neither completed nor failed: %+v", view)
	}
}

func TestMandatoryCompletionFinishesCourse(t *testing.T) {
	f := newProgressFixture(t)
	enrollment := f.enroll(t)

	view, err := f.svc.MarkContentComplete(enrollment.ID, f.blockIDs[0])
	if err != nil {
		t.Fatalf("complete first block: %v", err)
	}
	if view.Completed {
		t.Fatal("course must not complete with a mandatory block outstanding")
	}
	if view.NextBlockID == nil || *view.NextBlockID != f.blockIDs[1] {
		t.Fatalf("expected the optional block next, got %v", view.NextBlockID)
	}

	// Skipping the optional block and completing the last mandatory one
	// finishes the course and issues the certificate.
	view, err = f.svc.MarkContentComplete(enrollment.ID, f.blockIDs[2])
	if err != nil {
		t.Fatalf("complete last block: %v", err)
	}
	if !view.Completed {
		t.Fatal("expected the course to be completed")
	}
	if view.CertificateCode == "" {
		t.Fatal("expected a certificate code on the completed view")
	}

	stored, err := f.enrollments.GetByID(enrollment.ID)
	if err != nil {
		t.Fatalf("enrollment: %v", err)
	}
	if stored.CompletedAt == nil {
		t.Fatal("expected the enrollment completion timestamp")
	}
}

func TestMarkContentCompleteIsIdempotent(t *testing.T) {
	f := newProgressFixture(t)
	enrollment := f.enroll(t)

	if _, err := f.svc.MarkContentComplete(enrollment.ID, f.blockIDs[0]); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if _, err := f.svc.MarkContentComplete(enrollment.ID, f.blockIDs[0]); err != nil {
		t.Fatalf("repeated completion: %v", err)
	}

	row, err := f.progress.Get(enrollment.ID, f.blockIDs[0])
	if err != nil {
		t.Fatalf("progress row: %v", err)
	}
	if row.Status != models.ProgressCompleted {
		t.Errorf("expected COMPLETED, got %s", row.Status)
	}
}

func TestMarkContentCompleteRejectsWrongBlocks(t *testing.T) {
	f := newProgressFixture(t)
	enrollment := f.enroll(t)

	quiz := models.CourseBlock{CourseID: f.courseID, Kind: models.BlockKindAssessment, Title: "Quiz", Position: 4, IsMandatory: true}
	if err := f.blocks.CreateAt(&quiz); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	if _, err := f.svc.MarkContentComplete(enrollment.ID, quiz.ID); err == nil || !IsValidationError(err) {
		t.Fatalf("expected assessment block to be rejected, got %v", err)
	}

	disabled := models.CourseBlock{CourseID: f.courseID, Kind: models.BlockKindContent, Title: "Disabled", Position: 5, Disabled: true}
	if err := f.blocks.CreateAt(&disabled); err != nil {
		t.Fatalf("seed disabled block: %v", err)
	}
	if _, err := f.svc.MarkContentComplete(enrollment.ID, disabled.ID); err == nil || !IsValidationError(err) {
		t.Fatalf("expected disabled block to be rejected, got %v", err)
	}
}

func TestFailedOptionalBlockIsSkipped(t *testing.T) {
	f := newProgressFixture(t)
	enrollment := f.enroll(t)

	if _, err := f.svc.MarkContentComplete(enrollment.ID, f.blockIDs[0]); err != nil {
		t.Fatalf("complete first block: %v", err)
	}

	// Fail the optional middle block, the way an exhausted optional
	// assessment records it.
	row, err := f.progress.GetOrCreate(enrollment.ID, f.blockIDs[1])
	if err != nil {
		t.Fatalf("progress row: %v", err)
	}
	row.Status = models.ProgressFailed
	if err := f.progress.Update(row); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	view, err := f.svc.Summary(enrollment.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if view.Failed {
		t.Fatal("a failed optional block must not fail the run")
	}
	if view.NextBlockID == nil || *view.NextBlockID != f.blockIDs[2] {
		t.Fatalf("expected the run to move past the failed optional block, got %v", view.NextBlockID)
	}

	// Completing the last mandatory block still finishes the course.
	view, err = f.svc.MarkContentComplete(enrollment.ID, f.blockIDs[2])
	if err != nil {
		t.Fatalf("complete last block: %v", err)
	}
	if !view.Completed {
		t.Fatal("expected the course to be completed")
	}
	if view.NextBlockID != nil {
		t.Fatalf("a completed run has no next block, got %v", view.NextBlockID)
	}
}

func TestMarkContentCompleteRejectsForeignCourseBlock(t *testing.T) {
	f := newProgressFixture(t)
	enrollment := f.enroll(t)

	other := models.Course{Title: "Fire Safety", Status: models.CourseStatusPublished, Version: 1}
	if err := f.courses.Create(&other); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	foreign := models.CourseBlock{CourseID: other.ID, Kind: models.BlockKindContent, Title: "Extinguishers", Position: 1, IsMandatory: true}
	if err := f.blocks.CreateAt(&foreign); err != nil {
		t.Fatalf("seed block: %v", err)
	}

	if _, err := f.svc.MarkContentComplete(enrollment.ID, foreign.ID); err == nil || !IsValidationError(err) {
		t.Fatalf("expected a block from another course to be rejected, got %v", err)
	}
	if _, err := f.progress.Get(enrollment.ID, foreign.ID); err == nil {
		t.Fatal("no progress row may be written for a foreign block")
	}
}

func TestMandatoryFailureTerminatesRun(t *testing.T) {
	f := newProgressFixture(t)
	enrollment := f.enroll(t)

	// Fail the first mandatory block directly at the progress layer, the way
	// a finalized FAILED_FINAL attempt records it.
	row, err := f.progress.GetOrCreate(enrollment.ID, f.blockIDs[0])
	if err != nil {
		t.Fatalf("progress row: %v", err)
	}
	row.Status = models.ProgressFailed
	if err := f.progress.Update(row); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	view, err := f.svc.Summary(enrollment.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !view.Failed {
		t.Fatal("expected the run to be terminally failed")
	}
	if view.NextBlockID != nil {
		t.Fatalf("a failed run has no next block, got %v", view.NextBlockID)
	}

	// Completing the rest never finishes a failed run.
	if err := f.svc.OnBlockSettled(enrollment.ID, f.blockIDs[2], time.Now()); err != nil {
		t.Fatalf("settle: %v", err)
	}
	stored, _ := f.enrollments.GetByID(enrollment.ID)
	if stored.CompletedAt != nil {
		t.Fatal("a failed mandatory block must block completion")
	}
	if _, err := f.certs.GetByEnrollment(enrollment.ID); err == nil {
		t.Fatal("no certificate may be issued for a failed run")
	}
}
