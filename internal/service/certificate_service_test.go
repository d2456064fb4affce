package service

import (
	"testing"
	"time"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
)

func newCertificateFixture(t *testing.T) (*CertificateService, *mockCertificateRepo, *fakeClock, *models.Enrollment) {
	t.Helper()

	certs := newMockCertificateRepo()
	courses := newMockCourseRepo()
	learners := newMockLearnerRepo()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)}

	course := models.Course{Title: "First Aid Basics", Status: models.CourseStatusPublished}
	if err := courses.Create(&course); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	learner := models.Learner{Name: "Jo Bloggs", BadgeID: "BADGE-0001"}
	if err := learners.Create(&learner); err != nil {
		t.Fatalf("seed learner: %v", err)
	}

	completed := clock.now
	enrollment := &models.Enrollment{ID: 1, LearnerID: learner.ID, CourseID: course.ID, CompletedAt: &completed}

	svc := NewCertificateService(certs, courses, learners, 36)
	svc.SetClock(clock)
	return svc, certs, clock, enrollment
}

func TestIssueGeneratesDailySequencedCode(t *testing.T) {
	svc, _, clock, enrollment := newCertificateFixture(t)

	first, err := svc.IssueForEnrollment(enrollment)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first.Code != "CERT-20250601-0001" {
		t.Errorf("expected CERT-20250601-0001, got %s", first.Code)
	}
	if want := clock.now.AddDate(0, 36, 0); !first.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, first.ExpiresAt)
	}

	completed := clock.now
	second, err := svc.IssueForEnrollment(&models.Enrollment{ID: 2, LearnerID: 1, CourseID: 1, CompletedAt: &completed})
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}
	if second.Code != "CERT-20250601-0002" {
		t.Errorf("expected CERT-20250601-0002, got %s", second.Code)
	}

	// The sequence resets the next day.
	clock.Advance(24 * time.Hour)
	third, err := svc.IssueForEnrollment(&models.Enrollment{ID: 3, LearnerID: 1, CourseID: 1, CompletedAt: &completed})
	if err != nil {
		t.Fatalf("issue third: %v", err)
	}
	if third.Code != "CERT-20250602-0001" {
		t.Errorf("expected CERT-20250602-0001, got %s", third.Code)
	}
}

func TestIssueIsIdempotentPerEnrollment(t *testing.T) {
	svc, _, _, enrollment := newCertificateFixture(t)

	first, err := svc.IssueForEnrollment(enrollment)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := svc.IssueForEnrollment(enrollment)
	if err != nil {
		t.Fatalf("re-issue: %v", err)
	}
	if first.Code != second.Code {
		t.Fatalf("expected the same certificate, got %s and %s", first.Code, second.Code)
	}
}

func TestIssueRequiresCompletedEnrollment(t *testing.T) {
	svc, _, _, _ := newCertificateFixture(t)

	if _, err := svc.IssueForEnrollment(&models.Enrollment{ID: 9, LearnerID: 1, CourseID: 1}); err == nil || !IsValidationError(err) {
		t.Fatalf("expected validation error for incomplete enrollment, got %v", err)
	}
}

func TestVerifyValidCertificate(t *testing.T) {
	svc, _, _, enrollment := newCertificateFixture(t)

	cert, err := svc.IssueForEnrollment(enrollment)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	view, err := svc.Verify(cert.Code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !view.Valid {
		t.Fatalf("expected a valid certificate, got reason %q", view.Reason)
	}
	if view.CourseTitle != "First Aid Basics" {
		t.Errorf("expected the course title, got %q", view.CourseTitle)
	}
	if view.LearnerName != "Jo Bloggs" {
		t.Errorf("expected the learner name, got %q", view.LearnerName)
	}
}

func TestVerifyNormalizesCode(t *testing.T) {
	svc, _, _, enrollment := newCertificateFixture(t)

	cert, err := svc.IssueForEnrollment(enrollment)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	view, err := svc.Verify("  cert-20250601-0001  ")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !view.Valid || view.Code != cert.Code {
		t.Fatalf("expected lowercase input to verify, got %+v", view)
	}
}

func TestVerifyUnknownCode(t *testing.T) {
	svc, _, _, _ := newCertificateFixture(t)

	view, err := svc.Verify("CERT-20250601-9999")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if view.Valid {
		t.Fatal("expected an unknown code to be invalid")
	}
	if view.Reason == "" {
		t.Error("expected a reason for the invalid result")
	}
}

func TestVerifyExpiredCertificate(t *testing.T) {
	svc, _, clock, enrollment := newCertificateFixture(t)

	cert, err := svc.IssueForEnrollment(enrollment)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.Advance(37 * 31 * 24 * time.Hour)
	view, err := svc.Verify(cert.Code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if view.Valid {
		t.Fatal("expected an expired certificate to be invalid")
	}
	if view.Reason != "certificate has expired" {
		t.Errorf("unexpected reason %q", view.Reason)
	}
}

func TestVerifyVoidedCertificate(t *testing.T) {
	svc, _, _, enrollment := newCertificateFixture(t)

	cert, err := svc.IssueForEnrollment(enrollment)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Void(cert.Code); err != nil {
		t.Fatalf("void: %v", err)
	}

	view, err := svc.Verify(cert.Code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if view.Valid {
		t.Fatal("expected a voided certificate to be invalid")
	}
	if view.Reason != "certificate has been voided" {
		t.Errorf("unexpected reason %q", view.Reason)
	}
}
