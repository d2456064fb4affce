package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/constants"
	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/repository"
	"github.com/ArchaicDeity/badge-to-cert/pkg/logger"
)

// CertificateService issues completion certificates and answers public
// verification lookups. Codes follow CERT-YYYYMMDD-NNNN where NNNN is the
// 1-based issue sequence of that day.
type CertificateService struct {
	certRepo    repository.CertificateRepository
	courseRepo  repository.CourseRepository
	learnerRepo repository.LearnerRepository

	validityMonths int
	clock          Clock
}

func NewCertificateService(
	certRepo repository.CertificateRepository,
	courseRepo repository.CourseRepository,
	learnerRepo repository.LearnerRepository,
	validityMonths int,
) *CertificateService {
	if validityMonths <= 0 {
		validityMonths = 36
	}
	return &CertificateService{
		certRepo:       certRepo,
		courseRepo:     courseRepo,
		learnerRepo:    learnerRepo,
		validityMonths: validityMonths,
		clock:          systemClock{},
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *CertificateService) SetClock(clock Clock) {
	if s == nil || clock == nil {
		return
	}
	s.clock = clock
}

// IssueForEnrollment creates the certificate for a completed enrollment.
// An enrollment holds at most one certificate; issuing twice returns the
// existing one.
func (s *CertificateService) IssueForEnrollment(enrollment *models.Enrollment) (*models.Certificate, error) {
	if s == nil || s.certRepo == nil {
		return nil, errors.New("certificate repository is not configured")
	}
	if enrollment == nil {
		return nil, newValidationError("enrollment is required")
	}
	if enrollment.CompletedAt == nil {
		return nil, newValidationError("enrollment is not completed")
	}

	if existing, err := s.certRepo.GetByEnrollment(enrollment.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	issuedToday, err := s.certRepo.CountIssuedOn(now)
	if err != nil {
		return nil, err
	}

	cert := models.Certificate{
		Code:         fmt.Sprintf("%s-%s-%04d", constants.CertificateCodePrefix, now.Format("20060102"), issuedToday+1),
		EnrollmentID: enrollment.ID,
		CourseID:     enrollment.CourseID,
		LearnerID:    enrollment.LearnerID,
		IssuedAt:     now,
		ExpiresAt:    now.AddDate(0, s.validityMonths, 0),
	}

	if err := s.certRepo.Create(&cert); err != nil {
		if isDuplicateKeyError(err) {
			return s.certRepo.GetByEnrollment(enrollment.ID)
		}
		return nil, err
	}

	logger.Info("Certificate issued", map[string]interface{}{
		"code":          cert.Code,
		"enrollment_id": cert.EnrollmentID,
	})

	return &cert, nil
}

func (s *CertificateService) GetByEnrollment(enrollmentID uint) (*models.Certificate, error) {
	if s == nil || s.certRepo == nil {
		return nil, errors.New("certificate repository is not configured")
	}
	return s.certRepo.GetByEnrollment(enrollmentID)
}

func (s *CertificateService) ListByLearner(learnerID uint) ([]models.Certificate, error) {
	if s == nil || s.certRepo == nil {
		return nil, errors.New("certificate repository is not configured")
	}
	return s.certRepo.ListByLearner(learnerID)
}

// Verify answers the public lookup for a certificate code. An unknown code
// is reported as invalid rather than as a lookup error.
func (s *CertificateService) Verify(code string) (*models.CertificateView, error) {
	if s == nil || s.certRepo == nil {
		return nil, errors.New("certificate repository is not configured")
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, newValidationError("certificate code is required")
	}

	cert, err := s.certRepo.GetByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.CertificateView{Code: code, Valid: false, Reason: "unknown certificate code"}, nil
		}
		return nil, err
	}

	view := models.CertificateView{
		Code:      cert.Code,
		IssuedAt:  cert.IssuedAt,
		ExpiresAt: cert.ExpiresAt,
	}

	if s.courseRepo != nil {
		if course, err := s.courseRepo.GetByID(cert.CourseID); err == nil {
			view.CourseTitle = course.Title
		}
	}
	if s.learnerRepo != nil {
		if learner, err := s.learnerRepo.GetByID(cert.LearnerID); err == nil {
			view.LearnerName = learner.Name
		}
	}

	switch {
	case cert.Voided:
		view.Reason = "certificate has been voided"
	case s.clock.Now().After(cert.ExpiresAt):
		view.Reason = "certificate has expired"
	default:
		view.Valid = true
	}

	return &view, nil
}

// Void permanently invalidates a certificate.
func (s *CertificateService) Void(code string) (*models.Certificate, error) {
	if s == nil || s.certRepo == nil {
		return nil, errors.New("certificate repository is not configured")
	}

	cert, err := s.certRepo.GetByCode(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if cert.Voided {
		return cert, nil
	}
	cert.Voided = true
	if err := s.certRepo.Update(cert); err != nil {
		return nil, err
	}
	return cert, nil
}
