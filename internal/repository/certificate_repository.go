package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
)

type CertificateRepository interface {
	Create(cert *models.Certificate) error
	Update(cert *models.Certificate) error
	GetByCode(code string) (*models.Certificate, error)
	GetByEnrollment(enrollmentID uint) (*models.Certificate, error)
	ListByLearner(learnerID uint) ([]models.Certificate, error)
	// CountIssuedOn counts certificates issued on the given calendar day,
	// used for the daily code sequence.
	CountIssuedOn(day time.Time) (int64, error)
}

type certificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) CertificateRepository {
	return &certificateRepository{db: db}
}

func (r *certificateRepository) Create(cert *models.Certificate) error {
	if r == nil || r.db == nil {
		return errors.New("certificate repository is not initialised")
	}
	if cert == nil {
		return errors.New("certificate is required")
	}
	return r.db.Create(cert).Error
}

func (r *certificateRepository) Update(cert *models.Certificate) error {
	if r == nil || r.db == nil {
		return errors.New("certificate repository is not initialised")
	}
	if cert == nil {
		return errors.New("certificate is required")
	}
	return r.db.Save(cert).Error
}

func (r *certificateRepository) GetByCode(code string) (*models.Certificate, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("certificate repository is not initialised")
	}
	var cert models.Certificate
	if err := r.db.Where("code = ?", code).First(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *certificateRepository) GetByEnrollment(enrollmentID uint) (*models.Certificate, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("certificate repository is not initialised")
	}
	var cert models.Certificate
	if err := r.db.Where("enrollment_id = ?", enrollmentID).First(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *certificateRepository) ListByLearner(learnerID uint) ([]models.Certificate, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("certificate repository is not initialised")
	}
	var certs []models.Certificate
	if err := r.db.
		Where("learner_id = ?", learnerID).
		Order("issued_at DESC").
		Find(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}

func (r *certificateRepository) CountIssuedOn(day time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("certificate repository is not initialised")
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)
	var count int64
	if err := r.db.Model(&models.Certificate{}).
		Where("issued_at >= ? AND issued_at < ?", start, end).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
