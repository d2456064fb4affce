package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
)

type CourseRepository interface {
	Create(course *models.Course) error
	Update(course *models.Course) error
	Delete(id uint) error
	GetByID(id uint) (*models.Course, error)
	List() ([]models.Course, error)
	Exists(id uint) (bool, error)
}

type courseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) Create(course *models.Course) error {
	if r == nil || r.db == nil {
		return errors.New("course repository is not initialised")
	}
	if course == nil {
		return errors.New("course is required")
	}
	return r.db.Create(course).Error
}

func (r *courseRepository) Update(course *models.Course) error {
	if r == nil || r.db == nil {
		return errors.New("course repository is not initialised")
	}
	if course == nil {
		return errors.New("course is required")
	}
	return r.db.Save(course).Error
}

func (r *courseRepository) Delete(id uint) error {
	if r == nil || r.db == nil {
		return errors.New("course repository is not initialised")
	}
	return r.db.Delete(&models.Course{}, id).Error
}

func (r *courseRepository) GetByID(id uint) (*models.Course, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("course repository is not initialised")
	}
	var course models.Course
	if err := r.db.First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) List() ([]models.Course, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("course repository is not initialised")
	}
	var courses []models.Course
	if err := r.db.Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepository) Exists(id uint) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("course repository is not initialised")
	}
	var count int64
	if err := r.db.Model(&models.Course{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
