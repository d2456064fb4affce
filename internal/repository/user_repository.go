package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
)

type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	CountAdmins() (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	if r == nil || r.db == nil {
		return errors.New("user repository is not initialised")
	}
	if user == nil {
		return errors.New("user is required")
	}
	return r.db.Create(user).Error
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repository is not initialised")
	}
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(username string) (*models.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repository is not initialised")
	}
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) CountAdmins() (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("user repository is not initialised")
	}
	var count int64
	if err := r.db.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
