package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/repository"
	"github.com/ArchaicDeity/badge-to-cert/pkg/validator"
)

type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret string
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
	}
}

func (s *AuthService) Login(req models.LoginRequest) (string, *models.User, error) {
	if s == nil || s.userRepo == nil {
		return "", nil, errors.New("user repository is not configured")
	}

	user, err := s.userRepo.GetByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		return "", nil, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", nil, errors.New("invalid credentials")
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// CreateUser provisions a back-office account. Available to admins only;
// learners never hold accounts, they are identified by badge at the kiosk.
func (s *AuthService) CreateUser(username, email, password, role string) (*models.User, error) {
	if s == nil || s.userRepo == nil {
		return nil, errors.New("user repository is not configured")
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, newValidationError("username is required")
	}

	if existing, err := s.userRepo.GetByUsername(username); err == nil && existing != nil {
		return nil, newValidationError("username is already taken")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if ok, reason := validator.ValidatePassword(password); !ok {
		return nil, newValidationError("%s", reason)
	}

	if role != models.RoleAdmin && role != models.RoleAssessor {
		return nil, newValidationError("unsupported role: %s", role)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Email:    strings.TrimSpace(email),
		Password: string(hashedPassword),
		Role:     role,
	}
	if err := s.userRepo.Create(user); err != nil {
		if isDuplicateKeyError(err) {
			return nil, newValidationError("username or email is already taken")
		}
		return nil, err
	}

	return user, nil
}

func (s *AuthService) generateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(time.Hour * 72).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.jwtSecret), nil
	})
}
