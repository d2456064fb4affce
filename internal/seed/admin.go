package seed

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/repository"
	"github.com/ArchaicDeity/badge-to-cert/internal/service"
	"github.com/ArchaicDeity/badge-to-cert/pkg/logger"
)

// EnsureAdminUser creates the first back-office admin when the user table
// holds none. With no configured password a random one is generated and
// logged once, to be changed on first login.
func EnsureAdminUser(authService *service.AuthService, userRepo repository.UserRepository, username, email, password string) {
	if authService == nil || userRepo == nil {
		return
	}

	count, err := userRepo.CountAdmins()
	if err != nil {
		logger.Error(err, "Failed to count admin users", nil)
		return
	}
	if count > 0 {
		return
	}

	generated := false
	if password == "" {
		password = randomPassword()
		generated = true
	}

	user, err := authService.CreateUser(username, email, password, models.RoleAdmin)
	if err != nil {
		logger.Error(err, "Failed to create initial admin user", map[string]interface{}{"username": username})
		return
	}

	fields := map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
	}
	if generated {
		fields["password"] = password
	}
	logger.Info("Created initial admin user", fields)
}

func randomPassword() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "change-me-now"
	}
	return "Aa1!" + hex.EncodeToString(buf)
}
