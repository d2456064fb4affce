package constants

const (
	// AuthTokenCookieName is the fallback cookie checked when no bearer
	// header is present.
	AuthTokenCookieName = "auth_token"

	// DefaultMaxAttempts applies when an assessment configuration omits
	// max_attempts.
	DefaultMaxAttempts = 2
	// DefaultRetakeCooldownMinutes applies when an assessment configuration
	// omits retake_cooldown_minutes.
	DefaultRetakeCooldownMinutes = 10
	// DefaultPassMarkPercent applies when an assessment configuration omits
	// pass_mark_percent.
	DefaultPassMarkPercent = 80

	// CertificateCodePrefix starts every verifiable certificate code.
	CertificateCodePrefix = "CERT"
)
