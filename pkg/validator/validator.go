package validator

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
)

func Init() {
	validate = validator.New()

	sanitizer = bluemonday.UGCPolicy()

	registerCustomValidations(validate)

	if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerCustomValidations(engine)
	}
}

func registerCustomValidations(v *validator.Validate) {
	v.RegisterValidation("block_kind", validateBlockKind)
	v.RegisterValidation("question_type", validateQuestionType)
	v.RegisterValidation("badge_id", validateBadgeID)
}

func Validate(s interface{}) error {
	return validate.Struct(s)
}

// SanitizeHTML strips unsafe markup from learner-facing content bodies.
func SanitizeHTML(html string) string {
	return sanitizer.Sanitize(html)
}

func SanitizeString(s string) string {
	return bluemonday.StrictPolicy().Sanitize(s)
}

func ValidateURL(url string) bool {
	urlRegex := regexp.MustCompile(`^https?://[a-zA-Z0-9\-\.]+\.[a-zA-Z]{2,}(/.*)?$`)
	return urlRegex.MatchString(url)
}

func ValidatePassword(password string) (bool, string) {
	if len(password) < 6 {
		return false, "password must be at least 6 characters long"
	}
	return true, ""
}

// SanitizeFilename keeps stored upload names shell- and path-safe.
func SanitizeFilename(filename string) string {
	reg := regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	return reg.ReplaceAllString(filename, "_")
}

func ValidateDocumentExtension(filename string) bool {
	allowed := []string{".pdf", ".html", ".htm"}
	filename = strings.ToLower(filename)
	for _, ext := range allowed {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}

func ValidateFileSize(size int64, maxSize int64) bool {
	return size > 0 && size <= maxSize
}

func validateBlockKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "CONTENT", "ASSESSMENT":
		return true
	}
	return false
}

func validateQuestionType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "MCQ", "TF":
		return true
	}
	return false
}

// Badge ids are printed on physical badges as short upper-case codes.
func validateBadgeID(fl validator.FieldLevel) bool {
	matched, _ := regexp.MatchString(`^[A-Z0-9-]{4,32}$`, fl.Field().String())
	return matched
}
