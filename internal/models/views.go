package models

import "time"

// KioskCourseView is the published-course snapshot a kiosk renders. It never
// carries correct answers or draft-only blocks.
type KioskCourseView struct {
	ID      uint             `json:"id"`
	Title   string           `json:"title"`
	Code    string           `json:"code,omitempty"`
	Version int              `json:"version"`
	Blocks  []KioskBlockView `json:"blocks"`
}

// KioskBlockView is one live, enabled block of a published course.
type KioskBlockView struct {
	ID          uint   `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Position    int    `json:"position"`
	IsMandatory bool   `json:"is_mandatory"`

	Content    *KioskContentView    `json:"content,omitempty"`
	Assessment *KioskAssessmentView `json:"assessment,omitempty"`
}

// KioskContentView describes the material of a CONTENT block.
type KioskContentView struct {
	ContentType     string `json:"content_type"`
	SourcePath      string `json:"source_path,omitempty"`
	HTMLBody        string `json:"html_body,omitempty"`
	URL             string `json:"url,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
}

// KioskAssessmentView describes an assessment's rules without exposing its
// question bank.
type KioskAssessmentView struct {
	NumQuestions          int  `json:"num_questions"`
	PassMarkPercent       int  `json:"pass_mark_percent"`
	TimeLimitMinutes      int  `json:"time_limit_minutes"`
	MaxAttempts           int  `json:"max_attempts"`
	RetakeCooldownMinutes int  `json:"retake_cooldown_minutes"`
	ShuffleQuestions      bool `json:"shuffle_questions"`
}

// AttemptQuestionView is one question as presented inside an attempt. The
// correct answer never leaves the server.
type AttemptQuestionView struct {
	Index   int      `json:"index"`
	Type    string   `json:"type"`
	Body    string   `json:"body"`
	Choices []string `json:"choices"`
}

// AttemptView is the kiosk-facing state of an attempt.
type AttemptView struct {
	Token             string                `json:"token"`
	State             string                `json:"state"`
	StartedAt         time.Time             `json:"started_at"`
	Deadline          time.Time             `json:"deadline"`
	Questions         []AttemptQuestionView `json:"questions,omitempty"`
	Answers           []int                 `json:"answers,omitempty"`
	Score             *int                  `json:"score,omitempty"`
	AttemptsUsed      int                   `json:"attempts_used"`
	MaxAttempts       int                   `json:"max_attempts"`
	RetakeAvailableAt *time.Time            `json:"retake_available_at,omitempty"`
}

// ProgressBlockView pairs one live block with the enrollment's outcome on it.
type ProgressBlockView struct {
	BlockID     uint   `json:"block_id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Position    int    `json:"position"`
	IsMandatory bool   `json:"is_mandatory"`
	Status      string `json:"status"`
	Score       *int   `json:"score,omitempty"`
	Attempts    int    `json:"attempts"`
}

// EnrollmentProgressView is the kiosk's picture of where an enrollment
// stands: per-block outcomes, the next block to work on, and whether the run
// has finished (completed or terminally failed).
type EnrollmentProgressView struct {
	EnrollmentID    uint                `json:"enrollment_id"`
	CourseID        uint                `json:"course_id"`
	Completed       bool                `json:"completed"`
	Failed          bool                `json:"failed"`
	NextBlockID     *uint               `json:"next_block_id,omitempty"`
	CertificateCode string              `json:"certificate_code,omitempty"`
	Blocks          []ProgressBlockView `json:"blocks"`
}

// CertificateView is the public verification result for a certificate code.
type CertificateView struct {
	Code        string    `json:"code"`
	Valid       bool      `json:"valid"`
	Reason      string    `json:"reason,omitempty"`
	CourseTitle string    `json:"course_title,omitempty"`
	LearnerName string    `json:"learner_name,omitempty"`
	IssuedAt    time.Time `json:"issued_at,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}
