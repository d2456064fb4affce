package models

import (
	"time"
)

const (
	RoleAdmin    = "admin"
	RoleAssessor = "assessor"
)

const (
	CourseStatusDraft     = "DRAFT"
	CourseStatusInReview  = "IN_REVIEW"
	CourseStatusPublished = "PUBLISHED"
)

const (
	BlockKindContent    = "CONTENT"
	BlockKindAssessment = "ASSESSMENT"
)

const (
	ContentTypePDF  = "pdf"
	ContentTypeHTML = "html"
	ContentTypeLink = "link"
)

const (
	QuestionTypeMCQ = "MCQ"
	QuestionTypeTF  = "TF"
)

const (
	ReviewStatusOpen     = "OPEN"
	ReviewStatusApproved = "APPROVED"
	ReviewStatusRejected = "REJECTED"
)

const (
	ProgressNotStarted = "NOT_STARTED"
	ProgressCompleted  = "COMPLETED"
	ProgressFailed     = "FAILED"
)

const (
	AttemptStateInProgress     = "IN_PROGRESS"
	AttemptStatePassed         = "PASSED"
	AttemptStateFailedFinal    = "FAILED_FINAL"
	AttemptStateAwaitingRetake = "AWAITING_RETAKE"
)

// User is a back-office account (course builders, reviewers, assessors).
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username string `gorm:"not null;uniqueIndex" json:"username"`
	Email    string `gorm:"not null;uniqueIndex" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Role     string `gorm:"type:varchar(32);not null;default:'admin'" json:"role"`
}

// Course is an ordered sequence of blocks a learner works through at a kiosk.
// Status transitions are owned by the review workflow; Version increments
// exactly once per successful publish.
type Course struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title       string `gorm:"not null" json:"title"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Version     int    `gorm:"not null;default:1" json:"version"`
	Status      string `gorm:"type:varchar(32);not null;default:'DRAFT'" json:"status"`
}

// CourseBlock is one unit within a course, either CONTENT or ASSESSMENT.
// Live blocks of a course occupy positions 1..N with no gaps or duplicates;
// soft-deleted blocks are retained with position 0.
type CourseBlock struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CourseID    uint   `gorm:"not null;index" json:"course_id"`
	Kind        string `gorm:"type:varchar(32);not null" json:"kind"`
	Title       string `gorm:"not null" json:"title"`
	Position    int    `gorm:"not null;default:0" json:"position"`
	IsMandatory bool   `gorm:"not null;default:true" json:"is_mandatory"`
	Disabled    bool   `gorm:"not null;default:false" json:"disabled"`
	Deleted     bool   `gorm:"not null;default:false;index" json:"deleted"`
	ConfigJSON  string `gorm:"column:config_json" json:"config_json,omitempty"`
}

// ContentUnit holds the material of a CONTENT block; exactly one per block,
// replaced whenever content is saved again.
type ContentUnit struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BlockID         uint   `gorm:"not null;uniqueIndex" json:"block_id"`
	ContentType     string `gorm:"type:varchar(32);not null" json:"content_type"`
	SourcePath      string `json:"source_path,omitempty"`
	HTMLBody        string `json:"html_body,omitempty"`
	URL             string `json:"url,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Deleted         bool   `gorm:"not null;default:false" json:"deleted"`
}

// Assessment is the configuration of an ASSESSMENT block; exactly one per
// block. The configuration is treated as immutable while an attempt is in
// progress.
type Assessment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BlockID               uint `gorm:"not null;uniqueIndex" json:"block_id"`
	NumQuestions          int  `gorm:"not null" json:"num_questions"`
	PassMarkPercent       int  `gorm:"not null" json:"pass_mark_percent"`
	TimeLimitMinutes      int  `gorm:"not null" json:"time_limit_minutes"`
	ShuffleQuestions      bool `gorm:"not null;default:true" json:"shuffle_questions"`
	MaxAttempts           int  `gorm:"not null;default:2" json:"max_attempts"`
	RetakeCooldownMinutes int  `gorm:"not null;default:10" json:"retake_cooldown_minutes"`
	Deleted               bool `gorm:"not null;default:false" json:"deleted"`
}

// Question belongs to an assessment's bank. MCQ questions carry an ordered
// choice list and a correct index; TF questions carry a correct boolean.
type Question struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AssessmentID uint   `gorm:"not null;index" json:"assessment_id"`
	Type         string `gorm:"type:varchar(8);not null" json:"type"`
	Body         string `gorm:"not null" json:"body"`
	ChoicesJSON  string `gorm:"column:choices_json" json:"-"`
	CorrectIndex *int   `json:"correct_index,omitempty"`
	CorrectBool  *bool  `json:"correct_bool,omitempty"`
	Explanation  string `json:"explanation,omitempty"`
	Tags         string `json:"tags,omitempty"`
	Deleted      bool   `gorm:"not null;default:false" json:"deleted"`

	Choices []string `gorm:"-" json:"choices,omitempty"`
}

// ReviewRequest gates publishing a course. At most one OPEN request exists
// per course; the latest by creation time is authoritative.
type ReviewRequest struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CourseID    uint       `gorm:"not null;index" json:"course_id"`
	Status      string     `gorm:"type:varchar(32);not null;default:'OPEN'" json:"status"`
	SubmittedBy *uint      `json:"submitted_by,omitempty"`
	ReviewedBy  *uint      `json:"reviewed_by,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

// Learner is a trainee identified at the kiosk by badge.
type Learner struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name    string `gorm:"not null" json:"name"`
	BadgeID string `gorm:"not null;uniqueIndex" json:"badge_id"`
}

// Enrollment ties a learner to a course run.
type Enrollment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LearnerID   uint       `gorm:"not null;index" json:"learner_id"`
	CourseID    uint       `gorm:"not null;index" json:"course_id"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// EnrollmentProgress records one enrollment's outcome for one block. Created
// on first attempt, updated on every later attempt, never deleted.
type EnrollmentProgress struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EnrollmentID uint `gorm:"not null;uniqueIndex:idx_enrollment_block,priority:1" json:"enrollment_id"`
	BlockID      uint `gorm:"not null;uniqueIndex:idx_enrollment_block,priority:2" json:"block_id"`

	Status            string     `gorm:"type:varchar(32);not null;default:'NOT_STARTED'" json:"status"`
	Score             *int       `json:"score,omitempty"`
	Attempts          int        `gorm:"not null;default:0" json:"attempts"`
	RetakeAvailableAt *time.Time `json:"retake_available_at,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// AssessmentAttempt is one timed pass through a selected question set. The
// deadline is enforced server-side: touching a finished-deadline attempt
// finalizes it with whatever answers were recorded.
type AssessmentAttempt struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Token        string `gorm:"not null;uniqueIndex" json:"token"`
	EnrollmentID uint   `gorm:"not null;index" json:"enrollment_id"`
	BlockID      uint   `gorm:"not null;index" json:"block_id"`
	AssessmentID uint   `gorm:"not null" json:"assessment_id"`

	State           string     `gorm:"type:varchar(32);not null" json:"state"`
	QuestionIDsJSON string     `gorm:"column:question_ids_json;not null" json:"-"`
	AnswersJSON     string     `gorm:"column:answers_json;not null" json:"-"`
	StartedAt       time.Time  `gorm:"not null" json:"started_at"`
	Deadline        time.Time  `gorm:"not null" json:"deadline"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Score           *int       `json:"score,omitempty"`
}

// Certificate is issued when an enrollment completes a course with all
// mandatory blocks passed. Codes are publicly verifiable.
type Certificate struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Code         string    `gorm:"not null;uniqueIndex" json:"code"`
	EnrollmentID uint      `gorm:"not null;uniqueIndex" json:"enrollment_id"`
	CourseID     uint      `gorm:"not null;index" json:"course_id"`
	LearnerID    uint      `gorm:"not null;index" json:"learner_id"`
	IssuedAt     time.Time `gorm:"not null" json:"issued_at"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	Voided       bool      `gorm:"not null;default:false" json:"voided"`
}
