package models

// LoginRequest represents a back-office login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateCourseRequest represents a request to create a course
type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// UpdateCourseRequest represents a request to update course metadata
type UpdateCourseRequest struct {
	Title       *string `json:"title"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
}

// AddBlockRequest represents a request to add a block to a course. Position
// is optional; zero or absent appends the block at the end.
type AddBlockRequest struct {
	Kind        string  `json:"kind" binding:"required"`
	Title       string  `json:"title" binding:"required"`
	Position    *int    `json:"position"`
	IsMandatory *bool   `json:"is_mandatory"`
	Disabled    bool    `json:"disabled"`
	ConfigJSON  *string `json:"config_json"`
}

// UpdateBlockRequest represents a request to rename a block or replace its
// configuration blob.
type UpdateBlockRequest struct {
	Title      *string `json:"title"`
	ConfigJSON *string `json:"config_json"`
}

// ReorderBlocksRequest carries the complete desired order of a course's live
// blocks. It must be an exact permutation of the current live block ids.
type ReorderBlocksRequest struct {
	OrderedIDs []uint `json:"ordered_ids" binding:"required"`
}

// SaveContentRequest represents saving (or replacing) the content unit of a
// CONTENT block.
type SaveContentRequest struct {
	ContentType     string `json:"content_type" binding:"required"`
	SourcePath      string `json:"source_path"`
	HTMLBody        string `json:"html_body"`
	URL             string `json:"url"`
	DurationMinutes int    `json:"duration_minutes"`
}

// SaveAssessmentRequest represents saving the configuration of an ASSESSMENT
// block. Absent attempt/cooldown fields fall back to the documented defaults.
type SaveAssessmentRequest struct {
	NumQuestions          int   `json:"num_questions" binding:"required"`
	PassMarkPercent       *int  `json:"pass_mark_percent"`
	TimeLimitMinutes      int   `json:"time_limit_minutes"`
	ShuffleQuestions      *bool `json:"shuffle_questions"`
	MaxAttempts           *int  `json:"max_attempts"`
	RetakeCooldownMinutes *int  `json:"retake_cooldown_minutes"`
}

// QuestionRequest represents one question in create, update or bulk import
// payloads.
type QuestionRequest struct {
	Type         string   `json:"type" binding:"required"`
	Body         string   `json:"body" binding:"required"`
	Choices      []string `json:"choices"`
	CorrectIndex *int     `json:"correct_index"`
	CorrectBool  *bool    `json:"correct_bool"`
	Explanation  string   `json:"explanation"`
	Tags         string   `json:"tags"`
}

// BulkImportQuestionsRequest represents a bulk question import for one
// assessment.
type BulkImportQuestionsRequest struct {
	Items []QuestionRequest `json:"items" binding:"required"`
}

// StartAttemptRequest begins a timed attempt for an enrollment on an
// assessment block.
type StartAttemptRequest struct {
	EnrollmentID uint `json:"enrollment_id" binding:"required"`
	BlockID      uint `json:"block_id" binding:"required"`
}

// AnswerRequest records (or changes) the answer for one question of an
// in-progress attempt. Choice is the selected choice index; for TF questions
// 0 means true and 1 means false.
type AnswerRequest struct {
	QuestionIndex int `json:"question_index"`
	Choice        int `json:"choice"`
}

// CreateReviewRequest submits a course for review
type CreateReviewRequest struct {
	SubmittedBy *uint  `json:"submitted_by"`
	Notes       string `json:"notes"`
}

// ResolveReviewRequest approves or rejects an open review
type ResolveReviewRequest struct {
	ReviewedBy *uint  `json:"reviewed_by"`
	Notes      string `json:"notes"`
}

// CreateEnrollmentRequest enrolls a learner (by badge) into a course
type CreateEnrollmentRequest struct {
	BadgeID  string `json:"badge_id" binding:"required"`
	CourseID uint   `json:"course_id" binding:"required"`
}
