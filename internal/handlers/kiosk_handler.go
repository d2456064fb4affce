package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/service"
)

// KioskHandler serves the learner-facing surface: enrollment by badge, the
// published course snapshot, content completion and assessment attempts.
type KioskHandler struct {
	courses  *service.CourseService
	progress *service.ProgressService
	attempts *service.AttemptService
}

func NewKioskHandler(
	courses *service.CourseService,
	progress *service.ProgressService,
	attempts *service.AttemptService,
) *KioskHandler {
	return &KioskHandler{
		courses:  courses,
		progress: progress,
		attempts: attempts,
	}
}

func (h *KioskHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.courses == nil || h.progress == nil || h.attempts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "kiosk service unavailable"})
		return false
	}
	return true
}

func (h *KioskHandler) GetCourse(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	view, err := h.courses.KioskView(courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": view})
}

func (h *KioskHandler) Enroll(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enrollment, err := h.progress.Enroll(req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"enrollment": enrollment})
}

func (h *KioskHandler) GetProgress(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	enrollmentID, ok := parseUintParam(c, "enrollmentId")
	if !ok {
		return
	}

	view, err := h.progress.Summary(enrollmentID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": view})
}

func (h *KioskHandler) CompleteContent(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	enrollmentID, ok := parseUintParam(c, "enrollmentId")
	if !ok {
		return
	}
	blockID, ok := parseUintParam(c, "blockId")
	if !ok {
		return
	}

	view, err := h.progress.MarkContentComplete(enrollmentID, blockID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": view})
}

func (h *KioskHandler) StartAttempt(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.attempts.Start(req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"attempt": view})
}

func (h *KioskHandler) GetAttempt(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	view, err := h.attempts.Get(c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempt": view})
}

func (h *KioskHandler) AnswerQuestion(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.attempts.Answer(c.Param("token"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempt": view})
}

func (h *KioskHandler) SubmitAttempt(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	view, err := h.attempts.Submit(c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempt": view})
}
