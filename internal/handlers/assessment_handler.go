package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/service"
)

type AssessmentHandler struct {
	assessments *service.AssessmentService
	questions   *service.QuestionService
}

func NewAssessmentHandler(assessments *service.AssessmentService, questions *service.QuestionService) *AssessmentHandler {
	return &AssessmentHandler{assessments: assessments, questions: questions}
}

func (h *AssessmentHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.assessments == nil || h.questions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assessment service unavailable"})
		return false
	}
	return true
}

func (h *AssessmentHandler) Get(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	blockID, ok := parseUintParam(c, "blockId")
	if !ok {
		return
	}

	assessment, err := h.assessments.GetByBlock(blockID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessment": assessment})
}

func (h *AssessmentHandler) Save(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	blockID, ok := parseUintParam(c, "blockId")
	if !ok {
		return
	}

	var req models.SaveAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assessment, err := h.assessments.Save(blockID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessment": assessment})
}

func (h *AssessmentHandler) ListQuestions(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	assessmentID, ok := parseUintParam(c, "assessmentId")
	if !ok {
		return
	}

	questions, err := h.questions.ListByAssessment(assessmentID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

func (h *AssessmentHandler) CreateQuestion(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	assessmentID, ok := parseUintParam(c, "assessmentId")
	if !ok {
		return
	}

	var req models.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.questions.Create(assessmentID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"question": question})
}

func (h *AssessmentHandler) UpdateQuestion(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "questionId")
	if !ok {
		return
	}

	var req models.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.questions.Update(id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"question": question})
}

func (h *AssessmentHandler) DeleteQuestion(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "questionId")
	if !ok {
		return
	}

	if err := h.questions.Delete(id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "question deleted"})
}

func (h *AssessmentHandler) BulkImportQuestions(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	assessmentID, ok := parseUintParam(c, "assessmentId")
	if !ok {
		return
	}

	var req models.BulkImportQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions, err := h.questions.BulkImport(assessmentID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"questions": questions, "imported": len(questions)})
}
