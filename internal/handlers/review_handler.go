package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/service"
)

type ReviewHandler struct {
	service *service.ReviewService
}

func NewReviewHandler(service *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

func (h *ReviewHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "review service unavailable"})
		return false
	}
	return true
}

func (h *ReviewHandler) Submit(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req models.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := h.service.Submit(courseID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"review": review})
}

func (h *ReviewHandler) Approve(c *gin.Context) {
	h.resolve(c, h.service.Approve)
}

func (h *ReviewHandler) Reject(c *gin.Context) {
	h.resolve(c, h.service.Reject)
}

func (h *ReviewHandler) resolve(c *gin.Context, apply func(uint, models.ResolveReviewRequest) (*models.ReviewRequest, error)) {
	if !h.ensureService(c) {
		return
	}

	reviewID, ok := parseUintParam(c, "reviewId")
	if !ok {
		return
	}

	var req models.ResolveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := apply(reviewID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"review": review})
}

func (h *ReviewHandler) Latest(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	review, err := h.service.LatestForCourse(courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"review": review})
}

// Publish pushes a draft course live directly, bypassing the review queue.
func (h *ReviewHandler) Publish(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	course, err := h.service.Publish(courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}

// Preflight reports publish-blocking issues without entering the workflow.
func (h *ReviewHandler) Preflight(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	issues, err := h.service.Preflight(courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"publishable": len(issues) == 0, "issues": issues})
}
