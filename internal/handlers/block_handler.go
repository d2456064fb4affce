package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/service"
)

type BlockHandler struct {
	service *service.BlockService
}

func NewBlockHandler(service *service.BlockService) *BlockHandler {
	return &BlockHandler{service: service}
}

func (h *BlockHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "block service unavailable"})
		return false
	}
	return true
}

func (h *BlockHandler) List(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	includeDeleted := c.Query("include_deleted") == "true"
	blocks, err := h.service.List(courseID, includeDeleted)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

func (h *BlockHandler) Add(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req models.AddBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	block, err := h.service.Add(courseID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"block": block})
}

func (h *BlockHandler) Update(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "blockId")
	if !ok {
		return
	}

	var req models.UpdateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	block, err := h.service.Update(id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"block": block})
}

func (h *BlockHandler) Delete(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "blockId")
	if !ok {
		return
	}

	hard := c.Query("hard") == "true"
	if err := h.service.Delete(id, hard); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "block deleted"})
}

func (h *BlockHandler) Duplicate(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "blockId")
	if !ok {
		return
	}

	block, err := h.service.Duplicate(id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"block": block})
}

func (h *BlockHandler) Reorder(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req models.ReorderBlocksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blocks, err := h.service.Reorder(courseID, req.OrderedIDs)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

func (h *BlockHandler) SetMandatory(c *gin.Context) {
	h.setFlag(c, func(id uint, value bool) (*models.CourseBlock, error) {
		return h.service.SetMandatory(id, value)
	})
}

func (h *BlockHandler) SetDisabled(c *gin.Context) {
	h.setFlag(c, func(id uint, value bool) (*models.CourseBlock, error) {
		return h.service.SetDisabled(id, value)
	})
}

func (h *BlockHandler) setFlag(c *gin.Context, apply func(uint, bool) (*models.CourseBlock, error)) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "blockId")
	if !ok {
		return
	}

	var req struct {
		Value *bool `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	block, err := apply(id, *req.Value)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"block": block})
}
