package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/service"
)

type ContentHandler struct {
	service *service.ContentService
	uploads *service.UploadService
}

func NewContentHandler(service *service.ContentService, uploads *service.UploadService) *ContentHandler {
	return &ContentHandler{service: service, uploads: uploads}
}

func (h *ContentHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "content service unavailable"})
		return false
	}
	return true
}

func (h *ContentHandler) Get(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	blockID, ok := parseUintParam(c, "blockId")
	if !ok {
		return
	}

	unit, err := h.service.GetByBlock(blockID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"content": unit})
}

func (h *ContentHandler) Save(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	blockID, ok := parseUintParam(c, "blockId")
	if !ok {
		return
	}

	var req models.SaveContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	unit, err := h.service.Save(blockID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"content": unit})
}

// Upload stores a material file and returns the stored path for a following
// Save call.
func (h *ContentHandler) Upload(c *gin.Context) {
	if h == nil || h.uploads == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "upload service unavailable"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	path, filename, err := h.uploads.UploadDocument(file)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"source_path": path, "filename": filename})
}
