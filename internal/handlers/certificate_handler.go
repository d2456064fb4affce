package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArchaicDeity/badge-to-cert/internal/service"
)

type CertificateHandler struct {
	service *service.CertificateService
}

func NewCertificateHandler(service *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{service: service}
}

func (h *CertificateHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "certificate service unavailable"})
		return false
	}
	return true
}

// Verify is the public lookup. Unknown, expired and voided codes come back
// as valid=false with a reason rather than an error status.
func (h *CertificateHandler) Verify(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	view, err := h.service.Verify(c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificate": view})
}

func (h *CertificateHandler) ListByLearner(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	learnerID, ok := parseUintParam(c, "learnerId")
	if !ok {
		return
	}

	certs, err := h.service.ListByLearner(learnerID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificates": certs})
}

func (h *CertificateHandler) Void(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	cert, err := h.service.Void(c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificate": cert})
}
