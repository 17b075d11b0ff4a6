package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tax-advisor/internal/domain"
	"tax-advisor/internal/service"
)

// statusClientClosedRequest se usa cuando el caller abandona el turno.
const statusClientClosedRequest = 499

// AdvisoryHandler expone el orquestador de asesoría por HTTP.
type AdvisoryHandler struct {
	logger   *zap.Logger
	advisory *service.AdvisoryService
	limiter  service.TurnRateLimiter
}

// NewAdvisoryHandler crea una instancia de AdvisoryHandler con dependencias necesarias.
// limiter puede ser nil.
func NewAdvisoryHandler(logger *zap.Logger, advisory *service.AdvisoryService, limiter service.TurnRateLimiter) *AdvisoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvisoryHandler{logger: logger, advisory: advisory, limiter: limiter}
}

// CreateSession maneja POST /sessions. Solo emite un id; la sesión se crea en el primer turno.
func (h *AdvisoryHandler) CreateSession(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{
		"session_id":           uuid.NewString(),
		"required_disclosures": h.advisory.RequiredDisclosures(),
	})
}

// PostTurn maneja POST /turn.
func (h *AdvisoryHandler) PostTurn(c *gin.Context) {
	var req domain.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid turn request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.limiter != nil && !h.limiter.Allow(req.SessionID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	resp, err := h.advisory.ProcessTurn(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, "process turn failed", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSession maneja GET /sessions/:id.
func (h *AdvisoryHandler) GetSession(c *gin.Context) {
	sess, err := h.advisory.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get session failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// Unlock maneja POST /sessions/:id/unlock. Repetir la llamada devuelve el mismo estado.
func (h *AdvisoryHandler) Unlock(c *gin.Context) {
	sess, err := h.advisory.Unlock(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "unlock failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sess.ID, "unlocked": sess.Unlocked})
}

// Acknowledge maneja POST /sessions/:id/acknowledge.
func (h *AdvisoryHandler) Acknowledge(c *gin.Context) {
	var req struct {
		Accepted []string `json:"accepted" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid acknowledge request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sess, err := h.advisory.Acknowledge(c.Request.Context(), c.Param("id"), req.Accepted)
	if err != nil {
		h.writeError(c, "acknowledge failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":           sess.ID,
		"acknowledged":         sess.Acknowledged,
		"accepted_disclosures": sess.AcceptedDisclosures,
	})
}

// writeError traduce la taxonomía de errores a códigos HTTP. Las violaciones de
// invariantes se loguean completas y el caller solo recibe un mensaje genérico.
func (h *AdvisoryHandler) writeError(c *gin.Context, msg string, err error) {
	switch {
	case domain.IsInputError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled):
		h.logger.Info("request cancelled by client", zap.String("path", c.FullPath()))
		c.AbortWithStatus(statusClientClosedRequest)
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(msg, zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	case domain.IsInvariantViolation(err):
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
