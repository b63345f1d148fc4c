// File: internal/cafe/handler.go
package cafe

import (
	"cafe_client/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for café handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new café handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("CafeHandler"),
	}
}

// RegisterRoutes sets up the manager café routes behind authMW.
func (h *Handler) RegisterRoutes(router gin.IRouter, authMW gin.HandlerFunc) {
	managers := router.Group("/managers/me")
	managers.Use(authMW)
	{
		managers.GET("/cafe", h.getCafe)
		managers.POST("/cafe", h.createCafe)
	}
}

func (h *Handler) subject(c *gin.Context) (uuid.UUID, bool) {
	subject := common.GetSubjectFromContext(c)
	if subject == uuid.Nil {
		h.logger.Error("Subject not found in context", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrInternalServer.WithDetails("User identifier missing."))
		return uuid.Nil, false
	}
	return subject, true
}

func (h *Handler) getCafe(c *gin.Context) {
	subject, ok := h.subject(c)
	if !ok {
		return
	}
	cafe, err := h.service.GetManagerCafe(c.Request.Context(), subject)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, ToCafeResponse(cafe))
}

func (h *Handler) createCafe(c *gin.Context) {
	subject, ok := h.subject(c)
	if !ok {
		return
	}
	var req CreateCafeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create café: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindError(err))
		return
	}
	cafe, err := h.service.CreateManagerCafe(c.Request.Context(), subject, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, ToCafeResponse(cafe))
}
