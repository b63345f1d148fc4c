// File: internal/user/handler.go
package user

import (
	"cafe_client/internal/common"
	"cafe_client/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for member handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new member handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("MemberHandler"),
	}
}

// RegisterRoutes sets up the member routes. Every route requires authMW.
func (h *Handler) RegisterRoutes(router gin.IRouter, authMW gin.HandlerFunc) {
	authenticated := router.Group("")
	authenticated.Use(authMW)
	{
		authenticated.GET("/users/role", h.getRole)
		authenticated.POST("/sync-client", h.sync(shared.RoleClient))
		authenticated.POST("/sync-manager", h.sync(shared.RoleManager))
	}
}

// IdentityFromContext reads what AuthMiddleware stored.
func IdentityFromContext(c *gin.Context) (Identity, bool) {
	subject := common.GetSubjectFromContext(c)
	if subject == uuid.Nil {
		return Identity{}, false
	}
	return Identity{
		Subject:       subject,
		Email:         common.GetUserEmailFromContext(c),
		EmailVerified: common.GetEmailVerifiedFromContext(c),
	}, true
}

func (h *Handler) identity(c *gin.Context) (Identity, bool) {
	id, ok := IdentityFromContext(c)
	if !ok {
		h.logger.Error("Subject not found in context", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrInternalServer.WithDetails("User identifier missing."))
	}
	return id, ok
}

func (h *Handler) getRole(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	member, err := h.service.GetRole(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, ToRoleResponse(member))
}

func (h *Handler) sync(role shared.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.identity(c)
		if !ok {
			return
		}
		var req SyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("Sync: invalid request body", zap.Error(err))
			common.RespondWithError(c, common.BindError(err))
			return
		}
		member, err := h.service.Sync(c.Request.Context(), id, role, req)
		if err != nil {
			common.RespondWithError(c, err)
			return
		}
		common.RespondOK(c, ToRoleResponse(member))
	}
}
