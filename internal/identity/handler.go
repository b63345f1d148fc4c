// File: internal/identity/handler.go
package identity

import (
	"errors"
	"net/http"

	"cafe_client/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler exposes the stub identity provider over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("IdentityHandler")}
}

// RegisterRoutes sets up the provider routes at the root of router.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/oauth/token", h.token)
	router.POST("/oauth/revoke", h.revoke)
	router.POST("/dbconnections/signup", h.signup)

	dev := router.Group("/dev")
	dev.POST("/verify-email", h.verifyEmail)
}

// tokenError writes the OAuth error shape.
func (h *Handler) tokenError(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		h.logger.Error("Unhandled token endpoint error", zap.Error(err))
		e = errServiceUnavailable
	}
	c.AbortWithStatusJSON(e.Status, gin.H{"error": e.Code, "error_description": e.Description})
}

// signupError writes the database-connection error shape.
func (h *Handler) signupError(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		h.logger.Error("Unhandled signup error", zap.Error(err))
		e = errServiceUnavailable
	}
	c.AbortWithStatusJSON(e.Status, gin.H{
		"name":        http.StatusText(e.Status),
		"code":        e.Code,
		"description": e.Description,
		"statusCode":  e.Status,
	})
}

func (h *Handler) token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		h.tokenError(c, newError(http.StatusBadRequest, "invalid_request", err.Error()))
		return
	}
	resp, err := h.service.PasswordGrant(c.Request.Context(), req)
	if err != nil {
		h.tokenError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	common.RespondOK(c, resp)
}

func (h *Handler) revoke(c *gin.Context) {
	var req RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.tokenError(c, newError(http.StatusBadRequest, "invalid_request", err.Error()))
		return
	}
	if err := h.service.Revoke(c.Request.Context(), req.Token); err != nil {
		h.tokenError(c, err)
		return
	}
	common.RespondOK(c, gin.H{})
}

func (h *Handler) signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.signupError(c, newError(http.StatusBadRequest, "bad.request", err.Error()))
		return
	}
	account, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		h.signupError(c, err)
		return
	}
	common.RespondOK(c, SignupResponse{
		ID:            account.ID.String(),
		Email:         account.Email,
		EmailVerified: account.EmailVerified,
	})
}

func (h *Handler) verifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindError(err))
		return
	}
	if err := h.service.VerifyEmail(c.Request.Context(), req.Email); err != nil {
		var e *Error
		if errors.As(err, &e) {
			common.RespondWithError(c, common.NewAPIError(e.Status, "NOT_FOUND", e.Description))
			return
		}
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}
