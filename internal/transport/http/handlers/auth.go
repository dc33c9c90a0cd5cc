package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport/http/middleware"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/usecase"
)

// AuthHandler exposes the login, logout, refresh and session endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of the login handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.login)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.login)
	}

	r.POST("/logout", middleware.RequireAuth(), h.logout)
	r.POST("/refresh", middleware.RequireAuth(), h.refresh)
	r.GET("/session", middleware.RequireAuth(), h.session)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest,
			NewErrorResponse(c, domain.CodeValidation, "email and password are required"))
		return
	}

	meta := middleware.GetRequestMeta(c)
	input := usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}
	if meta.IP != "" {
		input.IP = &meta.IP
	}
	if meta.UserAgent != "" {
		input.UserAgent = &meta.UserAgent
	}

	result, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:       result.Token,
		ExpiresAt:   result.Session.ExpiresAt,
		Smith:       smithResponse(result.Identity),
		Permissions: permissionStrings(result.Permissions),
	})
}

func (h *AuthHandler) logout(c *gin.Context) {
	rc := middleware.RequestContext(c)

	if err := h.auth.Logout(c.Request.Context(), *rc.Session()); err != nil {
		RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) refresh(c *gin.Context) {
	rc := middleware.RequestContext(c)

	result, err := h.auth.Refresh(c.Request.Context(), *rc.Identity(), *rc.Session())
	if err != nil {
		RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:       result.Token,
		ExpiresAt:   result.Session.ExpiresAt,
		Smith:       smithResponse(result.Identity),
		Permissions: permissionStrings(result.Permissions),
	})
}

func (h *AuthHandler) session(c *gin.Context) {
	rc := middleware.RequestContext(c)
	session := rc.Session()

	c.JSON(http.StatusOK, SessionResponse{
		SessionID:   session.ID,
		Smith:       smithResponse(*rc.Identity()),
		Role:        string(session.Role),
		Permissions: permissionStrings(session.Permissions),
		IssuedAt:    session.IssuedAt,
		ExpiresAt:   session.ExpiresAt,
	})
}
