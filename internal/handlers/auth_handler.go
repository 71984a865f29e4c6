package handlers

import (
	"net/http"

	"scale_backend/internal/services"
	"scale_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// AuthHandler отвечает только за регистрацию: токены выпускает внешний сервис.
type AuthHandler struct {
	*BaseHandler
	accountService services.AccountService
}

func NewAuthHandler(base *BaseHandler, accountService services.AccountService) *AuthHandler {
	return &AuthHandler{
		BaseHandler:    base,
		accountService: accountService,
	}
}

func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, _ gin.HandlerFunc) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	user, err := h.accountService.Register(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}
