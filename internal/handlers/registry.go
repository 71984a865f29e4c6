package handlers

import "github.com/gin-gonic/gin"

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler         *AuthHandler
	UserHandler         *UserHandler
	ReferralHandler     *ReferralHandler
	SubscriptionHandler *SubscriptionHandler
	ProjectHandler      *ProjectHandler
}

// RouteRegistrar - хэндлер, который сам регистрирует свои маршруты.
type RouteRegistrar interface {
	RegisterRoutes(r *gin.RouterGroup, authMW gin.HandlerFunc)
}

func (a *AppHandlers) All() []RouteRegistrar {
	return []RouteRegistrar{
		a.AuthHandler,
		a.UserHandler,
		a.ReferralHandler,
		a.SubscriptionHandler,
		a.ProjectHandler,
	}
}
