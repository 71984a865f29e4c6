package services

import (
	"scale_backend/internal/email"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	AccountService      AccountService
	ReferralService     ReferralService
	SubscriptionService SubscriptionService
	ProjectService      ProjectService
	EmailService        email.Provider
}
