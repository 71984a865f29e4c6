package apperrors

import (
	"net/http"
)

// =========================================================================
// Фабрики
// =========================================================================

// ErrNotFound оборачивает ошибку репозитория (напр. gorm.ErrRecordNotFound) в 404.
func ErrNotFound(err error, domain, message string) *AppError {
	return Wrap(err, CodeNotFound, domain, message, http.StatusNotFound)
}

// ErrAlreadyExists - 409 для нарушений уникальности.
func ErrAlreadyExists(err error, domain, message string) *AppError {
	return Wrap(err, CodeAlreadyExists, domain, message, http.StatusConflict)
}

// ErrInvalidOperation - 400 для логически недопустимых операций.
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// =========================================================================
// Предопределенные ошибки
// =========================================================================

// --- Accounts ---

var ErrUserNotFound = New(
	CodeNotFound,
	"user",
	"User not found",
	http.StatusNotFound,
)

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"user",
	"A user with this email already exists",
	http.StatusConflict,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

// --- Referrals ---

// ErrDuplicateReferral - пользователь уже привязан к реферреру.
var ErrDuplicateReferral = New(
	CodeDuplicateReferral,
	"referral",
	"User has already been referred",
	http.StatusConflict,
)

var ErrSelfReferral = New(
	CodeValidationFailed,
	"referral",
	"Users cannot refer themselves",
	http.StatusBadRequest,
)

// --- Subscriptions & Plans ---

var ErrPlanNotFound = New(
	CodeNotFound,
	"subscription",
	"Plan not found",
	http.StatusNotFound,
)

var ErrSubscriptionNotFound = New(
	CodeNotFound,
	"subscription",
	"No active subscription",
	http.StatusNotFound,
)

var ErrPlanSlugTaken = New(
	CodeAlreadyExists,
	"subscription",
	"A plan with this slug already exists",
	http.StatusConflict,
)

// --- Projects ---

var ErrProjectNotFound = New(
	CodeNotFound,
	"project",
	"Project not found",
	http.StatusNotFound,
)
