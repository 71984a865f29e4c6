package services

import (
	"errors"

	"scale_backend/internal/repositories"
	"scale_backend/pkg/apperrors"
)

// translateRepoError переводит sentinel-ошибки репозиториев в AppError.
// Все неизвестное становится 500.
func translateRepoError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		return apperrors.ErrUserNotFound
	case errors.Is(err, repositories.ErrUserAlreadyExists):
		return apperrors.ErrEmailAlreadyExists
	case errors.Is(err, repositories.ErrDuplicateReferral):
		return apperrors.ErrDuplicateReferral
	case errors.Is(err, repositories.ErrPlanNotFound):
		return apperrors.ErrPlanNotFound
	case errors.Is(err, repositories.ErrPlanSlugTaken):
		return apperrors.ErrPlanSlugTaken
	case errors.Is(err, repositories.ErrSubscriptionNotFound):
		return apperrors.ErrSubscriptionNotFound
	case errors.Is(err, repositories.ErrProjectNotFound):
		return apperrors.ErrProjectNotFound
	default:
		return apperrors.InternalError(err)
	}
}
