package services

import (
	"context"
	"errors"
	"strings"

	"scale_backend/internal/auth"
	"scale_backend/internal/email"
	"scale_backend/internal/logger"
	"scale_backend/internal/models"
	"scale_backend/internal/repositories"
	"scale_backend/internal/services/dto"
	"scale_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type AccountService interface {
	// Register создает пользователя, выдает ему реферальный код и, если передан
	// известный код реферрера, записывает реферала в той же транзакции.
	Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Me(ctx context.Context, db *gorm.DB, userID string) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	DeleteAccount(ctx context.Context, db *gorm.DB, userID string) error

	// EnsureAdmin создает администратора, если пользователя с таким email нет.
	EnsureAdmin(ctx context.Context, db *gorm.DB, emailAddr, password string) (bool, error)
}

type AccountServiceImpl struct {
	userRepo         repositories.UserRepository
	subscriptionRepo repositories.SubscriptionRepository
	referralService  ReferralService
	emailProvider    email.Provider
}

func NewAccountService(
	userRepo repositories.UserRepository,
	subscriptionRepo repositories.SubscriptionRepository,
	referralService ReferralService,
	emailProvider email.Provider,
) AccountService {
	return &AccountServiceImpl{
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		referralService:  referralService,
		emailProvider:    emailProvider,
	}
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ---------------- Registration ----------------

// registerAttempts - сколько раз повторяем регистрацию, если выданный код
// успел занять параллельный запрос.
const registerAttempts = 3

func (s *AccountServiceImpl) Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ValidationError(map[string]string{"password": err.Error()})
	}
	emailAddr := normalizeEmail(req.Email)

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	var user *models.User
	for attempt := 1; ; attempt++ {
		user, err = s.registerTx(ctx, db, req, emailAddr, hash)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrReferralCodeTaken) || attempt >= registerAttempts {
			return nil, translateRepoError(err)
		}
		logger.CtxWarn(ctx, "Referral code collision at registration, retrying", "attempt", attempt)
	}

	logger.CtxInfo(ctx, "User registered", "user_id", user.ID)

	link := s.referralService.ReferralLink(user.Code())
	if err := s.emailProvider.SendWelcome(user.Email, user.Username, *link); err != nil {
		logger.CtxWarn(ctx, "Failed to send welcome email", "user_id", user.ID, "error", err)
	}

	return s.buildUserResponse(user, nil), nil
}

// registerTx - одна попытка регистрации в собственной транзакции.
// ErrReferralCodeTaken возвращается как есть, чтобы Register мог повторить.
func (s *AccountServiceImpl) registerTx(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest, emailAddr, hash string) (*models.User, error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	if _, err := s.userRepo.FindByEmail(tx, emailAddr); err == nil {
		return nil, apperrors.ErrEmailAlreadyExists
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, apperrors.InternalError(err)
	}

	// Код выдается при первом сохранении пользователя.
	code, err := s.referralService.NewReferralCode(ctx, tx)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        emailAddr,
		Username:     req.Username,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.UserRoleUser,
		ReferralCode: &code,
	}
	if err := s.userRepo.Create(tx, user); err != nil {
		return nil, err
	}

	if inviteCode := strings.TrimSpace(req.ReferralCode); inviteCode != "" {
		referrer, err := s.userRepo.FindByReferralCode(tx, inviteCode)
		switch {
		case err == nil:
			if _, err := s.referralService.RecordReferral(ctx, tx, referrer.ID, user.ID, inviteCode); err != nil {
				return nil, err
			}
		case errors.Is(err, repositories.ErrUserNotFound):
			logger.CtxWarn(ctx, "Unknown referral code at registration, ignoring", "referral_code", inviteCode)
		default:
			return nil, apperrors.InternalError(err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}

// ---------------- Profile ----------------

func (s *AccountServiceImpl) Me(ctx context.Context, db *gorm.DB, userID string) (*dto.UserResponse, error) {
	db = db.WithContext(ctx)

	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, translateRepoError(err)
	}

	var summary *dto.SubscriptionSummary
	sub, err := s.subscriptionRepo.FindByUser(db, userID)
	switch {
	case err == nil:
		summary = &dto.SubscriptionSummary{Plan: sub.Plan.Slug, Status: sub.Status}
	case errors.Is(err, repositories.ErrSubscriptionNotFound):
	default:
		return nil, apperrors.InternalError(err)
	}

	return s.buildUserResponse(user, summary), nil
}

func (s *AccountServiceImpl) UpdateProfile(ctx context.Context, db *gorm.DB, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	if err := s.userRepo.UpdateProfile(db.WithContext(ctx), userID, req.ToUpdates()); err != nil {
		return nil, translateRepoError(err)
	}
	return s.Me(ctx, db, userID)
}

func (s *AccountServiceImpl) DeleteAccount(ctx context.Context, db *gorm.DB, userID string) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	if err := s.userRepo.DeleteCascade(tx, userID); err != nil {
		return translateRepoError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "User account deleted", "user_id", userID)
	return nil
}

// ---------------- Admin seeding ----------------

func (s *AccountServiceImpl) EnsureAdmin(ctx context.Context, db *gorm.DB, emailAddr, password string) (bool, error) {
	emailAddr = normalizeEmail(emailAddr)

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return false, tx.Error
	}
	defer tx.Rollback()

	existing, err := s.userRepo.FindByEmail(tx, emailAddr)
	if err == nil {
		// У старых записей кода может не быть.
		if _, err := s.referralService.EnsureReferralCode(ctx, tx, existing); err != nil {
			return false, err
		}
		return false, tx.Commit().Error
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	admin := &models.User{
		Email:        emailAddr,
		Username:     "admin",
		PasswordHash: hash,
		Role:         models.UserRoleAdmin,
	}
	if err := s.userRepo.Create(tx, admin); err != nil {
		return false, err
	}
	if _, err := s.referralService.EnsureReferralCode(ctx, tx, admin); err != nil {
		return false, err
	}

	return true, tx.Commit().Error
}

func (s *AccountServiceImpl) buildUserResponse(user *models.User, summary *dto.SubscriptionSummary) *dto.UserResponse {
	return &dto.UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         user.Role,
		Balance:      user.Balance,
		ReferralLink: s.referralService.ReferralLink(user.Code()),
		Subscription: summary,
		CreatedAt:    user.CreatedAt,
	}
}
