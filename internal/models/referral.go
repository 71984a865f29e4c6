package models

import (
	"github.com/shopspring/decimal"
)

type Referral struct {
	BaseModel
	ReferrerID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_referrer_referred,priority:1" json:"referrer_id"`
	// Один пользователь может быть приглашен только один раз.
	ReferredUserID string `gorm:"type:uuid;not null;uniqueIndex;uniqueIndex:idx_referrer_referred,priority:2" json:"referred_user_id"`
	// Снимок кода на момент регистрации, не обновляется вслед за кодом реферрера.
	ReferralCode string          `gorm:"size:20;not null" json:"referral_code"`
	EarnedAmount decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0;check:chk_referrals_earned_non_negative,earned_amount >= 0" json:"earned_amount"`
	Status       ReferralStatus  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	Referrer     User `gorm:"foreignKey:ReferrerID;constraint:OnDelete:CASCADE" json:"-"`
	ReferredUser User `gorm:"foreignKey:ReferredUserID;constraint:OnDelete:CASCADE" json:"-"`
}
