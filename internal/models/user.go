package models

type User struct {
	BaseModel
	Email        string   `gorm:"uniqueIndex;not null;size:254" json:"email"`
	Username     string   `gorm:"size:150" json:"username"`
	PasswordHash string   `gorm:"not null" json:"-"`
	FirstName    string   `gorm:"size:150" json:"first_name"`
	LastName     string   `gorm:"size:150" json:"last_name"`
	Role         UserRole `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Balance      int64    `gorm:"not null;default:0" json:"balance"`
	// ReferralCode остается NULL до первой выдачи кода.
	ReferralCode *string `gorm:"size:20;uniqueIndex" json:"-"`
}

// HasReferralCode reports whether a code has already been issued.
func (u *User) HasReferralCode() bool {
	return u.ReferralCode != nil && *u.ReferralCode != ""
}

// Code returns the issued referral code or "".
func (u *User) Code() string {
	if u.ReferralCode == nil {
		return ""
	}
	return *u.ReferralCode
}
