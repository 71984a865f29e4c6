package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Plan struct {
	ID           string          `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string          `gorm:"size:100;not null" json:"name"`
	Slug         string          `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	PriceMonthly decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"price_monthly"`
	PriceYearly  decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"price_yearly"`
	Features     datatypes.JSON  `gorm:"type:jsonb" json:"features"` // ["Unlimited projects", ...]
	IsActive     bool            `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if len(p.Features) == 0 {
		p.Features = datatypes.JSON("[]")
	}
	return nil
}

// FeatureList декодирует JSON-список фич.
func (p *Plan) FeatureList() []string {
	var features []string
	if len(p.Features) == 0 {
		return []string{}
	}
	if err := json.Unmarshal(p.Features, &features); err != nil || features == nil {
		return []string{}
	}
	return features
}

type Subscription struct {
	BaseModel
	UserID          string             `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	PlanID          string             `gorm:"type:uuid;not null;index" json:"plan_id"`
	BillingPeriod   BillingPeriod      `gorm:"type:varchar(10);not null;default:'monthly'" json:"billing_period"`
	Status          SubscriptionStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	NextBillingDate *time.Time         `gorm:"type:date" json:"next_billing_date"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Plan Plan `gorm:"foreignKey:PlanID;constraint:OnDelete:RESTRICT" json:"plan"`
}
