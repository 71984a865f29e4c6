package models

type UserRole string
type ReferralStatus string
type SubscriptionStatus string
type BillingPeriod string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"

	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusActive    ReferralStatus = "active"
	ReferralStatusCompleted ReferralStatus = "completed"

	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"

	BillingPeriodMonthly BillingPeriod = "monthly"
	BillingPeriodYearly  BillingPeriod = "yearly"
)

// IsValid reports whether p is one of the known billing periods.
func (p BillingPeriod) IsValid() bool {
	return p == BillingPeriodMonthly || p == BillingPeriodYearly
}

// TermDays is the number of days until the next charge.
func (p BillingPeriod) TermDays() int {
	if p == BillingPeriodYearly {
		return 365
	}
	return 30
}

func (r ReferralStatus) IsValid() bool {
	switch r {
	case ReferralStatusPending, ReferralStatusActive, ReferralStatusCompleted:
		return true
	}
	return false
}

func (r UserRole) IsValid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

type ProjectStatus string
type OutputType string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusArchived ProjectStatus = "archived"
	ProjectStatusDeleted  ProjectStatus = "deleted"

	OutputTypeSingleComponent OutputType = "single_component"
	OutputTypePage            OutputType = "page"
	OutputTypeMultiPageApp    OutputType = "multi_page_app"
	OutputTypeAPIOnly         OutputType = "api_only"
	OutputTypeFullProject     OutputType = "full_project"
)

func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusArchived, ProjectStatusDeleted:
		return true
	}
	return false
}

// IsVisible - проекты со статусом deleted в выдачу не попадают.
func (s ProjectStatus) IsVisible() bool {
	return s == ProjectStatusActive || s == ProjectStatusArchived
}

// IsValid допускает пустое значение: тип результата необязателен.
func (o OutputType) IsValid() bool {
	switch o {
	case "", OutputTypeSingleComponent, OutputTypePage, OutputTypeMultiPageApp, OutputTypeAPIOnly, OutputTypeFullProject:
		return true
	}
	return false
}
