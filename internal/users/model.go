package users

import "time"

// User is a portal account. Registration, email verification flows and
// OAuth live outside this service; the moderation pipeline only consumes
// the stored identity signals.
type User struct {
	ID          string    `gorm:"column:id;primaryKey;size:190;not null"`
	Email       string    `gorm:"column:email;size:320;not null;uniqueIndex"`
	DisplayName string    `gorm:"column:display_name;size:320"`
	IsVerified  bool      `gorm:"column:is_verified;not null;default:false"`
	IsAdmin     bool      `gorm:"column:is_admin;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing portal accounts.
func (User) TableName() string {
	return "users"
}
