package account

import "time"

type Organization struct {
	ID        int64     `gorm:"primaryKey"`
	Slug      string    `gorm:"column:slug;uniqueIndex;not null"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Organization) TableName() string { return "organizations" }

type User struct {
	ID              int64     `gorm:"primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	Username        string    `gorm:"column:username;uniqueIndex;not null"`
	Email           string    `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash    string    `gorm:"column:password_hash;not null"`
	AvatarRef       *string   `gorm:"column:avatar_ref"`
	Nickname        *string   `gorm:"column:nickname"`
	DisplayNamePref string    `gorm:"column:display_name_pref;not null;default:name"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

type Membership struct {
	ID             int64     `gorm:"primaryKey"`
	UserID         int64     `gorm:"column:user_id;not null;uniqueIndex:idx_memberships_user_org"`
	OrganizationID int64     `gorm:"column:organization_id;not null;uniqueIndex:idx_memberships_user_org;index"`
	Role           string    `gorm:"column:role;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Membership) TableName() string { return "memberships" }

type Session struct {
	ID             string    `gorm:"primaryKey;column:id"`
	UserID         int64     `gorm:"column:user_id;not null;index"`
	OrganizationID int64     `gorm:"column:organization_id;not null"`
	ExpiresAt      time.Time `gorm:"column:expires_at;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Session) TableName() string { return "sessions" }
