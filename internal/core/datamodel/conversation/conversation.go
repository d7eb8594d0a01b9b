package conversation

import (
	"time"

	"gorm.io/datatypes"
)

type Thread struct {
	ID             int64     `gorm:"primaryKey"`
	OrganizationID int64     `gorm:"column:organization_id;not null;index"`
	Title          string    `gorm:"column:title;not null"`
	DepartmentID   *int64    `gorm:"column:department_id;index"`
	GroupID        *int64    `gorm:"column:group_id;index"`
	CreatedBy      int64     `gorm:"column:created_by;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
}

func (Thread) TableName() string { return "threads" }

type Message struct {
	ID             int64          `gorm:"primaryKey"`
	ThreadID       int64          `gorm:"column:thread_id;not null;uniqueIndex:idx_messages_thread_created,priority:1"`
	OrganizationID int64          `gorm:"column:organization_id;not null"`
	SenderID       int64          `gorm:"column:sender_id;not null"`
	Kind           string         `gorm:"column:kind;not null"`
	Body           datatypes.JSON `gorm:"column:body;not null"`
	MediaRef       *string        `gorm:"column:media_ref"`
	MediaType      *string        `gorm:"column:media_type"`
	CreatedAt      time.Time      `gorm:"column:created_at;not null;uniqueIndex:idx_messages_thread_created,priority:2"`
}

func (Message) TableName() string { return "messages" }

type ReadMark struct {
	UserID     int64     `gorm:"primaryKey;column:user_id;autoIncrement:false"`
	ThreadID   int64     `gorm:"primaryKey;column:thread_id;autoIncrement:false"`
	LastSeenAt time.Time `gorm:"column:last_seen_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (ReadMark) TableName() string { return "read_marks" }
