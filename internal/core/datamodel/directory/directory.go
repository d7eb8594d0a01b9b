package directory

import "time"

// Container is the shared row shape of departments and user_groups.
type Container struct {
	ID             int64     `gorm:"primaryKey"`
	OrganizationID int64     `gorm:"column:organization_id;not null;index"`
	Name           string    `gorm:"column:name;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

type Department struct {
	ID             int64     `gorm:"primaryKey"`
	OrganizationID int64     `gorm:"column:organization_id;not null;uniqueIndex:idx_departments_org_name"`
	Name           string    `gorm:"column:name;not null;uniqueIndex:idx_departments_org_name"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Department) TableName() string { return "departments" }

type Group struct {
	ID             int64     `gorm:"primaryKey"`
	OrganizationID int64     `gorm:"column:organization_id;not null;uniqueIndex:idx_user_groups_org_name"`
	Name           string    `gorm:"column:name;not null;uniqueIndex:idx_user_groups_org_name"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Group) TableName() string { return "user_groups" }

type DepartmentMember struct {
	DepartmentID int64     `gorm:"primaryKey;column:department_id;autoIncrement:false"`
	UserID       int64     `gorm:"primaryKey;column:user_id;autoIncrement:false;index"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (DepartmentMember) TableName() string { return "department_members" }

type GroupMember struct {
	GroupID   int64     `gorm:"primaryKey;column:group_id;autoIncrement:false"`
	UserID    int64     `gorm:"primaryKey;column:user_id;autoIncrement:false;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (GroupMember) TableName() string { return "group_members" }
