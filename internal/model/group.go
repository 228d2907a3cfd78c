package model

import "time"

type Group struct {
	ID   string `gorm:"primaryKey;type:varchar(36)"`
	Name string `gorm:"type:varchar(64);uniqueIndex;not null"`
	// UserCount is denormalized from group_users, maintained on membership
	// writes. Used for the policy group size cap without a COUNT per check.
	UserCount int64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Group) TableName() string { return "groups" }

// GroupUser links a user into a group.
// ux_group_user = (group_id, user_id)
type GroupUser struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	GroupID   string `gorm:"type:varchar(36);index:idx_group_user_group;uniqueIndex:ux_group_user;not null"`
	UserID    string `gorm:"type:varchar(36);not null;uniqueIndex:ux_group_user"`
	CreatedAt time.Time
}

func (GroupUser) TableName() string { return "group_users" }
