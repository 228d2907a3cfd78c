package model

import "time"

// Post holds a forum post; Raw is the authored markdown, Cooked the
// rendered+sanitized HTML produced from it.
type Post struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	AuthorID string `gorm:"type:varchar(36);index:idx_post_author"`
	Raw      string `gorm:"type:text"`
	Cooked   string `gorm:"type:text"`
	// HasPolicy is a fast existence marker: true iff a PostPolicy bound to a
	// resolvable group currently exists for this post.
	HasPolicy bool `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Post) TableName() string { return "posts" }
