package model

import "time"

// DefaultPolicyVersion is assumed whenever a declaration or stored record
// carries no explicit version tag.
const DefaultPolicyVersion = "1"

// PostPolicy is the persistent policy attached to a post (one per post).
// GroupID is nil while the declaration names no resolvable group; such a
// record is unbound and must never be exposed as an active policy.
type PostPolicy struct {
	ID      string  `gorm:"primaryKey;type:varchar(36)"`
	PostID  string  `gorm:"type:varchar(36);uniqueIndex;not null"`
	GroupID *string `gorm:"type:varchar(36);index"`
	// Version is an opaque tag; changing it invalidates every acceptance
	// recorded for the post. Empty means "no explicit version".
	Version    string     `gorm:"type:varchar(64)"`
	RenewDays  *int       // nil: one-time policy, no recurrence
	RenewStart *time.Time
	// NextRenewAt is the next instant acceptance resets. Never earlier than
	// RenewStart when both are set.
	NextRenewAt    *time.Time `gorm:"index"`
	Reminder       *string    `gorm:"type:text"`
	LastRemindedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (PostPolicy) TableName() string { return "post_policies" }

// EffectiveVersion folds the empty tag onto the default.
func (p *PostPolicy) EffectiveVersion() string {
	if p.Version == "" {
		return DefaultPolicyVersion
	}
	return p.Version
}

// PolicyAcceptance records that a user acknowledged a post's policy.
// Version stamps the policy version the acceptance was made under; rows are
// still wiped on version change, the stamp exists for auditing.
// ux_acceptance = (post_id, user_id)
type PolicyAcceptance struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	PostID    string `gorm:"type:varchar(36);index:idx_acceptance_post;uniqueIndex:ux_acceptance;not null"`
	UserID    string `gorm:"type:varchar(36);not null;uniqueIndex:ux_acceptance"`
	Version   string `gorm:"type:varchar(64);not null"`
	CreatedAt time.Time
}

func (PolicyAcceptance) TableName() string { return "policy_acceptances" }
