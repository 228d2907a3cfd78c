package service

import "errors"

// Acceptance precondition failures, checked in a fixed order; all are
// recoverable by the caller.
var (
	ErrFeatureDisabled = errors.New("policy feature is disabled")
	ErrPostNotFound    = errors.New("post not found")
	ErrNoPolicy        = errors.New("post has no policy")
	ErrGroupNotFound   = errors.New("policy group not found")
	ErrUserNotInGroup  = errors.New("user is not a member of the policy group")
	ErrGroupTooLarge   = errors.New("policy group is too large")
	ErrStaffOnly       = errors.New("policies are restricted to staff posts")
)
