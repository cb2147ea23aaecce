package domain

import "time"

// MembershipStatus separates the outcomes that CheckGuildMembership
// collapses into a nil member.
type MembershipStatus string

const (
	MembershipMember      MembershipStatus = "member"
	MembershipNotMember   MembershipStatus = "not_member"
	MembershipCheckFailed MembershipStatus = "check_failed"
)

// MembershipResult is the outcome of a guild membership lookup.
type MembershipResult struct {
	Status MembershipStatus
	Member *GuildMember // set only when Status is MembershipMember
	Err    error        // set only when Status is MembershipCheckFailed
}

// LoginEvent is the audit record written for each completed login.
type LoginEvent struct {
	SessionID  string
	UserID     string
	Username   string
	Role       Role
	Membership MembershipStatus
	LoggedInAt time.Time
}
