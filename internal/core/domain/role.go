package domain

import (
	"strings"
	"time"
)

// joinedAtLayouts are tried in order when interpreting a membership join date.
var joinedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseJoinedAt(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range joinedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// HasBeenMemberLongEnough reports whether joinedAt is at or before one
// calendar month before now. Empty or unparseable input yields false.
func HasBeenMemberLongEnough(joinedAt string, now time.Time) bool {
	joined, ok := parseJoinedAt(joinedAt)
	if !ok {
		return false
	}
	oneMonthAgo := now.AddDate(0, -1, 0)
	return !joined.After(oneMonthAgo)
}

// RoleClassifier maps a user and their guild membership to a Role.
type RoleClassifier struct {
	adminIDs map[string]struct{}
	now      func() time.Time
}

// NewRoleClassifier builds a classifier for the given admin allow-list.
// A nil clock defaults to time.Now.
func NewRoleClassifier(adminIDs []string, now func() time.Time) *RoleClassifier {
	ids := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids[id] = struct{}{}
		}
	}
	if now == nil {
		now = time.Now
	}
	return &RoleClassifier{adminIDs: ids, now: now}
}

// IsAdmin reports whether userID is on the admin allow-list.
func (c *RoleClassifier) IsAdmin(userID string) bool {
	_, ok := c.adminIDs[userID]
	return ok
}

// Determine derives the role. The admin check always wins; otherwise a
// member of at least one month is a contributor and everyone else a guest.
func (c *RoleClassifier) Determine(userID string, member *GuildMember) Role {
	if c.IsAdmin(userID) {
		return RoleAdmin
	}
	if member != nil && HasBeenMemberLongEnough(member.JoinedAt, c.now()) {
		return RoleContributor
	}
	return RoleGuest
}
