package domain

// Role is the access tier derived for an authenticated Discord user.
type Role string

const (
	RoleGuest       Role = "guest"
	RoleContributor Role = "contributor"
	RoleAdmin       Role = "admin"
)

// ParseRole validates a stored or requested role. The empty string maps to
// RoleGuest.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "", RoleGuest:
		return RoleGuest, nil
	case RoleContributor:
		return RoleContributor, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", ErrInvalidRole
}

// UserProfile is the Discord "current user" object.
type UserProfile struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator string  `json:"discriminator"`
	GlobalName    *string `json:"global_name,omitempty"`
	Avatar        *string `json:"avatar"`
	Email         *string `json:"email,omitempty"`
	Verified      *bool   `json:"verified,omitempty"`
	Locale        string  `json:"locale,omitempty"`
	MFAEnabled    *bool   `json:"mfa_enabled,omitempty"`
	PremiumType   *int    `json:"premium_type,omitempty"`
	PublicFlags   *int    `json:"public_flags,omitempty"`
}

// GuildMember is the caller's membership record in the configured guild.
// JoinedAt is kept verbatim; it is only interpreted by HasBeenMemberLongEnough.
type GuildMember struct {
	User         *UserProfile `json:"user,omitempty"`
	Nick         *string      `json:"nick,omitempty"`
	Avatar       *string      `json:"avatar,omitempty"`
	Roles        []string     `json:"roles"`
	JoinedAt     string       `json:"joined_at"`
	PremiumSince *string      `json:"premium_since,omitempty"`
	Deaf         bool         `json:"deaf"`
	Mute         bool         `json:"mute"`
	Pending      *bool        `json:"pending,omitempty"`
	Permissions  *string      `json:"permissions,omitempty"`
}
