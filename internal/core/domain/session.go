package domain

// SessionState is the authenticated identity bundle exposed to clients.
type SessionState struct {
	User            *UserProfile `json:"user"`
	IsAuthenticated bool         `json:"is_authenticated"`
	Role            Role         `json:"role"`
	GuildMember     *GuildMember `json:"guild_member"`
}

// EmptySession returns the unauthenticated defaults.
func EmptySession() SessionState {
	return SessionState{Role: RoleGuest}
}

// Storage keys used to persist a session.
const (
	KeyUser        = "discord_user"
	KeyToken       = "discord_token"
	KeyRole        = "user_role"
	KeyGuildMember = "guild_member"

	// KeyRevision changes on every write so other processes can detect that
	// their cached copy of the session is stale.
	KeyRevision = "session_rev"
)

// SessionKeys lists every key owned by a session, in write order.
var SessionKeys = []string{KeyUser, KeyToken, KeyRole, KeyGuildMember, KeyRevision}
