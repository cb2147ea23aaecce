package handler

import (
	"time"

	"github.com/translation-hub/hub-auth/internal/core/domain"
)

// callbackQuery is what Discord appends to the redirect URI.
type callbackQuery struct {
	Code             string `query:"code"              validate:"required"`
	Error            string `query:"error"`
	ErrorDescription string `query:"error_description"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=guest contributor admin"`
}

type authURLResponse struct {
	URL string `json:"url"`
}

// SessionResponse is the client-facing view of a session.
type SessionResponse struct {
	IsAuthenticated bool                `json:"is_authenticated"`
	Role            domain.Role         `json:"role"`
	User            *domain.UserProfile `json:"user"`
	AvatarURL       string              `json:"avatar_url,omitempty"`
	GuildMember     *domain.GuildMember `json:"guild_member"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	SessionID string          `json:"session_id"`
	Session   SessionResponse `json:"session"`
}

type loginEventResponse struct {
	SessionID  string                  `json:"session_id"`
	UserID     string                  `json:"user_id"`
	Username   string                  `json:"username"`
	Role       domain.Role             `json:"role"`
	Membership domain.MembershipStatus `json:"membership"`
	LoggedInAt time.Time               `json:"logged_in_at"`
}

// NewSessionResponse renders st for clients.
func NewSessionResponse(st domain.SessionState) SessionResponse {
	resp := SessionResponse{
		IsAuthenticated: st.IsAuthenticated,
		Role:            st.Role,
		User:            st.User,
		GuildMember:     st.GuildMember,
	}
	if resp.Role == "" {
		resp.Role = domain.RoleGuest
	}
	if st.User != nil {
		resp.AvatarURL = domain.AvatarURL(*st.User)
	}
	return resp
}

func toLoginEventResponses(events []domain.LoginEvent) []loginEventResponse {
	out := make([]loginEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, loginEventResponse{
			SessionID:  e.SessionID,
			UserID:     e.UserID,
			Username:   e.Username,
			Role:       e.Role,
			Membership: e.Membership,
			LoggedInAt: e.LoggedInAt,
		})
	}
	return out
}
