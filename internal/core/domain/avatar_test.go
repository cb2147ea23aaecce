package domain

import "testing"

func strPtr(s string) *string { return &s }

func TestAvatarURL(t *testing.T) {
	cases := []struct {
		name string
		user UserProfile
		want string
	}{
		{
			name: "custom avatar",
			user: UserProfile{ID: "80351110224678912", Avatar: strPtr("8342729096ea3675442027381ff50dfe"), Discriminator: "1337"},
			want: "https://cdn.discordapp.com/avatars/80351110224678912/8342729096ea3675442027381ff50dfe.png",
		},
		{
			name: "default avatar",
			user: UserProfile{ID: "1", Discriminator: "7"},
			want: "https://cdn.discordapp.com/embed/avatars/2.png",
		},
		{
			name: "empty hash falls back",
			user: UserProfile{ID: "1", Avatar: strPtr(""), Discriminator: "0005"},
			want: "https://cdn.discordapp.com/embed/avatars/0.png",
		},
		{
			name: "migrated username",
			user: UserProfile{ID: "1", Discriminator: "0"},
			want: "https://cdn.discordapp.com/embed/avatars/0.png",
		},
		{
			name: "non numeric discriminator",
			user: UserProfile{ID: "1", Discriminator: "abc"},
			want: "https://cdn.discordapp.com/embed/avatars/0.png",
		},
	}

	for _, tc := range cases {
		if got := AvatarURL(tc.user); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestEmptySession(t *testing.T) {
	s := EmptySession()
	if s.User != nil || s.IsAuthenticated || s.GuildMember != nil || s.Role != RoleGuest {
		t.Fatalf("unexpected empty session: %+v", s)
	}
}
