package domain

import (
	"fmt"
	"strconv"
)

const cdnBase = "https://cdn.discordapp.com"

// AvatarURL returns the user's CDN avatar, or one of the five default
// avatars keyed by discriminator when no avatar hash is set.
func AvatarURL(u UserProfile) string {
	if u.Avatar != nil && *u.Avatar != "" {
		return fmt.Sprintf("%s/avatars/%s/%s.png", cdnBase, u.ID, *u.Avatar)
	}
	n, err := strconv.Atoi(u.Discriminator)
	if err != nil || n < 0 {
		n = 0
	}
	return fmt.Sprintf("%s/embed/avatars/%d.png", cdnBase, n%5)
}
