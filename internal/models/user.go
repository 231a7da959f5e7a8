// Package models defines the medal domain: Discord users, guilds, memberships, medals and awards.
package models

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	discordCDN = "https://cdn.discordapp.com"

	// DefaultAvatarURL is shown for users and guilds without an uploaded image
	DefaultAvatarURL = "https://discordapp.com/assets/6debd47ed13483642cf09e832ed0bc1b.png"

	// DefaultImageSize is the CDN size used by templates
	DefaultImageSize = 256
)

// User represents a Discord user as last reported by the identity provider
type User struct {
	ID            string         `json:"id"`
	Username      string         `json:"username"`
	Discriminator int            `json:"discriminator"`
	Avatar        sql.NullString `json:"avatar"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// AvatarURL returns the CDN url of the user's avatar at the given size
func (u *User) AvatarURL(size int) string {
	if !u.Avatar.Valid || u.Avatar.String == "" {
		return DefaultAvatarURL
	}
	return fmt.Sprintf("%s/avatars/%s/%s.png?size=%d", discordCDN, u.ID, u.Avatar.String, size)
}

// String renders the user as name#discriminator, or the bare name for
// accounts on the unique-username system (discriminator 0)
func (u *User) String() string {
	if u.Discriminator == 0 {
		return u.Username
	}
	return fmt.Sprintf("%s#%04d", u.Username, u.Discriminator)
}

// Mention returns the Discord chat mention for the user
func (u *User) Mention() string {
	return "<@" + u.ID + ">"
}

// ValidSnowflake reports whether s looks like a Discord id: non-empty, digits only, not zero.
func ValidSnowflake(s string) bool {
	if s == "" || len(s) > 20 {
		return false
	}
	allZero := true
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		if s[i] != '0' {
			allZero = false
		}
	}
	return !allZero
}
