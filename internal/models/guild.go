package models

import (
	"database/sql"
	"fmt"
	"time"
)

// Guild represents a Discord guild (server)
type Guild struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Icon      sql.NullString `json:"icon"`
	OwnerID   sql.NullString `json:"owner_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IconURL returns the CDN url of the guild icon at the given size
func (g *Guild) IconURL(size int) string {
	if !g.Icon.Valid || g.Icon.String == "" {
		return DefaultAvatarURL
	}
	return fmt.Sprintf("%s/icons/%s/%s.png?size=%d", discordCDN, g.ID, g.Icon.String, size)
}

// IsOwnedBy reports whether userID is the recorded owner of the guild.
// An empty userID never owns anything.
func (g *Guild) IsOwnedBy(userID string) bool {
	return userID != "" && g.OwnerID.Valid && g.OwnerID.String == userID
}

func (g *Guild) String() string {
	return g.Name
}

// Membership is a user's membership in a guild, keyed by (GuildID, UserID)
type Membership struct {
	GuildID     string    `json:"guild_id"`
	UserID      string    `json:"user_id"`
	Permissions int64     `json:"permissions"`
	UpdatedAt   time.Time `json:"updated_at"`
}
