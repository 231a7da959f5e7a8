package models

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuild_IconURL(t *testing.T) {
	guild := &Guild{ID: "41771983423143937", Name: "Royal Games",
		Icon: sql.NullString{String: "a_abc", Valid: true}}

	assert.Equal(t, "https://cdn.discordapp.com/icons/41771983423143937/a_abc.png?size=512", guild.IconURL(512))
}

func TestGuild_IconURL_Default(t *testing.T) {
	guild := &Guild{ID: "41771983423143937", Name: "Royal Games"}
	assert.Equal(t, DefaultAvatarURL, guild.IconURL(DefaultImageSize))
}

func TestGuild_IsOwnedBy(t *testing.T) {
	owned := &Guild{ID: "1", OwnerID: sql.NullString{String: "42", Valid: true}}
	unowned := &Guild{ID: "2"}

	assert.True(t, owned.IsOwnedBy("42"))
	assert.False(t, owned.IsOwnedBy("43"))
	assert.False(t, owned.IsOwnedBy(""))
	assert.False(t, unowned.IsOwnedBy("42"))
	assert.False(t, unowned.IsOwnedBy(""), "anonymous viewers never own an ownerless guild")
}
