package models

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_AvatarURL(t *testing.T) {
	user := &User{ID: "80351110224678912", Username: "Nelly", Discriminator: 1337,
		Avatar: sql.NullString{String: "8342729096ea3675442027381ff50dfe", Valid: true}}

	assert.Equal(t,
		"https://cdn.discordapp.com/avatars/80351110224678912/8342729096ea3675442027381ff50dfe.png?size=256",
		user.AvatarURL(DefaultImageSize))
}

func TestUser_AvatarURL_Default(t *testing.T) {
	user := &User{ID: "80351110224678912", Username: "Nelly"}
	assert.Equal(t, DefaultAvatarURL, user.AvatarURL(128))
}

func TestUser_String(t *testing.T) {
	assert.Equal(t, "Nelly#1337", (&User{Username: "Nelly", Discriminator: 1337}).String())
	assert.Equal(t, "Steffo#0042", (&User{Username: "Steffo", Discriminator: 42}).String())
	assert.Equal(t, "nelly", (&User{Username: "nelly", Discriminator: 0}).String())
}

func TestUser_Mention(t *testing.T) {
	assert.Equal(t, "<@80351110224678912>", (&User{ID: "80351110224678912"}).Mention())
}

func TestValidSnowflake(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"80351110224678912", true},
		{"1", true},
		{"", false},
		{"0", false},
		{"000", false},
		{"12a4", false},
		{"-12", false},
		{"123456789012345678901", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidSnowflake(tt.in))
		})
	}
}
