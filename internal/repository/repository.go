// Package repository defines the storage contract shared by the sqlite and postgres backends.
package repository

import (
	"context"
	"errors"

	"github.com/parsascontentcorner/discordmedals/internal/models"
)

// ErrNotFound is returned by single-row lookups and deletes that match nothing
var ErrNotFound = errors.New("record not found")

// LoginSnapshot is everything the identity provider reported during one login.
// Guilds and Memberships are index-aligned.
type LoginSnapshot struct {
	User        *models.User
	Guilds      []*models.Guild
	Memberships []*models.Membership
}

// Repository is the persistent store.
//
// Upserts overwrite every column of an existing row with the supplied values,
// except guild ownership: UpsertGuild only writes OwnerID when it is Valid and
// keeps the stored owner otherwise.
type Repository interface {
	Ping(ctx context.Context) error
	Close() error

	// SyncLogin upserts the user, guilds and memberships atomically.
	SyncLogin(ctx context.Context, snap *LoginSnapshot) error

	UpsertUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)

	UpsertGuild(ctx context.Context, guild *models.Guild) error
	GetGuild(ctx context.Context, id string) (*models.Guild, error)
	ListGuildsByMember(ctx context.Context, userID string) ([]*models.Guild, error)
	ListGuildMembers(ctx context.Context, guildID string) ([]*models.User, error)

	UpsertMembership(ctx context.Context, m *models.Membership) error

	CreateMedal(ctx context.Context, medal *models.Medal) error
	UpdateMedal(ctx context.Context, medal *models.Medal) error
	UpdateMedalToken(ctx context.Context, medalID int64, token string) error
	GetMedal(ctx context.Context, id int64) (*models.Medal, error)
	GetMedalByToken(ctx context.Context, token string) (*models.Medal, error)
	ListMedalsByGuild(ctx context.Context, guildID string) ([]*models.Medal, error)

	CreateAward(ctx context.Context, award *models.Award) error
	GetAward(ctx context.Context, id int64) (*models.Award, error)
	AwardExists(ctx context.Context, medalID int64, userID string) (bool, error)
	ListAwardsByMedal(ctx context.Context, medalID int64) ([]*models.AwardDetail, error)
	ListAwardsByUserInGuild(ctx context.Context, userID, guildID string) ([]*models.AwardDetail, error)
	DeleteAward(ctx context.Context, id int64) error
}
