// Package repotest holds the behavioral tests every repository.Repository implementation must pass.
package repotest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parsascontentcorner/discordmedals/internal/models"
	"github.com/parsascontentcorner/discordmedals/internal/repository"
	"github.com/parsascontentcorner/discordmedals/internal/testutil"
)

// Factory returns an empty repository for one subtest
type Factory func(t *testing.T) repository.Repository

// Run exercises every repository operation against repositories built by newRepo
func Run(t *testing.T, newRepo Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repo repository.Repository)
	}{
		{"UpsertUser", testUpsertUser},
		{"GetUserNotFound", testGetUserNotFound},
		{"UpsertGuildKeepsOwner", testUpsertGuildKeepsOwner},
		{"GetGuildNotFound", testGetGuildNotFound},
		{"Memberships", testMemberships},
		{"SyncLogin", testSyncLogin},
		{"SyncLoginIsAtomic", testSyncLoginIsAtomic},
		{"MedalLifecycle", testMedalLifecycle},
		{"MedalTokenUnique", testMedalTokenUnique},
		{"MedalNotFound", testMedalNotFound},
		{"Awards", testAwards},
		{"AwardsByUserInGuild", testAwardsByUserInGuild},
		{"DeleteAward", testDeleteAward},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newRepo(t))
		})
	}
}

func seedGuild(t *testing.T, repo repository.Repository, gen *testutil.Generator) (*models.User, *models.Guild) {
	t.Helper()
	ctx := context.Background()

	owner := gen.User()
	require.NoError(t, repo.UpsertUser(ctx, owner))
	guild := gen.Guild(owner.ID)
	require.NoError(t, repo.UpsertGuild(ctx, guild))
	require.NoError(t, repo.UpsertMembership(ctx, gen.Membership(guild.ID, owner.ID)))
	return owner, guild
}

func testUpsertUser(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	gen := testutil.NewGenerator(1)

	user := gen.User()
	require.NoError(t, repo.UpsertUser(ctx, user))
	assert.False(t, user.CreatedAt.IsZero())

	got, err := repo.GetUser(ctx, user.ID)
	require.NoError(t, err)
	testutil.AssertUserEqual(t, user, got)

	createdAt := got.CreatedAt
	time.Sleep(10 * time.Millisecond)

	updated := *user
	updated.Username = "renamed"
	updated.Avatar = sql.NullString{}
	require.NoError(t, repo.UpsertUser(ctx, &updated))

	got, err = repo.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Username)
	assert.False(t, got.Avatar.Valid)
	testutil.AssertTimeAlmostEqual(t, createdAt, got.CreatedAt, time.Millisecond)
	assert.True(t, !got.UpdatedAt.Before(got.CreatedAt))
}

func testGetUserNotFound(t *testing.T, repo repository.Repository) {
	_, err := repo.GetUser(context.Background(), "999999999999999999")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testUpsertGuildKeepsOwner(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	gen := testutil.NewGenerator(2)

	owner, guild := seedGuild(t, repo, gen)

	renamed := &models.Guild{ID: guild.ID, Name: "Renamed"}
	require.NoError(t, repo.UpsertGuild(ctx, renamed))
	assert.True(t, renamed.IsOwnedBy(owner.ID), "upsert reports the stored owner")

	got, err := repo.GetGuild(ctx, guild.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.False(t, got.Icon.Valid)
	assert.True(t, got.IsOwnedBy(owner.ID))

	newOwner := gen.User()
	require.NoError(t, repo.UpsertUser(ctx, newOwner))
	transferred := gen.Guild(newOwner.ID)
	transferred.ID = guild.ID
	require.NoError(t, repo.UpsertGuild(ctx, transferred))

	got, err = repo.GetGuild(ctx, guild.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOwnedBy(newOwner.ID))
}

func testGetGuildNotFound(t *testing.T, repo repository.Repository) {
	_, err := repo.GetGuild(context.Background(), "999999999999999999")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testMemberships(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	gen := testutil.NewGenerator(3)

	owner, guild := seedGuild(t, repo, gen)

	member := gen.User()
	member.Username = "0first"
	require.NoError(t, repo.UpsertUser(ctx, member))
	require.NoError(t, repo.UpsertMembership(ctx, gen.Membership(guild.ID, member.ID)))
	// repeating a membership is an update, not a duplicate
	require.NoError(t, repo.UpsertMembership(ctx, gen.Membership(guild.ID, member.ID)))

	members, err := repo.ListGuildMembers(ctx, guild.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, member.ID, members[0].ID)

	other := gen.Guild("")
	other.Name = "0000 Guild"
	require.NoError(t, repo.UpsertGuild(ctx, other))
	require.NoError(t, repo.UpsertMembership(ctx, gen.Membership(other.ID, owner.ID)))

	guilds, err := repo.ListGuildsByMember(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, guilds, 2)
	assert.Equal(t, other.ID, guilds[0].ID)

	guilds, err = repo.ListGuildsByMember(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, guilds, 1)
	assert.Equal(t, guild.ID, guilds[0].ID)

	guilds, err = repo.ListGuildsByMember(ctx, "999999999999999999")
	require.NoError(t, err)
	assert.Empty(t, guilds)
}

func testSyncLogin(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	gen := testutil.NewGenerator(4)

	user := gen.User()
	g1, g2 := gen.Guild(user.ID), gen.Guild("")
	snap := &repository.LoginSnapshot{
		User:        user,
		Guilds:      []*models.Guild{g1, g2},
		Memberships: []*models.Membership{gen.Membership(g1.ID, user.ID), gen.Membership(g2.ID, user.ID)},
	}

	require.NoError(t, repo.SyncLogin(ctx, snap))

	got, err := repo.GetUser(ctx, user.ID)
	require.NoError(t, err)
	testutil.AssertUserEqual(t, user, got)

	guilds, err := repo.ListGuildsByMember(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, guilds, 2)

	stored, err := repo.GetGuild(ctx, g1.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsOwnedBy(user.ID))

	// a second sync is idempotent
	require.NoError(t, repo.SyncLogin(ctx, snap))
	guilds, err = repo.ListGuildsByMember(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, guilds, 2)
}

func testSyncLoginIsAtomic(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	gen := testutil.NewGenerator(5)

	user := gen.User()
	guild := gen.Guild("")
	snap := &repository.LoginSnapshot{
		User:   user,
		Guilds: []*models.Guild{guild},
		// membership in a guild that is not part of the snapshot violates a foreign key
		Memberships: []*models.Membership{gen.Membership("999999999999999999", user.ID)},
	}

	assert.Error(t, repo.SyncLogin(ctx, snap))

	_, err := repo.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetGuild(ctx, guild.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testMedalLifecycle(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	gen := testutil.NewGenerator(6)

	_, guild := seedGuild(t, repo, gen)

	first := gen.Medal(guild.ID)
	require.NoError(t, repo.CreateMedal(ctx, first))
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := gen.Medal(guild.ID)
	require.NoError(t, repo.CreateMedal(ctx, second))
	assert.Greater(t, second.ID, first.ID)

	got, err := repo.GetMedal(ctx, first.ID)
	require.NoError(t, err)
	testutil.AssertMedalEqual(t, first, got)

	byToken, err := repo.GetMedalByToken(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, second.ID, byToken.ID)

	first.Name = "Renamed"
	first.Tier = models.TierGold
	first.Description = ""
	require.NoError(t, repo.UpdateMedal(ctx, first))

	got, err = repo.GetMedal(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, models.TierGold, got.Tier)
	assert.Empty(t, got.Description)
	assert.Equal(t, first.Token, got.Token, "editing keeps the token")

	require.NoError(t, repo.UpdateMedalToken(ctx, first.ID, "fresh-token"))
	got, err = repo.GetMedal(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", got.Token)

	_, err = repo.GetMedalByToken(ctx, first.Token)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	medals, err := repo.ListMedalsByGuild(ctx, guild.ID)
	require.NoError(t, err)
	require.Len(t, medals, 2)
	assert.Equal(t, first.ID, medals[0].ID)
	assert.Equal(t, second.ID, medals[1].ID)

	medals, err = repo.ListMedalsByGuild(ctx, "999999999999999999")
	require.NoError(t, err)
	assert.Empty(t, medals)
}

func testMedalTokenUnique(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	gen := testutil.NewGenerator(7)

	_, guild := seedGuild(t, repo, gen)

	first := gen.Medal(guild.ID)
	require.NoError(t, repo.CreateMedal(ctx, first))

	dup := gen.Medal(guild.ID)
	dup.Token = first.Token
	assert.Error(t, repo.CreateMedal(ctx, dup))

	other := gen.Medal(guild.ID)
	require.NoError(t, repo.CreateMedal(ctx, other))
	assert.Error(t, repo.UpdateMedalToken(ctx, other.ID, first.Token))
}

func testMedalNotFound(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	_, err := repo.GetMedal(ctx, 424242)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetMedalByToken(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.UpdateMedal(ctx, &models.Medal{ID: 424242, Name: "x", Tier: models.TierBronze})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.UpdateMedalToken(ctx, 424242, "token")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testAwards(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	gen := testutil.NewGenerator(8)

	owner, guild := seedGuild(t, repo, gen)
	medal := gen.Medal(guild.ID)
	require.NoError(t, repo.CreateMedal(ctx, medal))

	exists, err := repo.AwardExists(ctx, medal.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	first := &models.Award{MedalID: medal.ID, UserID: owner.ID}
	require.NoError(t, repo.CreateAward(ctx, first))
	assert.NotZero(t, first.ID)
	assert.False(t, first.AwardedAt.IsZero())

	// the same user may hold a medal more than once
	second := &models.Award{MedalID: medal.ID, UserID: owner.ID}
	require.NoError(t, repo.CreateAward(ctx, second))
	assert.NotEqual(t, first.ID, second.ID)

	exists, err = repo.AwardExists(ctx, medal.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := repo.GetAward(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, medal.ID, got.MedalID)
	assert.Equal(t, owner.ID, got.UserID)

	awards, err := repo.ListAwardsByMedal(ctx, medal.ID)
	require.NoError(t, err)
	require.Len(t, awards, 2)
	assert.Equal(t, first.ID, awards[0].ID)
	assert.Equal(t, medal.Name, awards[0].Medal.Name)
	assert.Equal(t, owner.Username, awards[0].User.Username)

	_, err = repo.GetAward(ctx, 424242)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.Error(t, repo.CreateAward(ctx, &models.Award{MedalID: medal.ID, UserID: "999999999999999999"}))
}

func testAwardsByUserInGuild(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	gen := testutil.NewGenerator(9)

	owner, guild := seedGuild(t, repo, gen)
	_, otherGuild := seedGuild(t, repo, gen)

	here := gen.Medal(guild.ID)
	require.NoError(t, repo.CreateMedal(ctx, here))
	elsewhere := gen.Medal(otherGuild.ID)
	require.NoError(t, repo.CreateMedal(ctx, elsewhere))

	require.NoError(t, repo.CreateAward(ctx, &models.Award{MedalID: here.ID, UserID: owner.ID}))
	require.NoError(t, repo.CreateAward(ctx, &models.Award{MedalID: elsewhere.ID, UserID: owner.ID}))

	awards, err := repo.ListAwardsByUserInGuild(ctx, owner.ID, guild.ID)
	require.NoError(t, err)
	require.Len(t, awards, 1)
	assert.Equal(t, here.ID, awards[0].Medal.ID)
	assert.Equal(t, here.Tier, awards[0].Medal.Tier)
	assert.Equal(t, owner.ID, awards[0].User.ID)

	awards, err = repo.ListAwardsByUserInGuild(ctx, "999999999999999999", guild.ID)
	require.NoError(t, err)
	assert.Empty(t, awards)
}

func testDeleteAward(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	gen := testutil.NewGenerator(10)

	owner, guild := seedGuild(t, repo, gen)
	medal := gen.Medal(guild.ID)
	require.NoError(t, repo.CreateMedal(ctx, medal))

	award := &models.Award{MedalID: medal.ID, UserID: owner.ID}
	require.NoError(t, repo.CreateAward(ctx, award))

	require.NoError(t, repo.DeleteAward(ctx, award.ID))

	_, err := repo.GetAward(ctx, award.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteAward(ctx, award.ID), repository.ErrNotFound)

	exists, err := repo.AwardExists(ctx, medal.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
