package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/discordmedals/internal/repository"
	"github.com/parsascontentcorner/discordmedals/internal/testutil"
)

func newLoginService(t *testing.T) (*LoginService, *testutil.MockDiscordServer, repository.Repository) {
	t.Helper()

	client, mockServer := newMockedClient(t)
	store := testutil.NewMemoryStore(t)
	return NewLoginService(client, store, zap.NewNop()), mockServer, store
}

func TestCompleteLogin_Success(t *testing.T) {
	ctx := context.Background()
	service, _, store := newLoginService(t)

	result, err := service.CompleteLogin(ctx, testutil.MockValidCode)

	require.NoError(t, err)
	assert.Equal(t, testutil.MockUserID, result.User.ID)
	assert.Equal(t, testutil.MockAccessToken, result.Token.AccessToken)
	assert.Len(t, result.Guilds, 2)

	user, err := store.GetUser(ctx, testutil.MockUserID)
	require.NoError(t, err)
	assert.Equal(t, "TestUser", user.Username)
	assert.Equal(t, 1234, user.Discriminator)
	assert.Equal(t, "avatar_hash_123", user.Avatar.String)

	owned, err := store.GetGuild(ctx, "223456789012345678")
	require.NoError(t, err)
	assert.True(t, owned.IsOwnedBy(testutil.MockUserID))

	member, err := store.GetGuild(ctx, "323456789012345678")
	require.NoError(t, err)
	assert.False(t, member.OwnerID.Valid)
	assert.False(t, member.Icon.Valid)

	guilds, err := store.ListGuildsByMember(ctx, testutil.MockUserID)
	require.NoError(t, err)
	assert.Len(t, guilds, 2)
}

func TestCompleteLogin_RefreshesProfile(t *testing.T) {
	ctx := context.Background()
	service, mockServer, store := newLoginService(t)

	_, err := service.CompleteLogin(ctx, testutil.MockValidCode)
	require.NoError(t, err)

	mockServer.SetUser(testutil.DiscordUserResponse{
		ID:            testutil.MockUserID,
		Username:      "RenamedUser",
		Discriminator: "0",
	})
	guilds := mockServer.Guilds()
	guilds[0].Name = "Renamed Guild"
	guilds[0].Owner = false
	mockServer.SetGuilds(guilds)

	_, err = service.CompleteLogin(ctx, testutil.MockValidCode)
	require.NoError(t, err)

	user, err := store.GetUser(ctx, testutil.MockUserID)
	require.NoError(t, err)
	assert.Equal(t, "RenamedUser", user.Username)
	assert.Equal(t, 0, user.Discriminator)
	assert.False(t, user.Avatar.Valid)

	guild, err := store.GetGuild(ctx, guilds[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Guild", guild.Name)
	// a login that does not report ownership leaves the stored owner alone
	assert.True(t, guild.IsOwnedBy(testutil.MockUserID))
}

func TestCompleteLogin_InvalidCode(t *testing.T) {
	ctx := context.Background()
	service, mockServer, store := newLoginService(t)

	result, err := service.CompleteLogin(ctx, "error_code")

	assert.Error(t, err)
	assert.Nil(t, result)

	_, userCalls, _ := mockServer.CallCounts()
	assert.Equal(t, 0, userCalls)

	_, err = store.GetUser(ctx, testutil.MockUserID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCompleteLogin_GuildFetchFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	service, mockServer, store := newLoginService(t)
	mockServer.FailGuilds(true)

	result, err := service.CompleteLogin(ctx, testutil.MockValidCode)

	assert.Error(t, err)
	assert.Nil(t, result)

	_, err = store.GetUser(ctx, testutil.MockUserID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCompleteLogin_InvalidIdentity(t *testing.T) {
	ctx := context.Background()
	service, mockServer, _ := newLoginService(t)
	mockServer.SetUser(testutil.DiscordUserResponse{ID: "not-a-snowflake", Username: "ghost"})

	_, err := service.CompleteLogin(ctx, testutil.MockValidCode)

	assert.True(t, errors.Is(err, ErrInvalidIdentity))
}

func TestBuildSnapshot(t *testing.T) {
	user := &DiscordUser{ID: "42", Username: "alice", Discriminator: "abc"}
	guilds := []*DiscordGuild{
		{ID: "100", Name: "Alpha", Icon: "hash", Owner: true, Permissions: "8"},
		{ID: "bogus", Name: "Broken"},
		nil,
		{ID: "200", Name: "Beta", Permissions: "not-a-number"},
	}

	snap := BuildSnapshot(user, guilds)

	assert.Equal(t, 0, snap.User.Discriminator)
	assert.False(t, snap.User.Avatar.Valid)

	require.Len(t, snap.Guilds, 2)
	require.Len(t, snap.Memberships, 2)

	assert.Equal(t, "100", snap.Guilds[0].ID)
	assert.True(t, snap.Guilds[0].IsOwnedBy("42"))
	assert.Equal(t, "hash", snap.Guilds[0].Icon.String)
	assert.Equal(t, int64(8), snap.Memberships[0].Permissions)

	assert.Equal(t, "200", snap.Guilds[1].ID)
	assert.False(t, snap.Guilds[1].OwnerID.Valid)
	assert.Equal(t, int64(0), snap.Memberships[1].Permissions)
	assert.Equal(t, "42", snap.Memberships[1].UserID)
}
