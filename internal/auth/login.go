package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/parsascontentcorner/discordmedals/internal/models"
	"github.com/parsascontentcorner/discordmedals/internal/repository"
)

// ErrInvalidIdentity is returned when the provider reports a user without a usable id
var ErrInvalidIdentity = errors.New("identity provider returned an invalid user")

// Provider is the part of the Discord API a login needs
type Provider interface {
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	GetUserInfo(ctx context.Context, accessToken string) (*DiscordUser, error)
	GetUserGuilds(ctx context.Context, accessToken string) ([]*DiscordGuild, error)
}

// LoginResult is the outcome of a completed login
type LoginResult struct {
	User   *models.User
	Guilds []*models.Guild
	Token  *oauth2.Token
}

// LoginService turns an authorization code into stored users, guilds and memberships
type LoginService struct {
	provider Provider
	repo     repository.Repository
	logger   *zap.Logger
}

// NewLoginService creates a new login service
func NewLoginService(provider Provider, repo repository.Repository, logger *zap.Logger) *LoginService {
	return &LoginService{
		provider: provider,
		repo:     repo,
		logger:   logger,
	}
}

// CompleteLogin exchanges the code, reads the identity and guild list and synchronizes them
func (ls *LoginService) CompleteLogin(ctx context.Context, code string) (*LoginResult, error) {
	token, err := ls.provider.ExchangeCode(ctx, code)
	if err != nil {
		ls.logger.Warn("failed to exchange code", zap.Error(err))
		return nil, err
	}

	discordUser, err := ls.provider.GetUserInfo(ctx, token.AccessToken)
	if err != nil {
		ls.logger.Error("failed to fetch user info", zap.Error(err))
		return nil, err
	}
	if !models.ValidSnowflake(discordUser.ID) {
		return nil, fmt.Errorf("%w: id %q", ErrInvalidIdentity, discordUser.ID)
	}

	discordGuilds, err := ls.provider.GetUserGuilds(ctx, token.AccessToken)
	if err != nil {
		ls.logger.Error("failed to fetch user guilds",
			zap.String("discord_id", discordUser.ID),
			zap.Error(err),
		)
		return nil, err
	}

	snap := BuildSnapshot(discordUser, discordGuilds)
	if err := ls.repo.SyncLogin(ctx, snap); err != nil {
		ls.logger.Error("failed to synchronize login",
			zap.String("discord_id", discordUser.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to save login: %w", err)
	}

	ls.logger.Info("login completed",
		zap.String("discord_id", snap.User.ID),
		zap.String("username", snap.User.Username),
		zap.Int("guild_count", len(snap.Guilds)),
	)

	return &LoginResult{User: snap.User, Guilds: snap.Guilds, Token: token}, nil
}

// BuildSnapshot converts provider payloads into the records a login stores.
// Guilds with malformed ids are skipped. A guild's owner is only set when the
// provider reports the user as its owner.
func BuildSnapshot(user *DiscordUser, guilds []*DiscordGuild) *repository.LoginSnapshot {
	discriminator, err := strconv.Atoi(user.Discriminator)
	if err != nil {
		discriminator = 0
	}

	snap := &repository.LoginSnapshot{
		User: &models.User{
			ID:            user.ID,
			Username:      user.Username,
			Discriminator: discriminator,
			Avatar:        sql.NullString{String: user.Avatar, Valid: user.Avatar != ""},
		},
	}

	for _, g := range guilds {
		if g == nil || !models.ValidSnowflake(g.ID) {
			continue
		}

		guild := &models.Guild{
			ID:   g.ID,
			Name: g.Name,
			Icon: sql.NullString{String: g.Icon, Valid: g.Icon != ""},
		}
		if g.Owner {
			guild.OwnerID = sql.NullString{String: user.ID, Valid: true}
		}

		permissions, err := strconv.ParseInt(g.Permissions, 10, 64)
		if err != nil {
			permissions = 0
		}

		snap.Guilds = append(snap.Guilds, guild)
		snap.Memberships = append(snap.Memberships, &models.Membership{
			GuildID:     g.ID,
			UserID:      user.ID,
			Permissions: permissions,
		})
	}

	return snap
}
