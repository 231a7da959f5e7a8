// Package medals holds the rules for defining, awarding and revoking medals.
//
// Guild pages are guarded by ownership: only the recorded owner of a guild may
// create or edit its medals. The award API is guarded by the medal token
// alone. Whoever holds a token may award, revoke and regenerate for that one
// medal without any session or ownership check, which is how bots and other
// integrations are expected to call it.
package medals

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/discordmedals/internal/models"
	"github.com/parsascontentcorner/discordmedals/internal/repository"
)

// Errors returned by Manager
var (
	ErrNotFound     = repository.ErrNotFound
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = models.ErrInvalidMedal

	ErrMissingToken = errors.New("missing medal token")
	ErrInvalidToken = errors.New("invalid medal token")
	ErrUserNotFound = errors.New("user not found")
	ErrAlreadyOwned = errors.New("user already owns the medal")
	ErrMissingAward = errors.New("missing award id")
	ErrInvalidAward = errors.New("invalid award id")
)

// NewToken returns a fresh 32 character hex medal token
func NewToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Manager applies medal rules on top of a repository
type Manager struct {
	repo     repository.Repository
	logger   *zap.Logger
	newToken func() string
}

// NewManager creates a new medal manager
func NewManager(repo repository.Repository, logger *zap.Logger) *Manager {
	return &Manager{
		repo:     repo,
		logger:   logger,
		newToken: NewToken,
	}
}

// GuildPage is what the guild page shows
type GuildPage struct {
	Guild     *models.Guild
	Medals    []*models.Medal
	Members   []*models.User
	Counts    models.TierCounts
	CanManage bool
}

// GuildView loads a guild with its medals and members. viewerID may be empty.
func (m *Manager) GuildView(ctx context.Context, guildID, viewerID string) (*GuildPage, error) {
	guild, err := m.repo.GetGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}

	medalList, err := m.repo.ListMedalsByGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}

	members, err := m.repo.ListGuildMembers(ctx, guildID)
	if err != nil {
		return nil, err
	}

	return &GuildPage{
		Guild:     guild,
		Medals:    medalList,
		Members:   members,
		Counts:    models.CountMedalsByTier(medalList),
		CanManage: guild.IsOwnedBy(viewerID),
	}, nil
}

// AuthorizeGuild returns the guild if userID is its recorded owner
func (m *Manager) AuthorizeGuild(ctx context.Context, guildID, userID string) (*models.Guild, error) {
	guild, err := m.repo.GetGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if !guild.IsOwnedBy(userID) {
		return nil, ErrForbidden
	}
	return guild, nil
}

// AuthorizeMedal returns the medal and its guild if userID owns that guild
func (m *Manager) AuthorizeMedal(ctx context.Context, medalID int64, userID string) (*models.Medal, *models.Guild, error) {
	medal, err := m.repo.GetMedal(ctx, medalID)
	if err != nil {
		return nil, nil, err
	}
	guild, err := m.AuthorizeGuild(ctx, medal.GuildID, userID)
	if err != nil {
		return nil, nil, err
	}
	return medal, guild, nil
}

// CreateMedal defines a new medal for a guild owned by userID
func (m *Manager) CreateMedal(ctx context.Context, guildID, userID string, in models.MedalInput) (*models.Medal, error) {
	if _, err := m.AuthorizeGuild(ctx, guildID, userID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	medal := &models.Medal{GuildID: guildID, Token: m.newToken()}
	in.Apply(medal)

	if err := m.repo.CreateMedal(ctx, medal); err != nil {
		return nil, err
	}

	m.logger.Info("medal created",
		zap.Int64("medal_id", medal.ID),
		zap.String("guild_id", guildID),
		zap.String("tier", string(medal.Tier)),
	)
	return medal, nil
}

// EditMedal overwrites the editable fields of a medal. The token is kept.
func (m *Manager) EditMedal(ctx context.Context, medalID int64, userID string, in models.MedalInput) (*models.Medal, error) {
	medal, _, err := m.AuthorizeMedal(ctx, medalID, userID)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	in.Apply(medal)
	if err := m.repo.UpdateMedal(ctx, medal); err != nil {
		return nil, err
	}

	m.logger.Info("medal updated", zap.Int64("medal_id", medal.ID), zap.String("guild_id", medal.GuildID))
	return medal, nil
}

// MedalPage is what the medal page shows. The token is only filled in for the guild owner.
type MedalPage struct {
	Medal     *models.Medal
	Guild     *models.Guild
	Awards    []*models.AwardDetail
	CanManage bool
}

// MedalView loads a medal with every award of it. viewerID may be empty.
func (m *Manager) MedalView(ctx context.Context, medalID int64, viewerID string) (*MedalPage, error) {
	medal, err := m.repo.GetMedal(ctx, medalID)
	if err != nil {
		return nil, err
	}

	guild, err := m.repo.GetGuild(ctx, medal.GuildID)
	if err != nil {
		return nil, err
	}

	awards, err := m.repo.ListAwardsByMedal(ctx, medalID)
	if err != nil {
		return nil, err
	}

	page := &MedalPage{
		Medal:     medal,
		Guild:     guild,
		Awards:    awards,
		CanManage: guild.IsOwnedBy(viewerID),
	}
	if !page.CanManage {
		medal.Token = ""
	}
	return page, nil
}

// GuildAwards are the awards a user holds in one guild
type GuildAwards struct {
	Guild  *models.Guild
	Awards []*models.AwardDetail
	Counts models.TierCounts
}

// Profile is what the user page shows
type Profile struct {
	User   *models.User
	Guilds []GuildAwards
	Counts models.TierCounts
}

// UserProfile loads a user with their awards grouped by guild
func (m *Manager) UserProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := m.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	guilds, err := m.repo.ListGuildsByMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: user}
	for _, g := range guilds {
		awards, err := m.repo.ListAwardsByUserInGuild(ctx, userID, g.ID)
		if err != nil {
			return nil, err
		}
		counts := models.CountAwardsByTier(awards)
		profile.Counts.Bronze += counts.Bronze
		profile.Counts.Silver += counts.Silver
		profile.Counts.Gold += counts.Gold
		profile.Guilds = append(profile.Guilds, GuildAwards{Guild: g, Awards: awards, Counts: counts})
	}
	return profile, nil
}

func (m *Manager) medalByToken(ctx context.Context, token string) (*models.Medal, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	medal, err := m.repo.GetMedalByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return medal, err
}

// AwardMedal gives the medal behind token to userID. With unique set, a user
// already holding the medal is refused. The unique check and the insert are
// separate statements, so two concurrent unique calls for the same user can
// both succeed; callers that need strict uniqueness must serialize their calls.
func (m *Manager) AwardMedal(ctx context.Context, token, userID string, unique bool) (*models.Award, error) {
	medal, err := m.medalByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if userID == "" {
		return nil, ErrUserNotFound
	}
	if _, err := m.repo.GetUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if unique {
		owned, err := m.repo.AwardExists(ctx, medal.ID, userID)
		if err != nil {
			return nil, err
		}
		if owned {
			return nil, ErrAlreadyOwned
		}
	}

	award := &models.Award{MedalID: medal.ID, UserID: userID}
	if err := m.repo.CreateAward(ctx, award); err != nil {
		return nil, fmt.Errorf("failed to award medal %d: %w", medal.ID, err)
	}

	m.logger.Info("medal awarded",
		zap.Int64("medal_id", medal.ID),
		zap.String("user_id", userID),
		zap.Int64("award_id", award.ID),
	)
	return award, nil
}

// RevokeAward deletes an award of the medal behind token. rawAwardID comes
// straight from the request; awards of other medals are refused.
func (m *Manager) RevokeAward(ctx context.Context, token, rawAwardID string) error {
	medal, err := m.medalByToken(ctx, token)
	if err != nil {
		return err
	}

	if rawAwardID == "" {
		return ErrMissingAward
	}
	awardID, err := strconv.ParseInt(rawAwardID, 10, 64)
	if err != nil || awardID <= 0 {
		return ErrInvalidAward
	}

	award, err := m.repo.GetAward(ctx, awardID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidAward
	}
	if err != nil {
		return err
	}
	if award.MedalID != medal.ID {
		return ErrInvalidAward
	}

	if err := m.repo.DeleteAward(ctx, awardID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidAward
		}
		return err
	}

	m.logger.Info("award revoked", zap.Int64("medal_id", medal.ID), zap.Int64("award_id", awardID))
	return nil
}

// RegenerateToken replaces the token of the medal behind token and returns the new one
func (m *Manager) RegenerateToken(ctx context.Context, token string) (string, error) {
	medal, err := m.medalByToken(ctx, token)
	if err != nil {
		return "", err
	}

	fresh := m.newToken()
	if err := m.repo.UpdateMedalToken(ctx, medal.ID, fresh); err != nil {
		return "", err
	}

	m.logger.Info("medal token regenerated", zap.Int64("medal_id", medal.ID))
	return fresh, nil
}
