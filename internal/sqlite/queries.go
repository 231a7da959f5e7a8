package sqlite

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parsascontentcorner/discordmedals/internal/models"
	"github.com/parsascontentcorner/discordmedals/internal/repository"
)

// UpsertUser inserts or updates a user
func (s *Store) UpsertUser(ctx context.Context, user *models.User) error {
	return upsertUser(s.db.WithContext(ctx), user)
}

func upsertUser(tx *gorm.DB, user *models.User) error {
	row := userRow{
		ID:            user.ID,
		Username:      user.Username,
		Discriminator: user.Discriminator,
		Avatar:        user.Avatar,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "discriminator", "avatar", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to create/update user: %w", err)
	}

	var stored userRow
	if err := tx.First(&stored, "id = ?", user.ID).Error; err != nil {
		return fmt.Errorf("failed to reload user: %w", err)
	}
	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

// GetUser retrieves a user by Discord ID
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

// UpsertGuild inserts or updates a guild. A null owner keeps the stored one.
func (s *Store) UpsertGuild(ctx context.Context, guild *models.Guild) error {
	return upsertGuild(s.db.WithContext(ctx), guild)
}

func upsertGuild(tx *gorm.DB, guild *models.Guild) error {
	row := guildRow{
		ID:      guild.ID,
		Name:    guild.Name,
		Icon:    guild.Icon,
		OwnerID: guild.OwnerID,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":       gorm.Expr("excluded.name"),
			"icon":       gorm.Expr("excluded.icon"),
			"owner_id":   gorm.Expr("COALESCE(excluded.owner_id, guilds.owner_id)"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to create/update guild: %w", err)
	}

	var stored guildRow
	if err := tx.First(&stored, "id = ?", guild.ID).Error; err != nil {
		return fmt.Errorf("failed to reload guild: %w", err)
	}
	guild.OwnerID = stored.OwnerID
	guild.CreatedAt = stored.CreatedAt
	guild.UpdatedAt = stored.UpdatedAt
	return nil
}

// GetGuild retrieves a guild by Discord ID
func (s *Store) GetGuild(ctx context.Context, id string) (*models.Guild, error) {
	var row guildRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

// ListGuildsByMember retrieves all guilds a user belongs to, ordered by name
func (s *Store) ListGuildsByMember(ctx context.Context, userID string) ([]*models.Guild, error) {
	var rows []guildRow
	err := s.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.guild_id = guilds.id").
		Where("memberships.user_id = ?", userID).
		Order("guilds.name ASC, guilds.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query guilds: %w", err)
	}

	guilds := make([]*models.Guild, 0, len(rows))
	for i := range rows {
		guilds = append(guilds, rows[i].toModel())
	}
	return guilds, nil
}

// ListGuildMembers retrieves every known member of a guild, ordered by username
func (s *Store) ListGuildMembers(ctx context.Context, guildID string) ([]*models.User, error) {
	var rows []userRow
	err := s.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.user_id = users.id").
		Where("memberships.guild_id = ?", guildID).
		Order("users.username ASC, users.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query guild members: %w", err)
	}

	users := make([]*models.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toModel())
	}
	return users, nil
}

// UpsertMembership records a user's membership in a guild
func (s *Store) UpsertMembership(ctx context.Context, m *models.Membership) error {
	return upsertMembership(s.db.WithContext(ctx), m)
}

func upsertMembership(tx *gorm.DB, m *models.Membership) error {
	row := membershipRow{
		GuildID:     m.GuildID,
		UserID:      m.UserID,
		Permissions: m.Permissions,
	}
	err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"permissions", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to create/update membership: %w", err)
	}
	m.UpdatedAt = row.UpdatedAt
	return nil
}

// CreateMedal inserts a medal and fills in its generated ID and timestamps
func (s *Store) CreateMedal(ctx context.Context, medal *models.Medal) error {
	row := medalRowFrom(medal)
	row.ID = 0
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create medal: %w", err)
	}
	medal.ID = row.ID
	medal.CreatedAt = row.CreatedAt
	medal.UpdatedAt = row.UpdatedAt
	return nil
}

// UpdateMedal overwrites the editable fields of a medal
func (s *Store) UpdateMedal(ctx context.Context, medal *models.Medal) error {
	now := s.db.NowFunc()
	res := s.db.WithContext(ctx).Model(&medalRow{}).Where("id = ?", medal.ID).Updates(map[string]any{
		"name":        medal.Name,
		"description": medal.Description,
		"icon":        medal.Icon,
		"tier":        medal.Tier,
		"updated_at":  now,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update medal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	medal.UpdatedAt = now
	return nil
}

// UpdateMedalToken replaces the award token of a medal
func (s *Store) UpdateMedalToken(ctx context.Context, medalID int64, token string) error {
	res := s.db.WithContext(ctx).Model(&medalRow{}).Where("id = ?", medalID).Updates(map[string]any{
		"token":      token,
		"updated_at": s.db.NowFunc(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update medal token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetMedal retrieves a medal by ID
func (s *Store) GetMedal(ctx context.Context, id int64) (*models.Medal, error) {
	var row medalRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

// GetMedalByToken retrieves the medal owning the given award token
func (s *Store) GetMedalByToken(ctx context.Context, token string) (*models.Medal, error) {
	var row medalRow
	if err := s.db.WithContext(ctx).First(&row, "token = ?", token).Error; err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

// ListMedalsByGuild retrieves all medals of a guild in creation order
func (s *Store) ListMedalsByGuild(ctx context.Context, guildID string) ([]*models.Medal, error) {
	var rows []medalRow
	if err := s.db.WithContext(ctx).Where("guild_id = ?", guildID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query medals: %w", err)
	}

	medals := make([]*models.Medal, 0, len(rows))
	for i := range rows {
		medals = append(medals, rows[i].toModel())
	}
	return medals, nil
}

// CreateAward inserts an award and fills in its generated ID and timestamp
func (s *Store) CreateAward(ctx context.Context, award *models.Award) error {
	row := awardRow{MedalID: award.MedalID, UserID: award.UserID}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create award: %w", err)
	}
	award.ID = row.ID
	award.AwardedAt = row.AwardedAt
	return nil
}

// GetAward retrieves an award by ID
func (s *Store) GetAward(ctx context.Context, id int64) (*models.Award, error) {
	var row awardRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

// AwardExists checks whether the user already holds the medal
func (s *Store) AwardExists(ctx context.Context, medalID int64, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&awardRow{}).
		Where("medal_id = ? AND user_id = ?", medalID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check award: %w", err)
	}
	return count > 0, nil
}

// ListAwardsByMedal retrieves every award of a medal, oldest first
func (s *Store) ListAwardsByMedal(ctx context.Context, medalID int64) ([]*models.AwardDetail, error) {
	return s.listAwardDetails(s.db.WithContext(ctx).Where("awards.medal_id = ?", medalID))
}

// ListAwardsByUserInGuild retrieves the awards a user holds for medals of one guild
func (s *Store) ListAwardsByUserInGuild(ctx context.Context, userID, guildID string) ([]*models.AwardDetail, error) {
	return s.listAwardDetails(s.db.WithContext(ctx).
		Joins("JOIN medals ON medals.id = awards.medal_id").
		Where("awards.user_id = ? AND medals.guild_id = ?", userID, guildID))
}

func (s *Store) listAwardDetails(q *gorm.DB) ([]*models.AwardDetail, error) {
	var rows []awardRow
	err := q.Preload("Medal").Preload("User").
		Order("awards.awarded_at ASC, awards.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query awards: %w", err)
	}

	awards := make([]*models.AwardDetail, 0, len(rows))
	for i := range rows {
		awards = append(awards, rows[i].toDetail())
	}
	return awards, nil
}

// DeleteAward removes an award
func (s *Store) DeleteAward(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&awardRow{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete award: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
