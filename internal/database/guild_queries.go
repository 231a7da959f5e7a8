package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parsascontentcorner/discordmedals/internal/models"
	"github.com/parsascontentcorner/discordmedals/internal/repository"
)

// UpsertGuild inserts or updates a guild. A null owner keeps the stored one.
func (db *DB) UpsertGuild(ctx context.Context, guild *models.Guild) error {
	return upsertGuild(ctx, db, guild)
}

func upsertGuild(ctx context.Context, q querier, guild *models.Guild) error {
	query := `
		INSERT INTO guilds (id, name, icon, owner_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    icon = EXCLUDED.icon,
		    owner_id = COALESCE(EXCLUDED.owner_id, guilds.owner_id),
		    updated_at = NOW()
		RETURNING owner_id, created_at, updated_at
	`

	err := q.QueryRowContext(
		ctx,
		query,
		guild.ID,
		guild.Name,
		guild.Icon,
		guild.OwnerID,
	).Scan(&guild.OwnerID, &guild.CreatedAt, &guild.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create/update guild: %w", err)
	}

	return nil
}

// GetGuild retrieves a guild by its Discord ID
func (db *DB) GetGuild(ctx context.Context, id string) (*models.Guild, error) {
	query := `
		SELECT id, name, icon, owner_id, created_at, updated_at
		FROM guilds
		WHERE id = $1
	`

	var guild models.Guild
	err := db.QueryRowContext(ctx, query, id).Scan(
		&guild.ID,
		&guild.Name,
		&guild.Icon,
		&guild.OwnerID,
		&guild.CreatedAt,
		&guild.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get guild: %w", err)
	}

	return &guild, nil
}

// ListGuildsByMember retrieves all guilds a user belongs to, ordered by name
func (db *DB) ListGuildsByMember(ctx context.Context, userID string) ([]*models.Guild, error) {
	query := `
		SELECT g.id, g.name, g.icon, g.owner_id, g.created_at, g.updated_at
		FROM guilds g
		INNER JOIN memberships m ON g.id = m.guild_id
		WHERE m.user_id = $1
		ORDER BY g.name ASC, g.id ASC
	`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query guilds: %w", err)
	}
	defer rows.Close()

	var guilds []*models.Guild
	for rows.Next() {
		var guild models.Guild
		err := rows.Scan(
			&guild.ID,
			&guild.Name,
			&guild.Icon,
			&guild.OwnerID,
			&guild.CreatedAt,
			&guild.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guild: %w", err)
		}
		guilds = append(guilds, &guild)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guilds: %w", err)
	}

	return guilds, nil
}

// ListGuildMembers retrieves every known member of a guild, ordered by username
func (db *DB) ListGuildMembers(ctx context.Context, guildID string) ([]*models.User, error) {
	query := `
		SELECT u.id, u.username, u.discriminator, u.avatar, u.created_at, u.updated_at
		FROM users u
		INNER JOIN memberships m ON u.id = m.user_id
		WHERE m.guild_id = $1
		ORDER BY u.username ASC, u.id ASC
	`

	rows, err := db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query guild members: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("failed to scan guild member: %w", err)
		}
		users = append(users, &user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guild members: %w", err)
	}

	return users, nil
}

// UpsertMembership records a user's membership in a guild
func (db *DB) UpsertMembership(ctx context.Context, m *models.Membership) error {
	return upsertMembership(ctx, db, m)
}

func upsertMembership(ctx context.Context, q querier, m *models.Membership) error {
	query := `
		INSERT INTO memberships (guild_id, user_id, permissions)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, user_id) DO UPDATE
		SET permissions = EXCLUDED.permissions,
		    updated_at = NOW()
		RETURNING updated_at
	`

	if err := q.QueryRowContext(ctx, query, m.GuildID, m.UserID, m.Permissions).Scan(&m.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create/update membership: %w", err)
	}

	return nil
}
