package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parsascontentcorner/discordmedals/internal/models"
	"github.com/parsascontentcorner/discordmedals/internal/repository"
)

const awardDetailQuery = `
	SELECT a.id, a.medal_id, a.user_id, a.awarded_at,
	       m.id, m.guild_id, m.name, m.description, m.icon, m.tier, m.token, m.created_at, m.updated_at,
	       u.id, u.username, u.discriminator, u.avatar, u.created_at, u.updated_at
	FROM awards a
	INNER JOIN medals m ON a.medal_id = m.id
	INNER JOIN users u ON a.user_id = u.id
`

// CreateAward inserts an award and fills in its generated ID and timestamp
func (db *DB) CreateAward(ctx context.Context, award *models.Award) error {
	query := `
		INSERT INTO awards (medal_id, user_id)
		VALUES ($1, $2)
		RETURNING id, awarded_at
	`

	if err := db.QueryRowContext(ctx, query, award.MedalID, award.UserID).Scan(&award.ID, &award.AwardedAt); err != nil {
		return fmt.Errorf("failed to create award: %w", err)
	}

	return nil
}

// GetAward retrieves an award by ID
func (db *DB) GetAward(ctx context.Context, id int64) (*models.Award, error) {
	query := `SELECT id, medal_id, user_id, awarded_at FROM awards WHERE id = $1`

	var award models.Award
	err := db.QueryRowContext(ctx, query, id).Scan(
		&award.ID,
		&award.MedalID,
		&award.UserID,
		&award.AwardedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get award: %w", err)
	}

	return &award, nil
}

// AwardExists checks whether the user already holds the medal
func (db *DB) AwardExists(ctx context.Context, medalID int64, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM awards WHERE medal_id = $1 AND user_id = $2)`

	var exists bool
	if err := db.QueryRowContext(ctx, query, medalID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check award: %w", err)
	}

	return exists, nil
}

// ListAwardsByMedal retrieves every award of a medal, oldest first
func (db *DB) ListAwardsByMedal(ctx context.Context, medalID int64) ([]*models.AwardDetail, error) {
	return db.listAwardDetails(ctx,
		awardDetailQuery+` WHERE a.medal_id = $1 ORDER BY a.awarded_at ASC, a.id ASC`,
		medalID,
	)
}

// ListAwardsByUserInGuild retrieves the awards a user holds for medals of one guild
func (db *DB) ListAwardsByUserInGuild(ctx context.Context, userID, guildID string) ([]*models.AwardDetail, error) {
	return db.listAwardDetails(ctx,
		awardDetailQuery+` WHERE a.user_id = $1 AND m.guild_id = $2 ORDER BY a.awarded_at ASC, a.id ASC`,
		userID, guildID,
	)
}

func (db *DB) listAwardDetails(ctx context.Context, query string, args ...any) ([]*models.AwardDetail, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query awards: %w", err)
	}
	defer rows.Close()

	var awards []*models.AwardDetail
	for rows.Next() {
		var d models.AwardDetail
		err := rows.Scan(
			&d.ID, &d.MedalID, &d.UserID, &d.AwardedAt,
			&d.Medal.ID, &d.Medal.GuildID, &d.Medal.Name, &d.Medal.Description, &d.Medal.Icon,
			&d.Medal.Tier, &d.Medal.Token, &d.Medal.CreatedAt, &d.Medal.UpdatedAt,
			&d.User.ID, &d.User.Username, &d.User.Discriminator, &d.User.Avatar,
			&d.User.CreatedAt, &d.User.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan award: %w", err)
		}
		awards = append(awards, &d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating awards: %w", err)
	}

	return awards, nil
}

// DeleteAward removes an award
func (db *DB) DeleteAward(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM awards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete award: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
