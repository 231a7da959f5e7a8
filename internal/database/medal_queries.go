package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parsascontentcorner/discordmedals/internal/models"
	"github.com/parsascontentcorner/discordmedals/internal/repository"
)

const medalColumns = `id, guild_id, name, description, icon, tier, token, created_at, updated_at`

func scanMedal(row rowScanner, medal *models.Medal) error {
	return row.Scan(
		&medal.ID,
		&medal.GuildID,
		&medal.Name,
		&medal.Description,
		&medal.Icon,
		&medal.Tier,
		&medal.Token,
		&medal.CreatedAt,
		&medal.UpdatedAt,
	)
}

// CreateMedal inserts a medal and fills in its generated ID and timestamps
func (db *DB) CreateMedal(ctx context.Context, medal *models.Medal) error {
	query := `
		INSERT INTO medals (guild_id, name, description, icon, tier, token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := db.QueryRowContext(
		ctx,
		query,
		medal.GuildID,
		medal.Name,
		medal.Description,
		medal.Icon,
		medal.Tier,
		medal.Token,
	).Scan(&medal.ID, &medal.CreatedAt, &medal.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create medal: %w", err)
	}

	return nil
}

// UpdateMedal overwrites the editable fields of a medal
func (db *DB) UpdateMedal(ctx context.Context, medal *models.Medal) error {
	query := `
		UPDATE medals
		SET name = $2,
		    description = $3,
		    icon = $4,
		    tier = $5,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := db.QueryRowContext(
		ctx,
		query,
		medal.ID,
		medal.Name,
		medal.Description,
		medal.Icon,
		medal.Tier,
	).Scan(&medal.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to update medal: %w", err)
	}

	return nil
}

// UpdateMedalToken replaces the award token of a medal
func (db *DB) UpdateMedalToken(ctx context.Context, medalID int64, token string) error {
	query := `UPDATE medals SET token = $2, updated_at = NOW() WHERE id = $1`

	result, err := db.ExecContext(ctx, query, medalID, token)
	if err != nil {
		return fmt.Errorf("failed to update medal token: %w", err)
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

// GetMedal retrieves a medal by ID
func (db *DB) GetMedal(ctx context.Context, id int64) (*models.Medal, error) {
	return db.getMedalWhere(ctx, "id = $1", id)
}

// GetMedalByToken retrieves the medal owning the given award token
func (db *DB) GetMedalByToken(ctx context.Context, token string) (*models.Medal, error) {
	return db.getMedalWhere(ctx, "token = $1", token)
}

func (db *DB) getMedalWhere(ctx context.Context, cond string, arg any) (*models.Medal, error) {
	query := `SELECT ` + medalColumns + ` FROM medals WHERE ` + cond

	var medal models.Medal
	if err := scanMedal(db.QueryRowContext(ctx, query, arg), &medal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get medal: %w", err)
	}

	return &medal, nil
}

// ListMedalsByGuild retrieves all medals of a guild in creation order
func (db *DB) ListMedalsByGuild(ctx context.Context, guildID string) ([]*models.Medal, error) {
	query := `SELECT ` + medalColumns + ` FROM medals WHERE guild_id = $1 ORDER BY id ASC`

	rows, err := db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query medals: %w", err)
	}
	defer rows.Close()

	var medals []*models.Medal
	for rows.Next() {
		var medal models.Medal
		if err := scanMedal(rows, &medal); err != nil {
			return nil, fmt.Errorf("failed to scan medal: %w", err)
		}
		medals = append(medals, &medal)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating medals: %w", err)
	}

	return medals, nil
}
