package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parsascontentcorner/discordmedals/internal/models"
	"github.com/parsascontentcorner/discordmedals/internal/repository"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.Username,
		&user.Discriminator,
		&user.Avatar,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

// UpsertUser inserts or updates a user
func (db *DB) UpsertUser(ctx context.Context, user *models.User) error {
	return upsertUser(ctx, db, user)
}

func upsertUser(ctx context.Context, q querier, user *models.User) error {
	query := `
		INSERT INTO users (id, username, discriminator, avatar)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    discriminator = EXCLUDED.discriminator,
		    avatar = EXCLUDED.avatar,
		    updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := q.QueryRowContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Discriminator,
		user.Avatar,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create/update user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by Discord ID
func (db *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, username, discriminator, avatar, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	if err := scanUser(db.QueryRowContext(ctx, query, id), &user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}
