// Package sqlite is the single-file medal store backed by gorm and a pure-Go SQLite driver.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	gsqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/parsascontentcorner/discordmedals/internal/repository"
)

var _ repository.Repository = (*Store)(nil)

// Store implements repository.Repository on SQLite
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// FileDSN builds a DSN for an on-disk database with foreign keys enforced
func FileDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// MemoryDSN builds a DSN for a named shared in-memory database
func MemoryDSN(name string) string {
	return "file:" + name + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
}

// Open connects to the database and migrates the schema
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(gsqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	// SQLite allows a single writer; serializing connections avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&userRow{}, &guildRow{}, &membershipRow{}, &medalRow{}, &awardRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}

	logger.Info("sqlite database ready", zap.String("dsn", dsn))

	return &Store{db: db, logger: logger}, nil
}

// Ping checks the database health
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	s.logger.Info("closing database connection")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SyncLogin upserts the user, their guilds and memberships in one transaction
func (s *Store) SyncLogin(ctx context.Context, snap *repository.LoginSnapshot) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertUser(tx, snap.User); err != nil {
			return err
		}
		for _, guild := range snap.Guilds {
			if err := upsertGuild(tx, guild); err != nil {
				return err
			}
		}
		for _, membership := range snap.Memberships {
			if err := upsertMembership(tx, membership); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("login synchronized",
		zap.String("user_id", snap.User.ID),
		zap.Int("guild_count", len(snap.Guilds)),
	)
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}
