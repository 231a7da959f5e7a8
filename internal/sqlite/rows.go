package sqlite

import (
	"database/sql"
	"time"

	"github.com/parsascontentcorner/discordmedals/internal/models"
)

type userRow struct {
	ID            string         `gorm:"primaryKey;size:20"`
	Username      string         `gorm:"size:255;not null"`
	Discriminator int            `gorm:"not null;default:0"`
	Avatar        sql.NullString `gorm:"size:255"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (userRow) TableName() string { return "users" }

func (r *userRow) toModel() *models.User {
	return &models.User{
		ID:            r.ID,
		Username:      r.Username,
		Discriminator: r.Discriminator,
		Avatar:        r.Avatar,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type guildRow struct {
	ID        string         `gorm:"primaryKey;size:20"`
	Name      string         `gorm:"size:255;not null"`
	Icon      sql.NullString `gorm:"size:255"`
	OwnerID   sql.NullString `gorm:"size:20"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (guildRow) TableName() string { return "guilds" }

func (r *guildRow) toModel() *models.Guild {
	return &models.Guild{
		ID:        r.ID,
		Name:      r.Name,
		Icon:      r.Icon,
		OwnerID:   r.OwnerID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type membershipRow struct {
	GuildID     string    `gorm:"primaryKey;size:20"`
	Guild       *guildRow `gorm:"foreignKey:GuildID"`
	UserID      string    `gorm:"primaryKey;size:20;index"`
	User        *userRow  `gorm:"foreignKey:UserID"`
	Permissions int64     `gorm:"not null;default:0"`
	UpdatedAt   time.Time
}

func (membershipRow) TableName() string { return "memberships" }

type medalRow struct {
	ID          int64       `gorm:"primaryKey;autoIncrement"`
	GuildID     string      `gorm:"size:20;not null;index"`
	Guild       *guildRow   `gorm:"foreignKey:GuildID"`
	Name        string      `gorm:"size:128;not null"`
	Description string      `gorm:"size:512;not null;default:''"`
	Icon        string      `gorm:"size:512;not null;default:''"`
	Tier        models.Tier `gorm:"size:6;not null"`
	Token       string      `gorm:"size:64;not null;uniqueIndex"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (medalRow) TableName() string { return "medals" }

func medalRowFrom(m *models.Medal) *medalRow {
	return &medalRow{
		ID:          m.ID,
		GuildID:     m.GuildID,
		Name:        m.Name,
		Description: m.Description,
		Icon:        m.Icon,
		Tier:        m.Tier,
		Token:       m.Token,
	}
}

func (r *medalRow) toModel() *models.Medal {
	return &models.Medal{
		ID:          r.ID,
		GuildID:     r.GuildID,
		Name:        r.Name,
		Description: r.Description,
		Icon:        r.Icon,
		Tier:        r.Tier,
		Token:       r.Token,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type awardRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	MedalID   int64     `gorm:"not null;index:idx_awards_medal_user,priority:1"`
	Medal     *medalRow `gorm:"foreignKey:MedalID"`
	UserID    string    `gorm:"size:20;not null;index:idx_awards_medal_user,priority:2"`
	User      *userRow  `gorm:"foreignKey:UserID"`
	AwardedAt time.Time `gorm:"not null;autoCreateTime"`
}

func (awardRow) TableName() string { return "awards" }

func (r *awardRow) toModel() *models.Award {
	return &models.Award{
		ID:        r.ID,
		MedalID:   r.MedalID,
		UserID:    r.UserID,
		AwardedAt: r.AwardedAt,
	}
}

func (r *awardRow) toDetail() *models.AwardDetail {
	d := &models.AwardDetail{Award: *r.toModel()}
	if r.Medal != nil {
		d.Medal = *r.Medal.toModel()
	}
	if r.User != nil {
		d.User = *r.User.toModel()
	}
	return d
}
