package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// Field limits for medals
const (
	MaxMedalNameLength        = 128
	MaxMedalDescriptionLength = 512
	MaxMedalIconLength        = 512
)

// ErrInvalidMedal is returned when submitted medal fields fail validation
var ErrInvalidMedal = errors.New("invalid medal")

// Tier is the rank of a medal
type Tier string

// Medal tiers
const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Tiers lists every tier in display order
var Tiers = []Tier{TierBronze, TierSilver, TierGold}

// Valid reports whether t is one of the known tiers
func (t Tier) Valid() bool {
	switch t {
	case TierBronze, TierSilver, TierGold:
		return true
	}
	return false
}

// Medal is a badge defined by a guild owner. Token is the bearer capability
// for the award API and must be unique across all medals.
type Medal struct {
	ID          int64     `json:"id"`
	GuildID     string    `json:"guild_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Tier        Tier      `json:"tier"`
	Token       string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (m *Medal) String() string {
	return m.Name
}

// MedalInput carries the owner-editable fields of a medal
type MedalInput struct {
	Name        string
	Description string
	Icon        string
	Tier        Tier
}

// Validate checks lengths, the tier enum and the icon reference.
// Lengths are counted in runes on the submitted values, surrounding whitespace included.
func (in MedalInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMedal)
	}
	if utf8.RuneCountInString(in.Name) > MaxMedalNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidMedal, MaxMedalNameLength)
	}
	if utf8.RuneCountInString(in.Description) > MaxMedalDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidMedal, MaxMedalDescriptionLength)
	}
	if utf8.RuneCountInString(in.Icon) > MaxMedalIconLength {
		return fmt.Errorf("%w: icon exceeds %d characters", ErrInvalidMedal, MaxMedalIconLength)
	}
	if icon := strings.TrimSpace(in.Icon); icon != "" && !isWebURL(icon) {
		return fmt.Errorf("%w: icon must be an http or https url", ErrInvalidMedal)
	}
	if !in.Tier.Valid() {
		return fmt.Errorf("%w: tier must be bronze, silver or gold", ErrInvalidMedal)
	}
	return nil
}

// Apply copies the trimmed input onto m, leaving id, guild and token untouched
func (in MedalInput) Apply(m *Medal) {
	m.Name = strings.TrimSpace(in.Name)
	m.Description = strings.TrimSpace(in.Description)
	m.Icon = strings.TrimSpace(in.Icon)
	m.Tier = in.Tier
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// TierCounts holds per-tier totals
type TierCounts struct {
	Bronze int
	Silver int
	Gold   int
}

// Add increments the counter for t; unknown tiers are ignored
func (c *TierCounts) Add(t Tier) {
	switch t {
	case TierBronze:
		c.Bronze++
	case TierSilver:
		c.Silver++
	case TierGold:
		c.Gold++
	}
}

// Total is the sum over all tiers
func (c TierCounts) Total() int {
	return c.Bronze + c.Silver + c.Gold
}

// CountMedalsByTier tallies medals per tier
func CountMedalsByTier(medals []*Medal) TierCounts {
	var c TierCounts
	for _, m := range medals {
		c.Add(m.Tier)
	}
	return c
}
