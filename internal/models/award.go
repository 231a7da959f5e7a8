package models

import "time"

// Award records that a user holds a medal
type Award struct {
	ID        int64     `json:"id"`
	MedalID   int64     `json:"medal_id"`
	UserID    string    `json:"user_id"`
	AwardedAt time.Time `json:"awarded_at"`
}

// AwardDetail is an award joined with its medal and awardee
type AwardDetail struct {
	Award
	Medal Medal
	User  User
}

// CountAwardsByTier tallies awards by the tier of their medal
func CountAwardsByTier(awards []*AwardDetail) TierCounts {
	var c TierCounts
	for _, a := range awards {
		c.Add(a.Medal.Tier)
	}
	return c
}
