package testutil

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"github.com/parsascontentcorner/discordmedals/internal/models"
)

var ignoreTimestamps = cmpopts.IgnoreFields(models.User{}, "CreatedAt", "UpdatedAt")

// AssertUserEqual compares two users, ignoring timestamps.
func AssertUserEqual(t *testing.T, expected, actual *models.User) {
	t.Helper()

	if diff := cmp.Diff(expected, actual, ignoreTimestamps); diff != "" {
		t.Errorf("user mismatch (-want +got):\n%s", diff)
	}
}

// AssertGuildEqual compares two guilds, ignoring timestamps.
func AssertGuildEqual(t *testing.T, expected, actual *models.Guild) {
	t.Helper()

	opts := cmpopts.IgnoreFields(models.Guild{}, "CreatedAt", "UpdatedAt")
	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("guild mismatch (-want +got):\n%s", diff)
	}
}

// AssertMedalEqual compares two medals, ignoring timestamps.
func AssertMedalEqual(t *testing.T, expected, actual *models.Medal) {
	t.Helper()

	opts := cmpopts.IgnoreFields(models.Medal{}, "CreatedAt", "UpdatedAt")
	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("medal mismatch (-want +got):\n%s", diff)
	}
}

// AssertTimeAlmostEqual checks if two times are within a specified delta.
// Useful for timestamp comparisons where exact equality isn't expected.
func AssertTimeAlmostEqual(t *testing.T, expected, actual time.Time, delta time.Duration) {
	t.Helper()

	diff := expected.Sub(actual)
	if diff < 0 {
		diff = -diff
	}

	assert.True(t,
		diff <= delta,
		"Times should be within %v of each other. Expected: %v, Actual: %v, Diff: %v",
		delta, expected, actual, diff,
	)
}
