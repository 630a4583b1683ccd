package digest

import (
	"time"

	"github.com/shaybz/topic-radar/app/database"
)

const (
	minFrequencyDays = 1
	maxFrequencyDays = 30
)

// Eligibility decides which users are due a digest. A small grace window
// keeps a pass that fires slightly early (timer drift, restart) from
// pushing every user to the next day.
type Eligibility struct {
	grace time.Duration
}

func NewEligibility(grace time.Duration) *Eligibility {
	return &Eligibility{grace: grace}
}

// IsEligible reports whether the user is due a digest at the given time.
// Force skips the frequency check but never the structural requirements
// (enabled, email, registered account).
func (e *Eligibility) IsEligible(user database.User, now time.Time, force bool) bool {
	if !user.DigestEnabled || user.Email == "" || user.Guest {
		return false
	}
	if user.DigestFrequencyDays < minFrequencyDays || user.DigestFrequencyDays > maxFrequencyDays {
		return false
	}
	if force {
		return true
	}
	if user.LastDigestSentAt == nil {
		return true
	}

	interval := time.Duration(user.DigestFrequencyDays) * 24 * time.Hour
	return now.Sub(*user.LastDigestSentAt) >= interval-e.grace
}

// ContentWindow returns the post selection window for a user's digest.
// The window starts at the last digest send so consecutive digests cover
// the timeline with no gap and no overlap, even when a pass runs late.
// Only a user who has never received a digest gets a window bounded to
// one frequency interval.
func (e *Eligibility) ContentWindow(user database.User, now time.Time) (from, to time.Time) {
	if user.LastDigestSentAt != nil {
		return *user.LastDigestSentAt, now
	}
	return now.Add(-time.Duration(user.DigestFrequencyDays) * 24 * time.Hour), now
}
