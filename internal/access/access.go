// Package access decides whether an account currently has access to the bot's
// paid features. A freshly created account runs on its trial window; an admin
// grant replaces the trial with an explicit subscription window.
package access

import (
	"time"

	"github.com/lianamurzabaeva86-hue/forwarded/internal/models"
)

// HasActiveAccess reports whether the user may use gated features at the given
// moment. A set subscription end takes precedence over the trial window: once
// granted, only the subscription counts, even if the trial would still be
// running.
func HasActiveAccess(u *models.User, now time.Time, trialDays int) bool {
	if u == nil || !u.IsActive {
		return false
	}
	if u.SubscriptionEnd != nil {
		return !now.After(*u.SubscriptionEnd)
	}
	if !u.TrialStart.IsZero() {
		return !now.After(u.TrialStart.AddDate(0, 0, trialDays))
	}
	return false
}

// DaysLeft returns the whole days remaining on whichever window applies,
// clamped at zero. A user with neither basis set has zero days.
func DaysLeft(u *models.User, now time.Time, trialDays int) int {
	if u == nil {
		return 0
	}
	var expiry time.Time
	switch {
	case u.SubscriptionEnd != nil:
		expiry = *u.SubscriptionEnd
	case !u.TrialStart.IsZero():
		expiry = u.TrialStart.AddDate(0, 0, trialDays)
	default:
		return 0
	}
	days := int(expiry.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
