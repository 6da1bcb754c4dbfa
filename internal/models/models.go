package models

import "time"

// User is a bot account created on first contact. TrialStart is set once at
// creation and never overwritten; SubscriptionEnd is present only while a paid
// grant is in effect.
type User struct {
	ID              int64
	TelegramID      int64
	Username        string
	TrialStart      time.Time
	SubscriptionEnd *time.Time
	IsActive        bool
	AwaitingPayment bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RelayMapping is a (source, target) chat pair owned by a single user. A user
// has at most one mapping; a repeated setup replaces the previous pair.
type RelayMapping struct {
	ID         int64
	UUID       string
	UserID     int64
	SourceLink string
	TargetLink string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
