// Package domain holds the lobby's view of the external identity/account service.
package domain

import "time"

// User roles as stored by the identity service.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// UserSummary is the slice of a user account the lobby needs: identity,
// presentation, and the block list used to filter broadcasts.
type UserSummary struct {
	ID           string
	Username     string
	Avatar       string
	Role         string
	RegisteredAt time.Time
	// BlockList holds usernames this user has blocked.
	BlockList []string
}

// HasBlocked reports whether this user has blocked the given username.
func (u *UserSummary) HasBlocked(username string) bool {
	for _, b := range u.BlockList {
		if b == username {
			return true
		}
	}
	return false
}

// MutuallyBlocked reports whether either user has blocked the other. Messages
// between mutually blocked users are hidden in both directions.
func (u *UserSummary) MutuallyBlocked(other *UserSummary) bool {
	if u == nil || other == nil {
		return false
	}
	return u.HasBlocked(other.Username) || other.HasBlocked(u.Username)
}

// CanModerate reports whether the user may remove other users' lobby messages.
func (u *UserSummary) CanModerate() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}

// PersistedMessage is a lobby chat message stored by the account service.
type PersistedMessage struct {
	ID       string
	UserID   string
	Username string
	Avatar   string
	Text     string
	PostedAt time.Time
	Removed  bool
	// SenderBlockList holds the usernames the sender has blocked, so the
	// backlog can be filtered even when the sender is offline.
	SenderBlockList []string
}

// SenderBlocked reports whether the message's sender has blocked username.
func (m *PersistedMessage) SenderBlocked(username string) bool {
	for _, b := range m.SenderBlockList {
		if b == username {
			return true
		}
	}
	return false
}
