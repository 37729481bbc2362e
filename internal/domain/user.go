package domain

import "time"

// User represents a registered account and its personal counter.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Counter      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the denormalized view of a user bound to a session.
type Identity struct {
	UserID   string
	Username string
}

// Identity returns the session identity for the user.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}
