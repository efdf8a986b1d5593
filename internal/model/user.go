// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered listener/artist account.
//
// Preferences is a multiset: the same genre may (and should) appear multiple
// times. Every like of a song appends one entry per song genre, so the number
// of occurrences of a genre measures how strongly the user leans towards it.
// Do not de-duplicate it.
//
// Following and Subscribers are inverse sides of the follow relation: if B
// appears in A.Following, then A appears in B.Subscribers. Both are derived
// from the same underlying relation, so they can never drift apart.
//
// GitHubID is non-zero only for accounts created through the GitHub social
// login flow; password accounts leave it at 0.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"` // never serialized
	AvatarURL    string    `json:"avatar"    db:"avatar_url"`
	GitHubID     int64     `json:"-"         db:"github_id"`
	Subscribers  []string  `json:"subscribers,omitempty"` // user ids following this user
	Following    []string  `json:"following,omitempty"`   // user ids this user follows
	Preferences  []string  `json:"preferences,omitempty"` // genre multiset, insertion order
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// PublicProfile is the subset of a user record exposed to other users.
type PublicProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar"`
}

// Public returns the externally visible view of the user.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}
}
