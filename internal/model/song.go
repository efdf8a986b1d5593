package model

import "time"

// Song represents an uploaded track.
//
// MediaURL and ImageURL point at an external object store; this server never
// touches the media bytes. Genres is ordered and must be non-empty. Likes has
// set semantics (one entry per user, enforced by the store).
//
// Author is denormalized: it holds the uploading user's username at upload
// time, alongside AuthorID. Ranking counts songs per Author (username) and
// resolves the username back to a user record afterwards.
type Song struct {
	ID          string    `json:"id"          db:"id"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	Lyrics      string    `json:"lyrics"      db:"lyrics"`
	ImageURL    string    `json:"image"       db:"image_url"`
	MediaURL    string    `json:"mediaUrl"    db:"media_url"`
	Genres      []string  `json:"genres"`
	Author      string    `json:"author"      db:"author"`
	AuthorID    string    `json:"authorID"    db:"author_id"`
	Duration    string    `json:"duration"    db:"duration"`
	ReleaseYear string    `json:"releaseYear" db:"release_year"`
	Rating      float64   `json:"rating"      db:"rating"`
	Likes       []string  `json:"likes"` // user ids, set semantics
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}
