package model

import "time"

// Playlist visibility values.
const (
	VisibilityPublic  = "PUBLIC"
	VisibilityPrivate = "PRIVATE"
)

// ValidVisibility reports whether v is one of the allowed visibility values.
func ValidVisibility(v string) bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Playlist is an ordered, de-duplicated list of song references owned by one
// user. SongIDs may reference songs that have since been deleted; deleting a
// song does not cascade into playlists, so readers resolve the ids and skip
// the ones that no longer exist.
type Playlist struct {
	ID         string    `json:"id"         db:"id"`
	OwnerID    string    `json:"ownerID"    db:"owner_id"`
	Name       string    `json:"name"       db:"name"`
	Visibility string    `json:"visibility" db:"visibility"`
	SongIDs    []string  `json:"songIds"`
	Songs      []Song    `json:"songs,omitempty"` // resolved records, when joined
	Likes      []string  `json:"likes"`           // user ids, set semantics
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt"  db:"updated_at"`
}
