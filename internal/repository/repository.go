// Package repository defines the storage contracts consumed by the service
// layer. The sqlite subpackage implements them; tests substitute in-memory
// fakes.
//
// The interfaces are the typed rendition of the abstract store operations
// the system needs: exact-match lookups, set-membership queries, partial
// updates guarded by an owner predicate, count-derived top-N aggregation,
// and uniform random sampling. Every method takes a context so a cancelled
// request abandons its queries.
package repository

import (
	"context"

	"github.com/gravix/backend/internal/model"
)

// UserRepository stores user accounts and the follow graph.
//
// Reads return users with Following, Subscribers and Preferences populated.
// Follow/Unfollow mutate the single underlying relation both views derive
// from, so the two sides cannot disagree.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHub inserts or refreshes an account keyed by its GitHub id.
	UpsertGitHub(ctx context.Context, user *model.User) error
	// UpdateProfile applies a partial patch; nil fields are left unchanged.
	UpdateProfile(ctx context.Context, id string, patch UserPatch) error
	// ListOthers returns every user except the given one.
	ListOthers(ctx context.Context, excludeID string) ([]model.User, error)
	// SearchByUsernamePrefix matches usernames case-insensitively by prefix.
	SearchByUsernamePrefix(ctx context.Context, prefix string) ([]model.User, error)
	// PopularBySubscribers returns up to limit users ranked by subscriber
	// count descending (ties: id ascending), excluding the requester.
	PopularBySubscribers(ctx context.Context, excludeID string, limit int) ([]model.User, error)
	// Follow records that follower now follows followee. Duplicate follows
	// conflict.
	Follow(ctx context.Context, followerID, followeeID string) error
	// Unfollow removes the relation. A missing relation conflicts.
	Unfollow(ctx context.Context, followerID, followeeID string) error
}

// UserPatch is the partial-update shape for UpdateProfile.
type UserPatch struct {
	Email     *string
	AvatarURL *string
}

// SongRepository stores songs, their genre tags and their like sets.
//
// Like and Unlike run the cross-record mutation (song like set + liker's
// genre preference multiset) as a single transaction: a like appends one
// preference entry per song genre, an unlike removes one occurrence per
// genre (oldest first). Duplicate transitions conflict.
type SongRepository interface {
	Create(ctx context.Context, song *model.Song) error
	GetByID(ctx context.Context, id string) (*model.Song, error)
	ListByAuthor(ctx context.Context, author string) ([]model.Song, error)
	// ListByGenre returns every song tagged with the genre, in upload order.
	ListByGenre(ctx context.Context, genre string) ([]model.Song, error)
	// ListByAnyGenre returns songs whose genre set intersects genres.
	// An empty genre list yields an empty result.
	ListByAnyGenre(ctx context.Context, genres []string) ([]model.Song, error)
	// ListByAuthorIDs returns songs authored by any of the given users.
	ListByAuthorIDs(ctx context.Context, authorIDs []string) ([]model.Song, error)
	Update(ctx context.Context, song *model.Song) error
	// Delete removes the song only when ownerID matches; otherwise NotFound.
	Delete(ctx context.Context, id, ownerID string) error
	Like(ctx context.Context, songID, userID string) error
	Unlike(ctx context.Context, songID, userID string) error
	// PopularExcluding returns up to limit songs ranked by like count
	// descending (ties: id ascending), excluding the author's own songs.
	PopularExcluding(ctx context.Context, excludeAuthorID string, limit int) ([]model.Song, error)
	// RandomByAuthorIDs samples up to n songs uniformly from the authors.
	RandomByAuthorIDs(ctx context.Context, authorIDs []string, n int) ([]model.Song, error)
	SearchByTitlePrefix(ctx context.Context, prefix string) ([]model.Song, error)
}

// PlaylistRepository stores playlists, their ordered song membership and
// their like sets. Reads resolve referenced songs, silently skipping ids
// whose song has since been deleted.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist *model.Playlist) error
	GetByID(ctx context.Context, id string) (*model.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Playlist, error)
	ListPublicByOwner(ctx context.Context, ownerID string) ([]model.Playlist, error)
	// ListPublic returns every PUBLIC playlist with its songs resolved.
	ListPublic(ctx context.Context) ([]model.Playlist, error)
	// Update rewrites name, visibility and song membership when ownerID
	// matches; otherwise NotFound.
	Update(ctx context.Context, playlist *model.Playlist) error
	Delete(ctx context.Context, id, ownerID string) error
	// AddSong appends a song reference if absent (idempotent, keeps order).
	AddSong(ctx context.Context, playlistID, ownerID, songID string) error
	RemoveSong(ctx context.Context, playlistID, ownerID, songID string) error
	Like(ctx context.Context, playlistID, userID string) error
	Unlike(ctx context.Context, playlistID, userID string) error
	// PopularExcluding returns up to limit PUBLIC playlists ranked by like
	// count descending (ties: id ascending), excluding the owner's own.
	PopularExcluding(ctx context.Context, excludeOwnerID string, limit int) ([]model.Playlist, error)
	SearchByNamePrefix(ctx context.Context, prefix string) ([]model.Playlist, error)
}
