package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/gravix/backend/internal/apperror"
	"github.com/gravix/backend/internal/model"
	"github.com/gravix/backend/internal/repository"
)

// compile-time check that *PlaylistDB implements repository.PlaylistRepository
var _ repository.PlaylistRepository = (*PlaylistDB)(nil)

// PlaylistDB is the playlist-facing slice of the store.
type PlaylistDB struct {
	db *DB
}

const playlistColumns = `id, owner_id, name, visibility, created_at, updated_at`

// Create inserts a playlist with its initial song membership.
func (p *PlaylistDB) Create(ctx context.Context, playlist *model.Playlist) error {
	now := time.Now()
	playlist.ID = xid.New().String()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now

	tx, err := p.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning playlist insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO playlists (id, owner_id, name, visibility, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		playlist.ID,
		playlist.OwnerID,
		playlist.Name,
		playlist.Visibility,
		playlist.CreatedAt,
		playlist.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting playlist %q: %w", playlist.Name, err)
	}

	if err := replacePlaylistSongs(ctx, tx, playlist.ID, playlist.SongIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing playlist insert: %w", err)
	}

	return p.loadRelations(ctx, playlist)
}

// GetByID retrieves a playlist with song references resolved and likes
// populated.
func (p *PlaylistDB) GetByID(ctx context.Context, id string) (*model.Playlist, error) {
	row := p.db.conn.QueryRowContext(ctx,
		`SELECT `+playlistColumns+` FROM playlists WHERE id = ?`, id)

	playlist, err := scanPlaylist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("playlist", id)
		}
		return nil, fmt.Errorf("sqlite: getting playlist %s: %w", id, err)
	}

	if err := p.loadRelations(ctx, playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

// ListByOwner returns all of a user's playlists, newest first.
func (p *PlaylistDB) ListByOwner(ctx context.Context, ownerID string) ([]model.Playlist, error) {
	return p.listPlaylists(ctx,
		`SELECT `+playlistColumns+` FROM playlists
		 WHERE owner_id = ?
		 ORDER BY created_at DESC, id`, ownerID)
}

// ListPublicByOwner returns only the user's PUBLIC playlists. Used when
// someone else is browsing their profile.
func (p *PlaylistDB) ListPublicByOwner(ctx context.Context, ownerID string) ([]model.Playlist, error) {
	return p.listPlaylists(ctx,
		`SELECT `+playlistColumns+` FROM playlists
		 WHERE owner_id = ? AND visibility = ?
		 ORDER BY created_at DESC, id`, ownerID, model.VisibilityPublic)
}

// ListPublic returns every PUBLIC playlist.
func (p *PlaylistDB) ListPublic(ctx context.Context) ([]model.Playlist, error) {
	return p.listPlaylists(ctx,
		`SELECT `+playlistColumns+` FROM playlists
		 WHERE visibility = ?
		 ORDER BY created_at DESC, id`, model.VisibilityPublic)
}

// Update rewrites the playlist row and its song membership, guarded by the
// owner predicate. A playlist that exists but belongs to someone else reads
// the same as one that doesn't exist.
func (p *PlaylistDB) Update(ctx context.Context, playlist *model.Playlist) error {
	playlist.UpdatedAt = time.Now()

	tx, err := p.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning playlist update: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE playlists SET name = ?, visibility = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		playlist.Name,
		playlist.Visibility,
		playlist.UpdatedAt,
		playlist.ID,
		playlist.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating playlist %s: %w", playlist.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("playlist", playlist.ID)
	}

	if err := replacePlaylistSongs(ctx, tx, playlist.ID, playlist.SongIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing playlist update: %w", err)
	}

	return p.loadRelations(ctx, playlist)
}

// Delete removes the playlist when ownerID matches; otherwise NotFound.
func (p *PlaylistDB) Delete(ctx context.Context, id, ownerID string) error {
	res, err := p.db.conn.ExecContext(ctx,
		`DELETE FROM playlists WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting playlist %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("playlist", id)
	}
	return nil
}

// AddSong appends a song reference at the end. Adding a song that is
// already in the playlist is a no-op.
func (p *PlaylistDB) AddSong(ctx context.Context, playlistID, ownerID, songID string) error {
	if err := p.checkOwner(ctx, playlistID, ownerID); err != nil {
		return err
	}

	_, err := p.db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO playlist_songs (playlist_id, song_id, position)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM playlist_songs WHERE playlist_id = ?))`,
		playlistID, songID, playlistID)
	if err != nil {
		return fmt.Errorf("sqlite: adding song %s to playlist %s: %w", songID, playlistID, err)
	}

	return p.touch(ctx, playlistID)
}

// RemoveSong drops the song reference. Removing a song that isn't in the
// playlist is a no-op.
func (p *PlaylistDB) RemoveSong(ctx context.Context, playlistID, ownerID, songID string) error {
	if err := p.checkOwner(ctx, playlistID, ownerID); err != nil {
		return err
	}

	_, err := p.db.conn.ExecContext(ctx,
		`DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?`,
		playlistID, songID)
	if err != nil {
		return fmt.Errorf("sqlite: removing song %s from playlist %s: %w", songID, playlistID, err)
	}

	return p.touch(ctx, playlistID)
}

// Like adds userID to the playlist's like set. Duplicate likes conflict.
func (p *PlaylistDB) Like(ctx context.Context, playlistID, userID string) error {
	if err := p.checkExists(ctx, playlistID); err != nil {
		return err
	}

	res, err := p.db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO playlist_likes (playlist_id, user_id) VALUES (?, ?)`,
		playlistID, userID)
	if err != nil {
		return fmt.Errorf("sqlite: inserting like for playlist %s: %w", playlistID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.Conflict("playlist already liked")
	}
	return nil
}

// Unlike removes userID from the like set; a like that isn't there conflicts.
func (p *PlaylistDB) Unlike(ctx context.Context, playlistID, userID string) error {
	if err := p.checkExists(ctx, playlistID); err != nil {
		return err
	}

	res, err := p.db.conn.ExecContext(ctx,
		`DELETE FROM playlist_likes WHERE playlist_id = ? AND user_id = ?`,
		playlistID, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting like for playlist %s: %w", playlistID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.Conflict("playlist not liked")
	}
	return nil
}

// PopularExcluding ranks PUBLIC playlists by like count, leaving out the
// requester's own. Ties break on id ascending.
func (p *PlaylistDB) PopularExcluding(ctx context.Context, excludeOwnerID string, limit int) ([]model.Playlist, error) {
	return p.listPlaylists(ctx,
		`SELECT p.id, p.owner_id, p.name, p.visibility, p.created_at, p.updated_at
		 FROM playlists p
		 LEFT JOIN playlist_likes l ON l.playlist_id = p.id
		 WHERE p.owner_id != ? AND p.visibility = ?
		 GROUP BY p.id
		 ORDER BY COUNT(l.user_id) DESC, p.id ASC
		 LIMIT ?`,
		excludeOwnerID, model.VisibilityPublic, limit)
}

// SearchByNamePrefix matches PUBLIC playlist names by prefix,
// case-insensitively.
func (p *PlaylistDB) SearchByNamePrefix(ctx context.Context, prefix string) ([]model.Playlist, error) {
	return p.listPlaylists(ctx,
		`SELECT `+playlistColumns+` FROM playlists
		 WHERE visibility = ? AND name LIKE ? ESCAPE '\'
		 ORDER BY name`,
		model.VisibilityPublic, escapeLike(prefix)+"%")
}

func (p *PlaylistDB) checkOwner(ctx context.Context, playlistID, ownerID string) error {
	var owner string
	err := p.db.conn.QueryRowContext(ctx,
		`SELECT owner_id FROM playlists WHERE id = ?`, playlistID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != ownerID) {
		return apperror.NotFound("playlist", playlistID)
	}
	if err != nil {
		return fmt.Errorf("sqlite: checking playlist %s owner: %w", playlistID, err)
	}
	return nil
}

func (p *PlaylistDB) checkExists(ctx context.Context, playlistID string) error {
	var one int
	err := p.db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM playlists WHERE id = ?`, playlistID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("playlist", playlistID)
	}
	if err != nil {
		return fmt.Errorf("sqlite: checking playlist %s: %w", playlistID, err)
	}
	return nil
}

func (p *PlaylistDB) touch(ctx context.Context, playlistID string) error {
	_, err := p.db.conn.ExecContext(ctx,
		`UPDATE playlists SET updated_at = ? WHERE id = ?`, time.Now(), playlistID)
	if err != nil {
		return fmt.Errorf("sqlite: touching playlist %s: %w", playlistID, err)
	}
	return nil
}

func (p *PlaylistDB) listPlaylists(ctx context.Context, query string, args ...any) ([]model.Playlist, error) {
	rows, err := p.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing playlists: %w", err)
	}
	defer rows.Close()

	playlists := []model.Playlist{}
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning playlist row: %w", err)
		}
		playlists = append(playlists, *playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating playlist rows: %w", err)
	}

	for i := range playlists {
		if err := p.loadRelations(ctx, &playlists[i]); err != nil {
			return nil, err
		}
	}
	return playlists, nil
}

// loadRelations fills SongIDs, the resolved Songs and the like set.
// References to songs that have since been deleted stay in SongIDs but are
// skipped in Songs.
func (p *PlaylistDB) loadRelations(ctx context.Context, playlist *model.Playlist) error {
	var err error
	playlist.SongIDs, err = p.db.stringColumn(ctx,
		`SELECT song_id FROM playlist_songs WHERE playlist_id = ? ORDER BY position`, playlist.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading songs for playlist %s: %w", playlist.ID, err)
	}

	playlist.Likes, err = p.db.stringColumn(ctx,
		`SELECT user_id FROM playlist_likes WHERE playlist_id = ? ORDER BY created_at, user_id`, playlist.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading likes for playlist %s: %w", playlist.ID, err)
	}

	playlist.Songs, err = p.resolveSongs(ctx, playlist.SongIDs)
	return err
}

// resolveSongs fetches the referenced songs, preserving playlist order and
// dropping dangling ids.
func (p *PlaylistDB) resolveSongs(ctx context.Context, songIDs []string) ([]model.Song, error) {
	if len(songIDs) == 0 {
		return []model.Song{}, nil
	}

	args := make([]any, len(songIDs))
	for i, id := range songIDs {
		args[i] = id
	}

	songs := &SongDB{db: p.db}
	found, err := songs.listSongs(ctx,
		`SELECT `+songColumns+` FROM songs
		 WHERE id IN (`+placeholders(len(songIDs))+`)`, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Song, len(found))
	for _, song := range found {
		byID[song.ID] = song
	}

	resolved := make([]model.Song, 0, len(songIDs))
	for _, id := range songIDs {
		if song, ok := byID[id]; ok {
			resolved = append(resolved, song)
		}
	}
	return resolved, nil
}

// replacePlaylistSongs rewrites the membership list, de-duplicating while
// keeping first-occurrence order.
func replacePlaylistSongs(ctx context.Context, tx *sql.Tx, playlistID string, songIDs []string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM playlist_songs WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("sqlite: clearing songs for playlist %s: %w", playlistID, err)
	}

	pos := 0
	seen := make(map[string]bool, len(songIDs))
	for _, id := range songIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO playlist_songs (playlist_id, song_id, position) VALUES (?, ?, ?)`,
			playlistID, id, pos); err != nil {
			return fmt.Errorf("sqlite: inserting song %s into playlist %s: %w", id, playlistID, err)
		}
		pos++
	}
	return nil
}

func scanPlaylist(sc scanner) (*model.Playlist, error) {
	var playlist model.Playlist
	err := sc.Scan(
		&playlist.ID,
		&playlist.OwnerID,
		&playlist.Name,
		&playlist.Visibility,
		&playlist.CreatedAt,
		&playlist.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &playlist, nil
}
