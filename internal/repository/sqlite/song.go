package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/gravix/backend/internal/apperror"
	"github.com/gravix/backend/internal/model"
	"github.com/gravix/backend/internal/repository"
)

// compile-time check that *SongDB implements repository.SongRepository
var _ repository.SongRepository = (*SongDB)(nil)

// SongDB is the song-facing slice of the store.
type SongDB struct {
	db *DB
}

const songColumns = `id, title, description, lyrics, image_url, media_url, author, author_id, duration, release_year, rating, created_at, updated_at`

// Create inserts a song with its ordered genre tags.
func (s *SongDB) Create(ctx context.Context, song *model.Song) error {
	now := time.Now()
	song.ID = xid.New().String()
	song.CreatedAt = now
	song.UpdatedAt = now

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning song insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO songs (id, title, description, lyrics, image_url, media_url, author, author_id, duration, release_year, rating, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		song.ID,
		song.Title,
		song.Description,
		song.Lyrics,
		song.ImageURL,
		song.MediaURL,
		song.Author,
		song.AuthorID,
		song.Duration,
		song.ReleaseYear,
		song.Rating,
		song.CreatedAt,
		song.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting song %q: %w", song.Title, err)
	}

	if err := replaceGenres(ctx, tx, song.ID, song.Genres); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing song insert: %w", err)
	}
	return nil
}

// GetByID retrieves a song with genres and likes populated.
func (s *SongDB) GetByID(ctx context.Context, id string) (*model.Song, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE id = ?`, id)

	song, err := scanSong(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("song", id)
		}
		return nil, fmt.Errorf("sqlite: getting song %s: %w", id, err)
	}

	if err := s.loadRelations(ctx, song); err != nil {
		return nil, err
	}
	return song, nil
}

// ListByAuthor returns the author's songs in upload order.
func (s *SongDB) ListByAuthor(ctx context.Context, author string) ([]model.Song, error) {
	return s.listSongs(ctx,
		`SELECT `+songColumns+` FROM songs WHERE author = ? ORDER BY created_at, id`, author)
}

// ListByGenre returns every song tagged with the genre, in upload order.
// The order matters: affinity scoring breaks ties by first-encounter order.
func (s *SongDB) ListByGenre(ctx context.Context, genre string) ([]model.Song, error) {
	return s.listSongs(ctx,
		`SELECT s.id, s.title, s.description, s.lyrics, s.image_url, s.media_url, s.author, s.author_id, s.duration, s.release_year, s.rating, s.created_at, s.updated_at
		 FROM songs s
		 JOIN song_genres g ON g.song_id = s.id
		 WHERE g.genre = ?
		 ORDER BY s.created_at, s.id`, genre)
}

// ListByAnyGenre returns songs whose genre set intersects genres.
// An empty genre list matches nothing, never the whole catalog.
func (s *SongDB) ListByAnyGenre(ctx context.Context, genres []string) ([]model.Song, error) {
	if len(genres) == 0 {
		return []model.Song{}, nil
	}

	args := make([]any, len(genres))
	for i, g := range genres {
		args[i] = g
	}

	return s.listSongs(ctx,
		`SELECT DISTINCT s.id, s.title, s.description, s.lyrics, s.image_url, s.media_url, s.author, s.author_id, s.duration, s.release_year, s.rating, s.created_at, s.updated_at
		 FROM songs s
		 JOIN song_genres g ON g.song_id = s.id
		 WHERE g.genre IN (`+placeholders(len(genres))+`)
		 ORDER BY s.created_at, s.id`, args...)
}

// ListByAuthorIDs returns songs authored by any of the given users.
func (s *SongDB) ListByAuthorIDs(ctx context.Context, authorIDs []string) ([]model.Song, error) {
	if len(authorIDs) == 0 {
		return []model.Song{}, nil
	}

	args := make([]any, len(authorIDs))
	for i, id := range authorIDs {
		args[i] = id
	}

	return s.listSongs(ctx,
		`SELECT `+songColumns+` FROM songs
		 WHERE author_id IN (`+placeholders(len(authorIDs))+`)
		 ORDER BY created_at, id`, args...)
}

// Update rewrites the song row and its genre tags. The service is expected
// to have loaded the song and checked ownership first.
func (s *SongDB) Update(ctx context.Context, song *model.Song) error {
	song.UpdatedAt = time.Now()

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning song update: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE songs SET title = ?, description = ?, lyrics = ?, image_url = ?, media_url = ?, duration = ?, release_year = ?, rating = ?, updated_at = ?
		 WHERE id = ?`,
		song.Title,
		song.Description,
		song.Lyrics,
		song.ImageURL,
		song.MediaURL,
		song.Duration,
		song.ReleaseYear,
		song.Rating,
		song.UpdatedAt,
		song.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating song %s: %w", song.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("song", song.ID)
	}

	if err := replaceGenres(ctx, tx, song.ID, song.Genres); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing song update: %w", err)
	}
	return nil
}

// Delete removes the song only when ownerID matches. Missing and not-owned
// are indistinguishable on purpose: both report NotFound.
func (s *SongDB) Delete(ctx context.Context, id, ownerID string) error {
	res, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM songs WHERE id = ? AND author_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting song %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("song", id)
	}
	return nil
}

// Like adds userID to the song's like set and appends every genre tag of
// the song to the user's preference multiset in one transaction, so a
// crash cannot record the like without the preference weight or vice
// versa. Liking an already-liked song conflicts and changes nothing.
func (s *SongDB) Like(ctx context.Context, songID, userID string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning like: %w", err)
	}
	defer tx.Rollback()

	genres, err := txGenres(ctx, tx, songID)
	if err != nil {
		return err
	}
	if len(genres) == 0 {
		// No genre rows means no song row (genres are mandatory on create).
		return apperror.NotFound("song", songID)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO song_likes (song_id, user_id) VALUES (?, ?)`,
		songID, userID)
	if err != nil {
		return fmt.Errorf("sqlite: inserting like for song %s: %w", songID, err)
	}
	// The primary key makes the insert a no-op when the like already
	// exists. Of two concurrent likes, exactly one inserts the row.
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.Conflict("song already liked")
	}

	for _, genre := range genres {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO preferences (user_id, genre) VALUES (?, ?)`,
			userID, genre); err != nil {
			return fmt.Errorf("sqlite: appending preference %q for %s: %w", genre, userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing like: %w", err)
	}
	return nil
}

// Unlike removes userID from the song's like set and removes ONE occurrence
// of each song genre from the user's preference multiset, oldest first.
// Other likes' contributions to the same genre survive. Unliking a song
// that isn't liked conflicts.
func (s *SongDB) Unlike(ctx context.Context, songID, userID string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning unlike: %w", err)
	}
	defer tx.Rollback()

	genres, err := txGenres(ctx, tx, songID)
	if err != nil {
		return err
	}
	if len(genres) == 0 {
		return apperror.NotFound("song", songID)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM song_likes WHERE song_id = ? AND user_id = ?`,
		songID, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting like for song %s: %w", songID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.Conflict("song not liked")
	}

	for _, genre := range genres {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM preferences
			 WHERE seq = (SELECT MIN(seq) FROM preferences WHERE user_id = ? AND genre = ?)`,
			userID, genre); err != nil {
			return fmt.Errorf("sqlite: removing preference %q for %s: %w", genre, userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing unlike: %w", err)
	}
	return nil
}

// PopularExcluding ranks songs by like count, leaving out the requester's
// own uploads. Ties break on id ascending so the order is deterministic.
func (s *SongDB) PopularExcluding(ctx context.Context, excludeAuthorID string, limit int) ([]model.Song, error) {
	return s.listSongs(ctx,
		`SELECT s.id, s.title, s.description, s.lyrics, s.image_url, s.media_url, s.author, s.author_id, s.duration, s.release_year, s.rating, s.created_at, s.updated_at
		 FROM songs s
		 LEFT JOIN song_likes l ON l.song_id = s.id
		 WHERE s.author_id != ?
		 GROUP BY s.id
		 ORDER BY COUNT(l.user_id) DESC, s.id ASC
		 LIMIT ?`,
		excludeAuthorID, limit)
}

// RandomByAuthorIDs samples up to n songs uniformly from the given authors.
func (s *SongDB) RandomByAuthorIDs(ctx context.Context, authorIDs []string, n int) ([]model.Song, error) {
	if len(authorIDs) == 0 {
		return []model.Song{}, nil
	}

	args := make([]any, 0, len(authorIDs)+1)
	for _, id := range authorIDs {
		args = append(args, id)
	}
	args = append(args, n)

	return s.listSongs(ctx,
		`SELECT `+songColumns+` FROM songs
		 WHERE author_id IN (`+placeholders(len(authorIDs))+`)
		 ORDER BY RANDOM()
		 LIMIT ?`, args...)
}

// SearchByTitlePrefix matches song titles by prefix, case-insensitively.
func (s *SongDB) SearchByTitlePrefix(ctx context.Context, prefix string) ([]model.Song, error) {
	return s.listSongs(ctx,
		`SELECT `+songColumns+` FROM songs
		 WHERE title LIKE ? ESCAPE '\'
		 ORDER BY title`,
		escapeLike(prefix)+"%")
}

func (s *SongDB) listSongs(ctx context.Context, query string, args ...any) ([]model.Song, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing songs: %w", err)
	}
	defer rows.Close()

	songs := []model.Song{}
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning song row: %w", err)
		}
		songs = append(songs, *song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating song rows: %w", err)
	}

	for i := range songs {
		if err := s.loadRelations(ctx, &songs[i]); err != nil {
			return nil, err
		}
	}
	return songs, nil
}

func (s *SongDB) loadRelations(ctx context.Context, song *model.Song) error {
	var err error
	song.Genres, err = s.db.stringColumn(ctx,
		`SELECT genre FROM song_genres WHERE song_id = ? ORDER BY position`, song.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading genres for song %s: %w", song.ID, err)
	}

	song.Likes, err = s.db.stringColumn(ctx,
		`SELECT user_id FROM song_likes WHERE song_id = ? ORDER BY created_at, user_id`, song.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading likes for song %s: %w", song.ID, err)
	}
	return nil
}

// replaceGenres rewrites a song's genre tags, de-duplicating while keeping
// first-occurrence order.
func replaceGenres(ctx context.Context, tx *sql.Tx, songID string, genres []string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM song_genres WHERE song_id = ?`, songID); err != nil {
		return fmt.Errorf("sqlite: clearing genres for song %s: %w", songID, err)
	}

	pos := 0
	seen := make(map[string]bool, len(genres))
	for _, genre := range genres {
		if seen[genre] {
			continue
		}
		seen[genre] = true
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO song_genres (song_id, genre, position) VALUES (?, ?, ?)`,
			songID, genre, pos); err != nil {
			return fmt.Errorf("sqlite: inserting genre %q for song %s: %w", genre, songID, err)
		}
		pos++
	}
	return nil
}

func txGenres(ctx context.Context, tx *sql.Tx, songID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT genre FROM song_genres WHERE song_id = ? ORDER BY position`, songID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading genres for song %s: %w", songID, err)
	}
	defer rows.Close()

	genres := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

func scanSong(sc scanner) (*model.Song, error) {
	var song model.Song
	err := sc.Scan(
		&song.ID,
		&song.Title,
		&song.Description,
		&song.Lyrics,
		&song.ImageURL,
		&song.MediaURL,
		&song.Author,
		&song.AuthorID,
		&song.Duration,
		&song.ReleaseYear,
		&song.Rating,
		&song.CreatedAt,
		&song.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &song, nil
}

// placeholders returns "?, ?, ..." with n markers for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
