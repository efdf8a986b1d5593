// Package sqlite implements the repository interfaces on an embedded SQLite
// database (modernc.org/sqlite, pure Go, no C toolchain needed).
//
// The document-ish schema the API exposes (users with preference multisets
// and follow lists, songs with genre and like arrays, playlists with ordered
// song references) is mapped onto side tables:
//
//	users           accounts
//	follows         (follower_id, followee_id): one row per follow edge
//	preferences     (seq, user_id, genre): genre MULTISET; seq keeps
//	                insertion order so "remove one occurrence" is well defined
//	songs           tracks, plus song_genres (ordered) and song_likes (set)
//	playlists       plus playlist_songs (ordered, unique) and playlist_likes
//
// playlist_songs carries no foreign key to songs: deleting a song must not
// cascade out of playlists, so stale references stay and reads skip them.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository
// interfaces. The server owns the lifecycle: opened once at startup, closed
// after the HTTP drain on shutdown.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath (":memory:" works for tests), verifies
// the connection and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight, needed for a web
	// server where requests hit the DB concurrently.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool, flushing the WAL.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the user repository backed by this connection.
func (db *DB) Users() *UserDB { return &UserDB{db: db} }

// Songs returns the song repository backed by this connection.
func (db *DB) Songs() *SongDB { return &SongDB{db: db} }

// Playlists returns the playlist repository backed by this connection.
func (db *DB) Playlists() *PlaylistDB { return &PlaylistDB{db: db} }

// stringColumn runs a single-column query and collects the values.
func (db *DB) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) migrate() error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				username      TEXT NOT NULL UNIQUE,
				email         TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL DEFAULT '',
				avatar_url    TEXT NOT NULL DEFAULT '',
				github_id     INTEGER UNIQUE,
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`},
		{"follows", `
			CREATE TABLE IF NOT EXISTS follows (
				follower_id TEXT NOT NULL REFERENCES users(id),
				followee_id TEXT NOT NULL REFERENCES users(id),
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (follower_id, followee_id)
			);
			CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(followee_id);
		`},
		{"preferences", `
			CREATE TABLE IF NOT EXISTS preferences (
				seq     INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL REFERENCES users(id),
				genre   TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_preferences_user ON preferences(user_id);
		`},
		{"songs", `
			CREATE TABLE IF NOT EXISTS songs (
				id           TEXT PRIMARY KEY,
				title        TEXT NOT NULL,
				description  TEXT NOT NULL DEFAULT '',
				lyrics       TEXT NOT NULL DEFAULT '',
				image_url    TEXT NOT NULL DEFAULT '',
				media_url    TEXT NOT NULL DEFAULT '',
				author       TEXT NOT NULL,
				author_id    TEXT NOT NULL,
				duration     TEXT NOT NULL DEFAULT '',
				release_year TEXT NOT NULL DEFAULT '',
				rating       REAL NOT NULL DEFAULT 0,
				created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_songs_author ON songs(author);
			CREATE INDEX IF NOT EXISTS idx_songs_author_id ON songs(author_id);
		`},
		{"song_genres", `
			CREATE TABLE IF NOT EXISTS song_genres (
				song_id  TEXT NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
				genre    TEXT NOT NULL,
				position INTEGER NOT NULL,
				PRIMARY KEY (song_id, genre)
			);
			CREATE INDEX IF NOT EXISTS idx_song_genres_genre ON song_genres(genre);
		`},
		{"song_likes", `
			CREATE TABLE IF NOT EXISTS song_likes (
				song_id    TEXT NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
				user_id    TEXT NOT NULL REFERENCES users(id),
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (song_id, user_id)
			);
		`},
		{"playlists", `
			CREATE TABLE IF NOT EXISTS playlists (
				id         TEXT PRIMARY KEY,
				owner_id   TEXT NOT NULL REFERENCES users(id),
				name       TEXT NOT NULL,
				visibility TEXT NOT NULL CHECK (visibility IN ('PUBLIC', 'PRIVATE')),
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_playlists_owner ON playlists(owner_id);
		`},
		{"playlist_songs", `
			-- No FK to songs: deleting a song must not cascade here.
			CREATE TABLE IF NOT EXISTS playlist_songs (
				playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
				song_id     TEXT NOT NULL,
				position    INTEGER NOT NULL,
				PRIMARY KEY (playlist_id, song_id)
			);
		`},
		{"playlist_likes", `
			CREATE TABLE IF NOT EXISTS playlist_likes (
				playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
				user_id     TEXT NOT NULL REFERENCES users(id),
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (playlist_id, user_id)
			);
		`},
	}

	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt.sql); err != nil {
			return fmt.Errorf("creating %s: %w", stmt.name, err)
		}
	}

	return nil
}
