package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gravix/backend/internal/apperror"
	"github.com/gravix/backend/internal/model"
	"github.com/gravix/backend/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the user-facing slice of the store. All wrappers share the one
// underlying connection, so cross-entity reads stay consistent.
type UserDB struct {
	db *DB
}

const userColumns = `id, username, email, password_hash, avatar_url, github_id, created_at, updated_at`

// Create inserts a new user account. The caller is expected to have checked
// username/email uniqueness already (that yields the precise Conflict
// message); the UNIQUE constraints remain as a backstop.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := u.db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, avatar_url, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.AvatarURL,
		nullableInt64(user.GitHubID),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetByID retrieves a user with the follow graph and preference multiset
// populated. Returns apperror.ErrNotFound if no such user exists.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return u.getUser(ctx, `WHERE id = ?`, id)
}

// GetByUsername retrieves a user by their unique username.
func (u *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return u.getUser(ctx, `WHERE username = ?`, username)
}

// GetByEmail retrieves a user by their unique email.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.getUser(ctx, `WHERE email = ?`, email)
}

func (u *UserDB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	row := u.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users `+where, arg)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user (%v): %w", arg, err)
	}

	if err := u.loadRelations(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// UpsertGitHub inserts or refreshes an account keyed by github_id. First
// login creates the account (username = GitHub login, suffixed if taken);
// later logins refresh email and avatar.
func (u *UserDB) UpsertGitHub(ctx context.Context, user *model.User) error {
	var existingID string
	err := u.db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if existingID != "" {
		user.ID = existingID
		user.UpdatedAt = time.Now()
		_, err = u.db.conn.ExecContext(ctx,
			`UPDATE users SET email = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
			user.Email, user.AvatarURL, user.UpdatedAt, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return u.loadRelations(ctx, user)
	}

	// New account. GitHub logins can collide with existing usernames, so
	// probe and suffix until free.
	username := user.Username
	for i := 1; ; i++ {
		var taken int
		err := u.db.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE username = ?`, username,
		).Scan(&taken)
		if err != nil {
			return fmt.Errorf("sqlite: checking username %q: %w", username, err)
		}
		if taken == 0 {
			break
		}
		username = fmt.Sprintf("%s-%d", user.Username, i)
	}
	user.Username = username

	return u.Create(ctx, user)
}

// UpdateProfile applies a partial patch. Nil fields stay untouched.
func (u *UserDB) UpdateProfile(ctx context.Context, id string, patch repository.UserPatch) error {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.AvatarURL != nil {
		sets = append(sets, "avatar_url = ?")
		args = append(args, *patch.AvatarURL)
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now(), id)

	res, err := u.db.conn.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// ListOthers returns every user except excludeID, username order.
func (u *UserDB) ListOthers(ctx context.Context, excludeID string) ([]model.User, error) {
	return u.listUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE id != ? ORDER BY username`, excludeID)
}

// SearchByUsernamePrefix matches usernames by prefix. SQLite's LIKE is
// case-insensitive for ASCII out of the box, which matches the original
// anchored case-insensitive regex.
func (u *UserDB) SearchByUsernamePrefix(ctx context.Context, prefix string) ([]model.User, error) {
	return u.listUsers(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE username LIKE ? ESCAPE '\'
		 ORDER BY username`,
		escapeLike(prefix)+"%")
}

// PopularBySubscribers ranks users by how many followers they have,
// excluding the requester. Ties break on id ascending so the order is
// deterministic across runs.
func (u *UserDB) PopularBySubscribers(ctx context.Context, excludeID string, limit int) ([]model.User, error) {
	return u.listUsers(ctx,
		`SELECT u.id, u.username, u.email, u.password_hash, u.avatar_url, u.github_id, u.created_at, u.updated_at
		 FROM users u
		 LEFT JOIN follows f ON f.followee_id = u.id
		 WHERE u.id != ?
		 GROUP BY u.id
		 ORDER BY COUNT(f.follower_id) DESC, u.id ASC
		 LIMIT ?`,
		excludeID, limit)
}

// Follow records that follower now follows followee. Following someone
// twice conflicts.
func (u *UserDB) Follow(ctx context.Context, followerID, followeeID string) error {
	var exists int
	err := u.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: checking follow %s -> %s: %w", followerID, followeeID, err)
	}
	if exists > 0 {
		return apperror.Conflict("already following this user")
	}

	_, err = u.db.conn.ExecContext(ctx,
		`INSERT INTO follows (follower_id, followee_id) VALUES (?, ?)`,
		followerID, followeeID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting follow %s -> %s: %w", followerID, followeeID, err)
	}
	return nil
}

// Unfollow removes the relation; unfollowing someone not followed conflicts.
func (u *UserDB) Unfollow(ctx context.Context, followerID, followeeID string) error {
	res, err := u.db.conn.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting follow %s -> %s: %w", followerID, followeeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.Conflict("not following this user")
	}
	return nil
}

// loadRelations fills Following, Subscribers and Preferences.
// Preferences come back in seq order, the multiset's insertion order.
func (u *UserDB) loadRelations(ctx context.Context, user *model.User) error {
	var err error
	user.Following, err = u.db.stringColumn(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = ? ORDER BY created_at, followee_id`, user.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading following for %s: %w", user.ID, err)
	}

	user.Subscribers, err = u.db.stringColumn(ctx,
		`SELECT follower_id FROM follows WHERE followee_id = ? ORDER BY created_at, follower_id`, user.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading subscribers for %s: %w", user.ID, err)
	}

	user.Preferences, err = u.db.stringColumn(ctx,
		`SELECT genre FROM preferences WHERE user_id = ? ORDER BY seq`, user.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading preferences for %s: %w", user.ID, err)
	}

	return nil
}

func (u *UserDB) listUsers(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := u.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}

	for i := range users {
		if err := u.loadRelations(ctx, &users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	var githubID sql.NullInt64

	err := s.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.AvatarURL,
		&githubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.GitHubID = githubID.Int64
	return &u, nil
}

func nullableInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

// escapeLike escapes LIKE wildcards in user-supplied prefixes.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
