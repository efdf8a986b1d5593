// Package recommend contains the pure ranking logic behind the artist
// recommendation endpoint: genre-affinity scoring and fair-allocation
// selection.
//
// The package deliberately knows nothing about HTTP or the database. The
// service layer fetches songs and resolves usernames, then hands plain
// slices to these functions, which makes the algorithm testable without any
// infrastructure.
//
// Ordering is part of the contract everywhere in this package. Scoring
// preserves first-encounter order among equal counts (stable sort), and
// selection walks genres in their requested order. Callers must not re-sort
// the outputs.
package recommend

// Artist identifies a resolvable song author.
type Artist struct {
	ID       string
	Username string
	Avatar   string
}

// Score is one artist's affinity for one genre: the number of their songs
// tagged with it.
type Score struct {
	Artist
	Genre     string
	SongCount int
}

// ScoreGenre ranks the authors of a genre's songs by how many songs each of
// them has in it.
//
// authors holds the author username of every song tagged with the genre, one
// element per song, in store order; duplicates are the signal being counted.
// resolve maps a username to a user record; authors it cannot resolve are
// silently dropped (a song whose uploader was deleted still exists, but
// cannot be recommended as an artist).
//
// The result is sorted by SongCount descending; authors with equal counts
// keep their first-encounter order.
func ScoreGenre(genre string, authors []string, resolve func(username string) (Artist, bool)) []Score {
	counts := make(map[string]int, len(authors))
	order := make([]string, 0, len(authors))
	for _, username := range authors {
		if _, seen := counts[username]; !seen {
			order = append(order, username)
		}
		counts[username]++
	}

	scores := make([]Score, 0, len(order))
	for _, username := range order {
		artist, ok := resolve(username)
		if !ok {
			continue
		}
		scores = append(scores, Score{
			Artist:    artist,
			Genre:     genre,
			SongCount: counts[username],
		})
	}

	sortByCountStable(scores)
	return scores
}
