package recommend

import "sort"

// DefaultLimit caps the selector's output.
const DefaultLimit = 10

// SelectFair picks up to limit artists from the per-genre scores in two
// phases:
//
//  1. Fairness pass: genres are walked in their requested order, and each
//     genre contributes its best not-yet-used artist (scores is already
//     ranked per genre, so the first unused match is the best one). An
//     artist used for an earlier genre is ineligible for later genres, even
//     if they also rank there.
//  2. Fill pass: all remaining scores, across genres, sorted by SongCount
//     descending (stable, so ties keep scoring order), appended until the
//     limit is reached.
//
// Every genre with at least one resolvable artist is therefore represented
// before any generic fill. A genre whose artists were all used by earlier
// genres simply contributes nothing; that is not an error.
//
// scores must be the concatenation of ScoreGenre results for the same genre
// list, in the same genre order.
func SelectFair(scores []Score, genres []string, limit int) []Score {
	if limit <= 0 {
		limit = DefaultLimit
	}

	selected := make([]Score, 0, limit)
	used := make(map[string]bool)

	for _, genre := range genres {
		if len(selected) >= limit {
			break
		}
		for _, s := range scores {
			if s.Genre == genre && !used[s.Username] {
				selected = append(selected, s)
				used[s.Username] = true
				break
			}
		}
	}

	remaining := make([]Score, 0, len(scores))
	for _, s := range scores {
		if !used[s.Username] {
			remaining = append(remaining, s)
		}
	}
	sortByCountStable(remaining)

	for _, s := range remaining {
		if len(selected) >= limit {
			break
		}
		selected = append(selected, s)
		used[s.Username] = true
	}

	return selected
}

// sortByCountStable orders scores by SongCount descending, preserving the
// incoming order among equal counts. The fairness guarantees depend on the
// stability, so both scoring and selection share this helper.
func sortByCountStable(scores []Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].SongCount > scores[j].SongCount
	})
}
