// Package levenshtein measures edit distance for the typo probe.
package levenshtein

// Distance computes the optimal string alignment distance between two
// strings: Levenshtein extended with adjacent transpositions, so swapped
// neighbours ("gmial" for "gmail") cost one edit instead of two. Runs in
// O(m*n) time with three rows of memory, comparing runes rather than
// bytes.
func Distance(s, t string) int {
	sr := []rune(s)
	tr := []rune(t)

	if len(sr) == 0 {
		return len(tr)
	}
	if len(tr) == 0 {
		return len(sr)
	}

	// The shorter string spans the rows.
	if len(sr) > len(tr) {
		sr, tr = tr, sr
	}

	prev2 := make([]int, len(sr)+1)
	prev := make([]int, len(sr)+1)
	curr := make([]int, len(sr)+1)

	for i := range prev {
		prev[i] = i
	}

	for j, tc := range tr {
		curr[0] = j + 1
		for i, sc := range sr {
			cost := 1
			if sc == tc {
				cost = 0
			}
			d := min3(
				curr[i]+1,    // deletion
				prev[i+1]+1,  // insertion
				prev[i]+cost, // substitution
			)
			// Adjacent transposition.
			if i > 0 && j > 0 && sc == tr[j-1] && sr[i-1] == tc {
				if alt := prev2[i-1] + 1; alt < d {
					d = alt
				}
			}
			curr[i+1] = d
		}
		prev2, prev, curr = prev, curr, prev2
	}

	return prev[len(sr)]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
