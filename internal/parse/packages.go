package parse

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

const packagePrefix = "package:"

// MatchPackages returns the non-empty lines of `pm list packages` output that
// contain term.
func MatchPackages(output, term string) []string {
	matches := make([]string, 0)
	for _, line := range splitLines(output) {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Contains(line, term) {
			matches = append(matches, line)
		}
	}
	return matches
}

// ClosestPackages ranks package names by edit distance to term and returns at
// most limit of them. Ties keep listing order.
func ClosestPackages(output, term string, limit int) []string {
	if limit <= 0 || term == "" {
		return nil
	}
	type scored struct {
		name string
		dist int
	}
	candidates := make([]scored, 0)
	for _, line := range splitLines(output) {
		name := strings.TrimPrefix(strings.TrimSpace(line), packagePrefix)
		if name == "" {
			continue
		}
		candidates = append(candidates, scored{name: name, dist: packageDistance(name, term)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.name)
	}
	return out
}

// packageDistance compares term against the whole name and each dotted
// segment, so "chrome" is close to "com.android.chrome".
func packageDistance(name, term string) int {
	term = strings.ToLower(term)
	best := levenshtein.ComputeDistance(strings.ToLower(name), term)
	for _, seg := range strings.Split(name, ".") {
		if d := levenshtein.ComputeDistance(strings.ToLower(seg), term); d < best {
			best = d
		}
	}
	return best
}
