package clientmatch

import (
	"sort"

	"freightdesk/internal"
)

// Index maps each normalized cell value to the positions of the source rows
// holding it, in scan order.
type Index struct {
	sources []internal.SourceRecord
	byCell  map[string][]int
}

func BuildIndex(sources []internal.SourceRecord) *Index {
	idx := &Index{
		sources: sources,
		byCell:  map[string][]int{},
	}
	for i, src := range sources {
		for _, c := range src.Cells {
			positions := idx.byCell[c]
			if n := len(positions); n > 0 && positions[n-1] == i {
				continue
			}
			idx.byCell[c] = append(positions, i)
		}
	}
	return idx
}

// Lookup returns the source positions matching any of keys, ascending and
// without duplicates.
func (idx *Index) Lookup(keys []string) []int {
	seen := map[int]struct{}{}
	out := []int{}
	for _, k := range keys {
		for _, pos := range idx.byCell[k] {
			if _, ok := seen[pos]; ok {
				continue
			}
			seen[pos] = struct{}{}
			out = append(out, pos)
		}
	}
	sort.Ints(out)
	return out
}

// Resolve is the indexed form of the package level Resolve and returns the
// same results.
func (idx *Index) Resolve(targets []internal.TargetRecord) ([]internal.ClientResolution, Stats) {
	out := make([]internal.ClientResolution, 0, len(targets))
	var stats Stats
	for _, t := range targets {
		var matched []int
		if keys := targetKeys(t); len(keys) > 0 {
			matched = idx.Lookup(keys)
		}
		res := resolution(idx.sources, matched)
		stats.add(res.Matches)
		out = append(out, res)
	}
	return out, stats
}
