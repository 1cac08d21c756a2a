package analytics

import "sort"

// RankEntry is one (label, count) row of a ranking. Name is an optional display
// name filled in from the QR catalog.
type RankEntry struct {
	Label string `json:"label"`
	Name  string `json:"name,omitempty"`
	Count int    `json:"count"`
}

// ranker counts labels while remembering the order they were first seen in.
type ranker struct {
	counts map[string]int
	order  []string
}

func newRanker() *ranker {
	return &ranker{counts: make(map[string]int)}
}

func (r *ranker) add(label string) {
	if _, seen := r.counts[label]; !seen {
		r.order = append(r.order, label)
	}
	r.counts[label]++
}

// ranked orders by count descending. Equal counts keep first-seen order. A limit
// of 0 means no limit.
func (r *ranker) ranked(limit int) []RankEntry {
	results := make([]RankEntry, 0, len(r.order))
	for _, label := range r.order {
		results = append(results, RankEntry{Label: label, Count: r.counts[label]})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Count > results[j].Count
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
