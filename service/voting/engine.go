package voting

import (
	"sort"
	"strings"

	"github.com/coraldao/vote-wallet/core"
)

// SortAndFilter orders one username group's requests by the sort option,
// then drops the ones rejected by the approval filter. Sorting first
// keeps the relative order of survivors; the sort is stable, so equal
// keys preserve input order and SortByNone returns the input untouched.
func SortAndFilter(requests []*core.UsernameRequest, filters core.VotingFilters) []*core.UsernameRequest {
	sorted := make([]*core.UsernameRequest, len(requests))
	copy(sorted, requests)

	switch filters.SortBy {
	case core.SortByDateAscending:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		})
	case core.SortByDateDescending:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[j].CreatedAt.Before(sorted[i].CreatedAt)
		})
	case core.SortByVotesAscending:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Votes < sorted[j].Votes
		})
	case core.SortByVotesDescending:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[j].Votes < sorted[i].Votes
		})
	}

	if filters.FilterBy == core.FilterByAll {
		return sorted
	}

	filtered := sorted[:0]
	for _, r := range sorted {
		if r.Approved == (filters.FilterBy == core.FilterByApproved) {
			filtered = append(filtered, r)
		}
	}

	return filtered
}

// Group buckets requests by exact username, applies SortAndFilter to
// each bucket and drops the ones it empties. Groups come back ordered
// by username ascending. VotesForUsername carries over from prev by
// username, clamped to zero, defaulting to zero for new groups.
func Group(requests []*core.UsernameRequest, filters core.VotingFilters, prev []*core.GroupedUsernames) []*core.GroupedUsernames {
	carried := make(map[string]int, len(prev))
	for _, g := range prev {
		carried[g.Username] = max(g.VotesForUsername, 0)
	}

	buckets := map[string][]*core.UsernameRequest{}
	for _, r := range requests {
		buckets[r.Username] = append(buckets[r.Username], r)
	}

	groups := make([]*core.GroupedUsernames, 0, len(buckets))
	for username, members := range buckets {
		members = SortAndFilter(members, filters)
		if len(members) == 0 {
			continue
		}

		groups = append(groups, &core.GroupedUsernames{
			Username:         username,
			Requests:         members,
			VotesForUsername: carried[username],
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Username < groups[j].Username
	})

	return groups
}

// Search keeps groups whose username starts with query. Case sensitive;
// an empty query matches everything. Applied as a final pass, so it can
// re-run against cached groups without a re-fetch.
func Search(groups []*core.GroupedUsernames, query string) []*core.GroupedUsernames {
	if query == "" {
		return groups
	}

	matched := make([]*core.GroupedUsernames, 0, len(groups))
	for _, g := range groups {
		if strings.HasPrefix(g.Username, query) {
			matched = append(matched, g)
		}
	}

	return matched
}
