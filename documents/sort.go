package documents

import (
	"fmt"
	"sort"
	"strings"
)

// SortBy is a client side ordering of a document list.
type SortBy string

const (
	SortRecent  SortBy = "recent"  // newest first
	SortPopular SortBy = "popular" // most downloaded first
	SortTitle   SortBy = "title"   // alphabetical, case insensitive
)

// ParseSortBy accepts "", "recent", "popular" and "title". Empty means recent.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(strings.ToLower(s)) {
	case "", SortRecent:
		return SortRecent, nil
	case SortPopular:
		return SortPopular, nil
	case SortTitle:
		return SortTitle, nil
	}
	return "", fmt.Errorf("unknown sort order %q (want recent, popular or title)", s)
}

// Sort returns a sorted copy of list. The input slice is left untouched.
func Sort(list []Summary, by SortBy) []Summary {
	out := make([]Summary, len(list))
	copy(out, list)

	switch by {
	case SortPopular:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].DownloadCount > out[j].DownloadCount
		})
	case SortTitle:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}
