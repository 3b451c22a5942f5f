package documents_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-docshare-client/documents"
	"github.com/stretchr/testify/require"
)

func titles(list []documents.Summary) []string {
	out := make([]string, 0, len(list))
	for _, d := range list {
		out = append(out, d.Title)
	}
	return out
}

func TestSort(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	list := []documents.Summary{
		{ID: 1, Title: "calculus", DownloadCount: 3, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: 2, Title: "Algebra", DownloadCount: 10, CreatedAt: now},
		{ID: 3, Title: "biology", DownloadCount: 0, CreatedAt: now.Add(-time.Hour)},
	}

	t.Run("recent", func(t *testing.T) {
		require.Equal(t, []string{"Algebra", "biology", "calculus"}, titles(documents.Sort(list, documents.SortRecent)))
	})

	t.Run("popular", func(t *testing.T) {
		require.Equal(t, []string{"Algebra", "calculus", "biology"}, titles(documents.Sort(list, documents.SortPopular)))
	})

	t.Run("title is case insensitive", func(t *testing.T) {
		require.Equal(t, []string{"Algebra", "biology", "calculus"}, titles(documents.Sort(list, documents.SortTitle)))
	})

	t.Run("input untouched", func(t *testing.T) {
		_ = documents.Sort(list, documents.SortTitle)
		require.Equal(t, int64(1), list[0].ID)
	})
}

func TestParseSortBy(t *testing.T) {
	by, err := documents.ParseSortBy("")
	require.NoError(t, err)
	require.Equal(t, documents.SortRecent, by)

	by, err = documents.ParseSortBy("POPULAR")
	require.NoError(t, err)
	require.Equal(t, documents.SortPopular, by)

	_, err = documents.ParseSortBy("size")
	require.Error(t, err)
}

func TestListParamsValues(t *testing.T) {
	v := documents.ListParams{Search: "matrix", Course: 4, Limit: 6}.Values()
	require.Equal(t, "course=4&limit=6&search=matrix", v.Encode())
	require.Empty(t, documents.ListParams{}.Values().Encode())
}
