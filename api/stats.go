package api

import (
	"context"
	"net/http"
)

// Stats are the platform wide counters shown on the home page.
type Stats struct {
	TotalDocuments int `json:"total_documents"`
	TotalCourses   int `json:"total_courses"`
	TotalUsers     int `json:"total_users"`
	TotalDownloads int `json:"total_downloads"`
}

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.doJSON(ctx, "Stats", http.MethodGet, "/stats/", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
