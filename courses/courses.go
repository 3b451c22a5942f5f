package courses

import "time"

// Course groups documents by subject. Domain is a unique slug (e.g. "informatique").
type Course struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Domain         string    `json:"domain"`
	Description    string    `json:"description"`
	DocumentsCount int       `json:"documents_count"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// Input is the body for create and partial update requests.
type Input struct {
	Name        *string `json:"name,omitempty"`
	Domain      *string `json:"domain,omitempty"`
	Description *string `json:"description,omitempty"`
}

// FindByDomain returns the course with the given domain slug, nil if absent.
func FindByDomain(list []Course, domain string) *Course {
	for i := range list {
		if list[i].Domain == domain {
			return &list[i]
		}
	}
	return nil
}
