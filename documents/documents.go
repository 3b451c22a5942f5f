package documents

import (
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-docshare-client/courses"
	"github.com/jrsteele09/go-docshare-client/users"
)

// Summary is the list representation of a document.
type Summary struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	CourseName         string    `json:"course_name"`
	CourseDomain       string    `json:"course_domain"`
	UploadedByUsername string    `json:"uploaded_by_username"`
	FileSizeMB         float64   `json:"file_size_mb"`
	DownloadCount      int       `json:"download_count"`
	CreatedAt          time.Time `json:"created_at"`
}

// Document is the detail representation of a document.
type Document struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Course        courses.Course `json:"course"`
	UploadedBy    users.User     `json:"uploaded_by"`
	PDFFile       string         `json:"pdf_file"`
	FileSize      int64          `json:"file_size"`
	FileSizeMB    float64        `json:"file_size_mb"`
	DownloadCount int            `json:"download_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ListParams filters the document list. Zero values are omitted.
type ListParams struct {
	Search string // substring of title or description
	Course int64  // course id
	Domain string // course domain substring
	Limit  int
}

// Values encodes the params as query parameters.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Course > 0 {
		v.Set("course", strconv.FormatInt(p.Course, 10))
	}
	if p.Domain != "" {
		v.Set("domain", p.Domain)
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	return v
}

// Upload is a new document. File is streamed into the pdf_file multipart part.
type Upload struct {
	Title       string
	Description string
	CourseID    int64
	FileName    string
	File        io.Reader
}

// Update is a partial metadata update.
type Update struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	CourseID    *int64  `json:"course_id,omitempty"`
}
