package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/jrsteele09/go-docshare-client/documents"
)

const (
	documentsPath   = "/documents/"
	myDocumentsPath = "/my-documents/"
)

func documentPath(id int64) string {
	return documentsPath + strconv.FormatInt(id, 10) + "/"
}

// ListDocuments returns active documents, newest first as the server orders them.
// Limit is also applied locally since the server may not honour it.
func (c *Client) ListDocuments(ctx context.Context, params documents.ListParams) ([]documents.Summary, error) {
	list, err := getList[documents.Summary](ctx, c, "ListDocuments", documentsPath, params.Values())
	if err != nil {
		return nil, err
	}
	if params.Limit > 0 && len(list) > params.Limit {
		list = list[:params.Limit]
	}
	return list, nil
}

// MyDocuments returns the documents uploaded by the authenticated user.
func (c *Client) MyDocuments(ctx context.Context) ([]documents.Summary, error) {
	return getList[documents.Summary](ctx, c, "MyDocuments", myDocumentsPath, nil)
}

func (c *Client) GetDocument(ctx context.Context, id int64) (*documents.Document, error) {
	var doc documents.Document
	if err := c.doJSON(ctx, "GetDocument", http.MethodGet, documentPath(id), nil, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UploadDocument posts a multipart form with the metadata fields and the
// pdf_file part. The form is buffered so the request can be replayed after a refresh.
func (c *Client) UploadDocument(ctx context.Context, upload documents.Upload) (*documents.Document, error) {
	if upload.File == nil {
		return nil, fmt.Errorf("[api UploadDocument] no file")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"title", upload.Title},
		{"description", upload.Description},
		{"course_id", strconv.FormatInt(upload.CourseID, 10)},
	}
	for _, f := range fields {
		if err := form.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("[api UploadDocument] %w", err)
		}
	}

	name := upload.FileName
	if name == "" {
		name = upload.Title + ".pdf"
	}
	part, err := form.CreateFormFile("pdf_file", filepath.Base(name))
	if err != nil {
		return nil, fmt.Errorf("[api UploadDocument] %w", err)
	}
	if _, err := io.Copy(part, upload.File); err != nil {
		return nil, fmt.Errorf("[api UploadDocument] read file: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("[api UploadDocument] %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(documentsPath, nil), bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("[api UploadDocument] %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var doc documents.Document
	if err := c.send("UploadDocument", req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateDocument patches document metadata. Only the uploader may do this.
func (c *Client) UpdateDocument(ctx context.Context, id int64, update documents.Update) (*documents.Document, error) {
	var doc documents.Document
	if err := c.doJSON(ctx, "UpdateDocument", http.MethodPatch, documentPath(id), nil, update, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument removes a document. The server keeps it as inactive.
func (c *Client) DeleteDocument(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "DeleteDocument", http.MethodDelete, documentPath(id), nil, nil, nil)
}

// DownloadURL is the direct byte-serving address of a document.
func (c *Client) DownloadURL(id int64) string {
	return c.endpoint(documentPath(id)+"download/", nil)
}

// PreviewURL serves the same bytes as DownloadURL but for inline display.
func (c *Client) PreviewURL(id int64) string {
	return c.endpoint(documentPath(id)+"preview/", nil)
}

// Download streams the PDF into w and returns the server file name.
// The server counts every download.
func (c *Client) Download(ctx context.Context, id int64, w io.Writer) (string, error) {
	return c.stream(ctx, "Download", c.DownloadURL(id), id, w)
}

// Preview is Download without incrementing the download count.
func (c *Client) Preview(ctx context.Context, id int64, w io.Writer) (string, error) {
	return c.stream(ctx, "Preview", c.PreviewURL(id), id, w)
}

func (c *Client) stream(ctx context.Context, op, target string, id int64, w io.Writer) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("[api %s] %w", op, err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.do(op, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("[api %s] write file: %w", op, err)
	}
	return filenameFrom(resp.Header.Get("Content-Disposition"), id), nil
}

// filenameFrom reads the filename parameter of a Content-Disposition header.
func filenameFrom(disposition string, id int64) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		if name := filepath.Base(params["filename"]); name != "" && name != "." && name != ".." && name != "/" {
			return name
		}
	}
	return fmt.Sprintf("document-%d.pdf", id)
}
