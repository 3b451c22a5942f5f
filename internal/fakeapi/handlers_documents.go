package fakeapi

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-docshare-client/documents"
)

func (s *Server) listDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := documentFilter{
		domain: q.Get("domain"),
		search: q.Get("search"),
	}
	if course := q.Get("course"); course != "" {
		id, err := strconv.ParseInt(course, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusOK, []documents.Summary{})
			return
		}
		f.course = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.listDocuments(f))
}

func (s *Server) myDocuments(w http.ResponseWriter, _ *http.Request, acc *account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.listDocuments(documentFilter{owner: acc.user.Username}))
}

// activeDocument looks up an active document or writes a 404. Expects s.mu to be held.
func (s *Server) activeDocument(w http.ResponseWriter, r *http.Request) *storedDocument {
	id, ok := idParam(w, r)
	if !ok {
		return nil
	}
	d, found := s.documents[id]
	if !found || !d.active {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return nil
	}
	return d
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.activeDocument(w, r); d != nil {
		writeJSON(w, http.StatusOK, s.detail(d))
	}
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request, acc *account) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeDetail(w, http.StatusUnsupportedMediaType, `Unsupported media type in request.`)
		return
	}

	errs := fieldErrors{}
	title := r.FormValue("title")
	if strings.TrimSpace(title) == "" {
		errs.add("title", msgRequired)
	}
	courseID, err := strconv.ParseInt(r.FormValue("course_id"), 10, 64)
	if r.FormValue("course_id") == "" {
		errs.add("course_id", msgRequired)
	} else if err != nil {
		errs.add("course_id", "A valid integer is required.")
	}

	var data []byte
	var fileName string
	file, header, err := r.FormFile("pdf_file")
	if err != nil {
		errs.add("pdf_file", "No file was submitted.")
	} else {
		defer file.Close()
		fileName = filepath.Base(header.Filename)
		if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
			errs.add("pdf_file", fmt.Sprintf(`File extension "%s" is not allowed. Allowed extensions are: pdf.`,
				strings.TrimPrefix(filepath.Ext(fileName), ".")))
		}
		if data, err = io.ReadAll(file); err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if courseID > 0 {
		if _, found := s.courses[courseID]; !found {
			errs.add("course_id", "Invalid course.")
		}
	}
	if errs.write(w) {
		return
	}

	now := s.now()
	s.nextDocID++
	d := &storedDocument{
		id:          s.nextDocID,
		title:       title,
		description: r.FormValue("description"),
		courseID:    courseID,
		owner:       acc.user.Username,
		fileName:    fileName,
		data:        data,
		active:      true,
		createdAt:   now,
		updatedAt:   now,
	}
	s.documents[d.id] = d
	writeJSON(w, http.StatusCreated, s.detail(d))
}

func (s *Server) updateDocument(w http.ResponseWriter, r *http.Request, acc *account) {
	var update documents.Update
	if !decodeBody(w, r, &update) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.activeDocument(w, r)
	if d == nil {
		return
	}
	if d.owner != acc.user.Username {
		writeDetail(w, http.StatusForbidden, "Vous ne pouvez modifier que vos propres documents.")
		return
	}

	errs := fieldErrors{}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		errs.add("title", "This field may not be blank.")
	}
	if update.CourseID != nil {
		if _, found := s.courses[*update.CourseID]; !found {
			errs.add("course_id", "Invalid course.")
		}
	}
	if errs.write(w) {
		return
	}

	if update.Title != nil {
		d.title = *update.Title
	}
	if update.Description != nil {
		d.description = *update.Description
	}
	if update.CourseID != nil {
		d.courseID = *update.CourseID
	}
	d.updatedAt = s.now()
	writeJSON(w, http.StatusOK, s.detail(d))
}

// deleteDocument only deactivates, like the real server.
func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request, acc *account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.activeDocument(w, r)
	if d == nil {
		return
	}
	if d.owner != acc.user.Username {
		writeDetail(w, http.StatusForbidden, "Vous ne pouvez supprimer que vos propres documents.")
		return
	}
	d.active = false
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, "attachment", true)
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, "inline", false)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, disposition string, count bool) {
	s.mu.Lock()
	d := s.activeDocument(w, r)
	if d == nil {
		s.mu.Unlock()
		return
	}
	if count {
		d.downloadCount++
	}
	data, title := d.data, d.title
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`%s; filename="%s.pdf"`, disposition, title))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
