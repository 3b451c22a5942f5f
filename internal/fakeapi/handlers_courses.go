package fakeapi

import (
	"net/http"

	"github.com/jrsteele09/go-docshare-client/courses"
)

func (s *Server) listCourses(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.courseList())
}

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, found := s.courses[id]
	if !found {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.renderCourse(c))
}

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request, _ *account) {
	var in courses.Input
	if !decodeBody(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	errs := fieldErrors{}
	if in.Name == nil || *in.Name == "" {
		errs.add("name", msgRequired)
	}
	if in.Domain == nil || *in.Domain == "" {
		errs.add("domain", msgRequired)
	} else if s.courseByDomain(*in.Domain) != nil {
		errs.add("domain", "Cours with this Domaine already exists.")
	}
	if errs.write(w) {
		return
	}

	c := courses.Course{Name: *in.Name, Domain: *in.Domain}
	if in.Description != nil {
		c.Description = *in.Description
	}
	created := s.addCourse(c)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateCourse(w http.ResponseWriter, r *http.Request, _ *account) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in courses.Input
	if !decodeBody(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, found := s.courses[id]
	if !found {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	errs := fieldErrors{}
	if in.Name != nil && *in.Name == "" {
		errs.add("name", "This field may not be blank.")
	}
	if in.Domain != nil {
		if other := s.courseByDomain(*in.Domain); other != nil && other.ID != id {
			errs.add("domain", "Cours with this Domaine already exists.")
		}
	}
	if errs.write(w) {
		return
	}

	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Domain != nil {
		c.Domain = *in.Domain
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	writeJSON(w, http.StatusOK, s.renderCourse(c))
}

// deleteCourse cascades to the course documents.
func (s *Server) deleteCourse(w http.ResponseWriter, r *http.Request, _ *account) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.courses[id]; !found {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	delete(s.courses, id)
	for docID, d := range s.documents {
		if d.courseID == id {
			delete(s.documents, docID)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs, downloads int
	for _, d := range s.documents {
		if d.active {
			docs++
			downloads += d.downloadCount
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"total_documents": docs,
		"total_courses":   len(s.courses),
		"total_users":     len(s.accounts),
		"total_downloads": downloads,
	})
}
