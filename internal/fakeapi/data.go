package fakeapi

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/go-docshare-client/courses"
	"github.com/jrsteele09/go-docshare-client/documents"
	"github.com/jrsteele09/go-docshare-client/users"
	"golang.org/x/crypto/bcrypt"
)

// SeedPassword is the password of every sample account.
const SeedPassword = "password123"

type account struct {
	user        users.User
	hash        []byte
	bio         string
	institution string
	createdAt   time.Time
}

func (a *account) profile() *users.Profile {
	return &users.Profile{
		User:        a.user,
		Bio:         a.bio,
		Institution: a.institution,
		CreatedAt:   a.createdAt,
	}
}

type storedDocument struct {
	id            int64
	title         string
	description   string
	courseID      int64
	owner         string
	fileName      string
	data          []byte
	downloadCount int
	active        bool
	createdAt     time.Time
	updatedAt     time.Time
}

var seedCourses = []courses.Course{
	{Name: "Mathématiques", Domain: "mathematiques", Description: "Cours de mathématiques pour tous niveaux"},
	{Name: "Informatique", Domain: "informatique", Description: "Cours de programmation et informatique"},
	{Name: "Physique", Domain: "physique", Description: "Cours de physique générale et appliquée"},
	{Name: "Chimie", Domain: "chimie", Description: "Cours de chimie organique et inorganique"},
	{Name: "Biologie", Domain: "biologie", Description: "Cours de biologie cellulaire et moléculaire"},
	{Name: "Histoire", Domain: "histoire", Description: "Cours d'histoire contemporaine et ancienne"},
	{Name: "Géographie", Domain: "geographie", Description: "Cours de géographie physique et humaine"},
	{Name: "Littérature", Domain: "litterature", Description: "Cours de littérature française et mondiale"},
}

var seedAccounts = []struct {
	username, email, first, last, institution string
}{
	{"marie_dupont", "marie.dupont@example.com", "Marie", "Dupont", "Université de Paris"},
	{"jean_martin", "jean.martin@example.com", "Jean", "Martin", "École Polytechnique"},
	{"sophie_bernard", "sophie.bernard@example.com", "Sophie", "Bernard", "Sorbonne Université"},
}

// The helpers below expect s.mu to be held.

func (s *Server) addAccount(username, password string, u users.User) (*account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	s.nextUserID++
	u.ID = s.nextUserID
	u.Username = username
	u.DateJoined = s.now()
	acc := &account{user: u, hash: hash, createdAt: u.DateJoined}
	s.accounts[username] = acc
	return acc, nil
}

func (s *Server) accountByID(id int64) *account {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc
		}
	}
	return nil
}

func (s *Server) addCourse(c courses.Course) courses.Course {
	s.nextCourseID++
	c.ID = s.nextCourseID
	c.CreatedAt = s.now()
	s.courses[c.ID] = &c
	return c
}

func (s *Server) courseByDomain(domain string) *courses.Course {
	for _, c := range s.courses {
		if c.Domain == domain {
			return c
		}
	}
	return nil
}

func (s *Server) renderCourse(c *courses.Course) courses.Course {
	out := *c
	out.DocumentsCount = 0
	for _, d := range s.documents {
		if d.active && d.courseID == c.ID {
			out.DocumentsCount++
		}
	}
	return out
}

func (s *Server) courseList() []courses.Course {
	list := make([]courses.Course, 0, len(s.courses))
	for _, c := range s.courses {
		list = append(list, s.renderCourse(c))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func sizeMB(n int) float64 {
	return math.Round(float64(n)/(1024*1024)*100) / 100
}

func (s *Server) summary(d *storedDocument) documents.Summary {
	sum := documents.Summary{
		ID:                 d.id,
		Title:              d.title,
		Description:        d.description,
		UploadedByUsername: d.owner,
		FileSizeMB:         sizeMB(len(d.data)),
		DownloadCount:      d.downloadCount,
		CreatedAt:          d.createdAt,
	}
	if c, ok := s.courses[d.courseID]; ok {
		sum.CourseName = c.Name
		sum.CourseDomain = c.Domain
	}
	return sum
}

func (s *Server) detail(d *storedDocument) documents.Document {
	doc := documents.Document{
		ID:            d.id,
		Title:         d.title,
		Description:   d.description,
		PDFFile:       "/media/pdfs/" + d.fileName,
		FileSize:      int64(len(d.data)),
		FileSizeMB:    sizeMB(len(d.data)),
		DownloadCount: d.downloadCount,
		CreatedAt:     d.createdAt,
		UpdatedAt:     d.updatedAt,
	}
	if c, ok := s.courses[d.courseID]; ok {
		doc.Course = s.renderCourse(c)
		doc.PDFFile = "/media/pdfs/" + c.Domain + "/" + d.fileName
	}
	if acc, ok := s.accounts[d.owner]; ok {
		doc.UploadedBy = acc.user
	}
	return doc
}

type documentFilter struct {
	course int64
	domain string
	search string
	owner  string
}

func (f documentFilter) match(s *Server, d *storedDocument) bool {
	if !d.active {
		return false
	}
	if f.course > 0 && d.courseID != f.course {
		return false
	}
	if f.owner != "" && d.owner != f.owner {
		return false
	}
	if f.domain != "" {
		c, ok := s.courses[d.courseID]
		if !ok || !containsFold(c.Domain, f.domain) {
			return false
		}
	}
	if f.search != "" && !containsFold(d.title, f.search) && !containsFold(d.description, f.search) {
		return false
	}
	return true
}

// listDocuments returns matching documents newest first.
func (s *Server) listDocuments(f documentFilter) []documents.Summary {
	var matched []*storedDocument
	for _, d := range s.documents {
		if f.match(s, d) {
			matched = append(matched, d)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].createdAt.Equal(matched[j].createdAt) {
			return matched[i].id > matched[j].id
		}
		return matched[i].createdAt.After(matched[j].createdAt)
	})

	out := make([]documents.Summary, 0, len(matched))
	for _, d := range matched {
		out = append(out, s.summary(d))
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
