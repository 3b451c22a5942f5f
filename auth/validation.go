package auth

import (
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-docshare-client/documents"
	"github.com/jrsteele09/go-docshare-client/users"
)

// MinPasswordLength matches the server rule for new accounts.
const MinPasswordLength = 8

// Validator runs the presence and length checks a form does before it calls
// the server. The server stays the authority; these only save a round trip.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRegistration checks the required fields, the password length and the confirmation.
func (v *Validator) ValidateRegistration(reg users.Registration) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(reg.Username) == "" {
		errs.add("username", "username is required")
	}
	if strings.TrimSpace(reg.Email) == "" {
		errs.add("email", "email is required")
	} else if !strings.Contains(reg.Email, "@") {
		errs.add("email", "invalid email format")
	}
	if len(reg.Password) < MinPasswordLength {
		errs.add("password", "password must be at least 8 characters")
	}
	if reg.Password != reg.PasswordConfirm {
		errs.add("non_field_errors", "passwords do not match")
	}
	return errs.orNil()
}

// ValidateLogin only checks that both values are present.
func (v *Validator) ValidateLogin(username, password string) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(username) == "" {
		errs.add("username", "username is required")
	}
	if password == "" {
		errs.add("password", "password is required")
	}
	return errs.orNil()
}

// ValidateUpload requires a title, a course and a .pdf file.
func (v *Validator) ValidateUpload(upload documents.Upload) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(upload.Title) == "" {
		errs.add("title", "title is required")
	}
	if upload.CourseID <= 0 {
		errs.add("course_id", "course is required")
	}
	if upload.File == nil {
		errs.add("pdf_file", "file is required")
	} else if upload.FileName != "" && !strings.EqualFold(filepath.Ext(upload.FileName), ".pdf") {
		errs.add("pdf_file", "only PDF files are accepted")
	}
	return errs.orNil()
}

func (f FieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f FieldErrors) orNil() FieldErrors {
	if len(f) == 0 {
		return nil
	}
	return f
}
