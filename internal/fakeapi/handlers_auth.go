package fakeapi

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-docshare-client/users"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	errs := fieldErrors{}
	if body.Username == "" {
		errs.add("username", msgRequired)
	}
	if body.Password == "" {
		errs.add("password", msgRequired)
	}
	if errs.write(w) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[body.Username]
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(body.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	pair, err := s.issuePair(acc)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": pair.Access, "refresh": pair.Refresh})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Refresh == "" {
		fieldErrors{"refresh": {msgRequired}}.write(w)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	claims, acc, err := s.verify(body.Refresh, refreshType)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	access, err := s.sign(accessType, acc)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]string{"access": access}
	if s.rotate {
		rotated, err := s.sign(refreshType, acc)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.blacklist[claims.ID] = true
		resp["refresh"] = rotated
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg users.Registration
	if !decodeBody(w, r, &reg) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	errs := fieldErrors{}
	switch {
	case strings.TrimSpace(reg.Username) == "":
		errs.add("username", msgRequired)
	case s.accounts[reg.Username] != nil:
		errs.add("username", "A user with that username already exists.")
	}
	if reg.Password == "" {
		errs.add("password", msgRequired)
	} else if len(reg.Password) < minPasswordLength {
		errs.add("password", "Ensure this field has at least 8 characters.")
	}
	if reg.PasswordConfirm == "" {
		errs.add("password_confirm", msgRequired)
	}
	if errs.write(w) {
		return
	}
	if reg.Password != reg.PasswordConfirm {
		fieldErrors{"non_field_errors": {"Les mots de passe ne correspondent pas."}}.write(w)
		return
	}

	acc, err := s.addAccount(reg.Username, reg.Password, users.User{
		Email:     reg.Email,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
	})
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"username":   acc.user.Username,
		"email":      acc.user.Email,
		"first_name": acc.user.FirstName,
		"last_name":  acc.user.LastName,
	})
}

func (s *Server) getProfile(w http.ResponseWriter, _ *http.Request, acc *account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, acc.profile())
}

// updateProfile only changes bio and institution, the nested user is read only.
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, acc *account) {
	var update users.ProfileUpdate
	if !decodeBody(w, r, &update) {
		return
	}

	if update.Institution != nil && len(*update.Institution) > 200 {
		fieldErrors{"institution": {"Ensure this field has no more than 200 characters."}}.write(w)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if update.Bio != nil {
		acc.bio = *update.Bio
	}
	if update.Institution != nil {
		acc.institution = *update.Institution
	}
	writeJSON(w, http.StatusOK, acc.profile())
}
