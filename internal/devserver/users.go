package devserver

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/JoCoor/flatfinder-client/internal/marketplace"
)

var errEmailTaken = errors.New("email already registered")

// CreateUser registers an account directly. Used for seeding and tests.
func (s *Server) CreateUser(reg marketplace.Registration, admin bool) (marketplace.User, error) {
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	if email == "" || reg.Password == "" {
		return marketplace.User{}, errors.New("email and password are required")
	}
	if _, taken := s.findUserByEmail(email); taken {
		return marketplace.User{}, errEmailTaken
	}

	hash, err := s.hashPassword(reg.Password)
	if err != nil {
		return marketplace.User{}, err
	}

	u := userRecord{
		User: marketplace.User{
			ID:        uuid.NewString(),
			Email:     email,
			FirstName: reg.FirstName,
			LastName:  reg.LastName,
			BirthDate: reg.BirthDate,
			IsAdmin:   admin,
		},
		PasswordHash: hash,
	}
	s.users.Set(u.ID, u)
	return u.User, nil
}

func (s *Server) findUserByEmail(email string) (userRecord, bool) {
	return s.users.Find(func(u userRecord) bool { return u.Email == email })
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg marketplace.Registration
	if !decodeJSON(w, r, &reg) {
		return
	}

	u, err := s.CreateUser(reg, false)
	switch {
	case errors.Is(err, errEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusCreated, u)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds marketplace.Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}

	u, ok := s.findUserByEmail(strings.ToLower(strings.TrimSpace(creds.Email)))
	if !ok || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(creds.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, marketplace.LoginResult{Token: token, User: u.User})
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	records := s.users.Filter(nil)
	users := make([]marketplace.User, 0, len(records))
	for _, u := range records {
		users = append(users, u.User)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r.Context())
	id := chi.URLParam(r, "userID")
	if caller.ID != id && !caller.IsAdmin {
		writeError(w, http.StatusForbidden, "cannot edit another user")
		return
	}

	var up marketplace.UserUpdate
	if !decodeJSON(w, r, &up) {
		return
	}
	if !caller.IsAdmin {
		up.IsAdmin = nil
	}

	var hash []byte
	if up.Password != "" {
		h, err := s.hashPassword(up.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		hash = h
	}

	var (
		updated marketplace.User
		found   bool
	)
	s.users.Update(id, func(cur userRecord, ok bool) (userRecord, bool) {
		if !ok {
			return cur, false
		}
		found = true
		cur.User = up.Apply(cur.User)
		if hash != nil {
			cur.PasswordHash = hash
		}
		updated = cur.User
		return cur, true
	})
	if !found {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	if !s.users.Delete(id) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	for _, f := range s.flats.Filter(func(f flatRecord) bool { return f.OwnerID == id }) {
		s.deleteFlat(f.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r.Context())
	flats := make([]marketplace.Flat, 0, len(caller.Favorites))
	for _, id := range caller.Favorites {
		if f, ok := s.flats.Get(id); ok {
			flats = append(flats, s.renderFlat(f))
		}
	}
	writeJSON(w, http.StatusOK, flats)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r.Context())
	flatID := chi.URLParam(r, "flatID")
	if _, ok := s.flats.Get(flatID); !ok {
		writeError(w, http.StatusNotFound, "flat not found")
		return
	}

	var favorites []string
	s.users.Update(caller.ID, func(cur userRecord, ok bool) (userRecord, bool) {
		if !ok {
			return cur, false
		}
		cur.Favorites = toggle(cur.Favorites, flatID)
		favorites = cur.Favorites
		return cur, true
	})
	writeJSON(w, http.StatusOK, favorites)
}

func toggle(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	removed := false
	for _, v := range ids {
		if v == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	if !removed {
		out = append(out, id)
	}
	return out
}
