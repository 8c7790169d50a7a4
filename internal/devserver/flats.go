package devserver

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JoCoor/flatfinder-client/internal/marketplace"
)

// CreateFlat publishes a flat for owner. Used for seeding and tests.
func (s *Server) CreateFlat(ownerID string, in marketplace.FlatInput) marketplace.Flat {
	f := flatRecord{FlatInput: in, ID: uuid.NewString(), OwnerID: ownerID}
	s.flats.Set(f.ID, f)
	return s.renderFlat(f)
}

func (s *Server) renderFlat(f flatRecord) marketplace.Flat {
	return marketplace.Flat{
		ID:            f.ID,
		City:          f.City,
		StreetName:    f.StreetName,
		StreetNumber:  f.StreetNumber,
		AreaSize:      f.AreaSize,
		HasAC:         f.HasAC,
		YearBuilt:     f.YearBuilt,
		RentPrice:     f.RentPrice,
		DateAvailable: f.DateAvailable,
		Owner:         s.person(f.OwnerID),
	}
}

func (s *Server) person(userID string) marketplace.Person {
	u, ok := s.users.Get(userID)
	if !ok {
		return marketplace.Person{ID: userID}
	}
	return marketplace.Person{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

func (s *Server) handleListFlats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city := strings.ToLower(q.Get("city"))
	minArea, _ := strconv.ParseFloat(q.Get("minArea"), 64)
	maxPrice, _ := strconv.ParseFloat(q.Get("maxPrice"), 64)
	minYear, _ := strconv.Atoi(q.Get("minYear"))
	hasAC := q.Get("hasAc") == "true"

	records := s.flats.Filter(func(f flatRecord) bool {
		switch {
		case city != "" && !strings.Contains(strings.ToLower(f.City), city):
			return false
		case minArea > 0 && f.AreaSize < minArea:
			return false
		case maxPrice > 0 && f.RentPrice > maxPrice:
			return false
		case minYear > 0 && f.YearBuilt < minYear:
			return false
		case hasAC && !f.HasAC:
			return false
		}
		return true
	})
	sort.Slice(records, func(i, j int) bool {
		if records[i].City != records[j].City {
			return records[i].City < records[j].City
		}
		return records[i].RentPrice < records[j].RentPrice
	})

	flats := make([]marketplace.Flat, 0, len(records))
	for _, f := range records {
		flats = append(flats, s.renderFlat(f))
	}
	writeJSON(w, http.StatusOK, flats)
}

func (s *Server) handleGetFlat(w http.ResponseWriter, r *http.Request) {
	f, ok := s.flats.Get(chi.URLParam(r, "flatID"))
	if !ok {
		writeError(w, http.StatusNotFound, "flat not found")
		return
	}
	writeJSON(w, http.StatusOK, s.renderFlat(f))
}

func (s *Server) handleCreateFlat(w http.ResponseWriter, r *http.Request) {
	var in marketplace.FlatInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.City == "" || in.StreetName == "" {
		writeError(w, http.StatusBadRequest, "city and streetName are required")
		return
	}
	writeJSON(w, http.StatusCreated, s.CreateFlat(currentUser(r.Context()).ID, in))
}

// ownedFlat loads the flat named in the URL and checks the caller may
// modify it.
func (s *Server) ownedFlat(w http.ResponseWriter, r *http.Request) (flatRecord, bool) {
	f, ok := s.flats.Get(chi.URLParam(r, "flatID"))
	if !ok {
		writeError(w, http.StatusNotFound, "flat not found")
		return flatRecord{}, false
	}
	caller := currentUser(r.Context())
	if f.OwnerID != caller.ID && !caller.IsAdmin {
		writeError(w, http.StatusForbidden, "not the owner of this flat")
		return flatRecord{}, false
	}
	return f, true
}

func (s *Server) handleUpdateFlat(w http.ResponseWriter, r *http.Request) {
	f, ok := s.ownedFlat(w, r)
	if !ok {
		return
	}
	var in marketplace.FlatInput
	if !decodeJSON(w, r, &in) {
		return
	}
	f.FlatInput = in
	s.flats.Set(f.ID, f)
	writeJSON(w, http.StatusOK, s.renderFlat(f))
}

func (s *Server) handleDeleteFlat(w http.ResponseWriter, r *http.Request) {
	f, ok := s.ownedFlat(w, r)
	if !ok {
		return
	}
	s.deleteFlat(f.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteFlat(id string) {
	s.flats.Delete(id)
	for _, m := range s.messages.Filter(func(m messageRecord) bool { return m.FlatID == id }) {
		s.messages.Delete(m.ID)
	}
}
