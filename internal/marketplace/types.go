package marketplace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JoCoor/flatfinder-client/internal/core/session"
)

// User is a marketplace account as returned by the API.
type User struct {
	ID        string `json:"_id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	BirthDate string `json:"birthDate,omitempty"`
	IsAdmin   bool   `json:"isAdmin"`
}

// Identity converts the user into a session identity.
func (u User) Identity() session.Identity {
	return session.Identity{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsAdmin:   u.IsAdmin,
	}
}

// Person is a user reference embedded in flats and messages. The API sends
// either the bare id or the populated object.
type Person struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

func (p *Person) UnmarshalJSON(data []byte) error {
	if id, ok := bareID(data); ok {
		*p = Person{ID: id}
		return nil
	}
	type plain Person
	return json.Unmarshal(data, (*plain)(p))
}

// Name returns the person's full name, or the id when the reference was
// not populated.
func (p Person) Name() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.ID
	}
	return name
}

// Flat is a rental listing.
type Flat struct {
	ID            string  `json:"_id"`
	City          string  `json:"city"`
	StreetName    string  `json:"streetName"`
	StreetNumber  string  `json:"streetNumber"`
	AreaSize      float64 `json:"areaSize"`
	HasAC         bool    `json:"hasAc"`
	YearBuilt     int     `json:"yearBuilt"`
	RentPrice     float64 `json:"rentPrice"`
	DateAvailable string  `json:"dateAvailable"`
	Owner         Person  `json:"ownerId"`
}

// Address returns "Street Number, City".
func (f Flat) Address() string {
	street := strings.TrimSpace(f.StreetName + " " + f.StreetNumber)
	if f.City == "" {
		return street
	}
	return street + ", " + f.City
}

// FlatRef is a flat reference embedded in messages, either a bare id or a
// populated flat.
type FlatRef struct {
	Flat
}

func (r *FlatRef) UnmarshalJSON(data []byte) error {
	if id, ok := bareID(data); ok {
		*r = FlatRef{Flat: Flat{ID: id}}
		return nil
	}
	return json.Unmarshal(data, &r.Flat)
}

// FlatInput is the writable part of a flat.
type FlatInput struct {
	City          string  `json:"city"`
	StreetName    string  `json:"streetName"`
	StreetNumber  string  `json:"streetNumber"`
	AreaSize      float64 `json:"areaSize"`
	HasAC         bool    `json:"hasAc"`
	YearBuilt     int     `json:"yearBuilt"`
	RentPrice     float64 `json:"rentPrice"`
	DateAvailable string  `json:"dateAvailable"`
}

// FlatFilter narrows GET /flats. Zero fields are not sent.
type FlatFilter struct {
	City     string
	MinArea  float64
	MaxPrice float64
	HasAC    bool
	MinYear  int
}

// Query encodes the filter as the API's query parameters.
func (f FlatFilter) Query() url.Values {
	q := url.Values{}
	if f.City != "" {
		q.Set("city", f.City)
	}
	if f.MinArea > 0 {
		q.Set("minArea", formatNumber(f.MinArea))
	}
	if f.MaxPrice > 0 {
		q.Set("maxPrice", formatNumber(f.MaxPrice))
	}
	if f.HasAC {
		q.Set("hasAc", "true")
	}
	if f.MinYear > 0 {
		q.Set("minYear", strconv.Itoa(f.MinYear))
	}
	return q
}

// Message is one entry of a flat conversation.
type Message struct {
	ID        string  `json:"_id"`
	Flat      FlatRef `json:"flatId"`
	Content   string  `json:"content"`
	Sender    Person  `json:"senderId"`
	IsRead    bool    `json:"isRead"`
	CreatedAt string  `json:"createdAt"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up request body.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	BirthDate string `json:"birthDate,omitempty"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UserUpdate is the PATCH /users/{id} body. Empty fields are left unchanged.
type UserUpdate struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	BirthDate string `json:"birthDate,omitempty"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password,omitempty"`
	IsAdmin   *bool  `json:"isAdmin,omitempty"`
}

// Apply returns u with the non-empty fields of the update applied.
func (up UserUpdate) Apply(u User) User {
	if up.FirstName != "" {
		u.FirstName = up.FirstName
	}
	if up.LastName != "" {
		u.LastName = up.LastName
	}
	if up.BirthDate != "" {
		u.BirthDate = up.BirthDate
	}
	if up.Email != "" {
		u.Email = up.Email
	}
	if up.IsAdmin != nil {
		u.IsAdmin = *up.IsAdmin
	}
	return u
}

func bareID(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return "", false
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return "", false
	}
	return id, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func pathID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("id is required")
	}
	return url.PathEscape(id), nil
}
