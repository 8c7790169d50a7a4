package devserver

import (
	"fmt"

	"github.com/JoCoor/flatfinder-client/internal/marketplace"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "flatfinder"

type seedUser struct {
	reg   marketplace.Registration
	admin bool
	flats []marketplace.FlatInput
}

var seedUsers = []seedUser{
	{
		reg:   marketplace.Registration{Email: "admin@flatfinder.local", FirstName: "Ada", LastName: "Admin", BirthDate: "1985-02-11"},
		admin: true,
	},
	{
		reg: marketplace.Registration{Email: "olga@flatfinder.local", FirstName: "Olga", LastName: "Owner", BirthDate: "1979-07-30"},
		flats: []marketplace.FlatInput{
			{City: "Bucharest", StreetName: "Strada Lipscani", StreetNumber: "12", AreaSize: 54, HasAC: true, YearBuilt: 2008, RentPrice: 650, DateAvailable: "2026-11-01"},
			{City: "Cluj-Napoca", StreetName: "Strada Memorandumului", StreetNumber: "4", AreaSize: 38, YearBuilt: 1975, RentPrice: 420, DateAvailable: "2026-12-15"},
		},
	},
	{
		reg: marketplace.Registration{Email: "tom@flatfinder.local", FirstName: "Tom", LastName: "Tenant", BirthDate: "1996-04-03"},
		flats: []marketplace.FlatInput{
			{City: "Iasi", StreetName: "Bulevardul Stefan cel Mare", StreetNumber: "8", AreaSize: 72, HasAC: true, YearBuilt: 2019, RentPrice: 780, DateAvailable: "2027-01-01"},
		},
	},
}

// Seed creates the demo accounts and their listings. Every account uses
// SeedPassword.
func (s *Server) Seed() error {
	for _, su := range seedUsers {
		reg := su.reg
		reg.Password = SeedPassword
		u, err := s.CreateUser(reg, su.admin)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", reg.Email, err)
		}
		for _, in := range su.flats {
			s.CreateFlat(u.ID, in)
		}
	}
	s.logger.Info().Int("users", s.users.Len()).Int("flats", s.flats.Len()).Msg("seeded demo data")
	return nil
}
