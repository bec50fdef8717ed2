package domain

import (
	"fmt"
	"strings"
)

type SearchResult struct {
	ID       string
	Name     string
	Distance int // meters from the search center
}

type CreatedVenue struct {
	ID   string
	Name string
}

// DuplicateCandidate is an existing venue the service thinks may be the one
// being created.
type DuplicateCandidate struct {
	ID               string
	Name             string
	Distance         int
	FormattedAddress []string
}

// NewVenue holds what venues/add accepts.
type NewVenue struct {
	Name              string
	LL                string // "lat,lng"
	PrimaryCategoryID string
}

type Venue struct {
	ID         string
	Name       string
	Location   VenueLocation
	Categories []Category
	CreatedAt  int64
	ShortURL   string
}

type VenueLocation struct {
	Address     *string
	CrossStreet *string
	LL          string
	PostalCode  *string
	City        *string
	Country     *string
}

// Summary joins the known address parts, or returns "(No address)".
func (l VenueLocation) Summary() string {
	var parts []string
	for _, p := range []*string{l.Address, l.CrossStreet, l.PostalCode, l.City, l.Country} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	if len(parts) == 0 {
		return "(No address)"
	}
	return strings.Join(parts, ", ")
}

type Category struct {
	ID   string
	Name string
}

type User struct {
	ID        string
	FirstName string
	LastName  string
}

func (u User) FullName() string { return strings.TrimSpace(u.FirstName + " " + u.LastName) }

// FlagReason is the problem code sent to venues/{id}/flag.
type FlagReason string

const (
	FlagMislocated    FlagReason = "mislocated"
	FlagClosed        FlagReason = "closed"
	FlagDuplicate     FlagReason = "duplicate"
	FlagInappropriate FlagReason = "inappropriate"
	FlagDoesNotExist  FlagReason = "doesnt_exist"
	FlagPrivate       FlagReason = "private"
	FlagEventOver     FlagReason = "event_over"
)

var flagReasons = []FlagReason{
	FlagMislocated, FlagClosed, FlagDuplicate, FlagInappropriate,
	FlagDoesNotExist, FlagPrivate, FlagEventOver,
}

func (f FlagReason) Valid() bool {
	for _, r := range flagReasons {
		if r == f {
			return true
		}
	}
	return false
}

func ParseFlagReason(s string) (FlagReason, error) {
	f := FlagReason(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFlag, s)
	}
	return f, nil
}

// VenueURL is the public page of a venue.
func VenueURL(id string) string { return "https://foursquare.com/v/" + id }
