package app

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"venue_submit/internal/domain"
)

/********** v2 response envelope **********/

// Every v2 answer is {"meta":{...},"response":{...}}.
type envelope struct {
	Meta struct {
		Code        int    `json:"code"`
		ErrorType   string `json:"errorType"`
		ErrorDetail string `json:"errorDetail"`
	} `json:"meta"`
	Response json.RawMessage `json:"response"`
}

func decodeResponse(body []byte, dst any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Response) == 0 {
		return fmt.Errorf("decode envelope: missing response")
	}
	if err := json.Unmarshal(env.Response, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type idName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type searchPayload struct {
	Venues []struct {
		idName
		Location struct {
			Distance int `json:"distance"`
		} `json:"location"`
	} `json:"venues"`
}

type duplicatesPayload struct {
	CandidateDuplicateVenues []struct {
		idName
		Location struct {
			Distance         int      `json:"distance"`
			FormattedAddress []string `json:"formattedAddress"`
		} `json:"location"`
	} `json:"candidateDuplicateVenues"`
	IgnoreDuplicatesKey string `json:"ignoreDuplicatesKey"`
}

type createdPayload struct {
	Venue idName `json:"venue"`
}

type venuePayload struct {
	Venue struct {
		idName
		Location struct {
			Address     *string `json:"address"`
			CrossStreet *string `json:"crossStreet"`
			Lat         float64 `json:"lat"`
			Lng         float64 `json:"lng"`
			PostalCode  *string `json:"postalCode"`
			City        *string `json:"city"`
			Country     *string `json:"country"`
		} `json:"location"`
		Categories []idName `json:"categories"`
		CreatedAt  int64    `json:"createdAt"`
		ShortURL   string   `json:"shortUrl"`
	} `json:"venue"`
}

type userPayload struct {
	User struct {
		ID        string `json:"id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"user"`
}

/********** mappers **********/

func mapSearch(p searchPayload) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(p.Venues))
	for _, v := range p.Venues {
		out = append(out, domain.SearchResult{ID: v.ID, Name: v.Name, Distance: v.Location.Distance})
	}
	return out
}

func mapDuplicates(p duplicatesPayload) []domain.DuplicateCandidate {
	out := make([]domain.DuplicateCandidate, 0, len(p.CandidateDuplicateVenues))
	for _, v := range p.CandidateDuplicateVenues {
		addr := v.Location.FormattedAddress
		if addr == nil {
			addr = []string{}
		}
		out = append(out, domain.DuplicateCandidate{
			ID:               v.ID,
			Name:             v.Name,
			Distance:         v.Location.Distance,
			FormattedAddress: addr,
		})
	}
	return out
}

func mapVenue(p venuePayload) domain.Venue {
	v := p.Venue
	cats := make([]domain.Category, 0, len(v.Categories))
	for _, c := range v.Categories {
		cats = append(cats, domain.Category{ID: c.ID, Name: c.Name})
	}
	return domain.Venue{
		ID:   v.ID,
		Name: v.Name,
		Location: domain.VenueLocation{
			Address:     v.Location.Address,
			CrossStreet: v.Location.CrossStreet,
			LL:          fmt.Sprintf("%v,%v", v.Location.Lat, v.Location.Lng),
			PostalCode:  v.Location.PostalCode,
			City:        v.Location.City,
			Country:     v.Location.Country,
		},
		Categories: cats,
		CreatedAt:  v.CreatedAt,
		ShortURL:   v.ShortURL,
	}
}

func mapUser(p userPayload) domain.User {
	return domain.User{ID: p.User.ID, FirstName: p.User.FirstName, LastName: p.User.LastName}
}

/********** request helpers **********/

func toValues(fields map[string]string) url.Values {
	out := make(url.Values, len(fields))
	for k, v := range fields {
		out.Set(k, v)
	}
	return out
}

func bodyText(b []byte) string {
	return strings.TrimSpace(string(b))
}
