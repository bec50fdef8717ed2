// Package rowfile reads locally-sourced place data for the batch commands.
package rowfile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"venue_submit/internal/app"
	"venue_submit/internal/domain"
)

type hoursJSON struct {
	Days  string `json:"days"`
	Hours string `json:"hours"`
}

// EditJSON is the file form of a proposed edit. Omitted fields stay unchanged.
type EditJSON struct {
	Name              *string           `json:"name"`
	Translations      map[string]string `json:"translations"` // language code -> localized name
	Address           *string           `json:"address"`
	CrossStreet       *string           `json:"cross_street"`
	City              *string           `json:"city"`
	Zip               *string           `json:"zip"`
	Phone             *string           `json:"phone"`
	Twitter           *string           `json:"twitter"`
	Instagram         *string           `json:"instagram"`
	Facebook          *string           `json:"facebook"`
	URL               *string           `json:"url"`
	Hours             []hoursJSON       `json:"hours"`
	MenuURL           *string           `json:"menu_url"`
	ParentID          *string           `json:"parent_id"`
	ChainID           *string           `json:"chain_id"`
	Wifi              *bool             `json:"wifi"`
	CreditCards       *bool             `json:"credit_cards"`
	PrimaryCategoryID *string           `json:"primary_category_id"`
	RemoveCategoryIDs []string          `json:"remove_category_ids"`
}

// RowJSON is one place in a creation batch file.
type RowJSON struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	LL          string   `json:"ll"`
	CategoryID  string   `json:"category_id"`
	SearchTerms []string `json:"search_terms"`
	Radius      int      `json:"radius"`
	CategoryIDs []string `json:"category_ids"`
	Edit        EditJSON `json:"edit"`
}

// ToEditRequest encodes hours and resolves translation codes against the
// language catalog.
func (e EditJSON) ToEditRequest() (domain.EditRequest, error) {
	r := domain.EditRequest{
		Name:              e.Name,
		Address:           e.Address,
		CrossStreet:       e.CrossStreet,
		City:              e.City,
		Zip:               e.Zip,
		Phone:             e.Phone,
		Twitter:           e.Twitter,
		Instagram:         e.Instagram,
		Facebook:          e.Facebook,
		URL:               e.URL,
		MenuURL:           e.MenuURL,
		ParentID:          e.ParentID,
		ChainID:           e.ChainID,
		Wifi:              e.Wifi,
		CreditCards:       e.CreditCards,
		PrimaryCategoryID: e.PrimaryCategoryID,
		RemoveCategoryIDs: e.RemoveCategoryIDs,
	}

	if len(e.Hours) > 0 {
		entries := make([]domain.HoursEntry, 0, len(e.Hours))
		for _, h := range e.Hours {
			entries = append(entries, domain.HoursEntry{Days: h.Days, Hours: h.Hours})
		}
		enc, err := domain.EncodeHours(entries)
		if err != nil {
			return domain.EditRequest{}, fmt.Errorf("hours: %w", err)
		}
		r.Hours = &enc
	}

	codes := make([]string, 0, len(e.Translations))
	for code := range e.Translations {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		lang, ok := domain.LanguageByCode(code)
		if !ok {
			return domain.EditRequest{}, fmt.Errorf("translations: unknown language code %q", code)
		}
		r.Translations = append(r.Translations, lang.Translate(e.Translations[code]))
	}
	return r, nil
}

// DecodeRows parses a JSON array of rows. defaultRadius applies to rows
// without their own radius.
func DecodeRows(rd io.Reader, defaultRadius int) ([]app.PlaceRow, error) {
	var raw []RowJSON
	if err := json.NewDecoder(rd).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	out := make([]app.PlaceRow, 0, len(raw))
	for i, r := range raw {
		if r.Name == "" || r.LL == "" {
			return nil, fmt.Errorf("row %d (%s): name and ll are required", i, r.Key)
		}
		edit, err := r.Edit.ToEditRequest()
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", i, r.Key, err)
		}
		key := r.Key
		if key == "" {
			key = r.Name + "@" + r.LL
		}
		radius := r.Radius
		if radius <= 0 {
			radius = defaultRadius
		}
		out = append(out, app.PlaceRow{
			Key:         key,
			Venue:       domain.NewVenue{Name: r.Name, LL: r.LL, PrimaryCategoryID: r.CategoryID},
			SearchTerms: r.SearchTerms,
			Radius:      radius,
			CategoryIDs: r.CategoryIDs,
			Edit:        edit,
		})
	}
	return out, nil
}

// DecodeEdit parses a single EditJSON object.
func DecodeEdit(rd io.Reader) (domain.EditRequest, error) {
	var e EditJSON
	if err := json.NewDecoder(rd).Decode(&e); err != nil {
		return domain.EditRequest{}, fmt.Errorf("decode edit: %w", err)
	}
	return e.ToEditRequest()
}

// DecodeIDs reads one venue id per line; blank lines and lines starting with
// '#' are skipped.
func DecodeIDs(rd io.Reader) ([]string, error) {
	var ids []string
	sc := bufio.NewScanner(rd)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, sc.Err()
}

func LoadRows(path string, defaultRadius int) ([]app.PlaceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeRows(f, defaultRadius)
}

func LoadEdit(path string) (domain.EditRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.EditRequest{}, err
	}
	defer f.Close()
	return DecodeEdit(f)
}

func LoadIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeIDs(f)
}
