package domain

import (
	"fmt"
	"sort"
	"strings"
)

// EditRequest is a proposed change to a venue. A nil field means "leave as is";
// a non-nil field (including false or "") means "set to this value".
type EditRequest struct {
	Name              *string
	Translations      []TranslatedName
	Address           *string
	CrossStreet       *string
	City              *string
	Zip               *string
	Phone             *string
	Twitter           *string
	Instagram         *string
	Facebook          *string
	URL               *string
	Hours             *string
	MenuURL           *string
	ParentID          *string
	ChainID           *string
	Wifi              *bool
	CreditCards       *bool
	PrimaryCategoryID *string
	RemoveCategoryIDs []string
}

// Wire keys of the proposeedit endpoint.
const (
	keyName              = "name"
	keyAddress           = "address"
	keyCrossStreet       = "crossStreet"
	keyCity              = "city"
	keyZip               = "zip"
	keyPhone             = "phone"
	keyTwitter           = "twitter"
	keyInstagram         = "instagram"
	keyFacebook          = "facebookUrl"
	keyURL               = "url"
	keyWifi              = "wifi"
	keyCreditCards       = "creditCards"
	keyHours             = "hours"
	keyMenuURL           = "menuUrl"
	keyParentID          = "parentId"
	keyChainID           = "primaryVenueChainId"
	keyPrimaryCategoryID = "primaryCategoryId"
	keyRemoveCategoryIDs = "removeCategoryIds"
	translationPrefix    = "name:"
)

// stringFields pairs each optional string field with its wire key.
func (r *EditRequest) stringFields() []struct {
	key string
	ptr **string
} {
	return []struct {
		key string
		ptr **string
	}{
		{keyName, &r.Name},
		{keyAddress, &r.Address},
		{keyCrossStreet, &r.CrossStreet},
		{keyCity, &r.City},
		{keyZip, &r.Zip},
		{keyPhone, &r.Phone},
		{keyTwitter, &r.Twitter},
		{keyInstagram, &r.Instagram},
		{keyFacebook, &r.Facebook},
		{keyURL, &r.URL},
		{keyHours, &r.Hours},
		{keyMenuURL, &r.MenuURL},
		{keyParentID, &r.ParentID},
		{keyChainID, &r.ChainID},
		{keyPrimaryCategoryID, &r.PrimaryCategoryID},
	}
}

func (r *EditRequest) boolFields() []struct {
	key string
	ptr **bool
} {
	return []struct {
		key string
		ptr **bool
	}{
		{keyWifi, &r.Wifi},
		{keyCreditCards, &r.CreditCards},
	}
}

// Merge returns r with every field that is present in override replaced by
// override's value. Lists count as present only when non-empty. Neither input
// is modified.
func (r EditRequest) Merge(override EditRequest) EditRequest {
	out := r
	src := override

	dst := out.stringFields()
	for i, f := range src.stringFields() {
		if *f.ptr != nil {
			*dst[i].ptr = *f.ptr
		}
	}
	dstB := out.boolFields()
	for i, f := range src.boolFields() {
		if *f.ptr != nil {
			*dstB[i].ptr = *f.ptr
		}
	}

	if len(src.Translations) > 0 {
		out.Translations = append([]TranslatedName(nil), src.Translations...)
	} else {
		out.Translations = append([]TranslatedName(nil), r.Translations...)
	}
	if len(src.RemoveCategoryIDs) > 0 {
		out.RemoveCategoryIDs = append([]string(nil), src.RemoveCategoryIDs...)
	} else {
		out.RemoveCategoryIDs = append([]string(nil), r.RemoveCategoryIDs...)
	}
	if len(out.Translations) == 0 {
		out.Translations = nil
	}
	if len(out.RemoveCategoryIDs) == 0 {
		out.RemoveCategoryIDs = nil
	}
	return out
}

// WireFields renders the request as proposeedit form fields. Unset fields are
// omitted; booleans become "yes"/"no".
func (r EditRequest) WireFields() map[string]string {
	out := make(map[string]string, 8)
	for _, f := range r.stringFields() {
		if *f.ptr != nil {
			out[f.key] = **f.ptr
		}
	}
	for _, f := range r.boolFields() {
		if *f.ptr != nil {
			out[f.key] = yesNo(**f.ptr)
		}
	}
	if len(r.RemoveCategoryIDs) > 0 {
		out[keyRemoveCategoryIDs] = strings.Join(r.RemoveCategoryIDs, ",")
	}
	for _, t := range r.Translations {
		out[translationPrefix+t.Code] = t.Value
	}
	return out
}

// ParseWireFields is the inverse of WireFields.
func ParseWireFields(fields map[string]string) (EditRequest, error) {
	var r EditRequest
	strs := map[string]**string{}
	for _, f := range r.stringFields() {
		strs[f.key] = f.ptr
	}
	bools := map[string]**bool{}
	for _, f := range r.boolFields() {
		bools[f.key] = f.ptr
	}

	for k, v := range fields {
		v := v
		if p, ok := strs[k]; ok {
			*p = &v
			continue
		}
		if p, ok := bools[k]; ok {
			b, err := parseYesNo(v)
			if err != nil {
				return EditRequest{}, fmt.Errorf("field %s: %w", k, err)
			}
			*p = &b
			continue
		}
		switch {
		case k == keyRemoveCategoryIDs:
			if v != "" {
				r.RemoveCategoryIDs = strings.Split(v, ",")
			}
		case strings.HasPrefix(k, translationPrefix):
			code := strings.TrimPrefix(k, translationPrefix)
			lang, ok := LanguageByCode(code)
			if !ok {
				return EditRequest{}, fmt.Errorf("field %s: unknown language code %q", k, code)
			}
			r.Translations = append(r.Translations, lang.Translate(v))
		default:
			return EditRequest{}, fmt.Errorf("unknown edit field %q", k)
		}
	}
	sort.Slice(r.Translations, func(i, j int) bool { return r.Translations[i].Code < r.Translations[j].Code })
	return r, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func parseYesNo(s string) (bool, error) {
	switch s {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}
	return false, fmt.Errorf("expected yes or no, got %q", s)
}

// String and Bool build optional field values.
func String(s string) *string { return &s }
func Bool(b bool) *bool       { return &b }
