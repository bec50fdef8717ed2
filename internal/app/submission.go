package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"venue_submit/internal/domain"
)

// SubmissionService searches, creates and edits venues on the remote service.
// It holds no per-call state and makes every request synchronously.
type SubmissionService struct {
	api      domain.Transport
	policy   domain.DuplicatePolicy
	cache    domain.Cache
	cacheTTL time.Duration
}

// NewSubmissionService wires the service. A nil policy declines every forced
// creation; a nil cache disables venue-details caching.
func NewSubmissionService(api domain.Transport, policy domain.DuplicatePolicy, cache domain.Cache, ttl time.Duration) *SubmissionService {
	return &SubmissionService{api: api, policy: policy, cache: cache, cacheTTL: ttl}
}

// SearchCandidates runs one browse search per term around ll and returns the
// union of the results, one entry per venue id, nearest first.
func (s *SubmissionService) SearchCandidates(ctx context.Context, terms []string, ll string, radius int, categoryIDs ...string) ([]domain.SearchResult, error) {
	seen := make(map[string]struct{})
	var out []domain.SearchResult
	for _, term := range terms {
		rs, err := s.search(ctx, term, ll, radius, categoryIDs)
		if err != nil {
			return nil, err
		}
		for _, r := range rs {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

func (s *SubmissionService) search(ctx context.Context, term, ll string, radius int, categoryIDs []string) ([]domain.SearchResult, error) {
	res, err := s.api.Get(ctx, "venues/search", url.Values{
		"ll":         {ll},
		"intent":     {"browse"},
		"radius":     {strconv.Itoa(radius)},
		"query":      {term},
		"categoryId": {strings.Join(categoryIDs, ",")},
	})
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, &domain.StatusError{Op: "search venues", StatusCode: res.StatusCode, Body: bodyText(res.Body)}
	}
	var p searchPayload
	if err := decodeResponse(res.Body, &p); err != nil {
		return nil, fmt.Errorf("search venues %q: %w", term, err)
	}
	return mapSearch(p), nil
}

// CreateVenue adds a venue. When the service answers 409 the duplicate policy
// is consulted: a decline returns ErrDuplicateAbstained without further
// requests, an approval retries exactly once with the ignore-duplicates key.
func (s *SubmissionService) CreateVenue(ctx context.Context, v domain.NewVenue) (domain.CreatedVenue, error) {
	params := url.Values{
		"name":              {v.Name},
		"ll":                {v.LL},
		"primaryCategoryId": {v.PrimaryCategoryID},
	}
	res, err := s.api.Post(ctx, "venues/add", params)
	if err != nil {
		return domain.CreatedVenue{}, err
	}

	if res.StatusCode == http.StatusConflict {
		var dup duplicatesPayload
		if err := decodeResponse(res.Body, &dup); err != nil {
			return domain.CreatedVenue{}, fmt.Errorf("create venue %q: duplicates: %w", v.Name, err)
		}
		candidates := mapDuplicates(dup)
		log.Info().
			Str("name", v.Name).
			Int("candidates", len(candidates)).
			Msg("possible duplicates reported")

		ok, err := s.confirm(ctx, v.Name, candidates)
		if err != nil {
			return domain.CreatedVenue{}, fmt.Errorf("create venue %q: duplicate policy: %w", v.Name, err)
		}
		if !ok {
			log.Info().Str("name", v.Name).Msg("creation abstained")
			return domain.CreatedVenue{}, domain.ErrDuplicateAbstained
		}

		params.Set("ignoreDuplicates", "true")
		params.Set("ignoreDuplicatesKey", dup.IgnoreDuplicatesKey)
		if res, err = s.api.Post(ctx, "venues/add", params); err != nil {
			return domain.CreatedVenue{}, err
		}
	}

	if !res.OK() {
		return domain.CreatedVenue{}, &domain.CreationFailed{StatusCode: res.StatusCode, Body: bodyText(res.Body)}
	}
	var p createdPayload
	if err := decodeResponse(res.Body, &p); err != nil {
		return domain.CreatedVenue{}, fmt.Errorf("create venue %q: %w", v.Name, err)
	}
	created := domain.CreatedVenue{ID: p.Venue.ID, Name: p.Venue.Name}
	log.Info().Str("venue_id", created.ID).Str("name", created.Name).Msg("venue created")
	return created, nil
}

func (s *SubmissionService) confirm(ctx context.Context, name string, c []domain.DuplicateCandidate) (bool, error) {
	if s.policy == nil {
		return false, nil
	}
	return s.policy.ConfirmCreate(ctx, name, c)
}

// SubmitEditForNewVenue creates the venue and proposes edit against it.
// Abstention is passed through untouched. If the edit fails the created venue
// is returned together with a *domain.PartialSubmissionError.
func (s *SubmissionService) SubmitEditForNewVenue(ctx context.Context, v domain.NewVenue, edit domain.EditRequest) (domain.CreatedVenue, error) {
	created, err := s.CreateVenue(ctx, v)
	if err != nil {
		return domain.CreatedVenue{}, err
	}
	if err := s.ProposeEdit(ctx, created.ID, edit); err != nil {
		log.Error().
			Err(err).
			Str("venue_id", created.ID).
			Str("url", domain.VenueURL(created.ID)).
			Msg("venue created, but failed to edit")
		return created, &domain.PartialSubmissionError{Venue: created, Err: err}
	}
	return created, nil
}

// ProposeEdit sends edit as a proposed change to venueID.
func (s *SubmissionService) ProposeEdit(ctx context.Context, venueID string, edit domain.EditRequest) error {
	res, err := s.api.Post(ctx, "venues/"+venueID+"/proposeedit", toValues(edit.WireFields()))
	if err != nil {
		return err
	}
	if !res.OK() {
		return &domain.EditRejected{VenueID: venueID, StatusCode: res.StatusCode, Body: bodyText(res.Body)}
	}
	s.invalidateVenue(ctx, venueID)
	log.Info().Str("venue_id", venueID).Msg("edit proposed")
	return nil
}

// FlagVenue reports a problem with venueID.
func (s *SubmissionService) FlagVenue(ctx context.Context, venueID string, reason domain.FlagReason) error {
	if !reason.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidFlag, reason)
	}
	res, err := s.api.Post(ctx, "venues/"+venueID+"/flag", url.Values{"problem": {string(reason)}})
	if err != nil {
		return err
	}
	if !res.OK() {
		return &domain.StatusError{Op: "flag venue " + venueID, StatusCode: res.StatusCode, Body: bodyText(res.Body)}
	}
	s.invalidateVenue(ctx, venueID)
	return nil
}

// GetVenue returns venue details, served from cache when possible.
func (s *SubmissionService) GetVenue(ctx context.Context, venueID string) (domain.Venue, error) {
	key := venueCacheKey(venueID)
	var v domain.Venue
	if s.cache != nil {
		ok, err := s.cache.Get(ctx, key, &v)
		if err != nil {
			log.Warn().Err(err).Str("venue_id", venueID).Msg("venue cache get failed")
		}
		if ok {
			return v, nil
		}
	}

	res, err := s.api.Get(ctx, "venues/"+venueID, nil)
	if err != nil {
		return domain.Venue{}, err
	}
	if res.StatusCode == http.StatusNotFound {
		return domain.Venue{}, fmt.Errorf("venue %s: %w", venueID, domain.ErrNotFound)
	}
	if !res.OK() {
		return domain.Venue{}, &domain.StatusError{Op: "get venue " + venueID, StatusCode: res.StatusCode, Body: bodyText(res.Body)}
	}
	var p venuePayload
	if err := decodeResponse(res.Body, &p); err != nil {
		return domain.Venue{}, fmt.Errorf("get venue %s: %w", venueID, err)
	}
	v = mapVenue(p)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("venue_id", venueID).Msg("venue cache set failed")
		}
	}
	return v, nil
}

// GetUser returns the user's details; id "self" is the token owner.
func (s *SubmissionService) GetUser(ctx context.Context, id string) (domain.User, error) {
	if id == "" {
		id = "self"
	}
	res, err := s.api.Get(ctx, "users/"+id, nil)
	if err != nil {
		return domain.User{}, err
	}
	if !res.OK() {
		return domain.User{}, &domain.StatusError{Op: "get user " + id, StatusCode: res.StatusCode, Body: bodyText(res.Body)}
	}
	var p userPayload
	if err := decodeResponse(res.Body, &p); err != nil {
		return domain.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return mapUser(p), nil
}

func venueCacheKey(id string) string { return "venue:" + id }

func (s *SubmissionService) invalidateVenue(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, venueCacheKey(id)); err != nil {
		log.Warn().Err(err).Str("venue_id", id).Msg("venue cache invalidation failed")
	}
}

// IsAbstained reports whether err is a declined duplicate check.
func IsAbstained(err error) bool { return errors.Is(err, domain.ErrDuplicateAbstained) }
