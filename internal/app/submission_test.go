package app_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"venue_submit/internal/app"
	"venue_submit/internal/domain"
)

// ---- fakes ----

type call struct {
	method string
	path   string
	params url.Values
}

type reply struct {
	status int
	body   string
	err    error
}

// fakeAPI answers from per-route queues and records every call.
type fakeAPI struct {
	routes map[string][]reply
	calls  []call
}

func newFakeAPI() *fakeAPI { return &fakeAPI{routes: map[string][]reply{}} }

func (f *fakeAPI) on(method, path string, r ...reply) *fakeAPI {
	k := method + " " + path
	f.routes[k] = append(f.routes[k], r...)
	return f
}

func (f *fakeAPI) answer(method, path string, params url.Values) (domain.Response, error) {
	f.calls = append(f.calls, call{method: method, path: path, params: params})
	k := method + " " + path
	q := f.routes[k]
	if len(q) == 0 {
		return domain.Response{}, fmt.Errorf("unexpected call %s", k)
	}
	r := q[0]
	if len(q) > 1 {
		f.routes[k] = q[1:]
	}
	if r.err != nil {
		return domain.Response{}, r.err
	}
	return domain.Response{StatusCode: r.status, Body: []byte(r.body)}, nil
}

func (f *fakeAPI) Get(ctx context.Context, path string, params url.Values) (domain.Response, error) {
	return f.answer("GET", path, params)
}

func (f *fakeAPI) Post(ctx context.Context, path string, params url.Values) (domain.Response, error) {
	return f.answer("POST", path, params)
}

func (f *fakeAPI) count(method, path string) int {
	n := 0
	for _, c := range f.calls {
		if c.method == method && c.path == path {
			n++
		}
	}
	return n
}

type fakeCache struct {
	store map[string]domain.Venue
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	*dst.(*domain.Venue) = v
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]domain.Venue{}
	}
	c.store[key] = v.(domain.Venue)
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

func policy(answer bool, seen *[]domain.DuplicateCandidate) domain.DecideFunc {
	return func(ctx context.Context, name string, c []domain.DuplicateCandidate) (bool, error) {
		if seen != nil {
			*seen = c
		}
		return answer, nil
	}
}

const (
	conflictBody = `{"meta":{"code":409},"response":{
		"candidateDuplicateVenues":[
			{"id":"d1","name":"Technomarket","location":{"distance":40,"formattedAddress":["bul. 1","Sofia"]}},
			{"id":"d2","name":"Technomarket Outlet","location":{"distance":120}}
		],
		"ignoreDuplicatesKey":"KEY123"}}`
	createdBody = `{"meta":{"code":200},"response":{"venue":{"id":"new1","name":"Technomarket"}}}`
	okBody      = `{"meta":{"code":200},"response":{}}`
)

var newVenue = domain.NewVenue{Name: "Technomarket", LL: "42.69,23.32", PrimaryCategoryID: "4bf58dd8d48988d122951735"}

// ---- search ----

func TestSearchCandidates_DedupesAndSorts(t *testing.T) {
	api := newFakeAPI().on("GET", "venues/search",
		reply{status: 200, body: `{"response":{"venues":[
			{"id":"a","name":"A","location":{"distance":300}},
			{"id":"b","name":"B","location":{"distance":50}}]}}`},
		reply{status: 200, body: `{"response":{"venues":[
			{"id":"b","name":"B","location":{"distance":50}},
			{"id":"c","name":"C","location":{"distance":10}}]}}`},
	)
	s := app.NewSubmissionService(api, nil, nil, 0)

	got, err := s.SearchCandidates(context.Background(), []string{"technomarket", "техномаркет"}, "42.69,23.32", 3000)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 unique results, got %+v", got)
	}
	for i, id := range []string{"c", "b", "a"} {
		if got[i].ID != id {
			t.Fatalf("position %d: want %s got %+v", i, id, got)
		}
	}

	if len(api.calls) != 2 {
		t.Fatalf("expected one search per term, got %d", len(api.calls))
	}
	p := api.calls[1].params
	if p.Get("intent") != "browse" || p.Get("radius") != "3000" || p.Get("query") != "техномаркет" || p.Get("ll") != "42.69,23.32" {
		t.Fatalf("unexpected search params: %v", p)
	}
	if p.Get("categoryId") != "" {
		t.Fatalf("no categories given, got %q", p.Get("categoryId"))
	}
}

func TestSearchCandidates_CategoryIDsJoined(t *testing.T) {
	api := newFakeAPI().on("GET", "venues/search", reply{status: 200, body: `{"response":{"venues":[]}}`})
	s := app.NewSubmissionService(api, nil, nil, 0)

	got, err := s.SearchCandidates(context.Background(), []string{"x"}, "1,2", 100, "c1", "c2")
	if err != nil || len(got) != 0 {
		t.Fatalf("unexpected: %+v %v", got, err)
	}
	if api.calls[0].params.Get("categoryId") != "c1,c2" {
		t.Fatalf("categoryId: %v", api.calls[0].params)
	}
}

func TestSearchCandidates_StatusError(t *testing.T) {
	api := newFakeAPI().on("GET", "venues/search", reply{status: 401, body: `{"meta":{"code":401}}`})
	s := app.NewSubmissionService(api, nil, nil, 0)

	_, err := s.SearchCandidates(context.Background(), []string{"x"}, "1,2", 100)
	var se *domain.StatusError
	if !errors.As(err, &se) || se.StatusCode != 401 {
		t.Fatalf("expected StatusError 401, got %v", err)
	}
}

// ---- create ----

func TestCreateVenue_Success(t *testing.T) {
	api := newFakeAPI().on("POST", "venues/add", reply{status: 200, body: createdBody})
	s := app.NewSubmissionService(api, policy(true, nil), nil, 0)

	got, err := s.CreateVenue(context.Background(), newVenue)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.ID != "new1" || got.Name != "Technomarket" {
		t.Fatalf("unexpected venue: %+v", got)
	}
	p := api.calls[0].params
	if p.Get("name") != "Technomarket" || p.Get("ll") != "42.69,23.32" || p.Get("primaryCategoryId") != "4bf58dd8d48988d122951735" {
		t.Fatalf("unexpected create params: %v", p)
	}
	if _, ok := p["ignoreDuplicates"]; ok {
		t.Fatalf("first attempt must not ignore duplicates")
	}
}

func TestCreateVenue_DuplicateDeclined(t *testing.T) {
	api := newFakeAPI().on("POST", "venues/add", reply{status: 409, body: conflictBody})
	var seen []domain.DuplicateCandidate
	s := app.NewSubmissionService(api, policy(false, &seen), nil, 0)

	_, err := s.CreateVenue(context.Background(), newVenue)
	if !errors.Is(err, domain.ErrDuplicateAbstained) || !app.IsAbstained(err) {
		t.Fatalf("expected abstention, got %v", err)
	}
	if len(api.calls) != 1 {
		t.Fatalf("decline must make no further calls, got %d", len(api.calls))
	}
	if len(seen) != 2 {
		t.Fatalf("policy should see 2 candidates, got %+v", seen)
	}
	if seen[0].ID != "d1" || seen[0].Distance != 40 || len(seen[0].FormattedAddress) != 2 {
		t.Fatalf("unexpected candidate: %+v", seen[0])
	}
	if seen[1].FormattedAddress == nil || len(seen[1].FormattedAddress) != 0 {
		t.Fatalf("missing address must be an empty list: %+v", seen[1])
	}
}

func TestCreateVenue_NilPolicyDeclines(t *testing.T) {
	api := newFakeAPI().on("POST", "venues/add", reply{status: 409, body: conflictBody})
	s := app.NewSubmissionService(api, nil, nil, 0)

	if _, err := s.CreateVenue(context.Background(), newVenue); !app.IsAbstained(err) {
		t.Fatalf("expected abstention, got %v", err)
	}
}

func TestCreateVenue_DuplicateApprovedRetriesOnce(t *testing.T) {
	api := newFakeAPI().on("POST", "venues/add",
		reply{status: 409, body: conflictBody},
		reply{status: 200, body: createdBody},
	)
	s := app.NewSubmissionService(api, policy(true, nil), nil, 0)

	got, err := s.CreateVenue(context.Background(), newVenue)
	if err != nil || got.ID != "new1" {
		t.Fatalf("unexpected: %+v %v", got, err)
	}
	if len(api.calls) != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", len(api.calls))
	}
	p := api.calls[1].params
	if p.Get("ignoreDuplicates") != "true" || p.Get("ignoreDuplicatesKey") != "KEY123" || p.Get("name") != "Technomarket" {
		t.Fatalf("unexpected retry params: %v", p)
	}
}

func TestCreateVenue_RetryNotRechecked(t *testing.T) {
	api := newFakeAPI().on("POST", "venues/add",
		reply{status: 409, body: conflictBody},
		reply{status: 409, body: conflictBody},
	)
	asked := 0
	s := app.NewSubmissionService(api, domain.DecideFunc(func(context.Context, string, []domain.DuplicateCandidate) (bool, error) {
		asked++
		return true, nil
	}), nil, 0)

	_, err := s.CreateVenue(context.Background(), newVenue)
	var cf *domain.CreationFailed
	if !errors.As(err, &cf) || cf.StatusCode != 409 {
		t.Fatalf("expected CreationFailed 409, got %v", err)
	}
	if asked != 1 || len(api.calls) != 2 {
		t.Fatalf("expected one policy call and two requests, got %d / %d", asked, len(api.calls))
	}
}

func TestCreateVenue_Failures(t *testing.T) {
	api := newFakeAPI().on("POST", "venues/add", reply{status: 400, body: `{"meta":{"code":400,"errorDetail":"bad ll"}}`})
	s := app.NewSubmissionService(api, nil, nil, 0)

	_, err := s.CreateVenue(context.Background(), newVenue)
	var cf *domain.CreationFailed
	if !errors.As(err, &cf) || cf.StatusCode != 400 || !strings.Contains(cf.Body, "bad ll") {
		t.Fatalf("expected CreationFailed 400, got %v", err)
	}

	te := &domain.TransportError{Method: "POST", Path: "venues/add", Err: errors.New("reset")}
	api = newFakeAPI().on("POST", "venues/add", reply{err: te})
	s = app.NewSubmissionService(api, nil, nil, 0)
	_, err = s.CreateVenue(context.Background(), newVenue)
	var got *domain.TransportError
	if !errors.As(err, &got) || app.IsAbstained(err) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestCreateVenue_PolicyError(t *testing.T) {
	api := newFakeAPI().on("POST", "venues/add", reply{status: 409, body: conflictBody})
	boom := errors.New("stdin closed")
	s := app.NewSubmissionService(api, domain.DecideFunc(func(context.Context, string, []domain.DuplicateCandidate) (bool, error) {
		return false, boom
	}), nil, 0)

	_, err := s.CreateVenue(context.Background(), newVenue)
	if !errors.Is(err, boom) || app.IsAbstained(err) {
		t.Fatalf("expected policy error, got %v", err)
	}
}

// ---- create + edit ----

func TestSubmitEditForNewVenue(t *testing.T) {
	api := newFakeAPI().
		on("POST", "venues/add", reply{status: 200, body: createdBody}).
		on("POST", "venues/new1/proposeedit", reply{status: 200, body: okBody})
	s := app.NewSubmissionService(api, nil, nil, 0)

	edit := domain.EditRequest{City: domain.String("Sofia"), Translations: []domain.TranslatedName{domain.Bulgarian.Translate("Техномаркет")}}
	got, err := s.SubmitEditForNewVenue(context.Background(), newVenue, edit)
	if err != nil || got.ID != "new1" {
		t.Fatalf("unexpected: %+v %v", got, err)
	}
	p := api.calls[1].params
	if p.Get("city") != "Sofia" || p.Get("name:bg") != "Техномаркет" || len(p) != 2 {
		t.Fatalf("unexpected edit params: %v", p)
	}
}

func TestSubmitEditForNewVenue_AbstainSkipsEdit(t *testing.T) {
	api := newFakeAPI().on("POST", "venues/add", reply{status: 409, body: conflictBody})
	s := app.NewSubmissionService(api, policy(false, nil), nil, 0)

	_, err := s.SubmitEditForNewVenue(context.Background(), newVenue, domain.EditRequest{City: domain.String("Sofia")})
	if !app.IsAbstained(err) {
		t.Fatalf("expected abstention, got %v", err)
	}
	if api.count("POST", "venues/new1/proposeedit") != 0 || len(api.calls) != 1 {
		t.Fatalf("no edit may be attempted after abstention")
	}
}

func TestSubmitEditForNewVenue_EditFailureKeepsVenueID(t *testing.T) {
	api := newFakeAPI().
		on("POST", "venues/add", reply{status: 200, body: createdBody}).
		on("POST", "venues/new1/proposeedit", reply{status: 400, body: `{"meta":{"code":400}}`})
	s := app.NewSubmissionService(api, nil, nil, 0)

	got, err := s.SubmitEditForNewVenue(context.Background(), newVenue, domain.EditRequest{City: domain.String("Sofia")})
	var partial *domain.PartialSubmissionError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialSubmissionError, got %v", err)
	}
	if partial.Venue.ID != "new1" || got.ID != "new1" {
		t.Fatalf("created id lost: %+v / %+v", partial.Venue, got)
	}
	var rej *domain.EditRejected
	if !errors.As(err, &rej) || rej.VenueID != "new1" || rej.StatusCode != 400 {
		t.Fatalf("expected wrapped EditRejected, got %v", err)
	}
}

// ---- edit / flag / details ----

func TestProposeEdit_Rejected(t *testing.T) {
	api := newFakeAPI().on("POST", "venues/v9/proposeedit", reply{status: 403, body: "nope"})
	s := app.NewSubmissionService(api, nil, nil, 0)

	err := s.ProposeEdit(context.Background(), "v9", domain.EditRequest{Wifi: domain.Bool(false)})
	var rej *domain.EditRejected
	if !errors.As(err, &rej) || rej.StatusCode != 403 || rej.Body != "nope" {
		t.Fatalf("expected EditRejected, got %v", err)
	}
	if api.calls[0].params.Get("wifi") != "no" {
		t.Fatalf("wifi=false must be sent as no: %v", api.calls[0].params)
	}
}

func TestFlagVenue(t *testing.T) {
	api := newFakeAPI().on("POST", "venues/v1/flag", reply{status: 200, body: okBody})
	s := app.NewSubmissionService(api, nil, nil, 0)

	if err := s.FlagVenue(context.Background(), "v1", domain.FlagDoesNotExist); err != nil {
		t.Fatalf("err: %v", err)
	}
	if api.calls[0].params.Get("problem") != "doesnt_exist" {
		t.Fatalf("unexpected flag params: %v", api.calls[0].params)
	}

	if err := s.FlagVenue(context.Background(), "v1", domain.FlagReason("meh")); !errors.Is(err, domain.ErrInvalidFlag) {
		t.Fatalf("expected ErrInvalidFlag, got %v", err)
	}
	if len(api.calls) != 1 {
		t.Fatalf("invalid flag must not reach the network")
	}
}

func TestGetVenue_CachedAndInvalidated(t *testing.T) {
	venueBody := `{"response":{"venue":{"id":"v1","name":"North Fish",
		"location":{"address":"Vitosha 1","lat":42.69,"lng":23.32,"city":"Sofia","country":"Bulgaria"},
		"categories":[{"id":"c1","name":"Fast Food"}],"createdAt":1566000000,"shortUrl":"http://4sq.com/x"}}}`
	api := newFakeAPI().
		on("GET", "venues/v1", reply{status: 200, body: venueBody}).
		on("POST", "venues/v1/proposeedit", reply{status: 200, body: okBody})
	cache := &fakeCache{}
	s := app.NewSubmissionService(api, nil, cache, 10*time.Minute)
	ctx := context.Background()

	v, err := s.GetVenue(ctx, "v1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if v.Name != "North Fish" || v.Location.LL != "42.69,23.32" || *v.Location.City != "Sofia" || v.Location.PostalCode != nil {
		t.Fatalf("unexpected venue: %+v", v)
	}
	if len(v.Categories) != 1 || v.Categories[0].Name != "Fast Food" || v.ShortURL != "http://4sq.com/x" {
		t.Fatalf("unexpected venue: %+v", v)
	}

	if _, err := s.GetVenue(ctx, "v1"); err != nil {
		t.Fatalf("err: %v", err)
	}
	if api.count("GET", "venues/v1") != 1 {
		t.Fatalf("second read should come from cache")
	}

	if err := s.ProposeEdit(ctx, "v1", domain.EditRequest{Name: domain.String("North Fish")}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(cache.dels) != 1 || cache.dels[0] != "venue:v1" {
		t.Fatalf("edit should invalidate venue cache, dels=%v", cache.dels)
	}
}

func TestGetVenue_NotFound(t *testing.T) {
	api := newFakeAPI().on("GET", "venues/zz", reply{status: 404, body: `{"meta":{"code":404}}`})
	s := app.NewSubmissionService(api, nil, nil, 0)

	if _, err := s.GetVenue(context.Background(), "zz"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUser(t *testing.T) {
	api := newFakeAPI().on("GET", "users/self", reply{status: 200, body: `{"response":{"user":{"id":"u1","firstName":"Ana","lastName":"Ivanova"}}}`})
	s := app.NewSubmissionService(api, nil, nil, 0)

	u, err := s.GetUser(context.Background(), "")
	if err != nil || u.FullName() != "Ana Ivanova" {
		t.Fatalf("unexpected: %+v %v", u, err)
	}
}

type downCache struct{ fakeCache }

func (c *downCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	return false, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func TestGetVenue_CacheErrorFallsBackAndIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	api := newFakeAPI().on("GET", "venues/v1", reply{status: 200, body: `{"response":{"venue":{"id":"v1","name":"North Fish"}}}`})
	s := app.NewSubmissionService(api, nil, &downCache{}, time.Minute)

	v, err := s.GetVenue(context.Background(), "v1")
	if err != nil || v.Name != "North Fish" {
		t.Fatalf("unexpected: %+v %v", v, err)
	}
	if api.count("GET", "venues/v1") != 1 {
		t.Fatalf("cache failure must fall back to the API")
	}
	out := buf.String()
	if !strings.Contains(out, "venue cache get failed") || !strings.Contains(out, `"venue_id":"v1"`) || !strings.Contains(out, `"level":"warn"`) {
		t.Fatalf("expected a warn log with venue_id, got %q", out)
	}
}
