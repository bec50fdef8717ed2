package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"venue_submit/internal/domain"
)

// PlaceRow is one locally-sourced place to reconcile against the service.
type PlaceRow struct {
	Key         string // stable id of the source row, used by the ledger
	Venue       domain.NewVenue
	SearchTerms []string
	Radius      int
	CategoryIDs []string
	Edit        domain.EditRequest
}

type RowResult struct {
	Key        string
	Status     domain.SubmissionStatus
	Venue      *domain.CreatedVenue
	Candidates []domain.SearchResult
	StatusCode int
	Err        error
	Skipped    bool // already done according to the ledger
}

// BatchRunner drives the submission pipeline over many rows and records every
// outcome in the ledger when one is configured.
type BatchRunner struct {
	svc      *SubmissionService
	ledger   domain.SubmissionRepository
	onResult func(RowResult)
}

// onResult may be nil; ProposeAll calls it from several goroutines.
func NewBatchRunner(svc *SubmissionService, ledger domain.SubmissionRepository, onResult func(RowResult)) *BatchRunner {
	return &BatchRunner{svc: svc, ledger: ledger, onResult: onResult}
}

// SubmitNew processes rows one at a time: search, and when nothing is found,
// create the venue and propose the row's edit. Rows are serial because a
// venue created for one row must be visible to the next row's search.
func (b *BatchRunner) SubmitNew(ctx context.Context, rows []PlaceRow) []RowResult {
	out := make([]RowResult, 0, len(rows))
	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		done, err := b.alreadyDone(ctx, row.Key)
		if err != nil {
			// an unreadable ledger must not lead to a second creation
			r := RowResult{Key: row.Key, Status: domain.StatusFailed, Err: fmt.Errorf("ledger lookup: %w", err)}
			b.emit(r)
			out = append(out, r)
			continue
		}
		if done {
			r := RowResult{Key: row.Key, Skipped: true}
			b.emit(r)
			out = append(out, r)
			continue
		}
		r := b.submitRow(ctx, row)
		b.record(ctx, r)
		b.emit(r)
		out = append(out, r)
	}
	return out
}

func (b *BatchRunner) submitRow(ctx context.Context, row PlaceRow) RowResult {
	terms := row.SearchTerms
	if len(terms) == 0 {
		terms = []string{row.Venue.Name}
	}
	r := RowResult{Key: row.Key}

	found, err := b.svc.SearchCandidates(ctx, terms, row.Venue.LL, row.Radius, row.CategoryIDs...)
	if err != nil {
		r.Status, r.Err = domain.StatusFailed, err
		r.StatusCode = statusCodeOf(err)
		return r
	}
	if len(found) > 0 {
		r.Status, r.Candidates = domain.StatusExisting, found
		return r
	}

	created, err := b.svc.SubmitEditForNewVenue(ctx, row.Venue, row.Edit)
	var partial *domain.PartialSubmissionError
	switch {
	case err == nil:
		r.Status, r.Venue = domain.StatusCreated, &created
	case IsAbstained(err):
		r.Status = domain.StatusAbstained
	case errors.As(err, &partial):
		r.Status, r.Venue, r.Err = domain.StatusEditFailed, &partial.Venue, err
		r.StatusCode = statusCodeOf(err)
	default:
		r.Status, r.Err = domain.StatusFailed, err
		r.StatusCode = statusCodeOf(err)
	}
	return r
}

// ProposeAll sends the same edit to every venue id using up to workers
// concurrent requests. No venue is created, so ordering does not matter.
func (b *BatchRunner) ProposeAll(ctx context.Context, venueIDs []string, edit domain.EditRequest, workers int) []RowResult {
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	out := make([]RowResult, len(venueIDs))
	var wg sync.WaitGroup

	for i, id := range venueIDs {
		if err := sem.Acquire(ctx, 1); err != nil {
			out[i] = RowResult{Key: id, Status: domain.StatusFailed, Err: err}
			continue
		}
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			defer sem.Release(1)

			r := RowResult{Key: id, Status: domain.StatusEdited, Venue: &domain.CreatedVenue{ID: id}}
			if err := b.svc.ProposeEdit(ctx, id, edit); err != nil {
				r.Status, r.Err, r.StatusCode = domain.StatusFailed, err, statusCodeOf(err)
			}
			b.record(ctx, r)
			b.emit(r)
			out[i] = r
		}(i, id)
	}
	wg.Wait()
	return out
}

func (b *BatchRunner) alreadyDone(ctx context.Context, key string) (bool, error) {
	if b.ledger == nil || key == "" {
		return false, nil
	}
	last, err := b.ledger.LatestSubmission(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("ledger lookup failed, row not submitted")
		return false, err
	}
	return last.Status.Done(), nil
}

func (b *BatchRunner) record(ctx context.Context, r RowResult) {
	if b.ledger == nil || r.Key == "" {
		return
	}
	s := domain.Submission{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		SourceKey: r.Key,
		Status:    r.Status,
	}
	if r.Venue != nil {
		id := r.Venue.ID
		s.VenueID = &id
	}
	if r.StatusCode != 0 {
		code := r.StatusCode
		s.StatusCode = &code
	}
	if r.Err != nil {
		msg := r.Err.Error()
		s.Detail = &msg
	}
	if err := b.ledger.RecordSubmission(ctx, s); err != nil {
		log.Warn().Err(err).Str("key", r.Key).Msg("ledger record failed")
	}
}

func (b *BatchRunner) emit(r RowResult) {
	if b.onResult != nil {
		b.onResult(r)
	}
}

// statusCodeOf digs the remote status code out of a protocol error.
func statusCodeOf(err error) int {
	var (
		cf *domain.CreationFailed
		er *domain.EditRejected
		se *domain.StatusError
	)
	switch {
	case errors.As(err, &cf):
		return cf.StatusCode
	case errors.As(err, &er):
		return er.StatusCode
	case errors.As(err, &se):
		return se.StatusCode
	}
	return 0
}
