package app

import (
	"context"

	"venue_submit/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// LedgerQueryService answers read-only questions about past submissions.
type LedgerQueryService struct {
	repo domain.SubmissionRepository
}

func NewLedgerQueryService(r domain.SubmissionRepository) *LedgerQueryService {
	return &LedgerQueryService{repo: r}
}

// Latest returns the most recent record for a source row.
func (s *LedgerQueryService) Latest(ctx context.Context, sourceKey string) (domain.Submission, error) {
	return s.repo.LatestSubmission(ctx, sourceKey)
}

// List returns records newest first. Limit is clamped to 1..200.
func (s *LedgerQueryService) List(ctx context.Context, q domain.SubmissionsQuery) ([]domain.Submission, error) {
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
	out, err := s.repo.ListSubmissions(ctx, q)
	if err != nil {
		return nil, err
	}
	// copy so callers cannot alias the repo's backing array
	cp := make([]domain.Submission, len(out))
	copy(cp, out)
	return cp, nil
}
