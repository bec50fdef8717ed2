package domain

import (
	"context"
	"net/url"
)

// Response is a raw answer from the remote service. Non-2xx answers are
// responses too; only network failures come back as errors.
type Response struct {
	StatusCode int
	Body       []byte
}

func (r Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Transport sends authenticated requests to the venues API.
type Transport interface {
	Get(ctx context.Context, path string, params url.Values) (Response, error)
	Post(ctx context.Context, path string, params url.Values) (Response, error)
}

// DuplicatePolicy decides whether to force-create a venue the service
// believes may already exist.
type DuplicatePolicy interface {
	ConfirmCreate(ctx context.Context, name string, candidates []DuplicateCandidate) (bool, error)
}

// DecideFunc adapts a plain function to DuplicatePolicy.
type DecideFunc func(ctx context.Context, name string, candidates []DuplicateCandidate) (bool, error)

func (f DecideFunc) ConfirmCreate(ctx context.Context, name string, c []DuplicateCandidate) (bool, error) {
	return f(ctx, name, c)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type SubmissionRepository interface {
	RecordSubmission(ctx context.Context, s Submission) error
	LatestSubmission(ctx context.Context, sourceKey string) (Submission, error)
	ListSubmissions(ctx context.Context, q SubmissionsQuery) ([]Submission, error)
}
