package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"venue_submit/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// Repo is the submission ledger.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) RecordSubmission(ctx context.Context, s domain.Submission) error {
	_, err := r.db.ExecContext(ctx, insertSubmissionSQL,
		s.ID,
		s.SourceKey,
		valStr(s.VenueID),
		string(s.Status),
		valInt(s.StatusCode),
		valStr(s.Detail),
		valTime(s.CreatedAt),
	)
	return err
}

func (r *Repo) LatestSubmission(ctx context.Context, sourceKey string) (domain.Submission, error) {
	s, err := scanSubmission(r.db.QueryRowContext(ctx, latestSubmissionSQL, sourceKey))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Submission{}, domain.ErrNotFound
	}
	return s, err
}

func (r *Repo) ListSubmissions(ctx context.Context, q domain.SubmissionsQuery) ([]domain.Submission, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if q.Status != nil {
		rows, err = r.db.QueryContext(ctx, listSubmissionsByStatusSQL, string(*q.Status), q.Limit)
	} else {
		rows, err = r.db.QueryContext(ctx, listSubmissionsSQL, q.Limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (domain.Submission, error) {
	var s domain.Submission
	var (
		venueID    sql.NullString
		status     string
		statusCode sql.NullInt64
		detail     sql.NullString
	)
	if err := row.Scan(&s.ID, &s.SourceKey, &venueID, &status, &statusCode, &detail, &s.CreatedAt); err != nil {
		return domain.Submission{}, err
	}
	s.Status = domain.SubmissionStatus(status)
	if venueID.Valid {
		v := venueID.String
		s.VenueID = &v
	}
	if statusCode.Valid {
		c := int(statusCode.Int64)
		s.StatusCode = &c
	}
	if detail.Valid {
		d := detail.String
		s.Detail = &d
	}
	return s, nil
}
