package domain

import "time"

// SubmissionStatus is the outcome of one pipeline run for a source row.
type SubmissionStatus string

const (
	StatusCreated    SubmissionStatus = "created"     // venue created, edit accepted
	StatusEdited     SubmissionStatus = "edited"      // edit proposed to an existing id
	StatusExisting   SubmissionStatus = "existing"    // search found candidates, nothing sent
	StatusAbstained  SubmissionStatus = "abstained"   // duplicate policy declined
	StatusFailed     SubmissionStatus = "failed"      // nothing was created
	StatusEditFailed SubmissionStatus = "edit_failed" // created, but the edit failed
)

// Done reports whether a row with this status must not be submitted again.
func (s SubmissionStatus) Done() bool {
	switch s {
	case StatusCreated, StatusEdited, StatusExisting, StatusEditFailed:
		return true
	}
	return false
}

type Submission struct {
	ID         string
	SourceKey  string
	VenueID    *string
	Status     SubmissionStatus
	StatusCode *int
	Detail     *string
	CreatedAt  time.Time
}

type SubmissionsQuery struct {
	Status *SubmissionStatus
	Limit  int
}
