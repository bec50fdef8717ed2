package mysql

const insertSubmissionSQL = `
INSERT INTO submissions
  (id, source_key, venue_id, status, status_code, detail, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP(6)))
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const submissionColumns = `id, source_key, venue_id, status, status_code, detail, created_at`

// Latest record for one source row; id breaks ties within the same microsecond.
const latestSubmissionSQL = `
SELECT ` + submissionColumns + `
FROM submissions
WHERE source_key = ?
ORDER BY created_at DESC, id DESC
LIMIT 1
`

const listSubmissionsSQL = `
SELECT ` + submissionColumns + `
FROM submissions
ORDER BY created_at DESC, id DESC
LIMIT ?
`

const listSubmissionsByStatusSQL = `
SELECT ` + submissionColumns + `
FROM submissions
WHERE status = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`
