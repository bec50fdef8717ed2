package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"venue_submit/internal/app"
	"venue_submit/internal/domain"
)

type Handlers struct{ Q *app.LedgerQueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type submissionJSON struct {
	ID         string    `json:"id"`
	SourceKey  string    `json:"source_key"`
	VenueID    *string   `json:"venue_id,omitempty"`
	VenueURL   string    `json:"venue_url,omitempty"`
	Status     string    `json:"status"`
	StatusCode *int      `json:"status_code,omitempty"`
	Detail     *string   `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toJSON(s domain.Submission) submissionJSON {
	out := submissionJSON{
		ID:         s.ID,
		SourceKey:  s.SourceKey,
		VenueID:    s.VenueID,
		Status:     string(s.Status),
		StatusCode: s.StatusCode,
		Detail:     s.Detail,
		CreatedAt:  s.CreatedAt,
	}
	if s.VenueID != nil {
		out.VenueURL = domain.VenueURL(*s.VenueID)
	}
	return out
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/submissions", h.listSubmissions)
	s.mux.Get("/v1/submissions/{key}", h.getSubmission)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func (h *Handlers) getSubmission(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	s, err := h.Q.Latest(r.Context(), key)
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no submission for "+key)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("ledger lookup failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "ledger unavailable")
		return
	}
	writeJSON(w, r, toJSON(s))
}

func (h *Handlers) listSubmissions(w http.ResponseWriter, r *http.Request) {
	var q domain.SubmissionsQuery
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		q.Limit = l
	}
	if st := r.URL.Query().Get("status"); st != "" {
		status := domain.SubmissionStatus(st)
		q.Status = &status
	}

	items, err := h.Q.List(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("ledger list failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "ledger unavailable")
		return
	}
	out := struct {
		Items []submissionJSON `json:"items"`
	}{Items: make([]submissionJSON, 0, len(items))}
	for _, s := range items {
		out.Items = append(out.Items, toJSON(s))
	}
	writeJSON(w, r, out)
}
