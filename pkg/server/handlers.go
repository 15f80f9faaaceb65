package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"mercator-hq/auditor/pkg/audit"
	"mercator-hq/auditor/pkg/engine"
	"mercator-hq/auditor/pkg/server/middleware"
	"mercator-hq/auditor/pkg/ticket"
	"mercator-hq/auditor/pkg/verdicts"
)

// AuditRequest is the body of POST /v1/audits. Exactly one of TicketID and
// Input must be set.
type AuditRequest struct {
	TicketID   string             `json:"ticket_id,omitempty"`
	Input      *engine.AuditInput `json:"input,omitempty"`
	BookingRef string             `json:"booking_ref,omitempty"`
}

// ListResponse is the body of GET /v1/audits.
type ListResponse struct {
	Records []*verdicts.Record `json:"records"`
	Total   int64              `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

func (s *Server) handleCreateAudit(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auditor == nil {
		middleware.WriteError(w, middleware.ErrorTypeServiceUnavailable, "audits are not available")
		return
	}

	var req AuditRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	var (
		result *audit.Result
		err    error
	)
	switch {
	case req.TicketID != "" && req.Input != nil:
		middleware.WriteError(w, middleware.ErrorTypeInvalidRequest, "set either ticket_id or input, not both")
		return
	case req.TicketID != "":
		result, err = s.deps.Auditor.AuditTicket(r.Context(), req.TicketID)
	case req.Input != nil:
		result, err = s.deps.Auditor.AuditInput(r.Context(), audit.Request{Input: *req.Input, BookingRef: req.BookingRef})
	default:
		middleware.WriteError(w, middleware.ErrorTypeInvalidRequest, "ticket_id or input is required")
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	if s.deps.Verdicts == nil {
		middleware.WriteError(w, middleware.ErrorTypeServiceUnavailable, "verdict storage is not configured")
		return
	}

	q, err := s.parseQuery(r)
	if err != nil {
		middleware.WriteError(w, middleware.ErrorTypeInvalidRequest, err.Error())
		return
	}
	if err := verdicts.Validate(q, s.query.MaxLimit); err != nil {
		middleware.WriteError(w, middleware.ErrorTypeInvalidRequest, err.Error())
		return
	}

	ctx, cancel := s.queryContext(r.Context())
	defer cancel()

	records, err := s.deps.Verdicts.Query(ctx, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	total, err := s.deps.Verdicts.Count(ctx, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []*verdicts.Record{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Records: records, Total: total, Limit: q.Limit, Offset: q.Offset})
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	if s.deps.Verdicts == nil {
		middleware.WriteError(w, middleware.ErrorTypeServiceUnavailable, "verdict storage is not configured")
		return
	}

	ctx, cancel := s.queryContext(r.Context())
	defer cancel()

	rec, err := s.deps.Verdicts.Get(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePolicyStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Policy == nil {
		middleware.WriteError(w, middleware.ErrorTypeServiceUnavailable, "policy manager is not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Policy.Status())
}

// handlePolicyReload loads the grid now. A failed load keeps the previous
// table and answers 502 with the cause.
func (s *Server) handlePolicyReload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Policy == nil {
		middleware.WriteError(w, middleware.ErrorTypeServiceUnavailable, "policy manager is not configured")
		return
	}
	if err := s.deps.Policy.Load(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "policy reload failed", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			middleware.WriteError(w, middleware.ErrorTypeGatewayTimeout, err.Error())
			return
		}
		middleware.WriteError(w, middleware.ErrorTypeBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Policy.Status())
}

// parseQuery reads the list filters. since and until accept RFC 3339
// timestamps or YYYY-MM-DD dates; a date in until covers the whole day.
func (s *Server) parseQuery(r *http.Request) (*verdicts.Query, error) {
	values := r.URL.Query()
	q := &verdicts.Query{
		TicketID:   values.Get("ticket_id"),
		BookingRef: values.Get("booking_ref"),
		Category:   values.Get("category"),
		ValueTier:  values.Get("tier"),
		Outcome:    values.Get("outcome"),
		SortBy:     values.Get("sort_by"),
		SortOrder:  values.Get("sort_order"),
		Limit:      s.query.DefaultLimit,
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &q.Limit}, {"offset", &q.Offset}} {
		raw := values.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", p.name, raw)
		}
		*p.dst = n
	}

	var err error
	if q.Since, err = verdicts.ParseTime(values.Get("since"), false); err != nil {
		return nil, fmt.Errorf("invalid since: %w", err)
	}
	if q.Until, err = verdicts.ParseTime(values.Get("until"), true); err != nil {
		return nil, fmt.Errorf("invalid until: %w", err)
	}
	return q, nil
}

func (s *Server) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.query.Timeout > 0 {
		return context.WithTimeout(ctx, s.query.Timeout)
	}
	return context.WithCancel(ctx)
}

// writeError maps service errors onto the error envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound   *ticket.NotFoundError
		auditErr   *audit.Error
		queryErr   *verdicts.QueryError
		errorType  = middleware.ErrorTypeServerError
		message    = err.Error()
		logAsError = false
	)

	switch {
	case errors.Is(err, audit.ErrNoTable):
		errorType = middleware.ErrorTypeServiceUnavailable
	case errors.Is(err, ticket.ErrNotConfigured):
		errorType = middleware.ErrorTypeInvalidRequest
		message = "ticket system is not configured; submit input instead"
	case errors.As(err, &notFound), errors.Is(err, verdicts.ErrNotFound):
		errorType = middleware.ErrorTypeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		errorType = middleware.ErrorTypeGatewayTimeout
	case errors.As(err, &queryErr):
		errorType = middleware.ErrorTypeInvalidRequest
	case errors.As(err, &auditErr) && auditErr.Stage == "ticket":
		errorType = middleware.ErrorTypeBadGateway
	default:
		logAsError = true
		message = "An internal error occurred. Please try again later."
	}

	if logAsError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	middleware.WriteError(w, errorType, message)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		middleware.WriteError(w, middleware.ErrorTypeRequestTooLarge, "request body too large")
		return
	}
	msg := strings.TrimPrefix(err.Error(), "json: ")
	middleware.WriteError(w, middleware.ErrorTypeInvalidRequest, "invalid request body: "+msg)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
