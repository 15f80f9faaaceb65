package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/engine"
	"mercator-hq/auditor/pkg/policy"
	"mercator-hq/auditor/pkg/review"
	"mercator-hq/auditor/pkg/sink"
	"mercator-hq/auditor/pkg/telemetry/logging"
	"mercator-hq/auditor/pkg/telemetry/metrics"
	"mercator-hq/auditor/pkg/ticket"
	"mercator-hq/auditor/pkg/verdicts"
)

// Confidence labels.
const (
	ConfidenceLow    = "Low"
	ConfidenceMedium = "Medium"
	ConfidenceHigh   = "High"
)

// TableSource returns the decision grid in force; *manager.Manager
// implements it.
type TableSource interface {
	Current() *policy.Table
}

// Reviewer gives a second opinion on a verdict; *review.Reviewer
// implements it.
type Reviewer interface {
	Review(ctx context.Context, input engine.AuditInput, verdict engine.Verdict) (*review.Opinion, error)
}

// Request is an audit of input supplied by the caller rather than fetched
// from the ticket system.
type Request struct {
	Input engine.AuditInput `json:"input"`

	// BookingRef identifies the audited booking in the output row.
	BookingRef string `json:"booking_ref"`

	// TicketID is optional and only recorded.
	TicketID string `json:"ticket_id,omitempty"`
}

// SinkFailure is a sink that did not accept the record.
type SinkFailure struct {
	Sink  string `json:"sink"`
	Error string `json:"error"`
}

// Result is a completed audit.
type Result struct {
	Record  *verdicts.Record `json:"record"`
	Verdict engine.Verdict   `json:"verdict"`
	Opinion *review.Opinion  `json:"review,omitempty"`

	// SinkErrors lists sinks that failed; the audit itself succeeded.
	SinkErrors []SinkFailure `json:"sink_errors,omitempty"`
}

// Service runs audits. It is safe for concurrent use.
type Service struct {
	tables    TableSource
	tickets   ticket.Provider
	reviewer  Reviewer
	sinkList  []sink.Sink
	sinks     *sink.Multi
	collector *metrics.Collector
	logger    *slog.Logger

	location *time.Location
	timeout  time.Duration
	now      func() time.Time
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithTickets sets the ticket provider used by AuditTicket.
func WithTickets(p ticket.Provider) Option {
	return func(s *Service) { s.tickets = p }
}

// WithReviewer enables second opinions.
func WithReviewer(r Reviewer) Option {
	return func(s *Service) { s.reviewer = r }
}

// WithSinks sets the sinks every record is forwarded to.
func WithSinks(sinks ...sink.Sink) Option {
	return func(s *Service) { s.sinkList = append(s.sinkList, sinks...) }
}

// WithCollector sets the metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(s *Service) { s.collector = c }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the UUID v4 record id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates an audit service over tables.
func NewService(tables TableSource, cfg config.AuditConfig, opts ...Option) (*Service, error) {
	zone := cfg.Timezone
	if zone == "" {
		zone = "UTC"
	}
	location, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("invalid audit timezone %q: %w", zone, err)
	}

	s := &Service{
		tables:   tables,
		location: location,
		timeout:  cfg.Timeout,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sinks = sink.NewMulti(s.collector, s.sinkList...)
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "audit")
	return s, nil
}

// AuditTicket fetches a ticket and audits it.
func (s *Service) AuditTicket(ctx context.Context, ticketID string) (*Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ctx = logging.WithTicketID(ctx, ticketID)

	if s.tickets == nil {
		s.collector.RecordAuditError("ticket")
		return nil, &Error{Stage: "ticket", TicketID: ticketID, Cause: ticket.ErrNotConfigured}
	}
	table, err := s.table(ticketID)
	if err != nil {
		return nil, err
	}

	tc, err := s.tickets.FetchContext(ctx, ticketID)
	if err != nil {
		s.collector.RecordAuditError("ticket")
		s.logger.WarnContext(ctx, "ticket fetch failed", "error", err)
		return nil, &Error{Stage: "ticket", TicketID: ticketID, Cause: err}
	}
	return s.run(ctx, table, tc.Input(), tc.TicketID, tc.BookingRef), nil
}

// AuditInput audits caller-supplied input. When the input carries no
// observed action it is extracted from the conversation.
func (s *Service) AuditInput(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if req.TicketID != "" {
		ctx = logging.WithTicketID(ctx, req.TicketID)
	}

	table, err := s.table(req.TicketID)
	if err != nil {
		return nil, err
	}

	input := req.Input
	if input.ObservedActionText == "" {
		input.ObservedActionText = ticket.ExtractObservedAction(input.ConversationText)
	}
	return s.run(ctx, table, input, req.TicketID, req.BookingRef), nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Service) table(ticketID string) (*policy.Table, error) {
	table := s.tables.Current()
	if table == nil {
		s.collector.RecordAuditError("policy")
		return nil, &Error{Stage: "policy", TicketID: ticketID, Cause: ErrNoTable}
	}
	return table, nil
}

func (s *Service) run(ctx context.Context, table *policy.Table, input engine.AuditInput, ticketID, bookingRef string) *Result {
	start := s.now()
	verdict := engine.Evaluate(table, input)

	rec := s.buildRecord(verdict, input, table, ticketID, bookingRef, start)
	ctx = logging.WithPolicyVersion(logging.WithAuditID(ctx, rec.ID), rec.PolicyVersion)
	result := &Result{Record: rec, Verdict: verdict}

	if s.reviewer != nil {
		opinion, err := s.reviewer.Review(ctx, input, verdict)
		if err != nil {
			s.collector.RecordAuditError("review")
			s.logger.WarnContext(ctx, "review failed", "error", err)
			rec.Error = err.Error()
		} else {
			agrees := opinion.Agrees
			rec.ReviewAgrees = &agrees
			rec.ReviewRationale = opinion.Rationale
			result.Opinion = opinion
		}
	}

	for _, failure := range s.sinks.WriteAll(ctx, rec) {
		s.logger.WarnContext(ctx, "sink write failed", "sink", failure.Sink, "error", failure.Cause)
		result.SinkErrors = append(result.SinkErrors, SinkFailure{Sink: failure.Sink, Error: failure.Cause.Error()})
	}

	s.collector.RecordAudit(rec.Category, rec.ValueTier, rec.Outcome, verdict.Fallback, s.now().Sub(start))
	s.logger.InfoContext(ctx, "ticket audited",
		"category", rec.Category,
		"value_tier", rec.ValueTier,
		"column", rec.ColumnKey,
		"matched", verdict.Matched(),
		"confidence", rec.Confidence,
	)
	return result
}

func (s *Service) buildRecord(v engine.Verdict, input engine.AuditInput, table *policy.Table, ticketID, bookingRef string, at time.Time) *verdicts.Record {
	if bookingRef == "" {
		bookingRef = ticketID
	}
	return &verdicts.Record{
		ID:             s.newID(),
		TicketID:       ticketID,
		BookingRef:     bookingRef,
		AuditDate:      at.In(s.location).Format("2006-01-02"),
		AuditedAt:      at.UTC(),
		Category:       string(v.Category),
		ValueTier:      string(v.Tier),
		L1Reason:       v.L1Reason,
		L2Reason:       v.L2Reason,
		ColumnKey:      string(v.Column),
		ColumnHeader:   v.ColumnHeader,
		ExperienceType: v.ExperienceType,
		Outcome:        string(v.Outcome),
		ExpectedAction: v.ExpectedAction,
		ObservedAction: v.ObservedAction,
		Explanation:    v.Explanation,
		Confidence:     Confidence(input.ConversationCount),
		MatchScore:     v.MatchScore,
		Fallback:       v.Fallback,
		PolicyVersion:  table.Version(),
	}
}

// Confidence labels an audit by the number of messages it saw: none is
// Low, one or two is Medium, three or more is High.
func Confidence(conversationCount int) string {
	switch {
	case conversationCount <= 0:
		return ConfidenceLow
	case conversationCount < 3:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}
