package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"mercator-hq/auditor/pkg/verdicts"
)

// MemoryStorage keeps records in a map. It is meant for tests and for runs
// with verdicts.backend set to "memory"; nothing survives a restart.
type MemoryStorage struct {
	records map[string]*verdicts.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*verdicts.Record),
	}
}

// Store saves a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *verdicts.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return verdicts.NewStorageError("memory", "store", fmt.Errorf("duplicate record id %s", record.ID))
	}
	s.records[record.ID] = copyRecord(record)
	return nil
}

// Get returns a copy of one record.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*verdicts.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", verdicts.ErrNotFound, id)
	}
	return copyRecord(r), nil
}

// Query returns copies of the matching records, sorted and paginated like
// the SQL backend.
func (s *MemoryStorage) Query(ctx context.Context, q *verdicts.Query) ([]*verdicts.Record, error) {
	s.mu.RLock()
	matched := s.filter(q)
	s.mu.RUnlock()

	sortRecords(matched, q)

	limit := verdicts.DefaultLimit
	if q.Limit > 0 {
		limit = q.Limit
	}
	if q.Offset >= len(matched) {
		return []*verdicts.Record{}, nil
	}
	end := q.Offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[q.Offset:end], nil
}

// QueryStream streams the result of Query.
func (s *MemoryStorage) QueryStream(ctx context.Context, q *verdicts.Query) (<-chan *verdicts.Record, <-chan error, error) {
	records, err := s.Query(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	recordsCh := make(chan *verdicts.Record, 100)
	errCh := make(chan error, 1)
	go func() {
		defer close(recordsCh)
		defer close(errCh)
		for _, r := range records {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- r:
			}
		}
	}()
	return recordsCh, errCh, nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, q *verdicts.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, r := range s.records {
		if q.Matches(r) {
			count++
		}
	}
	return count, nil
}

// Delete removes the matching records.
func (s *MemoryStorage) Delete(ctx context.Context, q *verdicts.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, r := range s.records {
		if q.Matches(r) {
			delete(s.records, id)
			count++
		}
	}
	return count, nil
}

// Ping always succeeds.
func (s *MemoryStorage) Ping(ctx context.Context) error { return nil }

// Close drops every record.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*verdicts.Record)
	return nil
}

// filter must be called with the read lock held.
func (s *MemoryStorage) filter(q *verdicts.Query) []*verdicts.Record {
	var out []*verdicts.Record
	for _, r := range s.records {
		if q.Matches(r) {
			out = append(out, copyRecord(r))
		}
	}
	return out
}

func sortRecords(records []*verdicts.Record, q *verdicts.Query) {
	column, direction := q.OrderBy()
	desc := direction == "DESC"

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		c := compareBy(column, a, b)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareBy(column string, a, b *verdicts.Record) int {
	switch column {
	case "audit_date":
		return strings.Compare(a.AuditDate, b.AuditDate)
	case "ticket_id":
		return strings.Compare(a.TicketID, b.TicketID)
	case "booking_ref":
		return strings.Compare(a.BookingRef, b.BookingRef)
	case "category":
		return strings.Compare(a.Category, b.Category)
	case "match_score":
		return a.MatchScore - b.MatchScore
	default:
		return a.AuditedAt.Compare(b.AuditedAt)
	}
}

func copyRecord(r *verdicts.Record) *verdicts.Record {
	c := *r
	if r.ReviewAgrees != nil {
		v := *r.ReviewAgrees
		c.ReviewAgrees = &v
	}
	return &c
}
