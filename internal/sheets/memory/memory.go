package memory

import (
	"context"
	"fmt"
	"sync"

	ports "kegelkladde/internal/sheets"
)

// Store keeps exported reports in memory. It backs EXPORT_BACKEND=memory
// and tests.
type Store struct {
	mu    sync.Mutex
	items []ports.Report
	rows  [][]any
}

var _ ports.SettlementExporter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// ExportSettlement stores the report and returns a synthetic row reference.
func (s *Store) ExportSettlement(_ context.Context, r ports.Report) (string, error) {
	rows := ports.Rows(r)
	if len(rows) == 0 {
		return "", fmt.Errorf("gameday %d has no settlement lines", r.Gameday.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	start := len(s.rows) + 1
	s.items = append(s.items, r)
	s.rows = append(s.rows, rows...)
	return fmt.Sprintf("mem:%d-%d", start, len(s.rows)), nil
}

// Reports returns a copy of everything exported so far.
func (s *Store) Reports() []ports.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Report(nil), s.items...)
}

// Rows returns the flattened rows in export order.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.rows...)
}
