package memory

import (
	"context"
	"fmt"
	"sync"
)

// Table is one stored table snapshot.
type Table struct {
	Header []string
	Rows   [][]string
}

// Store keeps written tables in memory. It stands in for the Google
// Sheets sink in tests and local runs.
type Store struct {
	mu     sync.Mutex
	tables map[string]Table
	writes int
}

func New() *Store {
	return &Store{tables: make(map[string]Table)}
}

// WriteTable replaces the named table.
func (s *Store) WriteTable(_ context.Context, name string, header []string, rows [][]string) error {
	if name == "" {
		return fmt.Errorf("empty table name")
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("row %d has %d cells, header has %d", i, len(row), len(header))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = Table{
		Header: append([]string(nil), header...),
		Rows:   copyRows(rows),
	}
	s.writes++
	return nil
}

// Table returns a copy of the named table and whether it exists.
func (s *Store) Table(name string) (Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return Table{}, false
	}
	return Table{
		Header: append([]string(nil), t.Header...),
		Rows:   copyRows(t.Rows),
	}, true
}

// Writes reports how many WriteTable calls have succeeded.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
