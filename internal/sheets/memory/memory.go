package memory

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"slices"
	"sync"

	ports "gestor/internal/sheets"
)

type table struct {
	header []string
	rows   [][]string
}

// Store keeps tables in process memory. It is the default backend for local
// runs and tests.
type Store struct {
	mu     sync.Mutex
	tables map[string]table
	writes int
}

var _ ports.TableStore = (*Store)(nil)

func New() *Store {
	return &Store{tables: map[string]table{}}
}

// NewFromFiles seeds the store with every "<name>.csv" snapshot found in dir.
// Missing or unreadable files are skipped.
func NewFromFiles(dir string) *Store {
	s := New()
	paths, _ := filepath.Glob(filepath.Join(dir, "*.csv"))
	for _, p := range paths {
		records := readCSV(p)
		if len(records) == 0 {
			continue
		}
		name := filepath.Base(p)
		name = name[:len(name)-len(filepath.Ext(name))]
		s.tables[name] = table{header: records[0], rows: records[1:]}
	}
	return s
}

func (s *Store) ReadTable(_ context.Context, name string) ([]string, [][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, nil, ports.ErrTableNotFound
	}
	return slices.Clone(t.header), cloneRows(t.rows), nil
}

func (s *Store) WriteTable(_ context.Context, name string, header []string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = table{header: slices.Clone(header), rows: cloneRows(rows)}
	s.writes++
	return nil
}

// Writes returns how many WriteTable calls have completed.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = slices.Clone(r)
	}
	return out
}

func readCSV(path string) [][]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil
	}
	return records
}
