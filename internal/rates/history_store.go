package rates

import (
	"context"
	"sync"

	"github.com/omartood/somalia-ex-rate/pkg/filestore"
)

// FileHistoryStore persists the historical cache as one JSON file mapping
// ISO date to rate table. Read failures are misses; the file is rewritten
// whole on every change, matching the durable snapshot cache semantics.
type FileHistoryStore struct {
	mu   sync.Mutex
	path string
}

// NewFileHistoryStore returns a store over the given file path.
func NewFileHistoryStore(path string) *FileHistoryStore {
	return &FileHistoryStore{path: path}
}

func (s *FileHistoryStore) Get(ctx context.Context, date string) (RateTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()[date], nil
}

func (s *FileHistoryStore) Put(ctx context.Context, date string, table RateTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.load()
	entries[date] = table
	return filestore.WriteJSON(s.path, entries)
}

func (s *FileHistoryStore) Prune(ctx context.Context, before string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.load()
	changed := false
	for date := range entries {
		if date < before {
			delete(entries, date)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return filestore.WriteJSON(s.path, entries)
}

// load reads the backing file, treating any failure as an empty cache.
func (s *FileHistoryStore) load() map[string]RateTable {
	entries := make(map[string]RateTable)
	_ = filestore.ReadJSON(s.path, &entries)
	return entries
}
