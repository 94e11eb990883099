package aggregator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RoundDataFile is the file name datasets are appended to.
const RoundDataFile = "round-data.csv"

// Store keeps the datasets produced since the last write.
type Store struct {
	mu      sync.Mutex
	pending []*RoundDataset
}

func NewStore() *Store {
	return &Store{}
}

// Add queues a dataset for the next Write.
func (s *Store) Add(d *RoundDataset) {
	s.mu.Lock()
	s.pending = append(s.pending, d)
	s.mu.Unlock()
}

// Pending returns the queued datasets.
func (s *Store) Pending() []*RoundDataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*RoundDataset(nil), s.pending...)
}

// Clear drops every queued dataset and returns how many there were.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.pending)
	s.pending = nil
	return n
}

// Write appends every queued dataset to dir/round-data.csv and clears the
// queue. The header is written only when the file is new or empty. On
// error the queue is left untouched.
func (s *Store) Write(dir string) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(dir, RoundDataFile)
	if len(s.pending) == 0 {
		return path, 0, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return path, 0, fmt.Errorf("creating %s: %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return path, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return path, 0, fmt.Errorf("stat %s: %w", path, err)
	}

	header := info.Size() == 0
	rows := 0
	for _, d := range s.pending {
		if err := d.WriteCSV(f, header); err != nil {
			return path, rows, fmt.Errorf("writing %s: %w", path, err)
		}
		header = false
		rows += d.Len()
	}
	if err := f.Sync(); err != nil {
		return path, rows, fmt.Errorf("syncing %s: %w", path, err)
	}

	s.pending = nil
	return path, rows, nil
}
