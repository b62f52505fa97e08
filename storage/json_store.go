package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const schemaVersion = "1.0"

// lockTimeout bounds how long NewJSONStore waits for another process.
var lockTimeout = 5 * time.Second

// JSONStore implements Store using a single JSON file. The file is locked for
// the lifetime of the store.
type JSONStore struct {
	path string
	lock *FileLock
	data *storeData
	mu   sync.RWMutex
}

// storeData is the top-level JSON structure.
type storeData struct {
	Version   string          `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	Runs      map[string]*Run `json:"runs"`
}

// NewJSONStore creates a new JSON file store at the given path.
// If the file exists, it is loaded; otherwise an empty store is created.
func NewJSONStore(path string) (*JSONStore, error) {
	if path == "" {
		return nil, &StorageError{Op: "open", Entity: "store", Err: ErrInvalidInput}
	}

	s := &JSONStore{
		path: path,
		lock: NewFileLock(path),
	}

	if err := s.lock.Lock(lockTimeout); err != nil {
		return nil, err
	}

	if err := s.load(); err != nil {
		s.lock.Unlock()
		return nil, err
	}

	return s, nil
}

// load reads the JSON file into memory. Creates empty data if file doesn't exist.
func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = newStoreData()
			// Save immediately to catch permission errors early
			return s.save()
		}
		return &StorageError{Op: "read", Entity: "store", Err: err}
	}

	s.data = &storeData{}
	if err := json.Unmarshal(data, s.data); err != nil {
		return &StorageError{Op: "read", Entity: "store", Err: ErrStorageCorrupt}
	}
	if s.data.Runs == nil {
		s.data.Runs = make(map[string]*Run)
	}

	return nil
}

// save persists the data to disk atomically.
func (s *JSONStore) save() error {
	s.data.UpdatedAt = time.Now()

	writer, err := NewAtomicWriter(s.path)
	if err != nil {
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		writer.Abort()
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}

	if err := writer.Commit(); err != nil {
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}

	return nil
}

// Close releases resources held by the store.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Unlock()
}

func newStoreData() *storeData {
	return &storeData{
		Version:   schemaVersion,
		UpdatedAt: time.Now(),
		Runs:      make(map[string]*Run),
	}
}

// --- RunStore implementation ---

func (s *JSONStore) CreateRun(ctx context.Context, run *Run) error {
	if run == nil {
		return &StorageError{Op: "create", Entity: "run", Err: ErrInvalidInput}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if _, exists := s.data.Runs[run.ID]; exists {
		return &StorageError{Op: "create", Entity: "run", ID: run.ID, Err: ErrAlreadyExists}
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}

	s.data.Runs[run.ID] = cloneRun(run)
	return s.save()
}

func (s *JSONStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data.Runs[id]
	if !exists {
		return nil, &StorageError{Op: "read", Entity: "run", ID: id, Err: ErrNotFound}
	}
	return cloneRun(run), nil
}

func (s *JSONStore) UpdateRun(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return &StorageError{Op: "update", Entity: "run", Err: ErrInvalidInput}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.Runs[run.ID]; !exists {
		return &StorageError{Op: "update", Entity: "run", ID: run.ID, Err: ErrNotFound}
	}

	s.data.Runs[run.ID] = cloneRun(run)
	return s.save()
}

func (s *JSONStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*Run, 0, len(s.data.Runs))
	for _, r := range s.data.Runs {
		runs = append(runs, cloneRun(r))
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *JSONStore) VideoHistory(ctx context.Context, videoID string) ([]VideoResult, error) {
	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		return nil, err
	}

	var results []VideoResult
	for _, r := range runs {
		for _, v := range r.Videos {
			if v.VideoID == videoID {
				v.RunID = r.ID
				results = append(results, v)
			}
		}
	}
	return results, nil
}

// cloneRun copies a run so callers never share memory with the store.
func cloneRun(r *Run) *Run {
	cp := *r
	cp.TargetLanguages = append([]string(nil), r.TargetLanguages...)
	cp.Videos = make([]VideoResult, len(r.Videos))
	for i, v := range r.Videos {
		v.Languages = append([]LanguageResult(nil), v.Languages...)
		cp.Videos[i] = v
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}
