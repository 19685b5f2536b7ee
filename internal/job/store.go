package job

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge/internal/assemble"
	"github.com/reelforge/reelforge/internal/types"
)

// State is the lifecycle of a tracked job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Status is a point-in-time snapshot of one job, safe to hand to callers.
type Status struct {
	ID        string                `json:"id"`
	Dir       string                `json:"dir"`
	State     State                 `json:"state"`
	Stage     assemble.Stage        `json:"stage"`
	Percent   int                   `json:"percent"`
	Message   string                `json:"message"`
	Error     string                `json:"error,omitempty"`
	Result    *types.AssemblyResult `json:"result,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Store tracks job progress for status-polling callers. Each entry is
// written only by the worker goroutine running that job; the store adds
// the locking needed for concurrent reads.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]Status
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]Status)}
}

// Create registers a new pending job and returns its snapshot.
func (s *Store) Create(dir string) Status {
	now := time.Now().UTC()
	st := Status{
		ID:        uuid.NewString(),
		Dir:       dir,
		State:     StatePending,
		Stage:     assemble.StageIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.jobs[st.ID] = st
	s.mu.Unlock()
	return st
}

// Update mutates one job's entry under the lock. Only the worker that
// owns the job may call it.
func (s *Store) Update(id string, fn func(*Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.jobs[id]
	if !ok {
		return
	}
	fn(&st)
	st.UpdatedAt = time.Now().UTC()
	s.jobs[id] = st
}

// Get returns a snapshot of one job.
func (s *Store) Get(id string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.jobs[id]
	return st, ok
}

// List returns snapshots of every tracked job.
func (s *Store) List() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Status, 0, len(s.jobs))
	for _, st := range s.jobs {
		out = append(out, st)
	}
	return out
}
