package media

import (
	"sync"
	"time"
)

type Kind string

const KindImage Kind = "image"

// Record points at the most recently received media object of a kind.
// The path is only the last path written: callers verify the file still
// exists before use and treat a missing file as "nothing staged".
type Record struct {
	Kind       Kind
	Path       string
	ReceivedAt time.Time
}

type key struct {
	userID int64
	kind   Kind
}

// Stager keeps at most one staged record per user and kind.
type Stager struct {
	mu     sync.RWMutex
	staged map[key]Record
}

func NewStager() *Stager {
	return &Stager{staged: make(map[key]Record)}
}

// Stage overwrites any previously staged record of the same kind.
func (s *Stager) Stage(userID int64, kind Kind, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[key{userID: userID, kind: kind}] = Record{Kind: kind, Path: path, ReceivedAt: time.Now()}
}

func (s *Stager) Staged(userID int64, kind Kind) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.staged[key{userID: userID, kind: kind}]
	return r, ok
}
