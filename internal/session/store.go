// Package session tracks in-progress interactive storybook edits.
// Each session owns one working directory holding its generated
// images and serialized state document. Sessions are process-local
// and expire on a sliding TTL; there is no durability across
// restarts.
package session

import (
	"container/heap"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

type entry struct {
	id        string
	workdir   string
	expiresAt time.Time
	heapIndex int
	stale     bool
}

// Store is a registry of live sessions keyed by opaque identifier.
// Exported methods are safe for concurrent use; mutations of one
// session's on-disk state are last-write-wins.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	expiry  expiryHeap
	ttl     time.Duration

	now func() time.Time

	onExpire func(id string)
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetExpireHook registers a callback invoked (outside the lock) for
// every session removed by the lazy purge.
func (s *Store) SetExpireHook(hook func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = hook
}

// Create registers workdir under a fresh identifier and returns the
// identifier. The directory is owned exclusively by the new session
// until Destroy or expiry.
func (s *Store) Create(workdir string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	for {
		if _, exists := s.entries[id]; !exists {
			break
		}
		id = uuid.NewString()
	}
	e := &entry{id: id, workdir: workdir, expiresAt: s.now().Add(s.ttl)}
	s.entries[id] = e
	heap.Push(&s.expiry, e)
	return id
}

// Resolve purges expired sessions, then returns the working
// directory for id. Returns ErrNotFound for unknown or just-purged
// identifiers.
func (s *Store) Resolve(id string) (string, error) {
	s.mu.Lock()
	expired := s.purgeLocked()
	e, ok := s.entries[id]
	var workdir string
	if ok {
		workdir = e.workdir
	}
	hook := s.onExpire
	s.mu.Unlock()

	s.removeDirs(expired)
	if hook != nil {
		for _, ex := range expired {
			hook(ex.id)
		}
	}
	if !ok {
		return "", ErrNotFound
	}
	return workdir, nil
}

// Touch slides the session's expiry forward to now+TTL. A missing id
// is a no-op: a caller that resolved the session moments ago may
// benignly race with concurrent expiry.
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return
	}
	// Leave the old heap slot behind as stale rather than re-ordering
	// in place; the purge skips stale slots.
	e.stale = true
	fresh := &entry{id: e.id, workdir: e.workdir, expiresAt: s.now().Add(s.ttl)}
	s.entries[id] = fresh
	heap.Push(&s.expiry, fresh)
}

// Destroy removes the session and deletes its working directory.
// Idempotent: destroying an absent identifier is not an error.
func (s *Store) Destroy(id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		e.stale = true
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if ok {
		_ = os.RemoveAll(e.workdir)
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// purgeLocked pops every expired entry off the expiry heap. Cost is
// proportional to the expired count, not the store size. Caller
// holds the lock and deletes the returned workdirs afterwards.
func (s *Store) purgeLocked() []*entry {
	now := s.now()
	var expired []*entry
	for s.expiry.Len() > 0 {
		head := s.expiry[0]
		if head.stale {
			heap.Pop(&s.expiry)
			continue
		}
		if head.expiresAt.After(now) {
			break
		}
		heap.Pop(&s.expiry)
		delete(s.entries, head.id)
		expired = append(expired, head)
	}
	return expired
}

func (s *Store) removeDirs(expired []*entry) {
	for _, e := range expired {
		// Tolerates partial or already-missing directories.
		_ = os.RemoveAll(e.workdir)
	}
}

type expiryHeap []*entry

func (h expiryHeap) Len() int           { return len(h) }
func (h expiryHeap) Less(i, j int) bool { return h[i].expiresAt.Before(h[j].expiresAt) }
func (h expiryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}
func (h *expiryHeap) Push(x any) { e := x.(*entry); e.heapIndex = len(*h); *h = append(*h, e) }
func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
