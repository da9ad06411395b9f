package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/KaramelBytes/ruler/internal/memo"
	"github.com/google/uuid"
)

// Options configure a Store.
type Options struct {
	TTL               time.Duration
	CleanupInterval   time.Duration
	MemoSize          int
	DefaultConfidence float64
}

// Store holds sessions in memory and evicts them after TTL of inactivity.
// A single-instance store: sessions do not survive a restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
	now      func() time.Time

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewStore creates a store and starts its cleanup goroutine.
func NewStore(opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 5 * time.Minute
	}
	s := &Store{
		sessions: make(map[string]*Session),
		opts:     opts,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop()
	return s
}

// Get returns a live session and marks it as seen.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(sess, now) {
		delete(s.sessions, id)
		sess.release()
		return nil, false
	}
	sess.LastSeen = now
	return sess, true
}

// GetOrCreate returns the session for id, or a new one when id is unknown or
// expired. created reports whether a new session was made.
func (s *Store) GetOrCreate(id string) (sess *Session, created bool, err error) {
	if id != "" {
		if sess, ok := s.Get(id); ok {
			return sess, false, nil
		}
	}
	sess, err = s.create()
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

func (s *Store) create() (*Session, error) {
	loads, err := memo.New(s.opts.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("session load cache: %w", err)
	}
	rules, err := memo.New(s.opts.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("session rules cache: %w", err)
	}
	now := s.now()
	sess := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		LastSeen:   now,
		Confidence: s.opts.DefaultConfidence,
		Loads:      loads,
		Rules:      rules,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

// Delete drops a session and its cached results. It reports whether the
// session existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.release()
	}
	return ok
}

// Len returns the number of stored sessions, expired ones included until the
// next cleanup.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.LastSeen) > s.opts.TTL
}

func (s *Store) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired sessions along with their caches.
func (s *Store) cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			sess.release()
			n++
		}
	}
	return n
}
