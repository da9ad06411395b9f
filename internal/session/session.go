// Package session keeps per-visitor UI state on the server side.
package session

import (
	"sync"
	"time"

	"github.com/KaramelBytes/ruler/internal/analysis"
	"github.com/KaramelBytes/ruler/internal/memo"
)

// Upload is the raw file a visitor sent.
type Upload struct {
	Name     string
	Data     []byte
	Identity string
}

// Session is one visitor's state. Callers hold Lock while reading or
// mutating fields.
type Session struct {
	ID        string
	CreatedAt time.Time
	LastSeen  time.Time

	Upload *Upload
	// Roles is nil until the visitor picks columns; suggestions apply until then.
	Roles      *analysis.Roles
	Confidence float64
	UseIgnore  bool
	Ignore     []string
	ShowHints  bool

	// Loads memoizes parsed datasets, Rules memoizes mining runs.
	Loads *memo.Cache
	Rules *memo.Cache

	mu        sync.Mutex
	triggered bool
	notices   []string
}

// Lock acquires the session for one render or update.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Trigger records that rule generation was requested. It cannot be undone.
func (s *Session) Trigger() { s.triggered = true }

// Triggered reports whether rule generation was ever requested.
func (s *Session) Triggered() bool { return s.triggered }

// SetUpload replaces the uploaded file and resets selections that referred
// to the previous dataset. The trigger stays set.
func (s *Session) SetUpload(name string, data []byte) {
	s.Upload = &Upload{
		Name:     name,
		Data:     data,
		Identity: analysis.IdentityOf([]byte(name), data),
	}
	s.Roles = nil
	s.Ignore = nil
}

// Notify queues a message for the next rendered page.
func (s *Session) Notify(msg string) {
	s.notices = append(s.notices, msg)
}

// TakeNotices returns the queued messages and clears the queue.
func (s *Session) TakeNotices() []string {
	n := s.notices
	s.notices = nil
	return n
}

// release drops memoized results so a removed session frees them at once.
func (s *Session) release() {
	if s.Loads != nil {
		s.Loads.Purge()
	}
	if s.Rules != nil {
		s.Rules.Purge()
	}
}

// SetRoles stores the visitor's column choices.
func (s *Session) SetRoles(r analysis.Roles) {
	s.Roles = &r
}
