package conversation

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/glowlabs/glowchat/backend/internal/model/chat"
	"github.com/glowlabs/glowchat/backend/pkg/ident"
)

const (
	// MaxAge is how long a session lives after creation. Activity does not
	// extend it; the original relay expires on creation time alone.
	MaxAge = time.Hour

	sweepInterval = time.Hour
)

// Service owns all conversation state. The single mutex serializes
// append+trim, so interleaved requests into the same session cannot
// observe a transcript longer than chat.MaxTurns. Handlers never hold the
// lock across an upstream call.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*chat.Session

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewService bootstraps the in-memory conversation store and starts its
// expiry sweeper. Callers must Close it at shutdown.
func NewService() *Service {
	s := &Service{
		sessions: make(map[string]*chat.Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Close stops the background sweeper. Idempotent.
func (s *Service) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// GetOrCreate returns the session for the given id, or a fresh one when the
// id is empty or unknown. It never fails: an expired or mistyped id simply
// starts a new conversation.
func (s *Service) GetOrCreate(_ context.Context, sessionID string) (chat.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID != "" {
		if existing, ok := s.sessions[sessionID]; ok {
			return snapshot(existing), false
		}
	}

	session := &chat.Session{
		ID:        ident.New(ident.KindSession),
		CreatedAt: time.Now().UTC(),
	}
	s.sessions[session.ID] = session
	return snapshot(session), true
}

// AppendTurn records one turn and trims the transcript to the most recent
// chat.MaxTurns. Appending to an unknown session reports false; the turn is
// dropped (the session was cleared or expired between calls).
func (s *Service) AppendTurn(_ context.Context, sessionID string, role chat.Role, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return false
	}

	session.Turns = append(session.Turns, chat.Turn{Role: role, Content: content})
	if excess := len(session.Turns) - chat.MaxTurns; excess > 0 {
		session.Turns = append(session.Turns[:0:0], session.Turns[excess:]...)
	}
	return true
}

// Transcript returns a copy of the retained turns, oldest first. The full
// window goes to the model verbatim; no summarization happens here.
func (s *Service) Transcript(_ context.Context, sessionID string) ([]chat.Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	turns := make([]chat.Turn, len(session.Turns))
	copy(turns, session.Turns)
	return turns, true
}

// Delete removes a session and reports whether it existed.
func (s *Service) Delete(_ context.Context, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// Count reports the number of live sessions, for the health endpoint.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SweepExpired removes sessions created more than maxAge ago. Exposed for
// tests; the sweeper goroutine calls it with MaxAge.
func (s *Service) SweepExpired(now time.Time, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if now.Sub(session.CreatedAt) > maxAge {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Service) sweepLoop() {
	defer close(s.done)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			if removed := s.SweepExpired(now, MaxAge); removed > 0 {
				log.Printf("[conversation] sweep removed %d expired session(s)", removed)
			}
		}
	}
}

func snapshot(session *chat.Session) chat.Session {
	copied := *session
	copied.Turns = make([]chat.Turn, len(session.Turns))
	copy(copied.Turns, session.Turns)
	return copied
}
