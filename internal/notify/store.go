package notify

import "sync"

const DefaultCapacity = 100

// Store keeps the most recent notifications, newest first. Once full, adding
// evicts the oldest entry.
type Store struct {
	mu   sync.RWMutex
	buf  []Notification
	head int
	size int
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{buf: make([]Notification, capacity)}
}

// Add puts n in front. It returns the evicted notification, if any.
func (s *Store) Add(n Notification) (Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	capacity := len(s.buf)
	s.head = (s.head - 1 + capacity) % capacity
	evicted, full := s.buf[s.head], s.size == capacity
	s.buf[s.head] = n
	if !full {
		s.size++
	}
	return evicted, full
}

// List returns a copy of the notifications, newest first.
func (s *Store) List() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Notification, s.size)
	for i := range out {
		out[i] = s.buf[s.index(i)]
	}
	return out
}

// MarkRead flags one notification as read. It reports false for unknown ids.
func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < s.size; i++ {
		n := &s.buf[s.index(i)]
		if n.ID == id {
			n.Read = true
			return true
		}
	}
	return false
}

// MarkAllRead flags every notification as read and returns how many changed.
func (s *Store) MarkAllRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for i := 0; i < s.size; i++ {
		n := &s.buf[s.index(i)]
		if !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed
}

func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unread := 0
	for i := 0; i < s.size; i++ {
		if !s.buf[s.index(i)].Read {
			unread++
		}
	}
	return unread
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *Store) Cap() int {
	return len(s.buf)
}

// Clear drops everything, used on sign-out.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.buf {
		s.buf[i] = Notification{}
	}
	s.head, s.size = 0, 0
}

func (s *Store) index(i int) int {
	return (s.head + i) % len(s.buf)
}
