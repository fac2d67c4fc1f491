package notification

import "github.com/sneh-joshi/notifyring/internal/types"

// MaxNotifications is the fixed ring capacity. One slot always stays empty so
// that begin == end means empty, which caps the live count at
// MaxNotifications-1.
const MaxNotifications = 100

// advance is the only index step. Every mutation of begin or end goes
// through it.
func advance(i int32) int32 {
	i++
	if i >= MaxNotifications {
		i = 0
	}
	return i
}

// unbound reports the Uninit state, in which the range reads -1,-1.
func (s *Store) unbound() bool { return s.begin < 0 || s.end < 0 }

func (s *Store) isFull() bool {
	return !s.unbound() && advance(s.end) == s.begin
}

// slot maps a zero-based offset into the live range to an array index.
func (s *Store) slot(i int) (int32, bool) {
	if i < 0 || i >= s.Count() {
		return 0, false
	}
	return int32((int(s.begin) + i) % MaxNotifications), true
}

// each visits [begin, end) in buffer order until fn returns false.
func (s *Store) each(fn func(r *types.Record) bool) {
	if s.unbound() {
		return
	}
	for i := s.begin; i != s.end; i = advance(i) {
		if !fn(&s.records[i]) {
			return
		}
	}
}

// eachLive is each restricted to records that are not dismissed.
func (s *Store) eachLive(fn func(r *types.Record) bool) {
	s.each(func(r *types.Record) bool {
		if r.Dismissed {
			return true
		}
		return fn(r)
	})
}

// find returns the in-range record with lookup id, or nil.
func (s *Store) find(id int32) *types.Record {
	var found *types.Record
	s.each(func(r *types.Record) bool {
		if r.LookupID == id {
			found = r
			return false
		}
		return true
	})
	return found
}

// evictOldest retires the begin slot, dismissing it first if still live.
func (s *Store) evictOldest() {
	r := &s.records[s.begin]
	if !r.Dismissed {
		s.Dismiss(r.LookupID, false)
	}
	s.observe(EventEvicted, r.Kind)
	r.Clear()
	s.begin = advance(s.begin)
}
