package store

import "container/list"

// Seen is a bounded set of ids that forgets the oldest entry once full.
// It is not safe for concurrent use; the poll loop owns it.
type Seen struct {
	cap   int
	ll    *list.List               // oldest at front
	items map[string]*list.Element // key -> element
}

// NewSeen builds a set holding at most maxKeys ids, preloaded with keys in
// oldest-first order.
func NewSeen(maxKeys int, keys ...string) *Seen {
	if maxKeys <= 0 {
		maxKeys = 100
	}
	s := &Seen{cap: maxKeys, ll: list.New(), items: make(map[string]*list.Element, maxKeys)}
	for _, k := range keys {
		s.Mark(k)
	}
	return s
}

func (s *Seen) Has(key string) bool {
	_, ok := s.items[key]
	return ok
}

// Mark records key as the newest entry, evicting from the old end past cap.
func (s *Seen) Mark(key string) {
	if key == "" {
		return
	}
	if el, ok := s.items[key]; ok {
		s.ll.MoveToBack(el)
		return
	}
	s.items[key] = s.ll.PushBack(key)
	for s.ll.Len() > s.cap {
		front := s.ll.Front()
		s.ll.Remove(front)
		delete(s.items, front.Value.(string))
	}
}

func (s *Seen) Len() int { return s.ll.Len() }

// Keys returns the ids oldest first, ready to persist.
func (s *Seen) Keys() []string {
	out := make([]string, 0, s.ll.Len())
	for el := s.ll.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(string))
	}
	return out
}
