package mockapi

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one stored document, shaped exactly as it goes over the wire.
type Record map[string]any

// ID returns the record's "_id".
func (r Record) ID() string {
	id, _ := r["_id"].(string)
	return id
}

func (r Record) str(key string) string {
	v, _ := r[key].(string)
	return v
}

type collection struct {
	order []string
	byID  map[string]Record
}

type listFilter struct {
	Category string
	Search   string
}

// store keeps every collection in memory, in insertion order.
type store struct {
	mu   sync.RWMutex
	cols map[string]*collection
	now  func() time.Time
}

func newStore() *store {
	return &store{cols: make(map[string]*collection), now: time.Now}
}

func (s *store) col(kind string) *collection {
	c, ok := s.cols[kind]
	if !ok {
		c = &collection{byID: make(map[string]Record)}
		s.cols[kind] = c
	}
	return c
}

func (s *store) list(kind string, f listFilter) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.cols[kind]
	out := []Record{}
	if c == nil {
		return out
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, id := range c.order {
		rec := c.byID[id]
		if f.Category != "" && f.Category != "All" && rec.str("category") != f.Category {
			continue
		}
		if search != "" && !matches(rec, search) {
			continue
		}
		out = append(out, maps.Clone(rec))
	}
	return out
}

func matches(rec Record, search string) bool {
	for _, field := range []string{"title", "excerpt", "content", "description", "name", "subject"} {
		if strings.Contains(strings.ToLower(rec.str(field)), search) {
			return true
		}
	}
	return false
}

func (s *store) get(kind, id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.cols[kind]
	if c == nil {
		return nil, false
	}
	rec, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return maps.Clone(rec), true
}

func (s *store) findBy(kind, field, value string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.cols[kind]
	if c == nil {
		return nil, false
	}
	for _, id := range c.order {
		if c.byID[id].str(field) == value {
			return maps.Clone(c.byID[id]), true
		}
	}
	return nil, false
}

// create stores rec under a fresh id unless it already carries one.
func (s *store) create(kind string, rec Record) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec = maps.Clone(rec)
	if rec.ID() == "" {
		rec["_id"] = uuid.NewString()
	}
	delete(rec, "id")
	stamp := s.now().UTC().Format(time.RFC3339Nano)
	if _, ok := rec["createdAt"]; !ok {
		rec["createdAt"] = stamp
	}
	rec["updatedAt"] = stamp

	c := s.col(kind)
	if _, exists := c.byID[rec.ID()]; !exists {
		c.order = append(c.order, rec.ID())
	}
	c.byID[rec.ID()] = rec
	return maps.Clone(rec)
}

// update merges patch into the record. The id and creation time are kept.
func (s *store) update(kind, id string, patch Record) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cols[kind]
	if c == nil {
		return nil, false
	}
	rec, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	rec = maps.Clone(rec)
	for k, v := range patch {
		switch k {
		case "_id", "id", "createdAt":
			continue
		}
		rec[k] = v
	}
	rec["updatedAt"] = s.now().UTC().Format(time.RFC3339Nano)
	c.byID[id] = rec
	return maps.Clone(rec), true
}

func (s *store) delete(kind, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cols[kind]
	if c == nil {
		return false
	}
	if _, ok := c.byID[id]; !ok {
		return false
	}
	delete(c.byID, id)
	c.order = slices.DeleteFunc(c.order, func(v string) bool { return v == id })
	return true
}
