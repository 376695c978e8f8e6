package enrollment

import (
	"sort"

	"github.com/kbukum/speakerid/embedding"
	"github.com/kbukum/speakerid/identity"
)

// Identity is one enrolled speaker.
type Identity struct {
	Key string `json:"key"`
	// Embedding is the mean of the embeddings of every included clip.
	Embedding embedding.Vector `json:"-"`
	ClipCount int              `json:"clip_count"`
	Seconds   float64          `json:"seconds"`
	Sources   []string         `json:"sources"`
}

// Set is an immutable collection of identities ordered by key.
type Set struct {
	byKey map[string]Identity
	keys  []string
}

// NewSet builds a set. A later identity with a duplicate key replaces
// the earlier one.
func NewSet(ids ...Identity) *Set {
	s := &Set{byKey: make(map[string]Identity, len(ids))}
	for _, id := range ids {
		if _, ok := s.byKey[id.Key]; !ok {
			s.keys = append(s.keys, id.Key)
		}
		s.byKey[id.Key] = id
	}
	sort.Strings(s.keys)
	return s
}

// Get returns the identity for key.
func (s *Set) Get(key string) (Identity, bool) {
	if s == nil {
		return Identity{}, false
	}
	id, ok := s.byKey[key]
	return id, ok
}

// Keys returns identity keys in ascending order.
func (s *Set) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of identities.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Identities returns the identities in key order.
func (s *Set) Identities() []Identity {
	if s == nil {
		return nil
	}
	out := make([]Identity, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.byKey[k])
	}
	return out
}

// Filter returns the identities matching any participant. An empty
// participant list returns s unchanged.
func (s *Set) Filter(participants []string) *Set {
	if len(participants) == 0 {
		return s
	}
	var kept []Identity
	for _, id := range s.Identities() {
		if identity.MatchesAny(id.Key, participants) {
			kept = append(kept, id)
		}
	}
	return NewSet(kept...)
}
