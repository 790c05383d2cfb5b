package subscriber

import (
	"encoding/json"

	"github.com/xraph/streamfee/id"
)

// Set is an unordered set of provider IDs backed by an index map and a
// dense slice: O(1) membership, add and remove, and cheap full iteration.
// The zero value is an empty set ready for use.
type Set struct {
	index map[string]int
	items []id.ProviderID
}

// NewSet builds a set from ids, ignoring duplicates.
func NewSet(ids ...id.ProviderID) Set {
	var s Set
	for _, v := range ids {
		s.Add(v)
	}
	return s
}

// Len returns the number of members.
func (s *Set) Len() int { return len(s.items) }

// Contains reports whether v is a member.
func (s *Set) Contains(v id.ProviderID) bool {
	_, ok := s.index[v.String()]
	return ok
}

// Add inserts v. It reports false when v was already present.
func (s *Set) Add(v id.ProviderID) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	key := v.String()
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, v)
	return true
}

// Remove deletes v by swapping the last member into its slot. It reports
// false when v was not present.
func (s *Set) Remove(v id.ProviderID) bool {
	key := v.String()
	pos, ok := s.index[key]
	if !ok {
		return false
	}
	last := len(s.items) - 1
	if pos != last {
		moved := s.items[last]
		s.items[pos] = moved
		s.index[moved.String()] = pos
	}
	s.items = s.items[:last]
	delete(s.index, key)
	return true
}

// Items returns a copy of the members in arena order.
func (s *Set) Items() []id.ProviderID {
	out := make([]id.ProviderID, len(s.items))
	copy(out, s.items)
	return out
}

// Clear removes every member.
func (s *Set) Clear() {
	s.index = nil
	s.items = nil
}

// Clone returns an independent copy.
func (s *Set) Clone() Set {
	return NewSet(s.items...)
}

// MarshalJSON encodes the set as a JSON array of id strings.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Strings(s.items))
}

// UnmarshalJSON decodes a JSON array of provider id strings.
func (s *Set) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ids, err := id.ParseList(raw, id.PrefixProvider)
	if err != nil {
		return err
	}
	*s = NewSet(ids...)
	return nil
}
