package asset

import (
	"context"
	"fmt"
)

// Snapshot maps asset identifiers to metadata, preserving insertion order.
type Snapshot struct {
	order []string
	items map[string]Metadata
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{items: make(map[string]Metadata)}
}

// Put stores md under id. Re-putting an existing id keeps its position.
func (s *Snapshot) Put(id string, md Metadata) {
	if _, ok := s.items[id]; !ok {
		s.order = append(s.order, id)
	}
	s.items[id] = md
}

// Get returns the metadata for id.
func (s *Snapshot) Get(id string) (Metadata, bool) {
	if s == nil {
		return Metadata{}, false
	}
	md, ok := s.items[id]
	return md, ok
}

// IDs returns identifiers in insertion order.
func (s *Snapshot) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of assets in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// TakeSnapshot looks up every id and records the ones that were found.
// Absent ids are left out. An error is returned only when the inspector
// itself could not be queried.
func TakeSnapshot(ctx context.Context, in Inspector, ids []string) (*Snapshot, error) {
	snap := NewSnapshot()
	for _, id := range ids {
		if _, seen := snap.items[id]; seen {
			continue
		}
		md, found, err := in.Lookup(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect %s: %w", id, err)
		}
		if !found {
			continue
		}
		snap.Put(id, md)
	}
	return snap, nil
}
