package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Ensure MemoryStorage implements ProfileStorage
var _ ProfileStorage = (*MemoryStorage)(nil)

// MemoryStorage keeps profiles in process memory. Documents are stored
// serialized so callers never share state with the store.
type MemoryStorage struct {
	mu       sync.RWMutex
	profiles map[string][]byte // map[orcidID] = JSON document
}

// NewMemoryStorage creates a new storage instance
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		profiles: make(map[string][]byte),
	}
}

// GetProfile returns the profile stored for orcidID
func (s *MemoryStorage) GetProfile(_ context.Context, orcidID string) (*ProfileDocument, error) {
	s.mu.RLock()
	data, ok := s.profiles[orcidID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrProfileNotFound
	}

	var doc ProfileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedProfile, err)
	}
	return &doc, nil
}

// PutProfile replaces the profile stored for doc.ORCID
func (s *MemoryStorage) PutProfile(_ context.Context, doc *ProfileDocument) error {
	if doc == nil || doc.ORCID == "" {
		return fmt.Errorf("profile document requires an orcid iD")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	s.mu.Lock()
	s.profiles[doc.ORCID] = data
	s.mu.Unlock()
	return nil
}

// ListProfiles returns every readable profile ordered by iD. Undecodable
// entries are skipped.
func (s *MemoryStorage) ListProfiles(ctx context.Context) ([]*ProfileDocument, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	docs := make([]*ProfileDocument, 0, len(ids))
	for _, id := range ids {
		doc, err := s.GetProfile(ctx, id)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

// putRaw stores bytes as-is, for exercising corrupted entries.
func (s *MemoryStorage) putRaw(orcidID string, data []byte) {
	s.mu.Lock()
	s.profiles[orcidID] = data
	s.mu.Unlock()
}
