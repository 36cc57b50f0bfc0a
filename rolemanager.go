// Package rolemanager provides the in-memory contract store used by the
// access-control role manager. It implements the accesscontrol.Store seam;
// durable storage is expected to be supplied by the embedding application.
package rolemanager

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol"
)

// ContractStore manages registered contract records in a thread-safe manner.
type ContractStore struct {
	records map[string]accesscontrol.ContractRecord
	mu      sync.RWMutex
}

// NewContractStore initializes a new ContractStore.
func NewContractStore() *ContractStore {
	return &ContractStore{
		records: make(map[string]accesscontrol.ContractRecord),
	}
}

// Put adds or replaces a contract record, keyed by its address.
func (s *ContractStore) Put(_ context.Context, rec accesscontrol.ContractRecord) error {
	if rec.Address == "" {
		return errors.New("contract address cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[strings.ToLower(rec.Address)] = rec
	return nil
}

// Get retrieves a contract record by address.
func (s *ContractStore) Get(_ context.Context, address string) (accesscontrol.ContractRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[strings.ToLower(address)]
	if !exists {
		return accesscontrol.ContractRecord{}, errors.New("contract not found")
	}
	return rec, nil
}

// List returns every registered contract record, ordered by address.
func (s *ContractStore) List(_ context.Context) ([]accesscontrol.ContractRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]accesscontrol.ContractRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// Delete removes a contract record by address.
func (s *ContractStore) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(address)
	if _, exists := s.records[key]; !exists {
		return errors.New("contract not found")
	}
	delete(s.records, key)
	return nil
}
