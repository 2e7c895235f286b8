package patients

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryRepository is a process-local Repository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	patients map[string]*Patient
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{patients: make(map[string]*Patient)}
}

func (r *InMemoryRepository) Find(_ context.Context, medicalCardID string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[medicalCardID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (r *InMemoryRepository) Upsert(_ context.Context, p *Patient) error {
	if p == nil || p.MedicalCardID == "" {
		return fmt.Errorf("%w: medical card id is required", ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.patients[p.MedicalCardID]
	switch {
	case !ok && p.Version != 0:
		return ErrNotFound
	case ok && current.Version != p.Version:
		return ErrConflict
	}
	p.Version++
	r.patients[p.MedicalCardID] = p.Clone()
	return nil
}

func (r *InMemoryRepository) ListAll(_ context.Context) ([]*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Patient, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MedicalCardID < out[j].MedicalCardID })
	return out, nil
}
