package patients

import (
	"context"
	"errors"
	"fmt"
)

// Repository is the patient record store. Upsert is a compare-and-swap on
// Version: a patient read at version n may only be written back while the
// stored copy is still at n, and a successful write bumps p.Version.
type Repository interface {
	Find(ctx context.Context, medicalCardID string) (*Patient, error)
	Upsert(ctx context.Context, p *Patient) error
	ListAll(ctx context.Context) ([]*Patient, error)
}

// DefaultUpdateAttempts bounds the read-merge-write retries in Update.
const DefaultUpdateAttempts = 3

// Update applies fn as one atomic read-modify-write against an existing
// patient, retrying from a fresh read when a concurrent writer wins. fn
// returns false to skip the write. An unknown id fails with ErrNotFound.
func Update(ctx context.Context, repo Repository, medicalCardID string, fn func(p *Patient) (bool, error)) (*Patient, error) {
	var lastErr error
	for attempt := 0; attempt < DefaultUpdateAttempts; attempt++ {
		p, err := repo.Find(ctx, medicalCardID)
		if err != nil {
			return nil, err
		}
		changed, err := fn(p)
		if err != nil {
			return nil, err
		}
		if !changed {
			return p, nil
		}
		err = repo.Upsert(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("patients: update %s gave up after %d attempts: %w", medicalCardID, DefaultUpdateAttempts, lastErr)
}
