package doctors

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Directory is the in-memory roster. Order of insertion is preserved.
type Directory struct {
	mu      sync.RWMutex
	order   []string
	doctors map[string]Doctor
}

// NewDirectory builds a directory seeded with the given doctors.
func NewDirectory(seed []Doctor) (*Directory, error) {
	d := &Directory{doctors: make(map[string]Doctor, len(seed))}
	for _, doc := range seed {
		if _, err := d.Add(doc); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// List returns a snapshot of the roster in insertion order.
func (d *Directory) List() []Doctor {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Doctor, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.doctors[id])
	}
	return out
}

func (d *Directory) Get(id string) (Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.doctors[id]
	if !ok {
		return Doctor{}, fmt.Errorf("%w: %s", ErrDoctorNotFound, id)
	}
	return doc, nil
}

// Add validates and inserts a doctor, assigning an ID when none is given.
func (d *Directory) Add(doc Doctor) (Doctor, error) {
	status, err := ParseStatus(string(doc.Status))
	if err != nil {
		return Doctor{}, err
	}
	doc.Status = status
	if err := doc.Validate(); err != nil {
		return Doctor{}, err
	}
	doc.ID = strings.TrimSpace(doc.ID)
	if doc.ID == "" {
		doc.ID = "d-" + uuid.NewString()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.doctors[doc.ID]; exists {
		return Doctor{}, fmt.Errorf("%w: %s", ErrDuplicateID, doc.ID)
	}
	d.doctors[doc.ID] = doc
	d.order = append(d.order, doc.ID)
	return doc, nil
}

func (d *Directory) Remove(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.doctors[id]; !ok {
		return fmt.Errorf("%w: %s", ErrDoctorNotFound, id)
	}
	delete(d.doctors, id)
	for i, existing := range d.order {
		if existing == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

func (d *Directory) SetStatus(id string, status Status) (Doctor, error) {
	parsed, err := ParseStatus(string(status))
	if err != nil {
		return Doctor{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.doctors[id]
	if !ok {
		return Doctor{}, fmt.Errorf("%w: %s", ErrDoctorNotFound, id)
	}
	doc.Status = parsed
	d.doctors[id] = doc
	return doc, nil
}
