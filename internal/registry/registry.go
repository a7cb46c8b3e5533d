package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/angeloszaimis/endpoint-balancer/internal/endpoint"
)

var (
	ErrDuplicateID     = errors.New("duplicate endpoint id")
	ErrInvalidEndpoint = errors.New("invalid endpoint")
)

// IDGenerator returns a new endpoint identifier. It is always called with the
// registry's write lock held.
type IDGenerator func() string

// UUIDGenerator produces random v4 UUIDs.
func UUIDGenerator() string {
	return uuid.NewString()
}

type Registry struct {
	mutex     sync.RWMutex
	endpoints []endpoint.Endpoint
	newID     IDGenerator
}

// New creates a registry holding seed in insertion order. Seed ids must be
// unique and loads within range.
func New(seed []endpoint.Endpoint, newID IDGenerator) (*Registry, error) {
	if newID == nil {
		newID = UUIDGenerator
	}

	if err := validate(seed); err != nil {
		return nil, err
	}

	return &Registry{
		endpoints: endpoint.Clone(seed),
		newID:     newID,
	}, nil
}

// List returns a snapshot of all endpoints.
func (r *Registry) List() []endpoint.Endpoint {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := endpoint.Clone(r.endpoints)
	if out == nil {
		out = []endpoint.Endpoint{}
	}
	return out
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.endpoints)
}

// Append adds e to the end of the registry.
func (r *Registry) Append(e endpoint.Endpoint) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.appendLocked(e)
}

// Register assigns a fresh id and appends the endpoint built from it. Id
// generation and the append share one critical section.
func (r *Registry) Register(build func(id string) endpoint.Endpoint) (endpoint.Endpoint, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	e := build(r.newID())
	if err := r.appendLocked(e); err != nil {
		return endpoint.Endpoint{}, err
	}

	return e, nil
}

// ReplaceAll swaps the whole sequence. Nothing is written if updated is invalid.
func (r *Registry) ReplaceAll(updated []endpoint.Endpoint) error {
	if err := validate(updated); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.endpoints = endpoint.Clone(updated)
	return nil
}

// Update runs the read-modify-write cycle fn under the write lock and stores
// its result. When fn fails, panics, or returns an invalid sequence the stored
// endpoints are left untouched.
func (r *Registry) Update(fn func([]endpoint.Endpoint) ([]endpoint.Endpoint, error)) (updated []endpoint.Endpoint, err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			updated = nil
			err = fmt.Errorf("registry update panicked: %v", rec)
		}
	}()

	next, err := fn(endpoint.Clone(r.endpoints))
	if err != nil {
		return nil, err
	}

	if err := validate(next); err != nil {
		return nil, err
	}

	r.endpoints = endpoint.Clone(next)
	return endpoint.Clone(next), nil
}

func (r *Registry) appendLocked(e endpoint.Endpoint) error {
	if err := validateOne(e); err != nil {
		return err
	}

	for _, existing := range r.endpoints {
		if existing.ID == e.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
	}

	r.endpoints = append(r.endpoints, e)
	return nil
}

func validate(endpoints []endpoint.Endpoint) error {
	seen := make(map[string]struct{}, len(endpoints))

	for _, e := range endpoints {
		if err := validateOne(e); err != nil {
			return err
		}

		if _, ok := seen[e.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
		seen[e.ID] = struct{}{}
	}

	return nil
}

func validateOne(e endpoint.Endpoint) error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEndpoint)
	}

	if e.Load < endpoint.MinLoad || e.Load > endpoint.MaxLoad {
		return fmt.Errorf("%w: %s load %d out of range", ErrInvalidEndpoint, e.ID, e.Load)
	}

	if !e.Status.Valid() {
		return fmt.Errorf("%w: %s unknown status %q", ErrInvalidEndpoint, e.ID, e.Status)
	}

	if e.Status != endpoint.DeriveStatus(e.ResponseTime) {
		return fmt.Errorf("%w: %s status %s does not match response time %dms",
			ErrInvalidEndpoint, e.ID, e.Status, e.ResponseTime)
	}

	return nil
}
