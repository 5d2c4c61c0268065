package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/wakala/payments/internal/domain"
)

// MemoryPaymentRepo is an in-memory payment store honoring the same contract
// as PaymentRepo. It backs unit tests that should not touch SQLite.
type MemoryPaymentRepo struct {
	mu         sync.RWMutex
	payments   map[string]*domain.Payment
	references map[string]string
}

func NewMemoryPaymentRepo() *MemoryPaymentRepo {
	return &MemoryPaymentRepo{
		payments:   make(map[string]*domain.Payment),
		references: make(map[string]string),
	}
}

func (r *MemoryPaymentRepo) Save(_ context.Context, p *domain.Payment) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.references[p.Reference]; exists {
		return nil, &domain.DuplicateReferenceError{Reference: p.Reference}
	}

	id := p.ID
	if id == "" {
		id = newPaymentID(p.CreatedAt)
	}

	stored := domain.Rehydrate(id, p.Reference, p.CustomerID, p.Amount,
		p.Currency, p.Method, p.Status(), p.CreatedAt)
	r.payments[id] = stored
	r.references[p.Reference] = id

	return clone(stored), nil
}

func (r *MemoryPaymentRepo) FindByID(_ context.Context, id string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, &domain.NotFoundError{ID: id}
	}
	return clone(p), nil
}

func (r *MemoryPaymentRepo) ExistsByReference(_ context.Context, reference string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.references[reference]
	return ok, nil
}

func (r *MemoryPaymentRepo) FindByFilters(_ context.Context, f domain.Filter) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.match(f)

	size := f.Size
	if size < 1 {
		size = 1
	}
	page := f.Page
	if page < 0 {
		page = 0
	}

	start := page * size
	if start >= len(matched) {
		return nil, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]domain.Payment, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, *clone(p))
	}
	return out, nil
}

func (r *MemoryPaymentRepo) CountByFilters(_ context.Context, f domain.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.match(f))), nil
}

// TransitionStatus serializes on the store mutex, so of two racing updates
// the second always observes the first one's result, matching the SQLite
// store's compare-and-swap behavior.
func (r *MemoryPaymentRepo) TransitionStatus(_ context.Context, id string, target domain.Status) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, &domain.NotFoundError{ID: id}
	}
	if err := p.TransitionTo(target); err != nil {
		return nil, err
	}
	return clone(p), nil
}

// match returns payments matching f in creation order. Callers must hold at
// least a read lock.
func (r *MemoryPaymentRepo) match(f domain.Filter) []*domain.Payment {
	var matched []*domain.Payment
	for _, p := range r.payments {
		if f.Status != nil && p.Status() != *f.Status {
			continue
		}
		if f.CustomerID != "" && p.CustomerID != f.CustomerID {
			continue
		}
		if f.From != nil && p.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && p.CreatedAt.After(*f.To) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched
}

func clone(p *domain.Payment) *domain.Payment {
	c := *p
	return &c
}
