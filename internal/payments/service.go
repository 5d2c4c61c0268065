// Package payments holds the use-case layer orchestrating payment
// operations against the store.
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wakala/payments/internal/domain"
	"github.com/wakala/payments/internal/metrics"
)

// CreateInput carries the caller-supplied attributes of a new payment. Any
// status a caller attempts to supply is ignored: payments always start out
// PENDING.
type CreateInput struct {
	Reference  string
	CustomerID string
	Amount     decimal.Decimal
	Currency   domain.Currency
	Method     domain.Method
}

// Service sequences store access and entity logic for the four payment
// operations.
type Service struct {
	store   domain.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewService(store domain.Store, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		logger:  logger,
		metrics: m,
	}
}

// Create validates the input, rejects duplicate references and persists a
// new PENDING payment. The store's unique constraint backstops the
// existence pre-check, so a raced duplicate create still fails here with
// DuplicateReferenceError.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Payment, error) {
	p, err := domain.NewPayment(in.Reference, in.CustomerID, in.Amount, in.Currency, in.Method)
	if err != nil {
		return nil, err
	}

	exists, err := s.store.ExistsByReference(ctx, in.Reference)
	if err != nil {
		return nil, fmt.Errorf("check reference: %w", err)
	}
	if exists {
		return nil, &domain.DuplicateReferenceError{Reference: in.Reference}
	}

	saved, err := s.store.Save(ctx, p)
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentsCreated.Inc()
	s.logger.Info("payment created",
		zap.String("payment_id", saved.ID),
		zap.String("reference", saved.Reference),
		zap.String("customer_id", saved.CustomerID),
		zap.String("currency", string(saved.Currency)),
	)
	return saved, nil
}

// FindByID returns the payment or NotFoundError. Absence is not logged; the
// boundary decides whether it becomes a 404.
func (s *Service) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	return s.store.FindByID(ctx, id)
}

// List returns the requested page of matching payments together with the
// total count of all matching rows, so callers can derive total pages.
func (s *Service) List(ctx context.Context, f domain.Filter) ([]domain.Payment, int64, error) {
	if f.Page < 0 {
		return nil, 0, &domain.ValidationError{Message: "page must not be negative"}
	}
	if f.Size < 1 {
		return nil, 0, &domain.ValidationError{Message: "size must be at least 1"}
	}

	total, err := s.store.CountByFilters(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	items, err := s.store.FindByFilters(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	return items, total, nil
}

// UpdateStatus moves the payment identified by id to target. The entity's
// transition guard decides legality; the store applies the change
// atomically, so concurrent updates on the same id cannot both succeed.
func (s *Service) UpdateStatus(ctx context.Context, id string, target domain.Status) (*domain.Payment, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := p.TransitionTo(target); err != nil {
		return nil, err
	}

	updated, err := s.store.TransitionStatus(ctx, id, target)
	if err != nil {
		var invalid *domain.InvalidTransitionError
		if errors.As(err, &invalid) {
			// The guard above passed on a PENDING snapshot, so a refusal
			// here means a concurrent update won the row in between.
			s.metrics.TransitionConflicts.Inc()
			s.logger.Warn("payment transition lost race",
				zap.String("payment_id", id),
				zap.String("observed_status", string(invalid.From)),
				zap.String("target_status", string(invalid.To)),
			)
		}
		return nil, err
	}

	s.metrics.StatusTransitions.WithLabelValues(string(target)).Inc()
	s.logger.Info("payment status updated",
		zap.String("payment_id", id),
		zap.String("status", string(target)),
	)
	return updated, nil
}
