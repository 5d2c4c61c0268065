package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wakala/payments/internal/domain"
	"github.com/wakala/payments/internal/repository"
)

func TestMemoryPaymentRepo_SaveAndFind(t *testing.T) {
	repo := repository.NewMemoryPaymentRepo()
	ctx := context.Background()

	saved, err := repo.Save(ctx, newPayment(t, "PAY-1", "C-1"))
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	require.Equal(t, "PAY-1", found.Reference)
	require.Equal(t, domain.StatusPending, found.Status())

	_, err = repo.FindByID(ctx, "missing")
	var notFoundErr *domain.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestMemoryPaymentRepo_DuplicateReference(t *testing.T) {
	repo := repository.NewMemoryPaymentRepo()
	ctx := context.Background()

	_, err := repo.Save(ctx, newPayment(t, "PAY-1", "C-1"))
	require.NoError(t, err)

	_, err = repo.Save(ctx, newPayment(t, "PAY-1", "C-2"))
	var duplicateErr *domain.DuplicateReferenceError
	require.ErrorAs(t, err, &duplicateErr)
}

func TestMemoryPaymentRepo_ReturnedPaymentsAreCopies(t *testing.T) {
	repo := repository.NewMemoryPaymentRepo()
	ctx := context.Background()

	saved, err := repo.Save(ctx, newPayment(t, "PAY-1", "C-1"))
	require.NoError(t, err)

	// Mutating a returned value must not leak into the store.
	require.NoError(t, saved.TransitionTo(domain.StatusApproved))

	found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, found.Status())
}

func TestMemoryPaymentRepo_FiltersAndPagination(t *testing.T) {
	repo := repository.NewMemoryPaymentRepo()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, ref := range []string{"PAY-1", "PAY-2", "PAY-3"} {
		p := domain.Rehydrate("", ref, "C-1", decimal.NewFromInt(10),
			domain.CurrencyEUR, domain.MethodTransfer, domain.StatusPending,
			base.Add(time.Duration(i)*time.Minute))
		_, err := repo.Save(ctx, p)
		require.NoError(t, err)
	}

	items, err := repo.FindByFilters(ctx, domain.Filter{Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "PAY-3", items[0].Reference)

	from := base.Add(time.Minute)
	total, err := repo.CountByFilters(ctx, domain.Filter{From: &from})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)

	beyond, err := repo.FindByFilters(ctx, domain.Filter{Page: 5, Size: 2})
	require.NoError(t, err)
	require.Empty(t, beyond)
}

func TestMemoryPaymentRepo_ConcurrentCreates_ExactlyOneWins(t *testing.T) {
	repo := repository.NewMemoryPaymentRepo()
	ctx := context.Background()

	const racers = 16
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Save(ctx, newPayment(t, "PAY-RACE", "C-1"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes int
	for err := range errs {
		if err == nil {
			successes++
		}
	}
	require.Equal(t, 1, successes)
}

func TestMemoryPaymentRepo_ConcurrentTransitions_AtMostOneSucceeds(t *testing.T) {
	repo := repository.NewMemoryPaymentRepo()
	ctx := context.Background()

	saved, err := repo.Save(ctx, newPayment(t, "PAY-1", "C-1"))
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, target := range []domain.Status{domain.StatusApproved, domain.StatusRejected} {
		wg.Add(1)
		go func(target domain.Status) {
			defer wg.Done()
			_, err := repo.TransitionStatus(ctx, saved.ID, target)
			errs <- err
		}(target)
	}
	wg.Wait()
	close(errs)

	var successes int
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		var transitionErr *domain.InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
	}
	require.Equal(t, 1, successes)
}
