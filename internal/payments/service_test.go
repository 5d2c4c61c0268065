package payments_test

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wakala/payments/internal/domain"
	"github.com/wakala/payments/internal/metrics"
	"github.com/wakala/payments/internal/payments"
	"github.com/wakala/payments/internal/repository"
)

func setupService(t *testing.T) (*payments.Service, *repository.MemoryPaymentRepo) {
	t.Helper()
	store := repository.NewMemoryPaymentRepo()
	svc := payments.NewService(store, zap.NewNop(), metrics.New(prometheus.NewRegistry()))
	return svc, store
}

func validInput(reference string) payments.CreateInput {
	return payments.CreateInput{
		Reference:  reference,
		CustomerID: "C-1",
		Amount:     decimal.RequireFromString("100.00"),
		Currency:   domain.CurrencyUSD,
		Method:     domain.MethodCard,
	}
}

func TestService_Create_StartsPending(t *testing.T) {
	svc, _ := setupService(t)

	p, err := svc.Create(context.Background(), validInput("PAY-1"))
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.Equal(t, domain.StatusPending, p.Status())
	require.False(t, p.CreatedAt.IsZero())
}

func TestService_Create_WhenInputInvalid_PersistsNothing(t *testing.T) {
	svc, store := setupService(t)

	in := validInput("PAY-1")
	in.Amount = decimal.NewFromInt(-1)

	_, err := svc.Create(context.Background(), in)
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)

	total, err := store.CountByFilters(context.Background(), domain.Filter{})
	require.NoError(t, err)
	require.EqualValues(t, 0, total)
}

func TestService_Create_DuplicateReference(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput("PAY-1"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, validInput("PAY-1"))
	var duplicateErr *domain.DuplicateReferenceError
	require.ErrorAs(t, err, &duplicateErr)
}

func TestService_Create_ConcurrentDuplicates_ExactlyOneWins(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	const racers = 8
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, validInput("PAY-RACE"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes int
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		var duplicateErr *domain.DuplicateReferenceError
		require.ErrorAs(t, err, &duplicateErr)
	}
	require.Equal(t, 1, successes)
}

func TestService_FindByID_Unknown(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.FindByID(context.Background(), "never-issued")
	var notFoundErr *domain.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestService_List_PaginatesWithTotalCount(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	for _, ref := range []string{"PAY-1", "PAY-2", "PAY-3", "PAY-4", "PAY-5"} {
		_, err := svc.Create(ctx, validInput(ref))
		require.NoError(t, err)
	}

	items, total, err := svc.List(ctx, domain.Filter{Page: 0, Size: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.EqualValues(t, 5, total)

	// A page past the end is empty but keeps reporting the full count.
	items, total, err = svc.List(ctx, domain.Filter{Page: 7, Size: 2})
	require.NoError(t, err)
	require.Empty(t, items)
	require.EqualValues(t, 5, total)
}

func TestService_List_RejectsBadPaging(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	var validationErr *domain.ValidationError

	_, _, err := svc.List(ctx, domain.Filter{Page: -1, Size: 10})
	require.ErrorAs(t, err, &validationErr)

	_, _, err = svc.List(ctx, domain.Filter{Page: 0, Size: 0})
	require.ErrorAs(t, err, &validationErr)
}

func TestService_List_FiltersByStatus(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, validInput("PAY-1"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, validInput("PAY-2"))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, first.ID, domain.StatusApproved)
	require.NoError(t, err)

	approved := domain.StatusApproved
	items, total, err := svc.List(ctx, domain.Filter{Status: &approved, Page: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 1, total)
	require.Equal(t, "PAY-1", items[0].Reference)
}

func TestService_UpdateStatus_Lifecycle(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput("PAY-1"))
	require.NoError(t, err)

	approved, err := svc.UpdateStatus(ctx, created.ID, domain.StatusApproved)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, approved.Status())

	_, err = svc.UpdateStatus(ctx, created.ID, domain.StatusRejected)
	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	require.Equal(t, domain.StatusApproved, transitionErr.From)
	require.Equal(t, domain.StatusRejected, transitionErr.To)
	require.Contains(t, err.Error(), "APPROVED")
	require.Contains(t, err.Error(), "REJECTED")

	// The failed update must not have touched the stored status.
	found, err := svc.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, found.Status())
}

func TestService_UpdateStatus_ToPendingIsInvalid(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput("PAY-1"))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, created.ID, domain.StatusPending)
	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestService_UpdateStatus_Unknown(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.UpdateStatus(context.Background(), "missing", domain.StatusApproved)
	var notFoundErr *domain.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}
