package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
	"github.com/albertomartinsanchez/breakfast-backend/internal/notify"
)

func newDeliveryServiceForTest(t *testing.T, f *fakeStore, rec *eventRecorder) *DeliveryService {
	t.Helper()
	return NewDeliveryService(f, f, customerView{f}, rec, nopCache{}, zaptest.NewLogger(t))
}

// seedSale inserts a sale with one item per customer, two units each,
// directly into the store.
func seedSale(t *testing.T, f *fakeStore, status models.SaleStatus, product *models.Product, customers ...*models.Customer) *models.Sale {
	t.Helper()
	sale := &models.Sale{AccountID: testAccount, Status: status}
	for _, c := range customers {
		sale.Items = append(sale.Items, models.SaleItem{
			CustomerID:      c.ID,
			ProductID:       product.ID,
			Quantity:        2,
			BuyPriceAtSale:  product.BuyPrice,
			SellPriceAtSale: product.SellPrice,
			CustomerName:    c.Name,
			ProductName:     product.Name,
		})
	}
	require.NoError(t, f.Create(context.Background(), sale))
	return sale
}

func TestStartDerivesRouteByCustomerName(t *testing.T) {
	f := newFakeStore()
	rec := &eventRecorder{}
	svc := newDeliveryServiceForTest(t, f, rec)

	bob := f.addCustomer(testAccount, "Bob", decimal.Zero)
	alice := f.addCustomer(testAccount, "Alice", decimal.Zero)
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(1), decimal.NewFromInt(2))
	sale := seedSale(t, f, models.SaleStatusClosed, product, bob, alice)

	route, err := svc.Start(context.Background(), sale.ID, testAccount)
	require.NoError(t, err)
	require.Len(t, route, 2)

	assert.Equal(t, alice.ID, route[0].CustomerID)
	assert.Equal(t, 1, route[0].SequenceOrder)
	assert.True(t, route[0].IsNext)
	assert.Equal(t, bob.ID, route[1].CustomerID)
	assert.Equal(t, 2, route[1].SequenceOrder)
	assert.False(t, route[1].IsNext)

	assert.Equal(t, models.SaleStatusInProgress, f.saleStatus(sale.ID))

	started := rec.byType(notify.EventDeliveryStarted)
	require.Len(t, started, 1)
	assert.ElementsMatch(t, []int{alice.ID, bob.ID}, started[0].CustomerIDs)
}

func TestStartRequiresClosedSale(t *testing.T) {
	f := newFakeStore()
	svc := newDeliveryServiceForTest(t, f, &eventRecorder{})
	alice := f.addCustomer(testAccount, "Alice", decimal.Zero)
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(1), decimal.NewFromInt(2))

	for _, status := range []models.SaleStatus{models.SaleStatusDraft, models.SaleStatusInProgress, models.SaleStatusCompleted} {
		sale := seedSale(t, f, status, product, alice)
		_, err := svc.Start(context.Background(), sale.ID, testAccount)
		assert.ErrorIs(t, err, ErrInvalidState, "status %s", status)
	}
}

func TestStartUsesPreSeededRoute(t *testing.T) {
	f := newFakeStore()
	svc := newDeliveryServiceForTest(t, f, &eventRecorder{})
	alice := f.addCustomer(testAccount, "Alice", decimal.Zero)
	bob := f.addCustomer(testAccount, "Bob", decimal.Zero)
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(1), decimal.NewFromInt(2))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice, bob)

	// Pre-seed Bob first while still closed, then start.
	_, err := svc.Reorder(context.Background(), sale.ID, testAccount, []models.RouteTarget{
		{CustomerID: bob.ID, Sequence: 1},
		{CustomerID: alice.ID, Sequence: 2},
	})
	require.NoError(t, err)

	route, err := svc.Start(context.Background(), sale.ID, testAccount)
	require.NoError(t, err)
	require.Len(t, route, 2)
	assert.Equal(t, bob.ID, route[0].CustomerID)
	assert.True(t, route[0].IsNext)
	assert.Equal(t, alice.ID, route[1].CustomerID)
}

func TestReorderSwapsSequences(t *testing.T) {
	f := newFakeStore()
	svc := newDeliveryServiceForTest(t, f, &eventRecorder{})
	alice := f.addCustomer(testAccount, "Alice", decimal.Zero)
	bob := f.addCustomer(testAccount, "Bob", decimal.Zero)
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(1), decimal.NewFromInt(2))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice, bob)

	_, err := svc.Start(context.Background(), sale.ID, testAccount)
	require.NoError(t, err)

	route, err := svc.Reorder(context.Background(), sale.ID, testAccount, []models.RouteTarget{
		{CustomerID: bob.ID, Sequence: 1},
		{CustomerID: alice.ID, Sequence: 2},
	})
	require.NoError(t, err)
	require.Len(t, route, 2)
	assert.Equal(t, bob.ID, route[0].CustomerID)
	assert.Equal(t, 1, route[0].SequenceOrder)
	assert.Equal(t, alice.ID, route[1].CustomerID)
	assert.Equal(t, 2, route[1].SequenceOrder)

	seen := map[int]bool{}
	for _, stop := range route {
		assert.False(t, seen[stop.SequenceOrder], "sequence numbers stay unique")
		seen[stop.SequenceOrder] = true
	}
}

func TestReorderValidation(t *testing.T) {
	f := newFakeStore()
	svc := newDeliveryServiceForTest(t, f, &eventRecorder{})
	alice := f.addCustomer(testAccount, "Alice", decimal.Zero)
	bob := f.addCustomer(testAccount, "Bob", decimal.Zero)
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(1), decimal.NewFromInt(2))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice, bob)
	ctx := context.Background()

	_, err := svc.Reorder(ctx, sale.ID, testAccount, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Reorder(ctx, sale.ID, testAccount, []models.RouteTarget{
		{CustomerID: alice.ID, Sequence: 1},
		{CustomerID: bob.ID, Sequence: 1},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Reorder(ctx, sale.ID, testAccount, []models.RouteTarget{
		{CustomerID: alice.ID, Sequence: 0},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Reorder(ctx, sale.ID, testAccount, []models.RouteTarget{
		{CustomerID: 9999, Sequence: 1},
	})
	assert.ErrorIs(t, err, ErrValidation)

	f.sales[sale.ID].Status = models.SaleStatusCompleted
	_, err = svc.Reorder(ctx, sale.ID, testAccount, []models.RouteTarget{
		{CustomerID: alice.ID, Sequence: 1},
	})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSelectNextMovesPointer(t *testing.T) {
	f := newFakeStore()
	rec := &eventRecorder{}
	svc := newDeliveryServiceForTest(t, f, rec)
	alice := f.addCustomer(testAccount, "Alice", decimal.Zero)
	bob := f.addCustomer(testAccount, "Bob", decimal.Zero)
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(1), decimal.NewFromInt(2))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice, bob)
	ctx := context.Background()

	_, err := svc.Start(ctx, sale.ID, testAccount)
	require.NoError(t, err)

	require.NoError(t, svc.SelectNext(ctx, sale.ID, bob.ID, testAccount))

	route, err := svc.Route(ctx, sale.ID, testAccount)
	require.NoError(t, err)
	var nextCount int
	for _, stop := range route {
		if stop.IsNext {
			nextCount++
			assert.Equal(t, bob.ID, stop.CustomerID)
		}
	}
	assert.Equal(t, 1, nextCount, "exactly one stop carries the pointer")

	next := rec.byType(notify.EventYouAreNext)
	require.Len(t, next, 1)
	assert.Equal(t, []int{bob.ID}, next[0].CustomerIDs)
}

func TestSelectNextPreconditions(t *testing.T) {
	f := newFakeStore()
	svc := newDeliveryServiceForTest(t, f, &eventRecorder{})
	alice := f.addCustomer(testAccount, "Alice", decimal.Zero)
	bob := f.addCustomer(testAccount, "Bob", decimal.Zero)
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(1), decimal.NewFromInt(2))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice, bob)
	ctx := context.Background()

	err := svc.SelectNext(ctx, sale.ID, alice.ID, testAccount)
	assert.ErrorIs(t, err, ErrInvalidState, "sale not in progress yet")

	_, err = svc.Start(ctx, sale.ID, testAccount)
	require.NoError(t, err)

	err = svc.SelectNext(ctx, sale.ID, 9999, testAccount)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Complete(ctx, sale.ID, alice.ID, testAccount, decimal.NewFromInt(4))
	require.NoError(t, err)
	err = svc.SelectNext(ctx, sale.ID, alice.ID, testAccount)
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestCompleteAppliesCreditUpToOrderTotal(t *testing.T) {
	f := newFakeStore()
	rec := &eventRecorder{}
	svc := newDeliveryServiceForTest(t, f, rec)
	// Credit 5.00, order total 2 x 3.50 = 7.00.
	alice := f.addCustomer(testAccount, "Alice", decimal.NewFromInt(5))
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(2), decimal.NewFromFloat(3.50))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice)
	ctx := context.Background()

	_, err := svc.Start(ctx, sale.ID, testAccount)
	require.NoError(t, err)

	result, err := svc.Complete(ctx, sale.ID, alice.ID, testAccount, decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.True(t, result.TotalOrderAmount.Equal(decimal.NewFromInt(7)))
	assert.True(t, result.CreditApplied.Equal(decimal.NewFromInt(5)))
	assert.True(t, result.AmountCollected.Equal(decimal.NewFromInt(2)))
	assert.True(t, result.NewCustomerCredit.Equal(decimal.Zero))
	assert.True(t, f.credit(alice.ID).Equal(decimal.Zero))

	completed := rec.byType(notify.EventDeliveryCompleted)
	require.Len(t, completed, 1)
	assert.True(t, completed[0].CreditApplied.Equal(decimal.NewFromInt(5)))
}

func TestCompleteCreditCappedByOrderTotal(t *testing.T) {
	f := newFakeStore()
	svc := newDeliveryServiceForTest(t, f, &eventRecorder{})
	// Credit 10.00 exceeds the 7.00 order; only 7.00 is consumed.
	alice := f.addCustomer(testAccount, "Alice", decimal.NewFromInt(10))
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(2), decimal.NewFromFloat(3.50))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice)
	ctx := context.Background()

	_, err := svc.Start(ctx, sale.ID, testAccount)
	require.NoError(t, err)

	result, err := svc.Complete(ctx, sale.ID, alice.ID, testAccount, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, result.CreditApplied.Equal(decimal.NewFromInt(7)))
	assert.True(t, f.credit(alice.ID).Equal(decimal.NewFromInt(3)))
}

// toppingUpStore adds credit to one customer right before the completion
// write, like a concurrent top-up landing between the service's read and
// the guarded update.
type toppingUpStore struct {
	*fakeStore
	customerID int
	topUp      decimal.Decimal
}

func (s *toppingUpStore) Complete(ctx context.Context, saleID, customerID int, amountCollected, creditApplied decimal.Decimal) (decimal.Decimal, bool, error) {
	s.mu.Lock()
	s.customers[s.customerID].Credit = s.customers[s.customerID].Credit.Add(s.topUp)
	s.mu.Unlock()
	return s.fakeStore.Complete(ctx, saleID, customerID, amountCollected, creditApplied)
}

func TestCompleteReportsBalanceFromWrite(t *testing.T) {
	f := newFakeStore()
	alice := f.addCustomer(testAccount, "Alice", decimal.NewFromInt(5))
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(2), decimal.NewFromFloat(3.50))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice)
	ctx := context.Background()

	store := &toppingUpStore{fakeStore: f, customerID: alice.ID, topUp: decimal.NewFromInt(10)}
	svc := NewDeliveryService(f, store, customerView{f}, &eventRecorder{}, nopCache{}, zaptest.NewLogger(t))

	_, err := svc.Start(ctx, sale.ID, testAccount)
	require.NoError(t, err)

	result, err := svc.Complete(ctx, sale.ID, alice.ID, testAccount, decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.True(t, result.CreditApplied.Equal(decimal.NewFromInt(5)), "applied credit stays as computed")
	assert.True(t, result.NewCustomerCredit.Equal(decimal.NewFromInt(10)),
		"reported balance reflects the top-up, not the pre-write read")
	assert.True(t, f.credit(alice.ID).Equal(decimal.NewFromInt(10)))
}

func TestCompleteRejectsNegativeAmount(t *testing.T) {
	f := newFakeStore()
	svc := newDeliveryServiceForTest(t, f, &eventRecorder{})
	alice := f.addCustomer(testAccount, "Alice", decimal.Zero)
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(1), decimal.NewFromInt(2))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice)
	ctx := context.Background()

	_, err := svc.Start(ctx, sale.ID, testAccount)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, sale.ID, alice.ID, testAccount, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConcurrentCompleteHasSingleWinner(t *testing.T) {
	f := newFakeStore()
	svc := newDeliveryServiceForTest(t, f, &eventRecorder{})
	alice := f.addCustomer(testAccount, "Alice", decimal.NewFromInt(5))
	bob := f.addCustomer(testAccount, "Bob", decimal.Zero)
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(2), decimal.NewFromFloat(3.50))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice, bob)
	ctx := context.Background()

	_, err := svc.Start(ctx, sale.ID, testAccount)
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Complete(ctx, sale.ID, alice.ID, testAccount, decimal.NewFromInt(2))
		}(i)
	}
	wg.Wait()

	var winners int
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrNotPending)
		}
	}
	assert.Equal(t, 1, winners)
	assert.True(t, f.credit(alice.ID).Equal(decimal.Zero), "credit consumed exactly once")
}

func TestSkipRequiresReasonAndResolvesStep(t *testing.T) {
	f := newFakeStore()
	rec := &eventRecorder{}
	svc := newDeliveryServiceForTest(t, f, rec)
	alice := f.addCustomer(testAccount, "Alice", decimal.Zero)
	bob := f.addCustomer(testAccount, "Bob", decimal.Zero)
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(1), decimal.NewFromInt(2))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice, bob)
	ctx := context.Background()

	_, err := svc.Start(ctx, sale.ID, testAccount)
	require.NoError(t, err)

	err = svc.Skip(ctx, sale.ID, alice.ID, testAccount, "")
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.Skip(ctx, sale.ID, alice.ID, testAccount, "not home"))

	step, err := f.StepByCustomer(ctx, sale.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusSkipped, step.Status)
	require.NotNil(t, step.SkipReason)
	assert.Equal(t, "not home", *step.SkipReason)

	err = svc.Skip(ctx, sale.ID, alice.ID, testAccount, "again")
	assert.ErrorIs(t, err, ErrNotPending)

	skipped := rec.byType(notify.EventDeliverySkipped)
	require.Len(t, skipped, 1)
	assert.Equal(t, "not home", skipped[0].Reason)
}

func TestLastResolutionCompletesSale(t *testing.T) {
	f := newFakeStore()
	svc := newDeliveryServiceForTest(t, f, &eventRecorder{})
	alice := f.addCustomer(testAccount, "Alice", decimal.Zero)
	bob := f.addCustomer(testAccount, "Bob", decimal.Zero)
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(1), decimal.NewFromInt(2))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice, bob)
	ctx := context.Background()

	_, err := svc.Start(ctx, sale.ID, testAccount)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, sale.ID, alice.ID, testAccount, decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusInProgress, f.saleStatus(sale.ID))

	// Skipping the last pending step still counts as resolving it.
	require.NoError(t, svc.Skip(ctx, sale.ID, bob.ID, testAccount, "closed shop"))
	assert.Equal(t, models.SaleStatusCompleted, f.saleStatus(sale.ID))
}

func TestResetRestoresCreditAndRevertsSale(t *testing.T) {
	f := newFakeStore()
	svc := newDeliveryServiceForTest(t, f, &eventRecorder{})
	alice := f.addCustomer(testAccount, "Alice", decimal.NewFromInt(5))
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(2), decimal.NewFromFloat(3.50))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice)
	ctx := context.Background()

	_, err := svc.Start(ctx, sale.ID, testAccount)
	require.NoError(t, err)

	before := f.credit(alice.ID)
	_, err = svc.Complete(ctx, sale.ID, alice.ID, testAccount, decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusCompleted, f.saleStatus(sale.ID))

	require.NoError(t, svc.ResetToPending(ctx, sale.ID, alice.ID, testAccount))

	assert.Equal(t, models.SaleStatusInProgress, f.saleStatus(sale.ID))
	assert.True(t, f.credit(alice.ID).Equal(before), "credit restored in the exact recorded amount")

	step, err := f.StepByCustomer(ctx, sale.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusPending, step.Status)
	assert.Nil(t, step.CompletedAt)
	assert.Nil(t, step.AmountCollected)
	assert.Nil(t, step.CreditApplied)

	err = svc.ResetToPending(ctx, sale.ID, alice.ID, testAccount)
	assert.ErrorIs(t, err, ErrNotFound, "a pending step has nothing to reset")
}

func TestResetSkippedStepRestoresNoCredit(t *testing.T) {
	f := newFakeStore()
	svc := newDeliveryServiceForTest(t, f, &eventRecorder{})
	alice := f.addCustomer(testAccount, "Alice", decimal.NewFromInt(5))
	bob := f.addCustomer(testAccount, "Bob", decimal.Zero)
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(1), decimal.NewFromInt(2))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice, bob)
	ctx := context.Background()

	_, err := svc.Start(ctx, sale.ID, testAccount)
	require.NoError(t, err)

	require.NoError(t, svc.Skip(ctx, sale.ID, alice.ID, testAccount, "not home"))
	require.NoError(t, svc.ResetToPending(ctx, sale.ID, alice.ID, testAccount))

	assert.True(t, f.credit(alice.ID).Equal(decimal.NewFromInt(5)), "skips never touched credit")
}

func TestRouteCreditPreview(t *testing.T) {
	f := newFakeStore()
	svc := newDeliveryServiceForTest(t, f, &eventRecorder{})
	alice := f.addCustomer(testAccount, "Alice", decimal.NewFromInt(5))
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(2), decimal.NewFromFloat(3.50))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice)
	ctx := context.Background()

	route, err := svc.Start(ctx, sale.ID, testAccount)
	require.NoError(t, err)
	require.Len(t, route, 1)
	assert.True(t, route[0].TotalAmount.Equal(decimal.NewFromInt(7)))
	assert.True(t, route[0].CreditToApply.Equal(decimal.NewFromInt(5)))
	assert.True(t, route[0].AmountToCollect.Equal(decimal.NewFromInt(2)))

	// After completion the recorded figures replace the preview.
	_, err = svc.Complete(ctx, sale.ID, alice.ID, testAccount, decimal.NewFromInt(2))
	require.NoError(t, err)
	route, err = svc.Route(ctx, sale.ID, testAccount)
	require.NoError(t, err)
	require.Len(t, route, 1)
	assert.True(t, route[0].CreditToApply.Equal(decimal.NewFromInt(5)))
	require.NotNil(t, route[0].AmountCollected)
	assert.True(t, route[0].AmountCollected.Equal(decimal.NewFromInt(2)))
}

func TestProgressSummary(t *testing.T) {
	f := newFakeStore()
	svc := newDeliveryServiceForTest(t, f, &eventRecorder{})
	alice := f.addCustomer(testAccount, "Alice", decimal.Zero)
	bob := f.addCustomer(testAccount, "Bob", decimal.Zero)
	carol := f.addCustomer(testAccount, "Carol", decimal.Zero)
	product := f.addProduct(testAccount, "Croissant", decimal.NewFromInt(1), decimal.NewFromInt(2))
	sale := seedSale(t, f, models.SaleStatusClosed, product, alice, bob, carol)
	ctx := context.Background()

	_, err := svc.Start(ctx, sale.ID, testAccount)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, sale.ID, alice.ID, testAccount, decimal.NewFromInt(4))
	require.NoError(t, err)
	require.NoError(t, svc.Skip(ctx, sale.ID, bob.ID, testAccount, "not home"))
	require.NoError(t, svc.SelectNext(ctx, sale.ID, carol.ID, testAccount))

	progress, err := svc.Progress(ctx, sale.ID, testAccount)
	require.NoError(t, err)
	assert.Equal(t, 3, progress.TotalDeliveries)
	assert.Equal(t, 1, progress.CompletedCount)
	assert.Equal(t, 1, progress.SkippedCount)
	assert.Equal(t, 1, progress.PendingCount)
	assert.True(t, progress.TotalExpected.Equal(decimal.NewFromInt(12)))
	assert.True(t, progress.TotalCollected.Equal(decimal.NewFromInt(4)))
	assert.True(t, progress.TotalSkippedAmount.Equal(decimal.NewFromInt(4)))
	require.NotNil(t, progress.CurrentDelivery)
	assert.Equal(t, carol.ID, progress.CurrentDelivery.CustomerID)
	require.Len(t, progress.PendingDeliveries, 1)
}
