package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/albertomartinsanchez/breakfast-backend/internal/metrics"
	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
	"github.com/albertomartinsanchez/breakfast-backend/internal/notify"
)

// DeliveryService owns the ordered delivery queue of a sale: route
// construction, the single is_next pointer, completion and skip bookkeeping,
// the credit ledger applied on completion, and the sale's automatic
// transition to completed once every step resolves.
//
// All guarded writes go through DeliveryStore methods that re-check the
// step's status inside their own transaction; this service turns a false
// result into the matching client error. Notifications and cache
// invalidation happen only after the write committed.
type DeliveryService struct {
	sales     SaleStore
	steps     DeliveryStore
	customers CustomerStore
	notifier  notify.Queue
	cache     StatusCache
	logger    *zap.Logger
}

func NewDeliveryService(sales SaleStore, steps DeliveryStore, customers CustomerStore, notifier notify.Queue, cache StatusCache, logger *zap.Logger) *DeliveryService {
	return &DeliveryService{
		sales:     sales,
		steps:     steps,
		customers: customers,
		notifier:  notifier,
		cache:     cache,
		logger:    logger,
	}
}

// Start moves a closed sale into delivery. When no route was pre-seeded by
// Reorder, steps are derived from the sale's items: one per customer,
// ordered by customer name, all pending. The lowest-sequence step becomes
// the next stop and every involved customer is told the delivery is on its
// way.
func (s *DeliveryService) Start(ctx context.Context, saleID, accountID int) ([]models.RouteStop, error) {
	sale, err := s.mustGetSale(ctx, saleID, accountID)
	if err != nil {
		return nil, err
	}
	if sale.Status != models.SaleStatusClosed {
		return nil, fmt.Errorf("%w: delivery can only start on a closed sale (status is %s)", ErrInvalidState, sale.Status)
	}

	existing, err := s.steps.StepsBySale(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("load delivery steps: %w", err)
	}

	var newSteps []models.DeliveryStep
	var nextCustomerID int
	if len(existing) > 0 {
		nextCustomerID = existing[0].CustomerID
		for _, st := range existing[1:] {
			if st.SequenceOrder < seqOf(existing, nextCustomerID) {
				nextCustomerID = st.CustomerID
			}
		}
	} else {
		newSteps, err = s.deriveRoute(ctx, sale)
		if err != nil {
			return nil, err
		}
		if len(newSteps) == 0 {
			return nil, fmt.Errorf("%w: sale has no customers to deliver to", ErrInvalidState)
		}
		nextCustomerID = newSteps[0].CustomerID
	}

	ok, err := s.steps.Start(ctx, saleID, newSteps, nextCustomerID)
	if err != nil {
		return nil, fmt.Errorf("start delivery: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: sale is no longer closed", ErrInvalidState)
	}

	involved := make([]int, 0, len(existing)+len(newSteps))
	for _, st := range existing {
		involved = append(involved, st.CustomerID)
	}
	for _, st := range newSteps {
		involved = append(involved, st.CustomerID)
	}
	s.notifier.Dispatch(notify.Event{
		Type:        notify.EventDeliveryStarted,
		SaleID:      saleID,
		CustomerIDs: involved,
	})
	s.cache.InvalidateSale(ctx, saleID)

	return s.Route(ctx, saleID, accountID)
}

// Route returns the sale's delivery stops in sequence order, each enriched
// with the customer's order lines, the order total and a credit preview:
// for a pending stop, the credit that would apply on completion; for a
// resolved stop, the amounts actually recorded.
func (s *DeliveryService) Route(ctx context.Context, saleID, accountID int) ([]models.RouteStop, error) {
	sale, err := s.mustGetSale(ctx, saleID, accountID)
	if err != nil {
		return nil, err
	}
	steps, err := s.steps.StepsBySale(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("load delivery steps: %w", err)
	}
	return s.buildRoute(ctx, sale, steps)
}

// Reorder rewrites the route's sequence numbers. On a sale whose route does
// not exist yet (still closed, pre-seeding), the steps are created directly
// with the requested sequences and no next pointer. On an existing route
// the store performs the rewrite two-phased inside one transaction so the
// per-sale sequence uniqueness constraint holds at every point.
func (s *DeliveryService) Reorder(ctx context.Context, saleID, accountID int, targets []models.RouteTarget) ([]models.RouteStop, error) {
	sale, err := s.mustGetSale(ctx, saleID, accountID)
	if err != nil {
		return nil, err
	}
	if sale.Status == models.SaleStatusCompleted {
		return nil, fmt.Errorf("%w: cannot reorder the route of a completed sale", ErrInvalidState)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: route must contain at least one stop", ErrValidation)
	}

	seqSeen := make(map[int]struct{}, len(targets))
	custSeen := make(map[int]struct{}, len(targets))
	for _, t := range targets {
		if t.Sequence <= 0 {
			return nil, fmt.Errorf("%w: sequence must be positive (customer %d)", ErrValidation, t.CustomerID)
		}
		if _, dup := seqSeen[t.Sequence]; dup {
			return nil, fmt.Errorf("%w: duplicate sequence %d", ErrValidation, t.Sequence)
		}
		if _, dup := custSeen[t.CustomerID]; dup {
			return nil, fmt.Errorf("%w: duplicate customer %d", ErrValidation, t.CustomerID)
		}
		seqSeen[t.Sequence] = struct{}{}
		custSeen[t.CustomerID] = struct{}{}
	}

	existing, err := s.steps.StepsBySale(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("load delivery steps: %w", err)
	}

	if len(existing) == 0 {
		inSale := make(map[int]struct{})
		for _, id := range itemCustomerIDs(sale.Items) {
			inSale[id] = struct{}{}
		}
		steps := make([]models.DeliveryStep, 0, len(targets))
		for _, t := range targets {
			if _, ok := inSale[t.CustomerID]; !ok {
				return nil, fmt.Errorf("%w: customer %d has no items in this sale", ErrValidation, t.CustomerID)
			}
			steps = append(steps, models.DeliveryStep{
				SaleID:        saleID,
				CustomerID:    t.CustomerID,
				SequenceOrder: t.Sequence,
				Status:        models.StepStatusPending,
			})
		}
		if err := s.steps.CreateSteps(ctx, steps); err != nil {
			return nil, fmt.Errorf("seed delivery route: %w", err)
		}
	} else {
		byCustomer := make(map[int]struct{}, len(existing))
		for _, st := range existing {
			byCustomer[st.CustomerID] = struct{}{}
		}
		for _, t := range targets {
			if _, ok := byCustomer[t.CustomerID]; !ok {
				return nil, fmt.Errorf("%w: delivery step for customer %d", ErrNotFound, t.CustomerID)
			}
		}
		if err := s.steps.Reorder(ctx, saleID, targets); err != nil {
			return nil, fmt.Errorf("reorder route: %w", err)
		}
	}

	s.cache.InvalidateSale(ctx, saleID)
	return s.Route(ctx, saleID, accountID)
}

// SelectNext points the queue at the given customer's pending step and
// tells the customer the driver is heading their way.
func (s *DeliveryService) SelectNext(ctx context.Context, saleID, customerID, accountID int) error {
	sale, err := s.mustGetSale(ctx, saleID, accountID)
	if err != nil {
		return err
	}
	if sale.Status != models.SaleStatusInProgress {
		return fmt.Errorf("%w: the next stop can only change while delivery is in progress (status is %s)", ErrInvalidState, sale.Status)
	}

	step, err := s.mustGetStep(ctx, saleID, customerID)
	if err != nil {
		return err
	}
	if step.Status != models.StepStatusPending {
		return fmt.Errorf("%w: step is %s", ErrNotPending, step.Status)
	}

	ok, err := s.steps.SetNext(ctx, saleID, customerID)
	if err != nil {
		return fmt.Errorf("select next delivery: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: step was resolved concurrently", ErrNotPending)
	}

	s.notifier.Dispatch(notify.Event{
		Type:        notify.EventYouAreNext,
		SaleID:      saleID,
		CustomerIDs: []int{customerID},
	})
	s.cache.InvalidateSale(ctx, saleID)
	return nil
}

// Complete resolves the customer's pending step. The order total is summed
// from the sale's price-snapshotted items, up to that much of the
// customer's credit is consumed, and the caller-reported collected cash is
// recorded verbatim. Exactly one of two concurrent completions for the same
// step succeeds; the loser gets a not-pending error.
func (s *DeliveryService) Complete(ctx context.Context, saleID, customerID, accountID int, amountCollected decimal.Decimal) (*models.CompleteDeliveryResult, error) {
	if amountCollected.IsNegative() {
		return nil, fmt.Errorf("%w: amount_collected cannot be negative", ErrValidation)
	}

	sale, err := s.mustGetSale(ctx, saleID, accountID)
	if err != nil {
		return nil, err
	}
	step, err := s.mustGetStep(ctx, saleID, customerID)
	if err != nil {
		return nil, err
	}
	if step.Status != models.StepStatusPending {
		return nil, fmt.Errorf("%w: step is already %s", ErrNotPending, step.Status)
	}

	customer, err := s.customers.Get(ctx, customerID, accountID)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: customer %d", ErrNotFound, customerID)
	}

	orderTotal := customerOrderTotal(sale.Items, customerID)
	creditApplied := decimal.Min(customer.Credit, orderTotal)

	newCredit, ok, err := s.steps.Complete(ctx, saleID, customerID, amountCollected, creditApplied)
	if err != nil {
		return nil, fmt.Errorf("complete delivery: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: step was resolved concurrently", ErrNotPending)
	}
	metrics.DeliveriesResolved.WithLabelValues("completed").Inc()

	s.notifier.Dispatch(notify.Event{
		Type:            notify.EventDeliveryCompleted,
		SaleID:          saleID,
		CustomerIDs:     []int{customerID},
		AmountCollected: amountCollected,
		CreditApplied:   creditApplied,
	})
	s.cache.InvalidateSale(ctx, saleID)

	return &models.CompleteDeliveryResult{
		TotalOrderAmount:  orderTotal,
		CreditApplied:     creditApplied,
		AmountCollected:   amountCollected,
		NewCustomerCredit: newCredit,
	}, nil
}

// Skip resolves the customer's pending step as skipped. A reason is
// mandatory.
func (s *DeliveryService) Skip(ctx context.Context, saleID, customerID, accountID int, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: skip_reason is required", ErrValidation)
	}
	if _, err := s.mustGetSale(ctx, saleID, accountID); err != nil {
		return err
	}
	step, err := s.mustGetStep(ctx, saleID, customerID)
	if err != nil {
		return err
	}
	if step.Status != models.StepStatusPending {
		return fmt.Errorf("%w: step is already %s", ErrNotPending, step.Status)
	}

	ok, err := s.steps.Skip(ctx, saleID, customerID, reason)
	if err != nil {
		return fmt.Errorf("skip delivery: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: step was resolved concurrently", ErrNotPending)
	}
	metrics.DeliveriesResolved.WithLabelValues("skipped").Inc()

	s.notifier.Dispatch(notify.Event{
		Type:        notify.EventDeliverySkipped,
		SaleID:      saleID,
		CustomerIDs: []int{customerID},
		Reason:      reason,
	})
	s.cache.InvalidateSale(ctx, saleID)
	return nil
}

// ResetToPending undoes a completed or skipped step. Credit consumed at
// completion time is restored in the exact recorded amount, never
// recomputed, and a sale that had auto-completed reverts to in_progress.
// Resetting a step that is already pending reports not-found: nothing
// matched a resettable state.
func (s *DeliveryService) ResetToPending(ctx context.Context, saleID, customerID, accountID int) error {
	if _, err := s.mustGetSale(ctx, saleID, accountID); err != nil {
		return err
	}
	if _, err := s.mustGetStep(ctx, saleID, customerID); err != nil {
		return err
	}

	restored, ok, err := s.steps.Reset(ctx, saleID, customerID)
	if err != nil {
		return fmt.Errorf("reset delivery: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: no completed or skipped step for customer %d", ErrNotFound, customerID)
	}
	metrics.DeliveriesResolved.WithLabelValues("reset").Inc()

	if restored.IsPositive() {
		s.logger.Info("restored customer credit on delivery reset",
			zap.Int("sale_id", saleID),
			zap.Int("customer_id", customerID),
			zap.String("credit_restored", restored.String()))
	}
	s.cache.InvalidateSale(ctx, saleID)
	return nil
}

// Progress summarizes the route: per-status counts, money totals and the
// stop the queue currently points at.
func (s *DeliveryService) Progress(ctx context.Context, saleID, accountID int) (*models.DeliveryProgress, error) {
	sale, err := s.mustGetSale(ctx, saleID, accountID)
	if err != nil {
		return nil, err
	}
	steps, err := s.steps.StepsBySale(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("load delivery steps: %w", err)
	}
	stops, err := s.buildRoute(ctx, sale, steps)
	if err != nil {
		return nil, err
	}

	progress := &models.DeliveryProgress{
		TotalDeliveries:    len(stops),
		TotalCollected:     decimal.Zero,
		TotalCreditApplied: decimal.Zero,
		TotalExpected:      decimal.Zero,
		TotalSkippedAmount: decimal.Zero,
		PendingDeliveries:  []models.RouteStop{},
	}
	for i := range stops {
		stop := stops[i]
		progress.TotalExpected = progress.TotalExpected.Add(stop.TotalAmount)
		switch stop.Status {
		case models.StepStatusCompleted:
			progress.CompletedCount++
			if stop.AmountCollected != nil {
				progress.TotalCollected = progress.TotalCollected.Add(*stop.AmountCollected)
			}
			if stop.CreditApplied != nil {
				progress.TotalCreditApplied = progress.TotalCreditApplied.Add(*stop.CreditApplied)
			}
		case models.StepStatusSkipped:
			progress.SkippedCount++
			progress.TotalSkippedAmount = progress.TotalSkippedAmount.Add(stop.TotalAmount)
		case models.StepStatusPending:
			progress.PendingCount++
			progress.PendingDeliveries = append(progress.PendingDeliveries, stop)
			if stop.IsNext {
				current := stop
				progress.CurrentDelivery = &current
			}
		}
	}
	return progress, nil
}

func (s *DeliveryService) mustGetSale(ctx context.Context, saleID, accountID int) (*models.Sale, error) {
	sale, err := s.sales.Get(ctx, saleID, accountID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: sale %d", ErrNotFound, saleID)
	}
	return sale, nil
}

func (s *DeliveryService) mustGetStep(ctx context.Context, saleID, customerID int) (*models.DeliveryStep, error) {
	step, err := s.steps.StepByCustomer(ctx, saleID, customerID)
	if err != nil {
		return nil, fmt.Errorf("get delivery step: %w", err)
	}
	if step == nil {
		return nil, fmt.Errorf("%w: delivery step for customer %d", ErrNotFound, customerID)
	}
	return step, nil
}

// deriveRoute builds the default route from the sale's items: one pending
// step per customer, ordered by customer name ascending.
func (s *DeliveryService) deriveRoute(ctx context.Context, sale *models.Sale) ([]models.DeliveryStep, error) {
	ids := itemCustomerIDs(sale.Items)
	if len(ids) == 0 {
		return nil, nil
	}
	customers, err := s.customers.ByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve route customers: %w", err)
	}
	sort.Slice(customers, func(i, j int) bool {
		if customers[i].Name != customers[j].Name {
			return customers[i].Name < customers[j].Name
		}
		return customers[i].ID < customers[j].ID
	})

	steps := make([]models.DeliveryStep, 0, len(customers))
	for i, c := range customers {
		steps = append(steps, models.DeliveryStep{
			SaleID:        sale.ID,
			CustomerID:    c.ID,
			SequenceOrder: i + 1,
			Status:        models.StepStatusPending,
			CustomerName:  c.Name,
		})
	}
	return steps, nil
}

// buildRoute enriches raw steps with per-customer order lines and credit
// previews.
func (s *DeliveryService) buildRoute(ctx context.Context, sale *models.Sale, steps []models.DeliveryStep) ([]models.RouteStop, error) {
	credits := make(map[int]decimal.Decimal, len(steps))
	if len(steps) > 0 {
		ids := make([]int, 0, len(steps))
		for _, st := range steps {
			ids = append(ids, st.CustomerID)
		}
		customers, err := s.customers.ByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("resolve route customers: %w", err)
		}
		for _, c := range customers {
			credits[c.ID] = c.Credit
		}
	}

	itemsByCustomer := make(map[int][]models.SaleItemResponse)
	for _, item := range sale.Items {
		itemsByCustomer[item.CustomerID] = append(itemsByCustomer[item.CustomerID], models.SaleItemResponse{
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			BuyPriceAtSale:  item.BuyPriceAtSale,
			SellPriceAtSale: item.SellPriceAtSale,
			Benefit:         item.Benefit(),
		})
	}

	stops := make([]models.RouteStop, 0, len(steps))
	for _, step := range steps {
		total := customerOrderTotal(sale.Items, step.CustomerID)
		stop := models.RouteStop{
			DeliveryStep:    step,
			TotalAmount:     total,
			CustomerCredit:  credits[step.CustomerID],
			CreditToApply:   decimal.Zero,
			AmountToCollect: total,
			Items:           itemsByCustomer[step.CustomerID],
		}
		if stop.Items == nil {
			stop.Items = []models.SaleItemResponse{}
		}
		switch step.Status {
		case models.StepStatusPending:
			stop.CreditToApply = decimal.Min(stop.CustomerCredit, total)
			stop.AmountToCollect = total.Sub(stop.CreditToApply)
		case models.StepStatusCompleted:
			if step.CreditApplied != nil {
				stop.CreditToApply = *step.CreditApplied
			}
			stop.AmountToCollect = total.Sub(stop.CreditToApply)
		}
		stops = append(stops, stop)
	}
	sort.Slice(stops, func(i, j int) bool { return stops[i].SequenceOrder < stops[j].SequenceOrder })
	return stops, nil
}

func customerOrderTotal(items []models.SaleItem, customerID int) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.CustomerID == customerID {
			total = total.Add(item.Revenue())
		}
	}
	return total
}

func seqOf(steps []models.DeliveryStep, customerID int) int {
	for _, st := range steps {
		if st.CustomerID == customerID {
			return st.SequenceOrder
		}
	}
	return 0
}
