package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
	"github.com/albertomartinsanchez/breakfast-backend/internal/notify"
)

// DateLayout is the wire format for sale dates.
const DateLayout = "2006-01-02"

// saleTransitions is the lifecycle state machine. A patch to the current
// status is a no-op; anything not listed here is rejected. in_progress has
// no manual targets: completion is produced only by the delivery queue once
// every step resolves.
var saleTransitions = map[models.SaleStatus][]models.SaleStatus{
	models.SaleStatusDraft:      {models.SaleStatusClosed},
	models.SaleStatusClosed:     {models.SaleStatusDraft, models.SaleStatusInProgress},
	models.SaleStatusInProgress: {},
	models.SaleStatusCompleted:  {},
}

// SaleService owns the sale lifecycle: creation with price snapshots, item
// replacement, the status state machine and the notifications each
// transition fans out.
type SaleService struct {
	sales     SaleStore
	customers CustomerStore
	products  ProductStore
	notifier  notify.Queue
	logger    *zap.Logger

	cutoffHours int
}

func NewSaleService(sales SaleStore, customers CustomerStore, products ProductStore, notifier notify.Queue, logger *zap.Logger, cutoffHours int) *SaleService {
	if cutoffHours <= 0 {
		cutoffHours = 12
	}
	return &SaleService{
		sales:       sales,
		customers:   customers,
		products:    products,
		notifier:    notifier,
		logger:      logger,
		cutoffHours: cutoffHours,
	}
}

// Create opens a new draft sale. Buy and sell prices are snapshotted from
// the products at this moment; later product price changes never alter the
// sale's figures. Every customer on the account is notified that orders are
// open.
func (s *SaleService) Create(ctx context.Context, accountID int, req models.CreateSaleRequest) (*models.SaleResponse, error) {
	date, err := parseSaleDate(req.Date)
	if err != nil {
		return nil, err
	}

	items, err := s.buildItems(ctx, accountID, req.CustomerSales)
	if err != nil {
		return nil, err
	}

	sale := &models.Sale{
		AccountID: accountID,
		Date:      date,
		Status:    models.SaleStatusDraft,
		Items:     items,
	}
	if err := s.sales.Create(ctx, sale); err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}

	s.notifyAccountCustomers(ctx, accountID, notify.Event{
		Type:     notify.EventSaleOpen,
		SaleID:   sale.ID,
		SaleDate: req.Date,
	})

	return s.Get(ctx, sale.ID, accountID)
}

// Get returns one sale with its items grouped per customer.
func (s *SaleService) Get(ctx context.Context, id, accountID int) (*models.SaleResponse, error) {
	sale, err := s.sales.Get(ctx, id, accountID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: sale %d", ErrNotFound, id)
	}
	return buildSaleResponse(sale), nil
}

// List returns every sale of the account, newest date first.
func (s *SaleService) List(ctx context.Context, accountID int) ([]models.SaleResponse, error) {
	sales, err := s.sales.List(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	out := make([]models.SaleResponse, 0, len(sales))
	for i := range sales {
		out = append(out, *buildSaleResponse(&sales[i]))
	}
	return out, nil
}

// Update replaces the sale's date and its full item set, re-snapshotting
// prices for the new items.
func (s *SaleService) Update(ctx context.Context, id, accountID int, req models.UpdateSaleRequest) (*models.SaleResponse, error) {
	sale, err := s.sales.Get(ctx, id, accountID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: sale %d", ErrNotFound, id)
	}

	date, err := parseSaleDate(req.Date)
	if err != nil {
		return nil, err
	}
	items, err := s.buildItems(ctx, accountID, req.CustomerSales)
	if err != nil {
		return nil, err
	}

	sale.Date = date
	sale.Items = items
	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
	}
	if err := s.sales.ReplaceItems(ctx, sale); err != nil {
		return nil, fmt.Errorf("update sale: %w", err)
	}
	return s.Get(ctx, id, accountID)
}

// Patch changes the sale's status and/or date. Status changes follow the
// lifecycle state machine; the date may move independently at any time.
func (s *SaleService) Patch(ctx context.Context, id, accountID int, req models.PatchSaleRequest) (*models.SaleResponse, error) {
	sale, err := s.sales.Get(ctx, id, accountID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: sale %d", ErrNotFound, id)
	}

	var newDate *time.Time
	if req.Date != nil {
		d, err := parseSaleDate(*req.Date)
		if err != nil {
			return nil, err
		}
		newDate = &d
	}

	var newStatus *models.SaleStatus
	closing := false
	if req.Status != nil {
		target := models.SaleStatus(*req.Status)
		if !target.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *req.Status)
		}
		if target != sale.Status {
			if !transitionAllowed(sale.Status, target) {
				if target == models.SaleStatusCompleted {
					return nil, fmt.Errorf("%w: %s -> %s (sales complete automatically when every delivery resolves)",
						ErrInvalidTransition, sale.Status, target)
				}
				return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sale.Status, target)
			}
			newStatus = &target
			closing = target == models.SaleStatusClosed
		}
	}

	if newStatus != nil || newDate != nil {
		if err := s.sales.Patch(ctx, id, newStatus, newDate); err != nil {
			return nil, fmt.Errorf("patch sale: %w", err)
		}
	}

	if closing {
		s.notifier.Dispatch(notify.Event{
			Type:        notify.EventSaleClosed,
			SaleID:      sale.ID,
			SaleDate:    sale.Date.Format(DateLayout),
			CustomerIDs: itemCustomerIDs(sale.Items),
		})
	}

	return s.Get(ctx, id, accountID)
}

// Delete removes the sale, cascading to its items and delivery steps. The
// affected customer set is captured before the delete so the cancellation
// notice still knows its recipients.
func (s *SaleService) Delete(ctx context.Context, id, accountID int) error {
	sale, err := s.sales.Get(ctx, id, accountID)
	if err != nil {
		return fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return fmt.Errorf("%w: sale %d", ErrNotFound, id)
	}

	ev := notify.Event{
		Type:        notify.EventSaleDeleted,
		SaleID:      sale.ID,
		SaleDate:    sale.Date.Format(DateLayout),
		CustomerIDs: itemCustomerIDs(sale.Items),
	}

	if err := s.sales.Delete(ctx, id, accountID); err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}

	s.notifier.Dispatch(ev)
	return nil
}

// State reports whether the sale is still taking orders: open means the
// status is draft and the order cutoff (midnight of the sale date minus the
// configured hours) has not passed yet.
func (s *SaleService) State(ctx context.Context, id, accountID int) (*models.SaleStateResponse, error) {
	sale, err := s.sales.Get(ctx, id, accountID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: sale %d", ErrNotFound, id)
	}
	return s.saleState(sale, time.Now()), nil
}

func (s *SaleService) saleState(sale *models.Sale, now time.Time) *models.SaleStateResponse {
	y, m, d := sale.Date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, sale.Date.Location())
	cutoff := midnight.Add(-time.Duration(s.cutoffHours) * time.Hour)

	remaining := cutoff.Sub(now).Hours()
	if remaining < 0 {
		remaining = 0
	}
	return &models.SaleStateResponse{
		Status:         sale.Status,
		IsOpen:         sale.Status == models.SaleStatusDraft && now.Before(cutoff),
		HoursRemaining: remaining,
		CutoffTime:     cutoff,
	}
}

// buildItems validates the request lines and snapshots product prices.
func (s *SaleService) buildItems(ctx context.Context, accountID int, customerSales []models.CustomerSaleCreate) ([]models.SaleItem, error) {
	var items []models.SaleItem
	for _, cs := range customerSales {
		customer, err := s.customers.Get(ctx, cs.CustomerID, accountID)
		if err != nil {
			return nil, fmt.Errorf("get customer: %w", err)
		}
		if customer == nil {
			return nil, fmt.Errorf("%w: customer %d", ErrNotFound, cs.CustomerID)
		}
		for _, line := range cs.Products {
			if line.Quantity <= 0 {
				return nil, fmt.Errorf("%w: quantity must be positive for product %d", ErrValidation, line.ProductID)
			}
			product, err := s.products.Get(ctx, line.ProductID, accountID)
			if err != nil {
				return nil, fmt.Errorf("get product: %w", err)
			}
			if product == nil {
				return nil, fmt.Errorf("%w: product %d", ErrNotFound, line.ProductID)
			}
			items = append(items, models.SaleItem{
				CustomerID:      cs.CustomerID,
				ProductID:       product.ID,
				Quantity:        line.Quantity,
				BuyPriceAtSale:  product.BuyPrice,
				SellPriceAtSale: product.SellPrice,
				ProductName:     product.Name,
				CustomerName:    customer.Name,
			})
		}
	}
	return items, nil
}

func (s *SaleService) notifyAccountCustomers(ctx context.Context, accountID int, ev notify.Event) {
	customers, err := s.customers.List(ctx, accountID)
	if err != nil {
		s.logger.Warn("could not resolve account customers for notification",
			zap.String("event", string(ev.Type)),
			zap.Int("sale_id", ev.SaleID),
			zap.Error(err))
		return
	}
	ids := make([]int, 0, len(customers))
	for _, c := range customers {
		ids = append(ids, c.ID)
	}
	ev.CustomerIDs = ids
	s.notifier.Dispatch(ev)
}

func transitionAllowed(from, to models.SaleStatus) bool {
	for _, t := range saleTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

func parseSaleDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not in YYYY-MM-DD form", ErrValidation, raw)
	}
	return d, nil
}

// itemCustomerIDs returns the unique customers referenced by the items, in
// first-appearance order.
func itemCustomerIDs(items []models.SaleItem) []int {
	seen := make(map[int]struct{}, len(items))
	var ids []int
	for _, it := range items {
		if _, ok := seen[it.CustomerID]; ok {
			continue
		}
		seen[it.CustomerID] = struct{}{}
		ids = append(ids, it.CustomerID)
	}
	return ids
}

// buildSaleResponse groups a sale's items per customer and totals revenue
// and margin per group and for the sale.
func buildSaleResponse(sale *models.Sale) *models.SaleResponse {
	resp := &models.SaleResponse{
		ID:            sale.ID,
		AccountID:     sale.AccountID,
		Date:          sale.Date.Format(DateLayout),
		Status:        sale.Status,
		CustomerSales: []models.CustomerSaleResponse{},
		TotalBenefit:  decimal.Zero,
		TotalRevenue:  decimal.Zero,
	}

	index := make(map[int]int)
	for _, item := range sale.Items {
		i, ok := index[item.CustomerID]
		if !ok {
			i = len(resp.CustomerSales)
			index[item.CustomerID] = i
			resp.CustomerSales = append(resp.CustomerSales, models.CustomerSaleResponse{
				CustomerID:   item.CustomerID,
				CustomerName: item.CustomerName,
				Products:     []models.SaleItemResponse{},
				TotalBenefit: decimal.Zero,
				TotalRevenue: decimal.Zero,
			})
		}
		cs := &resp.CustomerSales[i]
		cs.Products = append(cs.Products, models.SaleItemResponse{
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			BuyPriceAtSale:  item.BuyPriceAtSale,
			SellPriceAtSale: item.SellPriceAtSale,
			Benefit:         item.Benefit(),
		})
		cs.TotalBenefit = cs.TotalBenefit.Add(item.Benefit())
		cs.TotalRevenue = cs.TotalRevenue.Add(item.Revenue())
		resp.TotalBenefit = resp.TotalBenefit.Add(item.Benefit())
		resp.TotalRevenue = resp.TotalRevenue.Add(item.Revenue())
	}
	return resp
}
