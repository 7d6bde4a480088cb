package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
)

// PortalService backs the token-scoped customer surface: no owner JWT, the
// opaque access token in the path identifies the customer and bounds what
// they can see to their own orders and delivery status.
type PortalService struct {
	tokens   TokenStore
	sales    SaleStore
	products ProductStore
	steps    DeliveryStore
	devices  DeviceStore
	cache    StatusCache
	logger   *zap.Logger

	cutoffHours int
}

func NewPortalService(tokens TokenStore, sales SaleStore, products ProductStore, steps DeliveryStore, devices DeviceStore, cache StatusCache, logger *zap.Logger, cutoffHours int) *PortalService {
	if cutoffHours <= 0 {
		cutoffHours = 12
	}
	return &PortalService{
		tokens:      tokens,
		sales:       sales,
		products:    products,
		steps:       steps,
		devices:     devices,
		cache:       cache,
		logger:      logger,
		cutoffHours: cutoffHours,
	}
}

// Resolve maps an access token to its customer. Unknown tokens are plain
// not-found; the portal never distinguishes missing from revoked.
func (s *PortalService) Resolve(ctx context.Context, token string) (*models.Customer, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: access token", ErrNotFound)
	}
	customer, err := s.tokens.CustomerByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolve access token: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: access token", ErrNotFound)
	}
	return customer, nil
}

// CustomerInfo lists the sales visible to the customer: every sale still
// open for orders plus every sale they already appear in.
func (s *PortalService) CustomerInfo(ctx context.Context, token string) (*models.PortalCustomerInfo, error) {
	customer, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	sales, err := s.sales.List(ctx, customer.AccountID)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	info := &models.PortalCustomerInfo{
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Sales:        []models.PortalSaleSummary{},
	}
	now := time.Now()
	for i := range sales {
		sale := &sales[i]
		open := s.isOpen(sale, now)
		if !open && !saleHasCustomer(sale, customer.ID) {
			continue
		}
		info.Sales = append(info.Sales, models.PortalSaleSummary{
			ID:     sale.ID,
			Date:   sale.Date.Format(DateLayout),
			Status: sale.Status,
			IsOpen: open,
		})
	}
	return info, nil
}

// SaleDetail is the order form for one sale: the products on offer, the
// customer's current order and whether it can still be changed.
func (s *PortalService) SaleDetail(ctx context.Context, token string, saleID int) (*models.PortalSaleDetail, error) {
	customer, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	sale, err := s.sales.Get(ctx, saleID, customer.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: sale %d", ErrNotFound, saleID)
	}

	products, err := s.products.List(ctx, customer.AccountID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	detail := &models.PortalSaleDetail{
		SaleID:            sale.ID,
		SaleDate:          sale.Date.Format(DateLayout),
		SaleStatus:        sale.Status,
		IsOpen:            s.isOpen(sale, time.Now()),
		CustomerID:        customer.ID,
		CustomerName:      customer.Name,
		AvailableProducts: []models.PortalProduct{},
		CurrentOrder:      []models.PortalOrderLine{},
		OrderTotal:        decimal.Zero,
	}
	for _, p := range products {
		detail.AvailableProducts = append(detail.AvailableProducts, models.PortalProduct{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			SellPrice:   p.SellPrice,
		})
	}
	for _, item := range sale.Items {
		if item.CustomerID != customer.ID {
			continue
		}
		line := models.PortalOrderLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.SellPriceAtSale,
			TotalPrice:  item.Revenue(),
		}
		detail.CurrentOrder = append(detail.CurrentOrder, line)
		detail.OrderTotal = detail.OrderTotal.Add(line.TotalPrice)
	}
	if !detail.IsOpen {
		detail.Message = "Orders are closed for this sale."
	}
	return detail, nil
}

// SubmitOrder replaces the customer's order for a sale. Only draft sales
// accept changes; the store re-checks that inside its transaction so a sale
// closing mid-request cannot race an order in.
func (s *PortalService) SubmitOrder(ctx context.Context, token string, saleID int, req models.UpdateOrderRequest) (*models.UpdateOrderResponse, error) {
	customer, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	sale, err := s.sales.Get(ctx, saleID, customer.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: sale %d", ErrNotFound, saleID)
	}
	if sale.Status != models.SaleStatusDraft {
		return nil, fmt.Errorf("%w: orders can no longer be changed (sale is %s)", ErrInvalidState, sale.Status)
	}

	total := decimal.Zero
	items := make([]models.SaleItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for product %d", ErrValidation, line.ProductID)
		}
		product, err := s.products.Get(ctx, line.ProductID, customer.AccountID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, line.ProductID)
		}
		items = append(items, models.SaleItem{
			SaleID:          saleID,
			CustomerID:      customer.ID,
			ProductID:       product.ID,
			Quantity:        line.Quantity,
			BuyPriceAtSale:  product.BuyPrice,
			SellPriceAtSale: product.SellPrice,
		})
		total = total.Add(product.SellPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	ok, err := s.sales.ReplaceCustomerOrder(ctx, saleID, customer.ID, items)
	if err != nil {
		return nil, fmt.Errorf("replace order: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: orders closed while the request was in flight", ErrInvalidState)
	}

	return &models.UpdateOrderResponse{
		Success:    true,
		Message:    "Order updated.",
		OrderTotal: total,
		ItemsCount: len(items),
	}, nil
}

// DeliveryStatus computes the customer-visible snapshot for one sale. The
// same function feeds the single-shot endpoint and every stream tick, so
// reads go through the short-TTL cache first.
func (s *PortalService) DeliveryStatus(ctx context.Context, token string, saleID int) (*models.DeliveryStatusSnapshot, error) {
	customer, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if snap, ok := s.cache.GetDeliveryStatus(ctx, saleID, customer.ID); ok {
		return snap, nil
	}

	sale, err := s.sales.Get(ctx, saleID, customer.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: sale %d", ErrNotFound, saleID)
	}

	snap := &models.DeliveryStatusSnapshot{
		SaleStatus:             sale.Status,
		CustomerDeliveryStatus: models.StepStatusNotScheduled,
	}

	step, err := s.steps.StepByCustomer(ctx, saleID, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("get delivery step: %w", err)
	}
	if step != nil {
		snap.CustomerDeliveryStatus = step.Status
		switch step.Status {
		case models.StepStatusPending:
			if err := s.fillQueuePosition(ctx, snap, saleID, step); err != nil {
				return nil, err
			}
		case models.StepStatusCompleted:
			if step.CompletedAt != nil {
				completed := step.CompletedAt.UTC().Format(time.RFC3339)
				snap.CompletedAt = &completed
			}
			snap.AmountCollected = step.AmountCollected
		case models.StepStatusSkipped:
			snap.SkipReason = step.SkipReason
		}
	}

	s.cache.SetDeliveryStatus(ctx, saleID, customer.ID, snap)
	return snap, nil
}

// fillQueuePosition derives position, deliveries ahead and the wait
// estimate: roughly five minutes per pending stop ahead, two minutes once
// the driver is heading here.
func (s *PortalService) fillQueuePosition(ctx context.Context, snap *models.DeliveryStatusSnapshot, saleID int, step *models.DeliveryStep) error {
	steps, err := s.steps.StepsBySale(ctx, saleID)
	if err != nil {
		return fmt.Errorf("load delivery steps: %w", err)
	}
	ahead := 0
	for _, other := range steps {
		if other.Status == models.StepStatusPending && other.SequenceOrder < step.SequenceOrder {
			ahead++
		}
	}
	position := step.SequenceOrder
	estimated := 5 * ahead
	if step.IsNext {
		estimated = 2
	}
	snap.PositionInQueue = &position
	snap.DeliveriesAhead = &ahead
	snap.EstimatedMinutes = &estimated
	return nil
}

// RegisterDevice stores (or reactivates) a push device for the customer.
func (s *PortalService) RegisterDevice(ctx context.Context, token string, req models.RegisterDeviceRequest) (*models.PushDevice, error) {
	customer, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if req.DeviceToken == "" {
		return nil, fmt.Errorf("%w: device_token is required", ErrValidation)
	}
	switch req.DeviceType {
	case "android", "ios", "web":
	default:
		return nil, fmt.Errorf("%w: device_type must be android, ios or web", ErrValidation)
	}

	device, err := s.devices.Register(ctx, customer.ID, req.DeviceToken, req.DeviceType)
	if err != nil {
		return nil, fmt.Errorf("register device: %w", err)
	}
	s.logger.Info("push device registered",
		zap.Int("customer_id", customer.ID),
		zap.String("device_type", req.DeviceType))
	return device, nil
}

// UnregisterDevice deactivates a push device registration.
func (s *PortalService) UnregisterDevice(ctx context.Context, token string, req models.UnregisterDeviceRequest) error {
	customer, err := s.Resolve(ctx, token)
	if err != nil {
		return err
	}
	if req.DeviceToken == "" {
		return fmt.Errorf("%w: device_token is required", ErrValidation)
	}
	ok, err := s.devices.Unregister(ctx, customer.ID, req.DeviceToken)
	if err != nil {
		return fmt.Errorf("unregister device: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: device registration", ErrNotFound)
	}
	s.logger.Info("push device unregistered", zap.Int("customer_id", customer.ID))
	return nil
}

func (s *PortalService) isOpen(sale *models.Sale, now time.Time) bool {
	if sale.Status != models.SaleStatusDraft {
		return false
	}
	y, m, d := sale.Date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, sale.Date.Location())
	return now.Before(midnight.Add(-time.Duration(s.cutoffHours) * time.Hour))
}

func saleHasCustomer(sale *models.Sale, customerID int) bool {
	for _, item := range sale.Items {
		if item.CustomerID == customerID {
			return true
		}
	}
	return false
}
