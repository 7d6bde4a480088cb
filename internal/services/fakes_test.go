package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
	"github.com/albertomartinsanchez/breakfast-backend/internal/notify"
)

// fakeStore is an in-memory implementation of every store interface. Its
// guarded writes mirror the SQL repositories' transactional semantics,
// including the rows-affected checks, the credit guard and the sale
// auto-completion, so the services can be exercised without a database.
type fakeStore struct {
	mu sync.Mutex

	sales     map[int]*models.Sale
	steps     map[int]map[int]*models.DeliveryStep
	customers map[int]*models.Customer
	products  map[int]*models.Product
	tokens    map[string]int
	devices   map[string]*models.PushDevice

	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sales:     make(map[int]*models.Sale),
		steps:     make(map[int]map[int]*models.DeliveryStep),
		customers: make(map[int]*models.Customer),
		products:  make(map[int]*models.Product),
		tokens:    make(map[string]int),
		devices:   make(map[string]*models.PushDevice),
	}
}

func (f *fakeStore) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addCustomer(accountID int, name string, credit decimal.Decimal) *models.Customer {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &models.Customer{ID: f.id(), AccountID: accountID, Name: name, Credit: credit}
	f.customers[c.ID] = c
	return c
}

func (f *fakeStore) addProduct(accountID int, name string, buy, sell decimal.Decimal) *models.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &models.Product{ID: f.id(), AccountID: accountID, Name: name, BuyPrice: buy, SellPrice: sell}
	f.products[p.ID] = p
	return p
}

func (f *fakeStore) addToken(token string, customerID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = customerID
}

func (f *fakeStore) credit(customerID int) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.customers[customerID].Credit
}

func (f *fakeStore) saleStatus(saleID int) models.SaleStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sales[saleID].Status
}

// SaleStore

func (f *fakeStore) Create(ctx context.Context, sale *models.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale.ID = f.id()
	sale.CreatedAt = time.Now()
	sale.UpdatedAt = sale.CreatedAt
	for i := range sale.Items {
		sale.Items[i].ID = f.id()
		sale.Items[i].SaleID = sale.ID
	}
	cp := *sale
	cp.Items = append([]models.SaleItem(nil), sale.Items...)
	f.sales[sale.ID] = &cp
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id, accountID int) (*models.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[id]
	if !ok || sale.AccountID != accountID {
		return nil, nil
	}
	return f.copySale(sale), nil
}

func (f *fakeStore) List(ctx context.Context, accountID int) ([]models.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Sale
	for _, sale := range f.sales {
		if sale.AccountID == accountID {
			out = append(out, *f.copySale(sale))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) copySale(sale *models.Sale) *models.Sale {
	cp := *sale
	cp.Items = make([]models.SaleItem, len(sale.Items))
	for i, item := range sale.Items {
		if c, ok := f.customers[item.CustomerID]; ok {
			item.CustomerName = c.Name
		}
		if p, ok := f.products[item.ProductID]; ok {
			item.ProductName = p.Name
		}
		cp.Items[i] = item
	}
	return &cp
}

func (f *fakeStore) ReplaceItems(ctx context.Context, sale *models.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.sales[sale.ID]
	stored.Date = sale.Date
	stored.Items = make([]models.SaleItem, len(sale.Items))
	for i, item := range sale.Items {
		item.ID = f.id()
		item.SaleID = sale.ID
		stored.Items[i] = item
	}
	return nil
}

func (f *fakeStore) Patch(ctx context.Context, id int, status *models.SaleStatus, date *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale := f.sales[id]
	if status != nil {
		sale.Status = *status
	}
	if date != nil {
		sale.Date = *date
	}
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id, accountID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sales, id)
	delete(f.steps, id)
	return nil
}

func (f *fakeStore) ReplaceCustomerOrder(ctx context.Context, saleID, customerID int, items []models.SaleItem) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[saleID]
	if !ok || sale.Status != models.SaleStatusDraft {
		return false, nil
	}
	var kept []models.SaleItem
	for _, item := range sale.Items {
		if item.CustomerID != customerID {
			kept = append(kept, item)
		}
	}
	for _, item := range items {
		item.ID = f.id()
		item.SaleID = saleID
		kept = append(kept, item)
	}
	sale.Items = kept
	return true, nil
}

// DeliveryStore

func (f *fakeStore) StepsBySale(ctx context.Context, saleID int) ([]models.DeliveryStep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stepsLocked(saleID), nil
}

func (f *fakeStore) stepsLocked(saleID int) []models.DeliveryStep {
	var out []models.DeliveryStep
	for _, step := range f.steps[saleID] {
		cp := *step
		if c, ok := f.customers[step.CustomerID]; ok {
			cp.CustomerName = c.Name
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceOrder < out[j].SequenceOrder })
	return out
}

func (f *fakeStore) StepByCustomer(ctx context.Context, saleID, customerID int) (*models.DeliveryStep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	step, ok := f.steps[saleID][customerID]
	if !ok {
		return nil, nil
	}
	cp := *step
	if c, ok := f.customers[step.CustomerID]; ok {
		cp.CustomerName = c.Name
	}
	return &cp, nil
}

func (f *fakeStore) CreateSteps(ctx context.Context, steps []models.DeliveryStep) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range steps {
		step := steps[i]
		step.ID = f.id()
		if f.steps[step.SaleID] == nil {
			f.steps[step.SaleID] = make(map[int]*models.DeliveryStep)
		}
		f.steps[step.SaleID][step.CustomerID] = &step
	}
	return nil
}

func (f *fakeStore) Start(ctx context.Context, saleID int, newSteps []models.DeliveryStep, nextCustomerID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[saleID]
	if !ok || sale.Status != models.SaleStatusClosed {
		return false, nil
	}
	sale.Status = models.SaleStatusInProgress
	if f.steps[saleID] == nil {
		f.steps[saleID] = make(map[int]*models.DeliveryStep)
	}
	for i := range newSteps {
		step := newSteps[i]
		step.ID = f.id()
		step.SaleID = saleID
		f.steps[saleID][step.CustomerID] = &step
	}
	for _, step := range f.steps[saleID] {
		step.IsNext = step.CustomerID == nextCustomerID && step.Status == models.StepStatusPending
	}
	return true, nil
}

func (f *fakeStore) Reorder(ctx context.Context, saleID int, targets []models.RouteTarget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	maxSeq := 0
	for _, step := range f.steps[saleID] {
		if step.SequenceOrder > maxSeq {
			maxSeq = step.SequenceOrder
		}
	}
	for _, step := range f.steps[saleID] {
		step.SequenceOrder += maxSeq + 1000
	}
	for _, t := range targets {
		if step, ok := f.steps[saleID][t.CustomerID]; ok {
			step.SequenceOrder = t.Sequence
		}
	}
	return nil
}

func (f *fakeStore) SetNext(ctx context.Context, saleID, customerID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.steps[saleID][customerID]
	if !ok || target.Status != models.StepStatusPending {
		return false, nil
	}
	for _, step := range f.steps[saleID] {
		step.IsNext = false
	}
	target.IsNext = true
	return true, nil
}

func (f *fakeStore) Complete(ctx context.Context, saleID, customerID int, amountCollected, creditApplied decimal.Decimal) (decimal.Decimal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	step, ok := f.steps[saleID][customerID]
	if !ok || step.Status != models.StepStatusPending {
		return decimal.Zero, false, nil
	}
	now := time.Now()
	amount := amountCollected
	credit := creditApplied
	step.Status = models.StepStatusCompleted
	step.IsNext = false
	step.CompletedAt = &now
	step.AmountCollected = &amount
	step.CreditApplied = &credit
	step.SkipReason = nil
	if credit.IsPositive() {
		customer := f.customers[customerID]
		customer.Credit = customer.Credit.Sub(credit)
	}
	f.autoCompleteLocked(saleID)
	return f.customers[customerID].Credit, true, nil
}

func (f *fakeStore) Skip(ctx context.Context, saleID, customerID int, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	step, ok := f.steps[saleID][customerID]
	if !ok || step.Status != models.StepStatusPending {
		return false, nil
	}
	step.Status = models.StepStatusSkipped
	step.IsNext = false
	step.SkipReason = &reason
	step.CompletedAt = nil
	step.AmountCollected = nil
	step.CreditApplied = nil
	f.autoCompleteLocked(saleID)
	return true, nil
}

func (f *fakeStore) Reset(ctx context.Context, saleID, customerID int) (decimal.Decimal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	step, ok := f.steps[saleID][customerID]
	if !ok || step.Status == models.StepStatusPending {
		return decimal.Zero, false, nil
	}
	restored := decimal.Zero
	if step.Status == models.StepStatusCompleted && step.CreditApplied != nil && step.CreditApplied.IsPositive() {
		restored = *step.CreditApplied
		customer := f.customers[customerID]
		customer.Credit = customer.Credit.Add(restored)
	}
	step.Status = models.StepStatusPending
	step.IsNext = false
	step.CompletedAt = nil
	step.AmountCollected = nil
	step.CreditApplied = nil
	step.SkipReason = nil
	if sale, ok := f.sales[saleID]; ok && sale.Status == models.SaleStatusCompleted {
		sale.Status = models.SaleStatusInProgress
	}
	return restored, true, nil
}

func (f *fakeStore) autoCompleteLocked(saleID int) {
	sale, ok := f.sales[saleID]
	if !ok || sale.Status != models.SaleStatusInProgress {
		return
	}
	for _, step := range f.steps[saleID] {
		if step.Status == models.StepStatusPending {
			return
		}
	}
	sale.Status = models.SaleStatusCompleted
}

// CustomerStore, ProductStore

func (f *fakeStore) GetCustomer(ctx context.Context, id, accountID int) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok || c.AccountID != accountID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) ListCustomers(ctx context.Context, accountID int) ([]models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Customer
	for _, c := range f.customers {
		if c.AccountID == accountID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) ByIDs(ctx context.Context, ids []int) ([]models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Customer
	for _, id := range ids {
		if c, ok := f.customers[id]; ok {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) GetProduct(ctx context.Context, id, accountID int) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || p.AccountID != accountID {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListProducts(ctx context.Context, accountID int) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, p := range f.products {
		if p.AccountID == accountID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// TokenStore, DeviceStore

func (f *fakeStore) CustomerByToken(ctx context.Context, token string) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[token]
	if !ok {
		return nil, nil
	}
	cp := *f.customers[id]
	return &cp, nil
}

func (f *fakeStore) Register(ctx context.Context, customerID int, deviceToken, deviceType string) (*models.PushDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &models.PushDevice{
		ID:          f.id(),
		CustomerID:  customerID,
		DeviceToken: deviceToken,
		DeviceType:  deviceType,
		IsActive:    true,
	}
	f.devices[deviceToken] = d
	cp := *d
	return &cp, nil
}

func (f *fakeStore) Unregister(ctx context.Context, customerID int, deviceToken string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[deviceToken]
	if !ok || d.CustomerID != customerID || !d.IsActive {
		return false, nil
	}
	d.IsActive = false
	return true, nil
}

// customerView and productView adapt the fake's methods to the store
// interface names the services expect.
type customerView struct{ *fakeStore }

func (v customerView) Get(ctx context.Context, id, accountID int) (*models.Customer, error) {
	return v.GetCustomer(ctx, id, accountID)
}
func (v customerView) List(ctx context.Context, accountID int) ([]models.Customer, error) {
	return v.ListCustomers(ctx, accountID)
}

type productView struct{ *fakeStore }

func (v productView) Get(ctx context.Context, id, accountID int) (*models.Product, error) {
	return v.GetProduct(ctx, id, accountID)
}
func (v productView) List(ctx context.Context, accountID int) ([]models.Product, error) {
	return v.ListProducts(ctx, accountID)
}

// nopCache makes every read a miss so services always recompute.
type nopCache struct{}

func (nopCache) GetDeliveryStatus(ctx context.Context, saleID, customerID int) (*models.DeliveryStatusSnapshot, bool) {
	return nil, false
}
func (nopCache) SetDeliveryStatus(ctx context.Context, saleID, customerID int, snap *models.DeliveryStatusSnapshot) {
}
func (nopCache) InvalidateSale(ctx context.Context, saleID int) {}

// eventRecorder captures dispatched notification events.
type eventRecorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *eventRecorder) Dispatch(ev notify.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

func (r *eventRecorder) byType(t notify.EventType) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
