package services_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"storefront/models"
	"storefront/repository"
	"storefront/services"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeTxRunner emulates database transactions for in-memory repositories:
// it serializes transactions the way row locks would and restores repository
// snapshots when the function fails, so all-or-nothing behavior is observable.
type fakeTxRunner struct {
	mu           sync.Mutex
	participants []snapshotter
}

type snapshotter interface {
	snapshot() interface{}
	restore(interface{})
}

func newFakeTxRunner(participants ...snapshotter) *fakeTxRunner {
	return &fakeTxRunner{participants: participants}
}

func (r *fakeTxRunner) InTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snaps := make([]interface{}, len(r.participants))
	for i, p := range r.participants {
		snaps[i] = p.snapshot()
	}
	err := fn(nil)
	if err != nil {
		for i, p := range r.participants {
			p.restore(snaps[i])
		}
	}
	return err
}

// --- Product repository mock ---

type mockProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*models.Product)}
}

func (m *mockProductRepo) add(p *models.Product) *models.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepo) snapshot() interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[uuid.UUID]models.Product, len(m.products))
	for id, p := range m.products {
		cp := *p
		if p.Stock != nil {
			s := *p.Stock
			cp.Stock = &s
		}
		snap[id] = cp
	}
	return snap
}

func (m *mockProductRepo) restore(v interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := v.(map[uuid.UUID]models.Product)
	m.products = make(map[uuid.UUID]*models.Product, len(snap))
	for id, p := range snap {
		cp := p
		m.products[id] = &cp
	}
}

func (m *mockProductRepo) WithTx(_ *gorm.DB) repository.ProductRepository { return m }

func (m *mockProductRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) ReserveStock(_ context.Context, productID uuid.UUID, quantity int) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if !p.IsActive {
		return nil, &repository.InsufficientStockError{ProductName: p.Name}
	}
	if p.Stock != nil {
		if *p.Stock < quantity {
			return nil, &repository.InsufficientStockError{ProductName: p.Name}
		}
		*p.Stock -= quantity
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) UpdatePrice(_ context.Context, productID uuid.UUID, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Price = price
	return nil
}

// --- Order repository mock ---

type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
	items  map[uuid.UUID][]models.OrderItem
	logs   map[uuid.UUID][]models.OrderStatusLog
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders: make(map[uuid.UUID]*models.Order),
		items:  make(map[uuid.UUID][]models.OrderItem),
		logs:   make(map[uuid.UUID][]models.OrderStatusLog),
	}
}

type orderSnap struct {
	orders map[uuid.UUID]models.Order
	items  map[uuid.UUID][]models.OrderItem
	logs   map[uuid.UUID][]models.OrderStatusLog
}

func (m *mockOrderRepo) snapshot() interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := orderSnap{
		orders: make(map[uuid.UUID]models.Order, len(m.orders)),
		items:  make(map[uuid.UUID][]models.OrderItem, len(m.items)),
		logs:   make(map[uuid.UUID][]models.OrderStatusLog, len(m.logs)),
	}
	for id, o := range m.orders {
		snap.orders[id] = *o
	}
	for id, its := range m.items {
		snap.items[id] = append([]models.OrderItem(nil), its...)
	}
	for id, ls := range m.logs {
		snap.logs[id] = append([]models.OrderStatusLog(nil), ls...)
	}
	return snap
}

func (m *mockOrderRepo) restore(v interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := v.(orderSnap)
	m.orders = make(map[uuid.UUID]*models.Order, len(snap.orders))
	for id, o := range snap.orders {
		cp := o
		m.orders[id] = &cp
	}
	m.items = snap.items
	m.logs = snap.logs
}

func (m *mockOrderRepo) WithTx(_ *gorm.DB) repository.OrderRepository { return m }

func (m *mockOrderRepo) Create(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepo) CreateItems(_ context.Context, items []models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.items[it.OrderID] = append(m.items[it.OrderID], it)
	}
	return nil
}

func (m *mockOrderRepo) get(id uuid.UUID) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	cp.Items = append([]models.OrderItem(nil), m.items[id]...)
	return &cp, nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *mockOrderRepo) FindByIDAndUserID(_ context.Context, id, userID uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.get(id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *mockOrderRepo) FindByUserID(_ context.Context, userID uuid.UUID, _, _ int) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockOrderRepo) FindAll(_ context.Context, _, _ int) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Status = status
	return nil
}

func (m *mockOrderRepo) AssignRider(_ context.Context, id, riderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.RiderID = &riderID
	return nil
}

func (m *mockOrderRepo) AppendStatusLog(_ context.Context, log *models.OrderStatusLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	log.CreatedAt = time.Now()
	m.logs[log.OrderID] = append(m.logs[log.OrderID], *log)
	return nil
}

func (m *mockOrderRepo) FindStatusLogs(_ context.Context, orderID uuid.UUID) ([]models.OrderStatusLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.OrderStatusLog(nil), m.logs[orderID]...), nil
}

// --- Payment repository mock ---

type mockPaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*models.Payment
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[uuid.UUID]*models.Payment)}
}

func (m *mockPaymentRepo) snapshot() interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[uuid.UUID]models.Payment, len(m.payments))
	for id, p := range m.payments {
		snap[id] = *p
	}
	return snap
}

func (m *mockPaymentRepo) restore(v interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := v.(map[uuid.UUID]models.Payment)
	m.payments = make(map[uuid.UUID]*models.Payment, len(snap))
	for id, p := range snap {
		cp := p
		m.payments[id] = &cp
	}
}

func (m *mockPaymentRepo) WithTx(_ *gorm.DB) repository.PaymentRepository { return m }

func (m *mockPaymentRepo) Create(_ context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	cp := *payment
	m.payments[payment.ID] = &cp
	return nil
}

func (m *mockPaymentRepo) FindByReferenceForUpdate(_ context.Context, reference string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.Reference != nil && *p.Reference == reference {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaymentRepo) FindByOrderIDForUpdate(_ context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return m.FindByOrderID(context.Background(), orderID)
}

func (m *mockPaymentRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaymentRepo) Update(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["status"]; ok {
		p.Status = v.(string)
	}
	if v, ok := updates["reference"]; ok {
		ref := v.(string)
		p.Reference = &ref
	}
	if v, ok := updates["raw_payload"]; ok {
		raw := v.(string)
		p.RawPayload = &raw
	}
	return nil
}

func (m *mockPaymentRepo) FindAll(_ context.Context, status string, _ int) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.payments {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	return out, nil
}

// --- Coupon repository mock ---

type mockCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]*models.Coupon

	// findErr makes FindActiveByCode fail as if the store were unreachable.
	findErr error
}

func newMockCouponRepo() *mockCouponRepo {
	return &mockCouponRepo{coupons: make(map[string]*models.Coupon)}
}

func (m *mockCouponRepo) add(c *models.Coupon) *models.Coupon {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.coupons[strings.ToUpper(c.Code)] = c
	return c
}

func (m *mockCouponRepo) snapshot() interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[string]models.Coupon, len(m.coupons))
	for code, c := range m.coupons {
		snap[code] = *c
	}
	return snap
}

func (m *mockCouponRepo) restore(v interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := v.(map[string]models.Coupon)
	m.coupons = make(map[string]*models.Coupon, len(snap))
	for code, c := range snap {
		cp := c
		m.coupons[code] = &cp
	}
}

func (m *mockCouponRepo) WithTx(_ *gorm.DB) repository.CouponRepository { return m }

func (m *mockCouponRepo) Create(_ context.Context, coupon *models.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.coupons[strings.ToUpper(coupon.Code)]; exists {
		return gorm.ErrDuplicatedKey
	}
	m.add(coupon)
	return nil
}

func (m *mockCouponRepo) FindActiveByCode(_ context.Context, code string) (*models.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	c, ok := m.coupons[strings.ToUpper(code)]
	if !ok || !c.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCouponRepo) IncrementUsageCount(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.coupons[strings.ToUpper(code)]; ok {
		c.UsageCount++
	}
	return nil
}

func (m *mockCouponRepo) Deactivate(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[strings.ToUpper(code)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.IsActive = false
	return nil
}

func (m *mockCouponRepo) FindAll(_ context.Context, _, _ int) ([]models.Coupon, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Coupon
	for _, c := range m.coupons {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

// --- Cart repository mock ---

type mockCartRepo struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*models.Cart
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[uuid.UUID]*models.Cart)}
}

func (m *mockCartRepo) GetCart(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Items = append([]models.CartItem(nil), c.Items...)
	return &cp, nil
}

func (m *mockCartRepo) SaveCart(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cart
	cp.Items = append([]models.CartItem(nil), cart.Items...)
	m.carts[cart.UserID] = &cp
	return nil
}

func (m *mockCartRepo) DeleteCart(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

// --- Delivery repository mock ---

type mockDeliveryRepo struct {
	zones     map[uuid.UUID]*models.DeliveryZone
	addresses map[uuid.UUID]*models.DeliveryAddress
	riders    map[uuid.UUID]*models.Rider
}

func newMockDeliveryRepo() *mockDeliveryRepo {
	return &mockDeliveryRepo{
		zones:     make(map[uuid.UUID]*models.DeliveryZone),
		addresses: make(map[uuid.UUID]*models.DeliveryAddress),
		riders:    make(map[uuid.UUID]*models.Rider),
	}
}

func (m *mockDeliveryRepo) addZone(z *models.DeliveryZone) *models.DeliveryZone {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	m.zones[z.ID] = z
	return z
}

func (m *mockDeliveryRepo) addRider(r *models.Rider) *models.Rider {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.riders[r.ID] = r
	return r
}

func (m *mockDeliveryRepo) FindZone(_ context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
	z, ok := m.zones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return z, nil
}

func (m *mockDeliveryRepo) ListZones(_ context.Context) ([]models.DeliveryZone, error) {
	var out []models.DeliveryZone
	for _, z := range m.zones {
		out = append(out, *z)
	}
	return out, nil
}

func (m *mockDeliveryRepo) FindAddressByIDAndUserID(_ context.Context, id, userID uuid.UUID) (*models.DeliveryAddress, error) {
	a, ok := m.addresses[id]
	if !ok || a.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (m *mockDeliveryRepo) FindRider(_ context.Context, id uuid.UUID) (*models.Rider, error) {
	r, ok := m.riders[id]
	if !ok || !r.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

// --- Flash sale repository mock ---

type mockFlashSaleRepo struct {
	mu        sync.Mutex
	sales     map[uuid.UUID]*models.FlashSale
	overrides map[uuid.UUID]*models.PriceOverride
}

func newMockFlashSaleRepo() *mockFlashSaleRepo {
	return &mockFlashSaleRepo{
		sales:     make(map[uuid.UUID]*models.FlashSale),
		overrides: make(map[uuid.UUID]*models.PriceOverride),
	}
}

type flashSaleSnap struct {
	sales     map[uuid.UUID]models.FlashSale
	overrides map[uuid.UUID]models.PriceOverride
}

func (m *mockFlashSaleRepo) snapshot() interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := flashSaleSnap{
		sales:     make(map[uuid.UUID]models.FlashSale, len(m.sales)),
		overrides: make(map[uuid.UUID]models.PriceOverride, len(m.overrides)),
	}
	for id, s := range m.sales {
		snap.sales[id] = *s
	}
	for id, o := range m.overrides {
		snap.overrides[id] = *o
	}
	return snap
}

func (m *mockFlashSaleRepo) restore(v interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := v.(flashSaleSnap)
	m.sales = make(map[uuid.UUID]*models.FlashSale, len(snap.sales))
	for id, s := range snap.sales {
		cp := s
		m.sales[id] = &cp
	}
	m.overrides = make(map[uuid.UUID]*models.PriceOverride, len(snap.overrides))
	for id, o := range snap.overrides {
		cp := o
		m.overrides[id] = &cp
	}
}

func (m *mockFlashSaleRepo) WithTx(_ *gorm.DB) repository.FlashSaleRepository { return m }

func (m *mockFlashSaleRepo) Create(_ context.Context, sale *models.FlashSale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	cp := *sale
	m.sales[sale.ID] = &cp
	return nil
}

func (m *mockFlashSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*models.FlashSale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockFlashSaleRepo) CountOverlapping(_ context.Context, productID uuid.UUID, startsAt, endsAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sales {
		if s.ProductID == productID && s.IsActive && s.StartsAt.Before(endsAt) && s.EndsAt.After(startsAt) {
			n++
		}
	}
	return n, nil
}

func (m *mockFlashSaleRepo) FindExpired(_ context.Context, now time.Time) ([]models.FlashSale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.FlashSale
	for _, s := range m.sales {
		if s.IsActive && s.EndsAt.Before(now) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockFlashSaleRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.IsActive = false
	return nil
}

func (m *mockFlashSaleRepo) CreateOverride(_ context.Context, override *models.PriceOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if override.ID == uuid.Nil {
		override.ID = uuid.New()
	}
	cp := *override
	m.overrides[override.ID] = &cp
	return nil
}

func (m *mockFlashSaleRepo) FindOverrideBySaleID(_ context.Context, saleID uuid.UUID) (*models.PriceOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.overrides {
		if o.FlashSaleID == saleID && o.ReleasedAt == nil {
			cp := *o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFlashSaleRepo) ReleaseOverride(_ context.Context, overrideID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.overrides[overrideID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.ReleasedAt = &at
	return nil
}

// --- Notifier and publisher mocks ---

type mockNotifier struct {
	mu             sync.Mutex
	ordersCreated  int
	settlements    int
	statusChanges  int
	lastSettlement *models.Payment
}

func (m *mockNotifier) NotifyOrderCreated(_ context.Context, _ *models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ordersCreated++
}

func (m *mockNotifier) NotifyPaymentSettled(_ context.Context, _ *models.Order, payment *models.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlements++
	m.lastSettlement = payment
}

func (m *mockNotifier) NotifyStatusChanged(_ context.Context, _ *models.Order, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusChanges++
}

type mockPublisher struct {
	mu      sync.Mutex
	created []models.OrderCreatedEvent
	status  []models.OrderStatusEvent
	payment []models.PaymentEvent
}

func (m *mockPublisher) PublishOrderCreated(_ context.Context, evt models.OrderCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, evt)
	return nil
}

func (m *mockPublisher) PublishOrderStatus(_ context.Context, evt models.OrderStatusEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = append(m.status, evt)
	return nil
}

func (m *mockPublisher) PublishPayment(_ context.Context, evt models.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payment = append(m.payment, evt)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

// --- Payment adapter mock ---

type mockAdapter struct {
	mu      sync.Mutex
	method  string
	calls   []*models.Order
	pending bool
	fail    bool
}

func (m *mockAdapter) Method() string { return m.method }

func (m *mockAdapter) BeginSettlement(_ context.Context, order *models.Order, _ string) (*models.Payment, *services.PaymentInstructions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, order)
	if m.fail {
		return nil, nil, errMockProvider
	}
	ref := "REF-" + order.ID.String()[:8]
	payment := &models.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Method:    m.method,
		Reference: &ref,
		Amount:    order.TotalAmount,
		Status:    models.PaymentStatusPending,
	}
	return payment, &services.PaymentInstructions{Pending: m.pending, Message: "ok"}, nil
}

type mockProviderError struct{}

func (mockProviderError) Error() string { return "provider unreachable" }

var errMockProvider = mockProviderError{}
