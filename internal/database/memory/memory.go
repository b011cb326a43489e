// Package memory is an in-process document store with the same method
// sets as the Mongo repositories. Every mutation is counted so tests can
// assert that a code path wrote nothing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/database"
	"storefront/internal/models"
)

// ErrUnavailable is returned by every call while a store is marked down.
var ErrUnavailable = errors.New("store unavailable")

type failSwitch struct {
	down bool
}

func (f *failSwitch) check() error {
	if f.down {
		return ErrUnavailable
	}
	return nil
}

type Orders struct {
	mu     sync.Mutex
	fail   failSwitch
	byID   map[primitive.ObjectID]models.Order
	writes int
}

func NewOrders() *Orders {
	return &Orders{byID: make(map[primitive.ObjectID]models.Order)}
}

// SetUnavailable makes every following call fail until reset.
func (s *Orders) SetUnavailable(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail.down = down
}

// Writes returns the number of successful mutations.
func (s *Orders) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Orders) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Put stores order as is, bypassing uniqueness checks. For seeding tests.
func (s *Orders) Put(order models.Order) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	s.byID[order.ID] = order.Clone()
	return order
}

func (s *Orders) Insert(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail.check(); err != nil {
		return err
	}
	if order.RazorpayOrderID != "" {
		for _, existing := range s.byID {
			if existing.RazorpayOrderID == order.RazorpayOrderID {
				return database.ErrDuplicate
			}
		}
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	s.byID[order.ID] = order.Clone()
	s.writes++
	return nil
}

func (s *Orders) FindByID(_ context.Context, id string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail.check(); err != nil {
		return models.Order{}, err
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Order{}, database.ErrNotFound
	}
	order, ok := s.byID[objectID]
	if !ok {
		return models.Order{}, database.ErrNotFound
	}
	return order.Clone(), nil
}

func (s *Orders) FindByGatewayOrderID(_ context.Context, gatewayOrderID string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail.check(); err != nil {
		return models.Order{}, err
	}
	if gatewayOrderID == "" {
		return models.Order{}, database.ErrNotFound
	}
	for _, order := range s.byID {
		if order.RazorpayOrderID == gatewayOrderID {
			return order.Clone(), nil
		}
	}
	return models.Order{}, database.ErrNotFound
}

func (s *Orders) ListByUser(ctx context.Context, userID string, page, limit int64) ([]models.Order, int64, error) {
	return s.list(func(o models.Order) bool { return o.UserID == userID }, page, limit)
}

func (s *Orders) List(ctx context.Context, status models.OrderStatus, page, limit int64) ([]models.Order, int64, error) {
	return s.list(func(o models.Order) bool { return status == "" || o.Status == status }, page, limit)
}

func (s *Orders) list(match func(models.Order) bool, page, limit int64) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail.check(); err != nil {
		return nil, 0, err
	}

	matched := make([]models.Order, 0)
	for _, order := range s.byID {
		if match(order) {
			matched = append(matched, order.Clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start, end := pageBounds(total, page, limit)
	return matched[start:end], total, nil
}

func (s *Orders) Apply(_ context.Context, id primitive.ObjectID, t database.Transition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail.check(); err != nil {
		return false, err
	}

	order, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	if t.Status != "" && (!order.Status.Valid() || order.Status.AtLeast(t.Status)) {
		return false, nil
	}
	if t.PaymentStatus != "" && (order.PaymentStatus.Rank() < 0 || order.PaymentStatus.Rank() >= t.PaymentStatus.Rank()) {
		return false, nil
	}

	order = order.Clone()
	if t.Status != "" {
		order.Status = t.Status
		order.StatusHistory = append(order.StatusHistory, models.StatusEntry{Status: t.Status, Timestamp: t.At})
	}
	if t.PaymentStatus != "" {
		order.PaymentStatus = t.PaymentStatus
	}
	if t.PaymentID != "" {
		order.PaymentID = t.PaymentID
	}
	if t.RefundID != "" {
		order.RefundID = t.RefundID
	}
	order.UpdatedAt = t.At
	s.byID[id] = order
	s.writes++
	return true, nil
}

type Sessions struct {
	mu     sync.Mutex
	fail   failSwitch
	byID   map[string]models.CheckoutSession
	writes int
}

func NewSessions() *Sessions {
	return &Sessions{byID: make(map[string]models.CheckoutSession)}
}

func (s *Sessions) SetUnavailable(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail.down = down
}

func (s *Sessions) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Sessions) Insert(_ context.Context, session models.CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail.check(); err != nil {
		return err
	}
	if _, ok := s.byID[session.RazorpayOrderID]; ok {
		return database.ErrDuplicate
	}
	session.Items = append([]models.OrderItem(nil), session.Items...)
	s.byID[session.RazorpayOrderID] = session
	s.writes++
	return nil
}

func (s *Sessions) FindByGatewayOrderID(_ context.Context, gatewayOrderID string) (models.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail.check(); err != nil {
		return models.CheckoutSession{}, err
	}
	session, ok := s.byID[gatewayOrderID]
	if !ok {
		return models.CheckoutSession{}, database.ErrNotFound
	}
	session.Items = append([]models.OrderItem(nil), session.Items...)
	return session, nil
}

func (s *Sessions) MarkCompleted(_ context.Context, gatewayOrderID, orderID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail.check(); err != nil {
		return err
	}
	session, ok := s.byID[gatewayOrderID]
	if !ok {
		return nil
	}
	session.State = models.CheckoutCompleted
	session.OrderID = orderID
	s.byID[gatewayOrderID] = session
	s.writes++
	return nil
}

type Carts struct {
	mu     sync.Mutex
	fail   failSwitch
	byUser map[string]models.Cart
	writes int
}

func NewCarts() *Carts {
	return &Carts{byUser: make(map[string]models.Cart)}
}

func (s *Carts) SetUnavailable(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail.down = down
}

func (s *Carts) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Carts) Get(_ context.Context, userID string) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail.check(); err != nil {
		return models.Cart{}, err
	}
	cart, ok := s.byUser[userID]
	if !ok {
		return models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	cart.Items = append([]models.CartItem{}, cart.Items...)
	return cart, nil
}

func (s *Carts) Replace(_ context.Context, userID string, items []models.CartItem, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail.check(); err != nil {
		return err
	}
	s.byUser[userID] = models.Cart{
		UserID:    userID,
		Items:     append([]models.CartItem{}, items...),
		UpdatedAt: at,
	}
	s.writes++
	return nil
}

func (s *Carts) Clear(ctx context.Context, userID string, at time.Time) error {
	return s.Replace(ctx, userID, nil, at)
}

type Products struct {
	mu   sync.Mutex
	byID map[string]models.Product
}

func NewProducts(products ...models.Product) *Products {
	store := &Products{byID: make(map[string]models.Product)}
	for _, product := range products {
		store.Put(product)
	}
	return store
}

// Put inserts or replaces a product and returns it with its ID set.
func (s *Products) Put(product models.Product) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	s.byID[product.ID.Hex()] = product
	return product
}

func (s *Products) FindActiveByIDs(_ context.Context, ids []string) (map[string]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := make(map[string]models.Product, len(ids))
	for _, id := range ids {
		product, ok := s.byID[id]
		if ok && product.IsActive && !product.IsDeleted {
			found[id] = product
		}
	}
	return found, nil
}

func pageBounds(total, page, limit int64) (int64, int64) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}
