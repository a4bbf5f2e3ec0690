package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"teomarket/internal/domain"
	"teomarket/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mock repositories for testing

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	for key, tok := range m.tokens {
		if tok.ExpiresAt.Before(before) {
			delete(m.tokens, key)
			n++
		}
	}
	return n, nil
}

// memState is the content of the in-memory store.
type memState struct {
	currencies map[string]*domain.Currency
	groups     map[uuid.UUID]*domain.CustomerGroup
	products   map[uuid.UUID]*domain.Product
	carts      map[uuid.UUID]*domain.Cart
	orders     map[uuid.UUID]*domain.Order
	returns    map[uuid.UUID]*domain.ProductReturn
}

func newMemState() *memState {
	return &memState{
		currencies: map[string]*domain.Currency{},
		groups:     map[uuid.UUID]*domain.CustomerGroup{},
		products:   map[uuid.UUID]*domain.Product{},
		carts:      map[uuid.UUID]*domain.Cart{},
		orders:     map[uuid.UUID]*domain.Order{},
		returns:    map[uuid.UUID]*domain.ProductReturn{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.currencies {
		cp := *v
		c.currencies[k] = &cp
	}
	for k, v := range s.groups {
		cp := *v
		c.groups[k] = &cp
	}
	for k, v := range s.products {
		c.products[k] = cloneProduct(v)
	}
	for k, v := range s.carts {
		c.carts[k] = cloneCart(v)
	}
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range s.returns {
		c.returns[k] = cloneReturn(v)
	}
	return c
}

func cloneProduct(p *domain.Product) *domain.Product {
	cp := *p
	cp.Tiers = append([]domain.PriceTier(nil), p.Tiers...)
	return &cp
}

func cloneCart(c *domain.Cart) *domain.Cart {
	cp := *c
	cp.Items = append([]domain.CartItem{}, c.Items...)
	return &cp
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Products = append([]domain.OrderProduct{}, o.Products...)
	return &cp
}

func cloneReturn(r *domain.ProductReturn) *domain.ProductReturn {
	cp := *r
	if r.RestockedAt != nil {
		t := *r.RestockedAt
		cp.RestockedAt = &t
	}
	if r.RefundAmount != nil {
		a := *r.RefundAmount
		cp.RefundAmount = &a
	}
	return &cp
}

// memStore is a transactional in-memory repository.Store. A transaction
// works on a copy that replaces the committed state only on success.
type memStore struct {
	state *memState
	// failures injects an error into the named repository call, e.g.
	// "Orders.Create".
	failures map[string]error
}

func newMemStore() *memStore {
	return &memStore{state: newMemState(), failures: map[string]error{}}
}

func (m *memStore) fail(op string) error {
	return m.failures[op]
}

func (m *memStore) Repositories() *repository.Repositories {
	return m.bind(func() *memState { return m.state })
}

func (m *memStore) WithinTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	draft := m.state.clone()
	if err := fn(m.bind(func() *memState { return draft })); err != nil {
		return err
	}
	m.state = draft
	return nil
}

func (m *memStore) bind(st func() *memState) *repository.Repositories {
	return &repository.Repositories{
		Currencies:     &memCurrencies{st: st},
		CustomerGroups: &memGroups{st: st},
		Products:       &memProducts{st: st, store: m},
		Carts:          &memCarts{st: st, store: m},
		Orders:         &memOrders{st: st, store: m},
		Returns:        &memReturns{st: st},
	}
}

type memCurrencies struct{ st func() *memState }

func (r *memCurrencies) List(ctx context.Context) ([]*domain.Currency, error) {
	out := []*domain.Currency{}
	for _, c := range r.st().currencies {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memCurrencies) FindByCode(ctx context.Context, code string) (*domain.Currency, error) {
	c, ok := r.st().currencies[strings.ToUpper(code)]
	if !ok {
		return nil, domain.ErrCurrencyNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCurrencies) UpdateRate(ctx context.Context, code string, value decimal.Decimal) error {
	c, ok := r.st().currencies[strings.ToUpper(code)]
	if !ok {
		return domain.ErrCurrencyNotFound
	}
	c.Value = value
	return nil
}

type memGroups struct{ st func() *memState }

func (r *memGroups) Create(ctx context.Context, group *domain.CustomerGroup) error {
	cp := *group
	r.st().groups[group.ID] = &cp
	return nil
}

func (r *memGroups) List(ctx context.Context) ([]*domain.CustomerGroup, error) {
	out := []*domain.CustomerGroup{}
	for _, g := range r.st().groups {
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memGroups) FindByID(ctx context.Context, id uuid.UUID) (*domain.CustomerGroup, error) {
	g, ok := r.st().groups[id]
	if !ok {
		return nil, domain.ErrCustomerGroupNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *memGroups) FindByCode(ctx context.Context, code string) (*domain.CustomerGroup, error) {
	for _, g := range r.st().groups {
		if g.Code == code {
			cp := *g
			return &cp, nil
		}
	}
	return nil, domain.ErrCustomerGroupNotFound
}

type memProducts struct {
	st    func() *memState
	store *memStore
}

func (r *memProducts) Create(ctx context.Context, product *domain.Product) error {
	r.st().products[product.ID] = cloneProduct(product)
	return nil
}

func (r *memProducts) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := r.st().products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (r *memProducts) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *memProducts) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	if err := r.store.fail("Products.DecrementStock"); err != nil {
		return err
	}
	p, ok := r.st().products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.StockQuantity < quantity {
		return domain.ErrInsufficientStock
	}
	p.StockQuantity -= quantity
	return nil
}

func (r *memProducts) IncrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	p, ok := r.st().products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.StockQuantity += quantity
	return nil
}

type memCarts struct {
	st    func() *memState
	store *memStore
}

func (r *memCarts) Create(ctx context.Context, cart *domain.Cart) error {
	r.st().carts[cart.ID] = cloneCart(cart)
	return nil
}

func (r *memCarts) FindByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	c, ok := r.st().carts[id]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return cloneCart(c), nil
}

func (r *memCarts) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	return r.FindByID(ctx, id)
}

func (r *memCarts) newest(match func(*domain.Cart) bool) (*domain.Cart, error) {
	var found *domain.Cart
	for _, c := range r.st().carts {
		if !match(c) {
			continue
		}
		if found == nil || c.UpdatedAt.After(found.UpdatedAt) {
			found = c
		}
	}
	if found == nil {
		return nil, domain.ErrCartNotFound
	}
	return cloneCart(found), nil
}

func (r *memCarts) FindActiveBySession(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return r.newest(func(c *domain.Cart) bool {
		return c.SessionID == sessionID && c.CustomerID == nil && c.IsActive()
	})
}

func (r *memCarts) FindActiveBySessionForUpdate(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return r.FindActiveBySession(ctx, sessionID)
}

func (r *memCarts) FindActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	return r.newest(func(c *domain.Cart) bool {
		return c.CustomerID != nil && *c.CustomerID == customerID && c.IsActive()
	})
}

func (r *memCarts) active(cartID uuid.UUID) (*domain.Cart, error) {
	c, ok := r.st().carts[cartID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	if !c.IsActive() {
		return nil, domain.ErrCartNotActive
	}
	return c, nil
}

func (r *memCarts) AssignCustomer(ctx context.Context, cartID, customerID uuid.UUID) error {
	c, err := r.active(cartID)
	if err != nil {
		return err
	}
	id := customerID
	c.CustomerID = &id
	c.UpdatedAt = time.Now()
	return nil
}

func (r *memCarts) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	if _, ok := r.st().products[productID]; !ok {
		return domain.ErrProductNotFound
	}
	c, ok := r.st().carts[cartID]
	if !ok {
		return domain.ErrCartNotFound
	}
	now := time.Now()
	c.UpdatedAt = now
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			c.Items[i].UpdatedAt = now
			return nil
		}
	}
	c.Items = append(c.Items, domain.CartItem{
		ID:        uuid.New(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return nil
}

func (r *memCarts) SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	c, ok := r.st().carts[cartID]
	if !ok {
		return domain.ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return domain.ErrCartItemNotFound
}

func (r *memCarts) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	c, ok := r.st().carts[cartID]
	if !ok {
		return domain.ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return domain.ErrCartItemNotFound
}

func (r *memCarts) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	if c, ok := r.st().carts[cartID]; ok {
		c.Items = []domain.CartItem{}
	}
	return nil
}

func (r *memCarts) Delete(ctx context.Context, cartID uuid.UUID) error {
	delete(r.st().carts, cartID)
	return nil
}

func (r *memCarts) MarkConverted(ctx context.Context, cartID uuid.UUID) error {
	if err := r.store.fail("Carts.MarkConverted"); err != nil {
		return err
	}
	c, err := r.active(cartID)
	if err != nil {
		return err
	}
	c.Status = domain.CartStatusConverted
	c.UpdatedAt = time.Now()
	return nil
}

func (r *memCarts) DeleteConvertedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, c := range r.st().carts {
		if c.Status == domain.CartStatusConverted && c.UpdatedAt.Before(cutoff) {
			delete(r.st().carts, id)
			n++
		}
	}
	return n, nil
}

type memOrders struct {
	st    func() *memState
	store *memStore
}

func (r *memOrders) Create(ctx context.Context, order *domain.Order) error {
	if err := r.store.fail("Orders.Create"); err != nil {
		return err
	}
	r.st().orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *memOrders) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := r.st().orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *memOrders) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *memOrders) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	out := []*domain.Order{}
	for _, o := range r.st().orders {
		if o.CustomerID != nil && *o.CustomerID == customerID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memOrders) FindOrderProductForUpdate(ctx context.Context, id uuid.UUID) (*domain.OrderProduct, error) {
	for _, o := range r.st().orders {
		if line, ok := o.Line(id); ok {
			cp := *line
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderProductNotFound
}

func (r *memOrders) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	o, ok := r.st().orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (r *memOrders) MarkPaid(ctx context.Context, id uuid.UUID) error {
	o, ok := r.st().orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.IsPaid = true
	return nil
}

type memReturns struct{ st func() *memState }

func (r *memReturns) Create(ctx context.Context, ret *domain.ProductReturn) error {
	r.st().returns[ret.ID] = cloneReturn(ret)
	return nil
}

func (r *memReturns) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductReturn, error) {
	ret, ok := r.st().returns[id]
	if !ok {
		return nil, domain.ErrReturnNotFound
	}
	return cloneReturn(ret), nil
}

func (r *memReturns) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ProductReturn, error) {
	return r.FindByID(ctx, id)
}

func (r *memReturns) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.ProductReturn, error) {
	out := []*domain.ProductReturn{}
	for _, ret := range r.st().returns {
		if ret.OrderID == orderID {
			out = append(out, cloneReturn(ret))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memReturns) SumQuantityByOrderProduct(ctx context.Context, orderProductID uuid.UUID) (int, error) {
	total := 0
	for _, ret := range r.st().returns {
		if ret.OrderProductID == orderProductID {
			total += ret.Quantity
		}
	}
	return total, nil
}

func (r *memReturns) Update(ctx context.Context, ret *domain.ProductReturn) error {
	if _, ok := r.st().returns[ret.ID]; !ok {
		return domain.ErrReturnNotFound
	}
	r.st().returns[ret.ID] = cloneReturn(ret)
	return nil
}

var errInjected = errors.New("injected failure")
