package transport

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"teomarket/internal/domain"
	"teomarket/internal/middleware"
	"teomarket/internal/pricing"
	"teomarket/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "transport-test-secret"

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorDetail {
	t.Helper()
	var resp middleware.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Error
}

func bearer(t *testing.T, userID uuid.UUID, role string, groupID *uuid.UUID) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	if groupID != nil {
		claims["customer_group_id"] = groupID.String()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

type stubCatalog struct {
	price      func(productID uuid.UUID, currency string, quantity int, groupID *uuid.UUID) (*pricing.PriceInfo, error)
	tiers      func(productID uuid.UUID, currency string, groupID *uuid.UUID) ([]pricing.TierInfo, error)
	currencies []*domain.Currency
}

func (s *stubCatalog) ProductPrice(ctx context.Context, productID uuid.UUID, currency string, quantity int, groupID *uuid.UUID) (*pricing.PriceInfo, error) {
	return s.price(productID, currency, quantity, groupID)
}

func (s *stubCatalog) ProductTiers(ctx context.Context, productID uuid.UUID, currency string, groupID *uuid.UUID) ([]pricing.TierInfo, error) {
	return s.tiers(productID, currency, groupID)
}

func (s *stubCatalog) Currencies(ctx context.Context) ([]*domain.Currency, error) {
	return s.currencies, nil
}

type stubCarts struct {
	carts      map[string]*domain.Cart
	lastOwner  domain.CartOwner
	lastGroup  *uuid.UUID
	lastAdd    int
	addErr     error
	mergeCalls int
	getCalls   int
}

func newStubCarts() *stubCarts {
	return &stubCarts{carts: map[string]*domain.Cart{}}
}

func ownerKey(o domain.CartOwner) string {
	if o.CustomerID != nil {
		return "customer:" + o.CustomerID.String()
	}
	return "session:" + o.SessionID
}

func (s *stubCarts) GetCart(ctx context.Context, owner domain.CartOwner, currency string, groupID *uuid.UUID) (*service.CartView, error) {
	s.lastOwner, s.lastGroup = owner, groupID
	s.getCalls++
	return &service.CartView{Cart: s.carts[ownerKey(owner)], Currency: currency}, nil
}

func (s *stubCarts) AddItem(ctx context.Context, owner domain.CartOwner, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	s.lastOwner, s.lastAdd = owner, quantity
	if s.addErr != nil {
		return nil, s.addErr
	}
	cart, ok := s.carts[ownerKey(owner)]
	if !ok {
		cart = &domain.Cart{ID: uuid.New(), SessionID: owner.SessionID, CustomerID: owner.CustomerID, Status: domain.CartStatusActive}
		s.carts[ownerKey(owner)] = cart
	}
	cart.Items = append(cart.Items, domain.CartItem{ProductID: productID, Quantity: quantity})
	return cart, nil
}

func (s *stubCarts) UpdateItem(ctx context.Context, owner domain.CartOwner, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	s.lastOwner = owner
	return nil, domain.ErrCartItemNotFound
}

func (s *stubCarts) RemoveItem(ctx context.Context, owner domain.CartOwner, productID uuid.UUID) (*domain.Cart, error) {
	s.lastOwner = owner
	return nil, domain.ErrCartNotFound
}

func (s *stubCarts) ActiveCartID(ctx context.Context, owner domain.CartOwner) (uuid.UUID, error) {
	s.lastOwner = owner
	cart, ok := s.carts[ownerKey(owner)]
	if !ok {
		return uuid.Nil, domain.ErrCartNotFound
	}
	return cart.ID, nil
}

func (s *stubCarts) MergeOnLogin(ctx context.Context, sessionID string, customerID uuid.UUID) (*domain.Cart, error) {
	s.mergeCalls++
	return nil, nil
}

func (s *stubCarts) AfterLogin(ctx context.Context, sessionID string, user *domain.User) error {
	_, err := s.MergeOnLogin(ctx, sessionID, user.ID)
	return err
}

type stubCheckout struct {
	last *service.CheckoutRequest
	err  error
}

func (s *stubCheckout) Submit(ctx context.Context, req service.CheckoutRequest) (*domain.Order, error) {
	s.last = &req
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Order{
		ID:           uuid.New(),
		OrderNumber:  "TM-20261018-0000ABCD",
		CartID:       req.CartID,
		CustomerID:   req.Owner.CustomerID,
		Status:       req.PaymentMethod.InitialOrderStatus(),
		CurrencyCode: "RON",
	}, nil
}

type stubOrders struct {
	orders     map[uuid.UUID]*domain.Order
	lastStatus domain.OrderStatus
}

func (s *stubOrders) Get(ctx context.Context, actor service.Actor, id uuid.UUID) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok || (!actor.IsAdmin && (o.CustomerID == nil || *o.CustomerID != actor.UserID)) {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *stubOrders) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range s.orders {
		if o.CustomerID != nil && *o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubOrders) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if !o.Status.CanTransitionTo(status) {
		return nil, domain.ErrInvalidStatusTransition
	}
	s.lastStatus = status
	o.Status = status
	return o, nil
}

func (s *stubOrders) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	o.IsPaid = true
	return o, nil
}

type stubReturns struct {
	created    *service.ReturnRequest
	lastUpdate *service.ReturnStatusUpdate
	err        error
}

func (s *stubReturns) Create(ctx context.Context, actor service.Actor, req service.ReturnRequest) (*domain.ProductReturn, error) {
	s.created = &req
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ProductReturn{
		ID:             uuid.New(),
		OrderID:        req.OrderID,
		OrderProductID: req.OrderProductID,
		CustomerID:     &actor.UserID,
		Quantity:       req.Quantity,
		Reason:         req.Reason,
		Status:         domain.ReturnStatusPending,
	}, nil
}

func (s *stubReturns) Get(ctx context.Context, actor service.Actor, id uuid.UUID) (*domain.ProductReturn, error) {
	return nil, domain.ErrReturnNotFound
}

func (s *stubReturns) ListForOrder(ctx context.Context, actor service.Actor, orderID uuid.UUID) ([]*domain.ProductReturn, error) {
	return []*domain.ProductReturn{{ID: uuid.New(), OrderID: orderID, Status: domain.ReturnStatusPending, Reason: domain.ReturnReasonDefective}}, nil
}

func (s *stubReturns) UpdateStatus(ctx context.Context, id uuid.UUID, update service.ReturnStatusUpdate) (*domain.ProductReturn, error) {
	s.lastUpdate = &update
	return &domain.ProductReturn{ID: id, Status: update.Status, RefundAmount: update.RefundAmount, Reason: domain.ReturnReasonOther}, nil
}

type testAPI struct {
	router   chi.Router
	catalog  *stubCatalog
	carts    *stubCarts
	checkout *stubCheckout
	orders   *stubOrders
	returns  *stubReturns
}

func newTestAPI() *testAPI {
	api := &testAPI{
		catalog:  &stubCatalog{},
		carts:    newStubCarts(),
		checkout: &stubCheckout{},
		orders:   &stubOrders{orders: map[uuid.UUID]*domain.Order{}},
		returns:  &stubReturns{},
	}

	logger := zap.NewNop()
	auth := middleware.AuthMiddleware(testSecret, logger)
	optional := middleware.OptionalAuth(testSecret, logger)
	noLimit := middleware.RateLimitMiddleware(nil, middleware.RateLimitConfig{}, logger)

	r := chi.NewRouter()
	NewCatalogHandler(api.catalog, logger).RegisterRoutes(r, optional)
	NewCartHandler(api.carts, logger).RegisterRoutes(r, optional)
	NewOrderHandler(api.carts, api.checkout, api.orders, api.returns, logger).RegisterRoutes(r, auth, optional, noLimit)
	NewReturnHandler(api.returns, logger).RegisterRoutes(r, auth)
	NewAdminHandler(api.orders, api.returns, logger).RegisterRoutes(r, auth)
	api.router = r
	return api
}
