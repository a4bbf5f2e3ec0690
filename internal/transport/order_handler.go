package transport

import (
	"errors"
	"net/http"

	"teomarket/internal/domain"
	"teomarket/internal/middleware"
	"teomarket/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutRequest is the body of POST /api/orders.
type CheckoutRequest struct {
	Currency        string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	PaymentMethod   string          `json:"payment_method" validate:"required,oneof=card bank_transfer cash_on_delivery"`
	Email           string          `json:"email" validate:"required,email"`
	ShippingAddress domain.Address  `json:"shipping_address" validate:"required"`
	BillingAddress  *domain.Address `json:"billing_address,omitempty" validate:"omitempty"`
}

// OrderResponse is an order with its status rendered for the storefront.
type OrderResponse struct {
	*domain.Order
	StatusLabel string `json:"status_label"`
	StatusColor string `json:"status_color"`
}

func orderResponse(order *domain.Order, loc string) OrderResponse {
	return OrderResponse{
		Order:       order,
		StatusLabel: order.Status.Label(loc),
		StatusColor: order.Status.Color(),
	}
}

// OrderHandler serves checkout and the customer's orders.
type OrderHandler struct {
	carts    service.CartService
	checkout service.CheckoutService
	orders   service.OrderService
	returns  service.ReturnService
	logger   *zap.Logger
}

func NewOrderHandler(
	carts service.CartService,
	checkout service.CheckoutService,
	orders service.OrderService,
	returns service.ReturnService,
	logger *zap.Logger,
) *OrderHandler {
	return &OrderHandler{
		carts:    carts,
		checkout: checkout,
		orders:   orders,
		returns:  returns,
		logger:   logger,
	}
}

// RegisterRoutes mounts checkout behind optionalAuth and limit, so guests can
// order with their session cart; the read routes require authMiddleware.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, optionalAuth, limit func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.With(optionalAuth, limit).Post("/", h.Checkout)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/", h.ListOrders)
			r.Get("/{id}", h.GetOrder)
			r.Get("/{id}/returns", h.ListReturns)
		})
	})
}

// Checkout handles POST /api/orders: the caller's active cart becomes an order.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithRequestError(w, h.logger, err)
		return
	}

	groupID := middleware.GetCustomerGroupID(r.Context())
	cartID, err := h.carts.ActiveCartID(r.Context(), owner)
	if errors.Is(err, domain.ErrCartNotFound) {
		err = domain.ErrEmptyCart
	}
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	order, err := h.checkout.Submit(r.Context(), service.CheckoutRequest{
		CartID:          cartID,
		Owner:           owner,
		CustomerGroupID: groupID,
		Currency:        req.Currency,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		Email:           req.Email,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
	})
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	h.logger.Info("Order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("currency", order.CurrencyCode),
		zap.String("total", order.Total.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, orderResponse(order, locale(r)))
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	order, err := h.orders.Get(r.Context(), a, id)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orderResponse(order, locale(r)))
}

// ListOrders handles GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	orders, err := h.orders.ListForCustomer(r.Context(), a.UserID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	loc := locale(r)
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderResponse(o, loc))
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"orders": out})
}

// ListReturns handles GET /api/orders/{id}/returns
func (h *OrderHandler) ListReturns(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	returns, err := h.returns.ListForOrder(r.Context(), a, id)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	loc := locale(r)
	out := make([]ReturnResponse, 0, len(returns))
	for _, ret := range returns {
		out = append(out, returnResponse(ret, loc))
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"returns": out})
}
