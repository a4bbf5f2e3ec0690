package transport

import (
	"net/http"

	"teomarket/internal/middleware"
	"teomarket/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddItemRequest is the body of POST /api/cart/items.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateItemRequest is the body of PUT /api/cart/items/{productID}.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// CartHandler serves the active cart of a customer or anonymous session.
type CartHandler struct {
	carts  service.CartService
	logger *zap.Logger
}

func NewCartHandler(carts service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

func (h *CartHandler) RegisterRoutes(r chi.Router, optionalAuth func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/", h.GetCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{productID}", h.UpdateItem)
		r.Delete("/items/{productID}", h.RemoveItem)
	})
}

// GetCart handles GET /api/cart?currency=
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	view, err := h.carts.GetCart(r.Context(), owner, r.URL.Query().Get("currency"), middleware.GetCustomerGroupID(r.Context()))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithRequestError(w, h.logger, err)
		return
	}

	cart, err := h.carts.AddItem(r.Context(), owner, uuid.MustParse(req.ProductID), req.Quantity)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// UpdateItem handles PUT /api/cart/items/{productID}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	productID, err := uuidParam(r, "productID")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req UpdateItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithRequestError(w, h.logger, err)
		return
	}

	cart, err := h.carts.UpdateItem(r.Context(), owner, productID, req.Quantity)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/cart/items/{productID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, err := cartOwner(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	productID, err := uuidParam(r, "productID")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), owner, productID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}
