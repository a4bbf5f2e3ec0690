package transport

import (
	"net/http"

	"teomarket/internal/domain"
	"teomarket/internal/middleware"
	"teomarket/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderStatusRequest is the body of PATCH /api/admin/orders/{id}/status.
type OrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ReturnStatusRequest is the body of PATCH /api/admin/returns/{id}/status.
type ReturnStatusRequest struct {
	Status       string           `json:"status" validate:"required"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"`
	Comment      *string          `json:"comment,omitempty"`
}

// AdminHandler exposes the back-office status operations.
type AdminHandler struct {
	orders  service.OrderService
	returns service.ReturnService
	logger  *zap.Logger
}

func NewAdminHandler(orders service.OrderService, returns service.ReturnService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{orders: orders, returns: returns, logger: logger}
}

// RegisterRoutes mounts the admin routes behind authentication and the admin
// role check.
func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin(h.logger))

		r.Patch("/orders/{id}/status", h.UpdateOrderStatus)
		r.Post("/orders/{id}/paid", h.MarkOrderPaid)
		r.Patch("/returns/{id}/status", h.UpdateReturnStatus)
	})
}

// UpdateOrderStatus handles PATCH /api/admin/orders/{id}/status
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req OrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithRequestError(w, h.logger, err)
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, status)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orderResponse(order, locale(r)))
}

// MarkOrderPaid handles POST /api/admin/orders/{id}/paid
func (h *AdminHandler) MarkOrderPaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	order, err := h.orders.MarkPaid(r.Context(), id)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orderResponse(order, locale(r)))
}

// UpdateReturnStatus handles PATCH /api/admin/returns/{id}/status
func (h *AdminHandler) UpdateReturnStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req ReturnStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithRequestError(w, h.logger, err)
		return
	}
	status, err := domain.ParseReturnStatus(req.Status)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	ret, err := h.returns.UpdateStatus(r.Context(), id, service.ReturnStatusUpdate{
		Status:       status,
		RefundAmount: req.RefundAmount,
		Comment:      req.Comment,
	})
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, returnResponse(ret, locale(r)))
}
