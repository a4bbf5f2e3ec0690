package transport

import (
	"net/http"

	"teomarket/internal/domain"
	"teomarket/internal/middleware"
	"teomarket/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateReturnRequest is the body of POST /api/returns.
type CreateReturnRequest struct {
	OrderID        string `json:"order_id" validate:"required,uuid"`
	OrderProductID string `json:"order_product_id" validate:"required,uuid"`
	Quantity       int    `json:"quantity" validate:"required,gte=1"`
	Reason         string `json:"return_reason" validate:"required"`
	RestockItem    bool   `json:"restock_item"`
	Comment        string `json:"comment,omitempty" validate:"max=2000"`
}

// ReturnResponse is a return with its status and reason rendered.
type ReturnResponse struct {
	*domain.ProductReturn
	StatusLabel string `json:"status_label"`
	StatusColor string `json:"status_color"`
	ReasonLabel string `json:"return_reason_label"`
}

func returnResponse(ret *domain.ProductReturn, loc string) ReturnResponse {
	return ReturnResponse{
		ProductReturn: ret,
		StatusLabel:   ret.Status.Label(loc),
		StatusColor:   ret.Status.Color(),
		ReasonLabel:   ret.Reason.Label(loc),
	}
}

// ReturnHandler serves customer return requests.
type ReturnHandler struct {
	returns service.ReturnService
	logger  *zap.Logger
}

func NewReturnHandler(returns service.ReturnService, logger *zap.Logger) *ReturnHandler {
	return &ReturnHandler{returns: returns, logger: logger}
}

func (h *ReturnHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/returns", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.CreateReturn)
		r.Get("/{id}", h.GetReturn)
	})
}

// CreateReturn handles POST /api/returns
func (h *ReturnHandler) CreateReturn(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req CreateReturnRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithRequestError(w, h.logger, err)
		return
	}
	reason, err := domain.ParseReturnReason(req.Reason)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	ret, err := h.returns.Create(r.Context(), a, service.ReturnRequest{
		OrderID:        uuid.MustParse(req.OrderID),
		OrderProductID: uuid.MustParse(req.OrderProductID),
		Quantity:       req.Quantity,
		Reason:         reason,
		RestockItem:    req.RestockItem,
		Comment:        req.Comment,
	})
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	h.logger.Info("Return requested",
		zap.String("return_id", ret.ID.String()),
		zap.String("order_id", ret.OrderID.String()),
		zap.Int("quantity", ret.Quantity),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, returnResponse(ret, locale(r)))
}

// GetReturn handles GET /api/returns/{id}
func (h *ReturnHandler) GetReturn(w http.ResponseWriter, r *http.Request) {
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

	ret, err := h.returns.Get(r.Context(), a, id)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, returnResponse(ret, locale(r)))
}
