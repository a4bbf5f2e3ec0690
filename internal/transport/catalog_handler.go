package transport

import (
	"net/http"

	"teomarket/internal/middleware"
	"teomarket/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CurrencyResponse is one entry of the currency switcher.
type CurrencyResponse struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	SymbolLeft  string `json:"symbol_left,omitempty"`
	SymbolRight string `json:"symbol_right,omitempty"`
}

// CatalogHandler serves product prices and the currency list.
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes mounts the catalog routes. optionalAuth lets logged-in
// customers see their group prices.
func (h *CatalogHandler) RegisterRoutes(r chi.Router, optionalAuth func(http.Handler) http.Handler) {
	r.Get("/api/currencies", h.ListCurrencies)
	r.Route("/api/products/{id}", func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/price", h.GetPrice)
		r.Get("/tiers", h.GetTiers)
	})
}

// GetPrice handles GET /api/products/{id}/price?currency=&quantity=
func (h *CatalogHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	quantity, err := quantityQuery(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	info, err := h.catalog.ProductPrice(r.Context(), productID, r.URL.Query().Get("currency"), quantity, middleware.GetCustomerGroupID(r.Context()))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, info)
}

// GetTiers handles GET /api/products/{id}/tiers?currency=
func (h *CatalogHandler) GetTiers(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	tiers, err := h.catalog.ProductTiers(r.Context(), productID, r.URL.Query().Get("currency"), middleware.GetCustomerGroupID(r.Context()))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"tiers": tiers})
}

// ListCurrencies handles GET /api/currencies
func (h *CatalogHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.Currencies(r.Context())
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	out := make([]CurrencyResponse, 0, len(list))
	for _, c := range list {
		out = append(out, CurrencyResponse{
			Code:        c.Code,
			Name:        c.Name,
			Value:       c.Value.String(),
			SymbolLeft:  c.SymbolLeft,
			SymbolRight: c.SymbolRight,
		})
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"currencies": out})
}
