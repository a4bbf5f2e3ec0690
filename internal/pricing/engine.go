// Package pricing resolves the unit price of a product for a quantity,
// customer group and display currency.
package pricing

import (
	"fmt"
	"sort"

	"teomarket/internal/currency"
	"teomarket/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Converter converts base-currency amounts for display.
type Converter interface {
	Convert(amount decimal.Decimal, from, to string, precision int32) (decimal.Decimal, error)
	Lookup(code string) (*domain.Currency, error)
	Base() string
}

var _ Converter = (*currency.Table)(nil)

// Request carries the caller context explicitly; nothing is read from
// ambient session state.
type Request struct {
	Currency        string
	Quantity        int
	CustomerGroupID *uuid.UUID
}

// TierInfo describes one quantity breakpoint.
type TierInfo struct {
	MinQuantity   int             `json:"min_quantity"`
	MaxQuantity   *int            `json:"max_quantity,omitempty"`
	QuantityRange string          `json:"quantity_range"`
	PriceRaw      decimal.Decimal `json:"price_raw"`
	PriceDisplay  decimal.Decimal `json:"price_display"`
	Formatted     string          `json:"price_formatted"`
}

// PriceInfo is the resolved price of a product line.
type PriceInfo struct {
	ProductID        uuid.UUID       `json:"product_id"`
	Currency         string          `json:"currency"`
	Quantity         int             `json:"quantity"`
	CustomerGroupID  uuid.UUID       `json:"customer_group_id"`
	UnitPriceRaw     decimal.Decimal `json:"unit_price_raw"`
	UnitPriceDisplay decimal.Decimal `json:"unit_price_display"`
	LineTotalDisplay decimal.Decimal `json:"line_total_display"`
	Formatted        string          `json:"unit_price_formatted"`
	VatIncluded      bool            `json:"vat_included"`
	VatRate          decimal.Decimal `json:"vat_rate"`
	Tiers            []TierInfo      `json:"tiers"`
	ActiveTier       int             `json:"active_tier"`
}

// Engine is stateless apart from its converter and the default group.
type Engine struct {
	converter      Converter
	defaultGroupID uuid.UUID
	precision      int32
}

// NewEngine creates an engine. defaultGroupID is used for anonymous visitors.
func NewEngine(converter Converter, defaultGroupID uuid.UUID, precision int32) *Engine {
	if precision < 0 {
		precision = currency.DefaultPrecision
	}
	return &Engine{
		converter:      converter,
		defaultGroupID: defaultGroupID,
		precision:      precision,
	}
}

// EffectiveGroup returns the group whose prices apply to groupID.
func (e *Engine) EffectiveGroup(groupID *uuid.UUID) uuid.UUID {
	if groupID == nil || *groupID == uuid.Nil {
		return e.defaultGroupID
	}
	return *groupID
}

// PriceInfo resolves the unit price for req.Quantity units of product.
func (e *Engine) PriceInfo(product *domain.Product, req Request) (*PriceInfo, error) {
	if !product.Type.Purchasable() {
		return nil, domain.ErrProductNotPurchasable.WithMessage("product %s is %s and has no price of its own", product.SKU, product.Type)
	}
	if req.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	cur, err := e.displayCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	group := e.EffectiveGroup(req.CustomerGroupID)
	tiers := SelectTiers(product, group)

	unitRaw := product.BasePrice
	active := -1
	if len(tiers) > 0 {
		active = ActiveTierIndex(tiers, req.Quantity)
		unitRaw = tiers[active].Price
	}

	unitDisplay, err := e.converter.Convert(unitRaw, e.converter.Base(), cur.Code, e.precision)
	if err != nil {
		return nil, err
	}

	tierInfos, err := e.describeTiers(tiers, cur)
	if err != nil {
		return nil, err
	}

	return &PriceInfo{
		ProductID:        product.ID,
		Currency:         cur.Code,
		Quantity:         req.Quantity,
		CustomerGroupID:  group,
		UnitPriceRaw:     unitRaw,
		UnitPriceDisplay: unitDisplay,
		LineTotalDisplay: unitDisplay.Mul(decimal.NewFromInt(int64(req.Quantity))).Round(e.precision),
		Formatted:        currency.Format(unitDisplay, cur, e.precision),
		VatIncluded:      product.VatIncluded,
		VatRate:          product.VatRate,
		Tiers:            tierInfos,
		ActiveTier:       active,
	}, nil
}

// PriceTiers returns the full tier list of product for the request's group
// and currency. A product without tiers yields an empty list.
func (e *Engine) PriceTiers(product *domain.Product, req Request) ([]TierInfo, error) {
	if !product.Type.Purchasable() {
		return nil, domain.ErrProductNotPurchasable.WithMessage("product %s is %s and has no price of its own", product.SKU, product.Type)
	}
	cur, err := e.displayCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	return e.describeTiers(SelectTiers(product, e.EffectiveGroup(req.CustomerGroupID)), cur)
}

func (e *Engine) displayCurrency(code string) (*domain.Currency, error) {
	if code == "" {
		code = e.converter.Base()
	}
	return e.converter.Lookup(code)
}

func (e *Engine) describeTiers(tiers []domain.PriceTier, cur *domain.Currency) ([]TierInfo, error) {
	out := make([]TierInfo, 0, len(tiers))
	for i, t := range tiers {
		display, err := e.converter.Convert(t.Price, e.converter.Base(), cur.Code, e.precision)
		if err != nil {
			return nil, err
		}
		info := TierInfo{
			MinQuantity:  t.MinQuantity,
			PriceRaw:     t.Price,
			PriceDisplay: display,
			Formatted:    currency.Format(display, cur, e.precision),
		}
		if i+1 < len(tiers) {
			maxQty := tiers[i+1].MinQuantity - 1
			info.MaxQuantity = &maxQty
			info.QuantityRange = fmt.Sprintf("%d-%d", t.MinQuantity, maxQty)
		} else {
			info.QuantityRange = fmt.Sprintf("%d+", t.MinQuantity)
		}
		out = append(out, info)
	}
	return out, nil
}

// SelectTiers returns the tiers that apply to group, sorted ascending by
// minimum quantity: the group's own tiers, else the tiers shared by all
// groups, else none.
func SelectTiers(product *domain.Product, group uuid.UUID) []domain.PriceTier {
	var own, shared []domain.PriceTier
	for _, t := range product.Tiers {
		switch {
		case t.CustomerGroupID == nil:
			shared = append(shared, t)
		case *t.CustomerGroupID == group:
			own = append(own, t)
		}
	}
	selected := own
	if len(selected) == 0 {
		selected = shared
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].MinQuantity < selected[j].MinQuantity
	})
	return selected
}

// ActiveTierIndex returns the index of the last tier whose minimum quantity
// is at most quantity. Quantities below the first breakpoint use the first
// tier. tiers must be sorted and non-empty.
func ActiveTierIndex(tiers []domain.PriceTier, quantity int) int {
	active := 0
	for i, t := range tiers {
		if t.MinQuantity > quantity {
			break
		}
		active = i
	}
	return active
}
