package market

import (
	"math/big"

	"marketd/core/types"
)

const (
	EventTypeListed    = "market.listed"
	EventTypeBought    = "market.bought"
	EventTypeWithdrawn = "market.withdrawn"
)

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

// NewListedEvent returns the canonical audit payload for a freshly listed
// offering.
func NewListedEvent(o *Offering) *types.Event {
	return &types.Event{
		Type: EventTypeListed,
		Attributes: map[string]string{
			"action":         "list",
			"offering_id":    o.ID,
			"seller":         o.Seller,
			"asset_contract": o.AssetContract,
			"asset_id":       o.AssetID,
			"price":          formatAmount(o.ListPrice.Amount),
			"price_token":    o.ListPrice.TokenContract,
		},
	}
}

// NewBoughtEvent returns the canonical audit payload for a completed sale.
// The paid price is the full tendered amount, not the asking price.
func NewBoughtEvent(o *Offering, buyer string, paid Coin) *types.Event {
	return &types.Event{
		Type: EventTypeBought,
		Attributes: map[string]string{
			"action":         "buy",
			"offering_id":    o.ID,
			"buyer":          buyer,
			"seller":         o.Seller,
			"paid_price":     formatAmount(paid.Amount),
			"paid_token":     paid.TokenContract,
			"asset_id":       o.AssetID,
			"asset_contract": o.AssetContract,
		},
	}
}

// NewWithdrawnEvent returns the canonical audit payload for an offering
// reclaimed by its seller.
func NewWithdrawnEvent(o *Offering) *types.Event {
	return &types.Event{
		Type: EventTypeWithdrawn,
		Attributes: map[string]string{
			"action":      "withdraw",
			"offering_id": o.ID,
			"seller":      o.Seller,
		},
	}
}
