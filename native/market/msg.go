package market

import "math/big"

// SellMsg is the payload a seller attaches to the non-fungible-asset transfer
// that deposits the asset into marketplace custody.
type SellMsg struct {
	ListPrice PriceSpec `json:"list_price"`
	Extension string    `json:"extension,omitempty"`
}

// PriceSpec is the wire form of a fungible-token price.
type PriceSpec struct {
	TokenContract string   `json:"token_contract"`
	Amount        *big.Int `json:"amount"`
}

// Coin converts the wire price into its engine representation.
func (p PriceSpec) Coin() Coin {
	coin := Coin{TokenContract: p.TokenContract, Amount: big.NewInt(0)}
	if p.Amount != nil {
		coin.Amount = new(big.Int).Set(p.Amount)
	}
	return coin
}

// BuyMsg is the payload a buyer attaches to the fungible-token transfer that
// tenders payment for an offering.
type BuyMsg struct {
	OfferingID string `json:"offering_id"`
}

// WithdrawMsg is submitted directly by the seller to reclaim an unsold asset.
type WithdrawMsg struct {
	OfferingID string `json:"offering_id"`
}

// ReceiveNftNotice is the already-verified notification that a non-fungible
// asset arrived in marketplace custody. Sender is the depositing principal
// and the notifying contract is the asset's issuer.
type ReceiveNftNotice struct {
	Sender        string  `json:"sender"`
	AssetContract string  `json:"asset_contract"`
	AssetID       string  `json:"asset_id"`
	Msg           SellMsg `json:"msg"`
}

// ReceiveNotice is the already-verified notification that fungible tokens
// arrived in marketplace custody. The notifying contract issues the tendered
// token.
type ReceiveNotice struct {
	Sender        string   `json:"sender"`
	TokenContract string   `json:"token_contract"`
	Amount        *big.Int `json:"amount"`
	Msg           BuyMsg   `json:"msg"`
}

// OfferingView is the flattened, display-oriented projection of an offering
// returned by the offerings query.
type OfferingView struct {
	ID            string    `json:"id"`
	AssetID       string    `json:"token_id"`
	ListPrice     PriceSpec `json:"list_price"`
	AssetContract string    `json:"contract_addr"`
	Seller        string    `json:"seller"`
	Owner         string    `json:"owner"`
	Extension     string    `json:"extension,omitempty"`
}

// OfferingsResponse wraps the ordered offering views.
type OfferingsResponse struct {
	Offerings []OfferingView `json:"offerings"`
}

// CountResponse carries the legacy counter retained for compatibility with
// the pre-marketplace deployment. It is unrelated to the offering counter.
type CountResponse struct {
	Count uint64 `json:"count"`
}

func viewOf(o *Offering) OfferingView {
	price := PriceSpec{TokenContract: o.ListPrice.TokenContract, Amount: big.NewInt(0)}
	if o.ListPrice.Amount != nil {
		price.Amount = new(big.Int).Set(o.ListPrice.Amount)
	}
	return OfferingView{
		ID:            o.ID,
		AssetID:       o.AssetID,
		ListPrice:     price,
		AssetContract: o.AssetContract,
		Seller:        o.Seller,
		Owner:         o.Owner,
		Extension:     o.Extension,
	}
}
