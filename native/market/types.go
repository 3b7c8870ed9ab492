package market

import (
	"fmt"
	"math/big"
	"strings"
)

// Coin pairs a fungible-token contract with an amount of that token.
type Coin struct {
	TokenContract string
	Amount        *big.Int
}

// Clone returns a deep copy of the coin with a non-nil amount.
func (c Coin) Clone() Coin {
	clone := Coin{TokenContract: c.TokenContract, Amount: big.NewInt(0)}
	if c.Amount != nil {
		clone.Amount = new(big.Int).Set(c.Amount)
	}
	return clone
}

// Offering is the unit of sale: a non-fungible asset held in marketplace
// custody together with its fungible-token asking price. Offerings are
// immutable once created; cancel and relist is the only way to change terms.
type Offering struct {
	ID            string
	Owner         string
	Seller        string
	AssetContract string
	AssetID       string
	ListPrice     Coin
	Extension     string
}

// Clone returns a deep copy of the offering so callers can safely mutate the
// copy without affecting the stored instance.
func (o *Offering) Clone() *Offering {
	if o == nil {
		return nil
	}
	clone := *o
	clone.ListPrice = o.ListPrice.Clone()
	return &clone
}

// SanitizeOffering validates and normalises the supplied offering, returning
// a cloned instance with trimmed identifiers and a non-nil price amount. The
// function does not mutate the original value.
func SanitizeOffering(o *Offering) (*Offering, error) {
	if o == nil {
		return nil, fmt.Errorf("market: nil offering")
	}
	clone := o.Clone()
	clone.ID = strings.TrimSpace(clone.ID)
	clone.Owner = strings.TrimSpace(clone.Owner)
	clone.Seller = strings.TrimSpace(clone.Seller)
	clone.AssetContract = strings.TrimSpace(clone.AssetContract)
	clone.AssetID = strings.TrimSpace(clone.AssetID)
	clone.ListPrice.TokenContract = strings.TrimSpace(clone.ListPrice.TokenContract)
	if clone.ID == "" {
		return nil, fmt.Errorf("market: offering id must not be empty")
	}
	if clone.Owner == "" {
		return nil, fmt.Errorf("market: offering owner must not be empty")
	}
	if clone.Seller == "" {
		return nil, fmt.Errorf("market: offering seller must not be empty")
	}
	if clone.AssetContract == "" {
		return nil, fmt.Errorf("market: offering asset contract must not be empty")
	}
	if clone.AssetID == "" {
		return nil, fmt.Errorf("market: offering asset id must not be empty")
	}
	if clone.ListPrice.TokenContract == "" {
		return nil, fmt.Errorf("market: offering price token must not be empty")
	}
	if clone.ListPrice.Amount.Sign() < 0 {
		return nil, fmt.Errorf("market: offering price must be non-negative")
	}
	return clone, nil
}

// ContractInfo is the marketplace metadata record, set once at initialization.
type ContractInfo struct {
	Name string
}

// LegacyState mirrors the pre-marketplace counter record retained for
// backward compatibility. It is unrelated to the offering counter and must
// never gate marketplace behaviour.
type LegacyState struct {
	Count uint64
	Owner string
}
