package market

import (
	"encoding/json"
	"math/big"
)

// Actions understood by the external asset contracts.
const (
	ActionTransfer    = "transfer"
	ActionTransferNFT = "transfer_nft"
)

// Instruction describes an asset movement to be carried out by an external
// asset contract. Instructions are emitted as data within the same atomic
// transition that removes the offering; the engine never executes them.
type Instruction interface {
	InstructionContract() string
	InstructionAction() string
}

// TokenTransfer instructs a fungible-token contract to move tokens out of
// marketplace custody to the recipient.
type TokenTransfer struct {
	TokenContract string
	Recipient     string
	Amount        *big.Int
}

// InstructionContract implements the Instruction interface.
func (t TokenTransfer) InstructionContract() string { return t.TokenContract }

// InstructionAction implements the Instruction interface.
func (t TokenTransfer) InstructionAction() string { return ActionTransfer }

// MarshalJSON renders the instruction in the wire shape expected by the
// external token contract.
func (t TokenTransfer) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Contract  string   `json:"contract"`
		Action    string   `json:"action"`
		Recipient string   `json:"recipient"`
		Amount    *big.Int `json:"amount"`
	}{t.TokenContract, ActionTransfer, t.Recipient, t.Amount})
}

// AssetTransfer instructs a non-fungible-token contract to move the asset out
// of marketplace custody to the recipient.
type AssetTransfer struct {
	AssetContract string
	Recipient     string
	AssetID       string
}

// InstructionContract implements the Instruction interface.
func (t AssetTransfer) InstructionContract() string { return t.AssetContract }

// InstructionAction implements the Instruction interface.
func (t AssetTransfer) InstructionAction() string { return ActionTransferNFT }

// MarshalJSON renders the instruction in the wire shape expected by the
// external asset contract.
func (t AssetTransfer) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Contract  string `json:"contract"`
		Action    string `json:"action"`
		Recipient string `json:"recipient"`
		AssetID   string `json:"asset_id"`
	}{t.AssetContract, ActionTransferNFT, t.Recipient, t.AssetID})
}
