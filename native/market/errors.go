package market

import "errors"

var (
	// ErrOfferingNotFound indicates the referenced offering id does not
	// exist. A caller error; reported as-is.
	ErrOfferingNotFound = errors.New("market: offering not found")
	// ErrDuplicateOffering indicates an id collision on create. The counter
	// never reuses ids, so this signals a counter or storage bug.
	ErrDuplicateOffering = errors.New("market: offering id already exists")
	// ErrInsufficientFunds indicates the tendered amount is below the asking
	// price. No partial accept.
	ErrInsufficientFunds = errors.New("market: insufficient funds to buy offering")
	// ErrUnauthorized indicates a withdraw attempted by a principal other
	// than the offering's seller.
	ErrUnauthorized = errors.New("market: unauthorized")
	// ErrAlreadyInitialized indicates the contract metadata record was
	// already written. Changing it requires an explicit migration.
	ErrAlreadyInitialized = errors.New("market: already initialized")
)
