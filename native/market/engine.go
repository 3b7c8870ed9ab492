package market

import (
	"errors"
	"math/big"
	"strings"

	"marketd/core/events"
	"marketd/core/types"
)

var errNilState = errors.New("market engine: state not configured")

// engineState is the slice of store functionality the engine depends on.
type engineState interface {
	NextOfferingID() (string, error)
	OfferingPut(*Offering) error
	OfferingGet(id string) (*Offering, error)
	OfferingRemove(id string) error
	OfferingList() ([]*Offering, error)
	ContractInfoPut(*ContractInfo) error
	ContractInfoGet() (*ContractInfo, bool, error)
	LegacyStateGet() (*LegacyState, error)
}

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// Receipt describes the outcome of a successful transition: the audit event
// carrying human-readable attributes, and zero or more outbound transfer
// instructions for the external asset contracts to carry out. The engine
// never executes instructions itself; the host schedules them after the
// transition commits.
type Receipt struct {
	Event        *types.Event  `json:"event"`
	Instructions []Instruction `json:"instructions,omitempty"`
}

// Engine implements the marketplace state transitions on top of the offering
// store. Each transition validates authorization and solvency before any
// state is written; a failed transition leaves persisted state untouched and
// emits nothing.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine creates a marketplace engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: evt})
}

// Initialize persists the marketplace metadata record. The record is written
// once; a second call fails with ErrAlreadyInitialized.
func (e *Engine) Initialize(name string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if _, ok, err := e.state.ContractInfoGet(); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	return e.state.ContractInfoPut(&ContractInfo{Name: name})
}

// List records a new offering for the deposited asset. The asset transfer
// that delivered custody to the marketplace is the caller's precondition, so
// no instruction is emitted. The same asset may be listed again if deposited
// again; there is deliberately no duplicate check.
func (e *Engine) List(seller, assetContract, assetID string, price Coin, extension string) (*Receipt, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	// Validate the candidate before consuming an id: the counter advances
	// exactly once per successful listing, never for a rejected one.
	candidate := &Offering{
		ID:            "candidate",
		Owner:         strings.TrimSpace(seller),
		Seller:        strings.TrimSpace(seller),
		AssetContract: assetContract,
		AssetID:       assetID,
		ListPrice:     price.Clone(),
		Extension:     extension,
	}
	offering, err := SanitizeOffering(candidate)
	if err != nil {
		return nil, err
	}
	id, err := e.state.NextOfferingID()
	if err != nil {
		return nil, err
	}
	offering.ID = id
	if err := e.state.OfferingPut(offering); err != nil {
		return nil, err
	}
	evt := NewListedEvent(offering)
	e.emit(evt)
	return &Receipt{Event: evt}, nil
}

// Buy atomically trades the tendered payment for the offered asset. The full
// tendered amount is forwarded to the seller, even above the asking price;
// overpayment is neither refunded nor rejected. The offering is removed in
// the same transition that emits the two transfer instructions.
func (e *Engine) Buy(offeringID, buyer string, tendered Coin) (*Receipt, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	offering, err := e.state.OfferingGet(offeringID)
	if err != nil {
		return nil, err
	}
	paid := tendered.Clone()
	asking := offering.ListPrice.Amount
	if asking == nil {
		asking = big.NewInt(0)
	}
	if paid.Amount.Cmp(asking) < 0 {
		return nil, ErrInsufficientFunds
	}
	instructions := []Instruction{
		TokenTransfer{
			TokenContract: paid.TokenContract,
			Recipient:     offering.Seller,
			Amount:        paid.Amount,
		},
		AssetTransfer{
			AssetContract: offering.AssetContract,
			Recipient:     strings.TrimSpace(buyer),
			AssetID:       offering.AssetID,
		},
	}
	if err := e.state.OfferingRemove(offering.ID); err != nil {
		return nil, err
	}
	evt := NewBoughtEvent(offering, strings.TrimSpace(buyer), paid)
	e.emit(evt)
	return &Receipt{Event: evt, Instructions: instructions}, nil
}

// Withdraw returns an unsold asset to its seller and removes the offering.
// Only the offering's seller may withdraw.
func (e *Engine) Withdraw(offeringID, requester string) (*Receipt, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	offering, err := e.state.OfferingGet(offeringID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(requester) != offering.Seller {
		return nil, ErrUnauthorized
	}
	instructions := []Instruction{
		AssetTransfer{
			AssetContract: offering.AssetContract,
			Recipient:     offering.Seller,
			AssetID:       offering.AssetID,
		},
	}
	if err := e.state.OfferingRemove(offering.ID); err != nil {
		return nil, err
	}
	evt := NewWithdrawnEvent(offering)
	e.emit(evt)
	return &Receipt{Event: evt, Instructions: instructions}, nil
}

// Offerings returns every current offering projected into its flattened
// display form, in store order.
func (e *Engine) Offerings() (*OfferingsResponse, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	offerings, err := e.state.OfferingList()
	if err != nil {
		return nil, err
	}
	views := make([]OfferingView, 0, len(offerings))
	for _, offering := range offerings {
		views = append(views, viewOf(offering))
	}
	return &OfferingsResponse{Offerings: views}, nil
}

// LegacyCount returns the counter retained from the pre-marketplace
// deployment. It is unrelated to the offering counter.
func (e *Engine) LegacyCount() (*CountResponse, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	legacy, err := e.state.LegacyStateGet()
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: legacy.Count}, nil
}
