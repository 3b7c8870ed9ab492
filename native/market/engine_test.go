package market

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"testing"

	"marketd/core/events"
)

type mockState struct {
	counter   uint64
	offerings map[string]*Offering
	info      *ContractInfo
	legacy    LegacyState
}

func newMockState() *mockState {
	return &mockState{offerings: make(map[string]*Offering)}
}

func (m *mockState) NextOfferingID() (string, error) {
	m.counter++
	return strconv.FormatUint(m.counter, 10), nil
}

func (m *mockState) OfferingPut(o *Offering) error {
	sanitized, err := SanitizeOffering(o)
	if err != nil {
		return err
	}
	if _, ok := m.offerings[sanitized.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateOffering, sanitized.ID)
	}
	m.offerings[sanitized.ID] = sanitized.Clone()
	return nil
}

func (m *mockState) OfferingGet(id string) (*Offering, error) {
	offering, ok := m.offerings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOfferingNotFound, id)
	}
	return offering.Clone(), nil
}

func (m *mockState) OfferingRemove(id string) error {
	if _, ok := m.offerings[id]; !ok {
		return fmt.Errorf("%w: %s", ErrOfferingNotFound, id)
	}
	delete(m.offerings, id)
	return nil
}

func (m *mockState) OfferingList() ([]*Offering, error) {
	ids := make([]string, 0, len(m.offerings))
	for id := range m.offerings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	list := make([]*Offering, 0, len(ids))
	for _, id := range ids {
		list = append(list, m.offerings[id].Clone())
	}
	return list, nil
}

func (m *mockState) ContractInfoPut(info *ContractInfo) error {
	m.info = info
	return nil
}

func (m *mockState) ContractInfoGet() (*ContractInfo, bool, error) {
	if m.info == nil {
		return nil, false, nil
	}
	return m.info, true, nil
}

func (m *mockState) LegacyStateGet() (*LegacyState, error) {
	legacy := m.legacy
	return &legacy, nil
}

func newTestEngine() (*Engine, *mockState) {
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	return engine, state
}

func mustList(t *testing.T, engine *Engine, seller, contract, assetID string, price int64) *Receipt {
	t.Helper()
	receipt, err := engine.List(seller, contract, assetID, Coin{TokenContract: "T", Amount: big.NewInt(price)}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return receipt
}

func TestInitializeOnce(t *testing.T) {
	engine, state := newTestEngine()
	if err := engine.Initialize("galactic bazaar"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if state.info == nil || state.info.Name != "galactic bazaar" {
		t.Fatalf("contract info not persisted: %+v", state.info)
	}
	if err := engine.Initialize("other name"); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestListCreatesOffering(t *testing.T) {
	engine, state := newTestEngine()
	receipt := mustList(t, engine, "S", "C", "NFT1", 5)

	if len(receipt.Instructions) != 0 {
		t.Fatalf("list must not emit instructions, got %d", len(receipt.Instructions))
	}
	if receipt.Event.Attribute("action") != "list" {
		t.Fatalf("unexpected action %q", receipt.Event.Attribute("action"))
	}
	if receipt.Event.Attribute("price") != "5" {
		t.Fatalf("unexpected price attribute %q", receipt.Event.Attribute("price"))
	}

	offering, err := state.OfferingGet("1")
	if err != nil {
		t.Fatalf("OfferingGet: %v", err)
	}
	if offering.Owner != "S" || offering.Seller != "S" {
		t.Fatalf("owner/seller not set to requester: %+v", offering)
	}
}

func TestListIdsIncrease(t *testing.T) {
	engine, _ := newTestEngine()
	previous := uint64(0)
	for i := 0; i < 5; i++ {
		receipt := mustList(t, engine, "S", "C", "NFT", 1)
		id, err := strconv.ParseUint(receipt.Event.Attribute("offering_id"), 10, 64)
		if err != nil {
			t.Fatalf("non-decimal id: %v", err)
		}
		if id <= previous {
			t.Fatalf("id %d not greater than previous %d", id, previous)
		}
		previous = id
	}
}

func TestListSameAssetTwice(t *testing.T) {
	// No duplicate-listing check: an asset deposited twice lists twice.
	engine, state := newTestEngine()
	mustList(t, engine, "S", "C", "NFT1", 5)
	mustList(t, engine, "S", "C", "NFT1", 7)
	if len(state.offerings) != 2 {
		t.Fatalf("expected 2 offerings, got %d", len(state.offerings))
	}
}

func TestRejectedListDoesNotConsumeID(t *testing.T) {
	engine, state := newTestEngine()

	if _, err := engine.List("S", "", "NFT1", Coin{TokenContract: "T", Amount: big.NewInt(5)}, ""); err == nil {
		t.Fatalf("expected listing without asset contract to be rejected")
	}
	if _, err := engine.List("S", "C", "NFT1", Coin{TokenContract: "T", Amount: big.NewInt(-1)}, ""); err == nil {
		t.Fatalf("expected listing with negative price to be rejected")
	}
	if state.counter != 0 {
		t.Fatalf("rejected listings advanced the counter to %d", state.counter)
	}

	receipt := mustList(t, engine, "S", "C", "NFT1", 5)
	if receipt.Event.Attribute("offering_id") != "1" {
		t.Fatalf("first successful listing must take id 1, got %q", receipt.Event.Attribute("offering_id"))
	}
}

func TestBuyForwardsFullTenderedAmount(t *testing.T) {
	engine, state := newTestEngine()
	mustList(t, engine, "S", "C", "NFT1", 5)

	receipt, err := engine.Buy("1", "B", Coin{TokenContract: "T", Amount: big.NewInt(8)})
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if len(receipt.Instructions) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(receipt.Instructions))
	}

	payment, ok := receipt.Instructions[0].(TokenTransfer)
	if !ok {
		t.Fatalf("first instruction must be the token transfer, got %T", receipt.Instructions[0])
	}
	if payment.Recipient != "S" || payment.TokenContract != "T" {
		t.Fatalf("unexpected payment instruction: %+v", payment)
	}
	if payment.Amount.Cmp(big.NewInt(8)) != 0 {
		t.Fatalf("seller must receive the full tendered amount 8, got %v", payment.Amount)
	}

	delivery, ok := receipt.Instructions[1].(AssetTransfer)
	if !ok {
		t.Fatalf("second instruction must be the asset transfer, got %T", receipt.Instructions[1])
	}
	if delivery.Recipient != "B" || delivery.AssetContract != "C" || delivery.AssetID != "NFT1" {
		t.Fatalf("unexpected delivery instruction: %+v", delivery)
	}

	if _, ok := state.offerings["1"]; ok {
		t.Fatalf("offering must be removed after buy")
	}
	if receipt.Event.Attribute("paid_price") != "8" {
		t.Fatalf("paid_price attribute must be the tendered amount, got %q", receipt.Event.Attribute("paid_price"))
	}
}

func TestBuyExactPrice(t *testing.T) {
	engine, state := newTestEngine()
	mustList(t, engine, "S", "C", "NFT1", 5)

	receipt, err := engine.Buy("1", "B", Coin{TokenContract: "T", Amount: big.NewInt(5)})
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	payment := receipt.Instructions[0].(TokenTransfer)
	if payment.Amount.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("expected amount 5, got %v", payment.Amount)
	}
	if len(state.offerings) != 0 {
		t.Fatalf("offering must be removed")
	}
}

func TestBuyInsufficientFunds(t *testing.T) {
	engine, state := newTestEngine()
	mustList(t, engine, "S", "C", "NFT1", 5)

	_, err := engine.Buy("1", "B", Coin{TokenContract: "T", Amount: big.NewInt(4)})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, ok := state.offerings["1"]; !ok {
		t.Fatalf("failed buy must leave the offering in place")
	}
}

func TestBuyMissingOffering(t *testing.T) {
	engine, _ := newTestEngine()
	_, err := engine.Buy("404", "B", Coin{TokenContract: "T", Amount: big.NewInt(5)})
	if !errors.Is(err, ErrOfferingNotFound) {
		t.Fatalf("expected ErrOfferingNotFound, got %v", err)
	}
}

func TestWithdrawBySeller(t *testing.T) {
	engine, state := newTestEngine()
	mustList(t, engine, "S", "C", "NFT1", 5)

	receipt, err := engine.Withdraw("1", "S")
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if len(receipt.Instructions) != 1 {
		t.Fatalf("expected exactly one instruction, got %d", len(receipt.Instructions))
	}
	back, ok := receipt.Instructions[0].(AssetTransfer)
	if !ok {
		t.Fatalf("expected asset transfer, got %T", receipt.Instructions[0])
	}
	if back.Recipient != "S" || back.AssetID != "NFT1" || back.AssetContract != "C" {
		t.Fatalf("unexpected return instruction: %+v", back)
	}
	if len(state.offerings) != 0 {
		t.Fatalf("offering must be removed after withdraw")
	}
	if receipt.Event.Attribute("action") != "withdraw" {
		t.Fatalf("unexpected action %q", receipt.Event.Attribute("action"))
	}
}

func TestWithdrawUnauthorized(t *testing.T) {
	engine, state := newTestEngine()
	mustList(t, engine, "S", "C", "NFT1", 5)

	_, err := engine.Withdraw("1", "mallory")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, ok := state.offerings["1"]; !ok {
		t.Fatalf("failed withdraw must leave the offering in place")
	}
}

func TestWithdrawMissingOffering(t *testing.T) {
	engine, _ := newTestEngine()
	if _, err := engine.Withdraw("404", "S"); !errors.Is(err, ErrOfferingNotFound) {
		t.Fatalf("expected ErrOfferingNotFound, got %v", err)
	}
}

func TestListThenWithdrawRoundTrip(t *testing.T) {
	engine, _ := newTestEngine()
	mustList(t, engine, "S", "C", "NFT1", 5)
	if _, err := engine.Withdraw("1", "S"); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	resp, err := engine.Offerings()
	if err != nil {
		t.Fatalf("Offerings: %v", err)
	}
	if len(resp.Offerings) != 0 {
		t.Fatalf("expected empty offering set, got %d", len(resp.Offerings))
	}
	// The counter never rewinds: the next listing takes id 2.
	receipt := mustList(t, engine, "S", "C", "NFT2", 5)
	if receipt.Event.Attribute("offering_id") != "2" {
		t.Fatalf("expected id 2, got %q", receipt.Event.Attribute("offering_id"))
	}
}

func TestBuyScenario(t *testing.T) {
	engine, _ := newTestEngine()
	mustList(t, engine, "S", "C", "NFT1", 5)

	resp, err := engine.Offerings()
	if err != nil {
		t.Fatalf("Offerings: %v", err)
	}
	if len(resp.Offerings) != 1 || resp.Offerings[0].ID != "1" {
		t.Fatalf("expected single offering with id 1, got %+v", resp.Offerings)
	}

	receipt, err := engine.Buy("1", "B", Coin{TokenContract: "T", Amount: big.NewInt(5)})
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	resp, err = engine.Offerings()
	if err != nil {
		t.Fatalf("Offerings: %v", err)
	}
	if len(resp.Offerings) != 0 {
		t.Fatalf("expected no offerings after buy")
	}
	payment := receipt.Instructions[0].(TokenTransfer)
	delivery := receipt.Instructions[1].(AssetTransfer)
	if payment.Amount.Cmp(big.NewInt(5)) != 0 || payment.TokenContract != "T" || payment.Recipient != "S" {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if delivery.AssetID != "NFT1" || delivery.AssetContract != "C" || delivery.Recipient != "B" {
		t.Fatalf("unexpected delivery: %+v", delivery)
	}
}

func TestWithdrawScenario(t *testing.T) {
	engine, _ := newTestEngine()
	mustList(t, engine, "S", "C", "NFT1", 5)

	if _, err := engine.Withdraw("1", "mallory"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	resp, err := engine.Offerings()
	if err != nil {
		t.Fatalf("Offerings: %v", err)
	}
	if len(resp.Offerings) != 1 {
		t.Fatalf("offering must survive the unauthorized withdraw")
	}

	receipt, err := engine.Withdraw("1", "S")
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	resp, err = engine.Offerings()
	if err != nil {
		t.Fatalf("Offerings: %v", err)
	}
	if len(resp.Offerings) != 0 {
		t.Fatalf("expected no offerings after withdraw")
	}
	back := receipt.Instructions[0].(AssetTransfer)
	if back.AssetID != "NFT1" || back.Recipient != "S" {
		t.Fatalf("unexpected return instruction: %+v", back)
	}
}

func TestEngineEmitsEvents(t *testing.T) {
	engine, _ := newTestEngine()
	collector := &events.Collector{}
	engine.SetEmitter(collector)

	mustList(t, engine, "S", "C", "NFT1", 5)
	if _, err := engine.Withdraw("1", "S"); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	if len(collector.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(collector.Events))
	}
	if collector.Events[0].EventType() != EventTypeListed {
		t.Fatalf("unexpected first event %q", collector.Events[0].EventType())
	}
	if collector.Events[1].EventType() != EventTypeWithdrawn {
		t.Fatalf("unexpected second event %q", collector.Events[1].EventType())
	}
}

func TestFailedTransitionEmitsNothing(t *testing.T) {
	engine, _ := newTestEngine()
	collector := &events.Collector{}
	engine.SetEmitter(collector)

	mustList(t, engine, "S", "C", "NFT1", 5)
	emitted := len(collector.Events)

	if _, err := engine.Buy("1", "B", Coin{TokenContract: "T", Amount: big.NewInt(1)}); err == nil {
		t.Fatalf("expected insufficient funds")
	}
	if _, err := engine.Withdraw("1", "mallory"); err == nil {
		t.Fatalf("expected unauthorized")
	}
	if len(collector.Events) != emitted {
		t.Fatalf("failed transitions must not emit events")
	}
}

func TestLegacyCount(t *testing.T) {
	engine, state := newTestEngine()
	state.legacy = LegacyState{Count: 17, Owner: "creator"}

	resp, err := engine.LegacyCount()
	if err != nil {
		t.Fatalf("LegacyCount: %v", err)
	}
	if resp.Count != 17 {
		t.Fatalf("expected legacy count 17, got %d", resp.Count)
	}

	// Marketplace activity leaves the legacy counter untouched.
	mustList(t, engine, "S", "C", "NFT1", 5)
	resp, err = engine.LegacyCount()
	if err != nil {
		t.Fatalf("LegacyCount: %v", err)
	}
	if resp.Count != 17 {
		t.Fatalf("legacy counter must not move with listings, got %d", resp.Count)
	}
}

func TestEngineWithoutState(t *testing.T) {
	engine := NewEngine()
	if _, err := engine.List("S", "C", "NFT1", Coin{TokenContract: "T", Amount: big.NewInt(1)}, ""); !errors.Is(err, errNilState) {
		t.Fatalf("expected errNilState, got %v", err)
	}
}
