package market

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Storage abstracts the subset of state manager functionality required by the
// offering store.
type Storage interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVHas(key []byte) (bool, error)
	KVDelete(key []byte) error
	KVIncrement(key []byte) (uint64, error)
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Store owns the persisted marketplace state: the offering counter, the
// primary offering map, the three secondary indexes (owner, seller, asset
// contract) and the contract metadata record. It has no knowledge of transfer
// logic.
type Store struct {
	state Storage
}

// NewStore creates an offering store bound to the supplied state backend.
func NewStore(state Storage) *Store {
	return &Store{state: state}
}

// NextOfferingID atomically advances the offering counter and returns the new
// value as a decimal-string id. Ids are never reused.
func (s *Store) NextOfferingID() (string, error) {
	next, err := s.state.KVIncrement(offeringCountKey)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(next, 10), nil
}

// OfferingPut inserts the offering into the primary map and all secondary
// indexes as one logical unit. It fails with ErrDuplicateOffering when the id
// is already present.
func (s *Store) OfferingPut(o *Offering) error {
	sanitized, err := SanitizeOffering(o)
	if err != nil {
		return err
	}
	exists, err := s.state.KVHas(offeringKey(sanitized.ID))
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOffering, sanitized.ID)
	}
	return s.writeIndexed(sanitized)
}

// OfferingGet loads the offering stored under the provided id.
func (s *Store) OfferingGet(id string) (*Offering, error) {
	trimmed := strings.TrimSpace(id)
	var stored Offering
	ok, err := s.state.KVGet(offeringKey(trimmed), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOfferingNotFound, trimmed)
	}
	return &stored, nil
}

// OfferingRemove deletes the offering from the primary map together with its
// entry in every secondary index. Removal is the sale/withdrawal signal, so a
// missing offering is an error rather than a no-op.
func (s *Store) OfferingRemove(id string) error {
	offering, err := s.OfferingGet(id)
	if err != nil {
		return err
	}
	return s.deleteIndexed(offering)
}

// OfferingList returns every offering currently for sale in ascending key
// order. Keys are decimal strings compared lexicographically, so past nine
// offerings the order reads "1, 10, 11, 2".
func (s *Store) OfferingList() ([]*Offering, error) {
	return s.loadBucket(offeringIndexKey)
}

// OfferingsByOwner returns the offerings whose owner equals addr, in index-key
// order. Each call performs an independent scan.
func (s *Store) OfferingsByOwner(addr string) ([]*Offering, error) {
	return s.loadBucket(offeringOwnerKey(addr))
}

// OfferingsBySeller returns the offerings whose seller equals addr, in
// index-key order.
func (s *Store) OfferingsBySeller(addr string) ([]*Offering, error) {
	return s.loadBucket(offeringSellerKey(addr))
}

// OfferingsByContract returns the offerings issued by the provided asset
// contract, in index-key order.
func (s *Store) OfferingsByContract(addr string) ([]*Offering, error) {
	return s.loadBucket(offeringContractKey(addr))
}

// ContractInfoPut persists the marketplace metadata record.
func (s *Store) ContractInfoPut(info *ContractInfo) error {
	if info == nil || strings.TrimSpace(info.Name) == "" {
		return fmt.Errorf("market: contract name must not be empty")
	}
	return s.state.KVPut(contractInfoKey, &ContractInfo{Name: strings.TrimSpace(info.Name)})
}

// ContractInfoGet loads the marketplace metadata record. The boolean reports
// whether the record has been written.
func (s *Store) ContractInfoGet() (*ContractInfo, bool, error) {
	var info ContractInfo
	ok, err := s.state.KVGet(contractInfoKey, &info)
	if err != nil || !ok {
		return nil, false, err
	}
	return &info, true, nil
}

// LegacyStateGet loads the vestigial counter record kept for backward
// compatibility. A missing record reads as the zero value.
func (s *Store) LegacyStateGet() (*LegacyState, error) {
	var legacy LegacyState
	if _, err := s.state.KVGet(legacyStateKey, &legacy); err != nil {
		return nil, err
	}
	return &legacy, nil
}

// LegacyStatePut persists the vestigial counter record.
func (s *Store) LegacyStatePut(legacy *LegacyState) error {
	if legacy == nil {
		return fmt.Errorf("market: nil legacy state")
	}
	return s.state.KVPut(legacyStateKey, legacy)
}

// writeIndexed is the only path that inserts an offering. The primary record
// and every index entry are written in the same logical unit so the
// index/primary invariant holds after every operation.
func (s *Store) writeIndexed(o *Offering) error {
	if err := s.state.KVPut(offeringKey(o.ID), o); err != nil {
		return err
	}
	member := []byte(o.ID)
	if err := s.state.KVAppend(offeringIndexKey, member); err != nil {
		return err
	}
	if err := s.state.KVAppend(offeringOwnerKey(o.Owner), member); err != nil {
		return err
	}
	if err := s.state.KVAppend(offeringSellerKey(o.Seller), member); err != nil {
		return err
	}
	return s.state.KVAppend(offeringContractKey(o.AssetContract), member)
}

// deleteIndexed is the only path that removes an offering. It tears down the
// primary record and every index entry together.
func (s *Store) deleteIndexed(o *Offering) error {
	if err := s.state.KVDelete(offeringKey(o.ID)); err != nil {
		return err
	}
	member := []byte(o.ID)
	if err := s.state.KVRemove(offeringIndexKey, member); err != nil {
		return err
	}
	if err := s.state.KVRemove(offeringOwnerKey(o.Owner), member); err != nil {
		return err
	}
	if err := s.state.KVRemove(offeringSellerKey(o.Seller), member); err != nil {
		return err
	}
	return s.state.KVRemove(offeringContractKey(o.AssetContract), member)
}

func (s *Store) loadBucket(key []byte) ([]*Offering, error) {
	var members [][]byte
	if err := s.state.KVGetList(key, &members); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, member := range members {
		ids = append(ids, string(member))
	}
	sort.Strings(ids)
	offerings := make([]*Offering, 0, len(ids))
	for _, id := range ids {
		offering, err := s.OfferingGet(id)
		if err != nil {
			return nil, err
		}
		offerings = append(offerings, offering)
	}
	return offerings, nil
}
