package market

import "strings"

var (
	offeringPrefix         = []byte("market/offerings/")
	offeringIndexKey       = []byte("market/offerings/index")
	offeringOwnerPrefix    = []byte("market/offerings/owner/")
	offeringSellerPrefix   = []byte("market/offerings/seller/")
	offeringContractPrefix = []byte("market/offerings/contract/")
	offeringCountKey       = []byte("market/offerings/count")
	contractInfoKey        = []byte("market/info")
	legacyStateKey         = []byte("market/legacy/state")
)

func appendKey(prefix []byte, suffix string) []byte {
	trimmed := strings.TrimSpace(suffix)
	buf := make([]byte, len(prefix)+len(trimmed))
	copy(buf, prefix)
	copy(buf[len(prefix):], trimmed)
	return buf
}

func offeringKey(id string) []byte {
	return appendKey(offeringPrefix, id)
}

func offeringOwnerKey(addr string) []byte {
	return appendKey(offeringOwnerPrefix, addr)
}

func offeringSellerKey(addr string) []byte {
	return appendKey(offeringSellerPrefix, addr)
}

func offeringContractKey(addr string) []byte {
	return appendKey(offeringContractPrefix, addr)
}
