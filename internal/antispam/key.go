package antispam

import (
	"fmt"
	"strings"
	"time"
)

// Key builds the suppression key for one impression. A missing product or IP
// collapses to a fixed marker so (store, section) pairs from unknown viewers
// still share a window.
func Key(storeID uint64, productID *uint64, section, ip string) string {
	product := "-"
	if productID != nil {
		product = fmt.Sprintf("%d", *productID)
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "-"
	}
	return fmt.Sprintf("s:%d:p:%s:sec:%s:ip:%s", storeID, product, strings.TrimSpace(section), ip)
}

// BucketKey appends the current window bucket to a key, producing the value
// stored in the impression row's unique column.
func BucketKey(key string, now time.Time) string {
	return fmt.Sprintf("%s:b:%d", key, BucketFor(now))
}
