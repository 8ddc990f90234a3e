package cache

import "strings"

const prefix = "checkout:"

// KeyVoucher returns the cache key of a voucher record by its normalised code.
func KeyVoucher(code string) string {
	return prefix + "voucher:" + strings.ToUpper(strings.TrimSpace(code))
}

// KeyRankTable returns the cache key of the configured rank table.
func KeyRankTable() string {
	return prefix + "ranks"
}

// KeyCustomerSpending returns the cache key of a customer's lifetime spending.
func KeyCustomerSpending(customerID string) string {
	return prefix + "spending:" + strings.TrimSpace(customerID)
}
