package supplierapi

import (
	"fmt"
	"regexp"
)

// digitRun matches the first maximal run of digits anywhere in a product id
var digitRun = regexp.MustCompile(`\d+`)

// NormalizeProductID rewrites a supplier product id into its structured form
// "pid:<digits>:null". Inputs arrive in several encodings ("123", "pid:123",
// "pid:123:null", even double-prefixed "pid:pid:123:null"); the first maximal
// digit run identifies the product in all of them, so normalization is
// idempotent. A value with no digits is returned unchanged with ok=false;
// callers log the miss and pass the raw value through.
func NormalizeProductID(id string) (normalized string, ok bool) {
	digits := digitRun.FindString(id)
	if digits == "" {
		return id, false
	}
	return fmt.Sprintf("pid:%s:null", digits), true
}

// NumericProductID extracts the bare digit run for calls that expect a
// numeric id. Same miss semantics as NormalizeProductID.
func NumericProductID(id string) (numeric string, ok bool) {
	digits := digitRun.FindString(id)
	if digits == "" {
		return id, false
	}
	return digits, true
}
