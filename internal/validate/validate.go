package validate

import (
	"regexp"
	"strconv"
	"strings"

	"eshop/internal/cart"
	"eshop/internal/domain"
)

var (
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reKey   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reRef   = regexp.MustCompile(`^[A-Za-z0-9_]{1,250}$`)
)

// Email trims and lowercases; ok is false for anything that is not an address.
func Email(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 0 || len(s) > 250 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Name validates a displayable name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 250 {
		return "", false
	}
	return s, true
}

// Password enforces the registration window. bcrypt ignores bytes past 72.
func Password(s string) bool {
	return len(s) >= 8 && len(s) <= 72
}

// Key validates a product url key.
func Key(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reKey.MatchString(s)
}

// PriceRef validates an opaque payment provider price id such as price_1Jh...
func PriceRef(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reRef.MatchString(s)
}

// Qty parses a cart quantity. Unlike a clamp, anything outside 1..cart.MaxQty
// is an error so a bad form never changes the cart.
func Qty(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, domain.Invalid("quantity", "must be a whole number")
	}
	if n < 1 || n > cart.MaxQty {
		return 0, domain.Invalid("quantity", "must be between 1 and 50")
	}
	return n, nil
}

// Amount parses a non-negative integer amount in minor currency units.
func Amount(field, s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, domain.Invalid(field, "must be a whole, non-negative amount")
	}
	return n, nil
}

// OptionalAmount is Amount where a blank value means absent.
func OptionalAmount(field, s string) (*int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	n, err := Amount(field, s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Checkbox reports whether an HTML checkbox was ticked.
func Checkbox(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes", "y":
		return true
	}
	return false
}
