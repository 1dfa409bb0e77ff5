package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

// OrderNumberPrefix starts every order number
const OrderNumberPrefix = "ORD"

var (
	orderNumberSpace = big.NewInt(1_000_000)
	orderNumberRegex = regexp.MustCompile(`^ORD-\d{8}-\d{6}$`)
)

// NumberGenerator produces order number candidates. Uniqueness is checked
// by the caller, which retries on collision.
type NumberGenerator interface {
	Next(now time.Time) (string, error)
}

// RandomNumberGenerator builds ORD-YYYYMMDD-NNNNNN with six random digits
type RandomNumberGenerator struct{}

// Next returns a new candidate for now's UTC date
func (RandomNumberGenerator) Next(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, orderNumberSpace)
	if err != nil {
		return "", fmt.Errorf("failed to draw order number: %w", err)
	}
	return FormatOrderNumber(now, n.Int64()), nil
}

// FormatOrderNumber formats the date part and sequence of an order number
func FormatOrderNumber(now time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%06d", OrderNumberPrefix, now.UTC().Format("20060102"), seq%1_000_000)
}

// IsOrderNumber reports whether s looks like an order number
func IsOrderNumber(s string) bool {
	return orderNumberRegex.MatchString(s)
}
