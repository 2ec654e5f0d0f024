package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// poolIDRegex matches: {base}-{quote}, lowercase symbols.
// Example: btc-usdc
var poolIDRegex = regexp.MustCompile(`^([a-z0-9]+)-([a-z0-9]+)$`)

var ErrInvalidPoolID = errors.New("catalog: invalid pool id")

// Pair is a parsed pool identifier.
type Pair struct {
	Base  string `json:"base"`  // upper-case symbol
	Quote string `json:"quote"` // upper-case symbol
}

// PoolID builds the canonical pool identifier for two symbols.
func PoolID(base, quote string) string {
	return strings.ToLower(base) + "-" + strings.ToLower(quote)
}

// ParsePoolID parses and validates a pool identifier.
// Format: {base}-{quote}
func ParsePoolID(id string) (Pair, error) {
	matches := poolIDRegex.FindStringSubmatch(id)
	if matches == nil {
		return Pair{}, fmt.Errorf("%w: %q (expected {base}-{quote}, e.g. btc-usdc)",
			ErrInvalidPoolID, id)
	}
	if matches[1] == matches[2] {
		return Pair{}, fmt.Errorf("%w: %q pairs an asset with itself", ErrInvalidPoolID, id)
	}
	return Pair{
		Base:  strings.ToUpper(matches[1]),
		Quote: strings.ToUpper(matches[2]),
	}, nil
}
