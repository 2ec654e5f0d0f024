package cli

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/swaptoon/swap-engine/internal/convert"
)

// ErrBadCommand is returned for input that is not "<amount> <token> to <token>".
var ErrBadCommand = errors.New("cli: invalid swap command")

var swapPattern = regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9]+)\s+TO\s+([A-Z0-9]+)$`)

// Request is a parsed swap or quote command.
type Request struct {
	Amount string
	Source string
	Target string
}

// ParseSwapCommand parses commands such as
//   - "swap 1 BTC to USDC"
//   - "0.5 eth to sol"
func ParseSwapCommand(command string) (*Request, error) {
	command = strings.TrimSpace(strings.ToUpper(command))
	command = strings.TrimPrefix(command, "SWAP ")

	m := swapPattern.FindStringSubmatch(command)
	if m == nil {
		return nil, fmt.Errorf("%w: expected '<amount> <token> to <token>' (e.g. '1 BTC to USDC')", ErrBadCommand)
	}
	if !convert.Positive(m[1]) {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrBadCommand)
	}
	if m[2] == m[3] {
		return nil, fmt.Errorf("%w: cannot swap %s to itself", ErrBadCommand, m[2])
	}
	return &Request{Amount: m[1], Source: m[2], Target: m[3]}, nil
}
