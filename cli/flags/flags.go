/*
Package flags contains flag values for the registry identifiers.
*/
package flags

import (
	"flag"
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/util"
	"github.com/urfave/cli"
)

// Address is a wrapper for a Uint160 with flag.Value methods.
type Address struct {
	IsSet bool
	Value util.Uint160
}

// Hash is a wrapper for a Uint256 with flag.Value methods.
type Hash struct {
	IsSet bool
	Value util.Uint256
}

var (
	_ flag.Value = (*Address)(nil)
	_ flag.Value = (*Hash)(nil)
)

// String implements the fmt.Stringer interface.
func (a Address) String() string {
	if !a.IsSet {
		return ""
	}
	return a.Value.String()
}

// Set implements the flag.Value interface.
func (a *Address) Set(s string) error {
	u, err := util.Uint160DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid address '%s': %w", s, err)
	}
	a.IsSet = true
	a.Value = u
	return nil
}

// String implements the fmt.Stringer interface.
func (h Hash) String() string {
	if !h.IsSet {
		return ""
	}
	return h.Value.String()
}

// Set implements the flag.Value interface.
func (h *Hash) Set(s string) error {
	u, err := util.Uint256DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hash '%s': %w", s, err)
	}
	h.IsSet = true
	h.Value = u
	return nil
}

// NewAddressFlag returns a flag accepting a hex-encoded Uint160.
func NewAddressFlag(name, usage string) cli.GenericFlag {
	return cli.GenericFlag{Name: name, Usage: usage, Value: new(Address)}
}

// NewHashFlag returns a flag accepting a hex-encoded Uint256.
func NewHashFlag(name, usage string) cli.GenericFlag {
	return cli.GenericFlag{Name: name, Usage: usage, Value: new(Hash)}
}

// GetAddress returns the value of the required address flag.
func GetAddress(ctx *cli.Context, name string) (util.Uint160, error) {
	a, ok := ctx.Generic(name).(*Address)
	if !ok || !a.IsSet {
		return util.Uint160{}, fmt.Errorf("missing --%s", name)
	}
	return a.Value, nil
}

// GetHash returns the value of the required hash flag.
func GetHash(ctx *cli.Context, name string) (util.Uint256, error) {
	h, ok := ctx.Generic(name).(*Hash)
	if !ok || !h.IsSet {
		return util.Uint256{}, fmt.Errorf("missing --%s", name)
	}
	return h.Value, nil
}

// IsSet tells whether the address or hash flag was given.
func IsSet(ctx *cli.Context, name string) bool {
	switch v := ctx.Generic(name).(type) {
	case *Address:
		return v.IsSet
	case *Hash:
		return v.IsSet
	default:
		return false
	}
}
