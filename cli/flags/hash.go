/*
Package flags contains custom CLI flag types.
*/
package flags

import (
	"flag"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/urfave/cli/v2"
)

// Hash is a script hash (of a contract or an account) with flag.Value
// methods. Both LE hex strings and addresses are accepted.
type Hash struct {
	IsSet bool
	Value util.Uint160
}

// HashFlag is a flag with Hash value.
type HashFlag struct {
	Name     string
	Aliases  []string
	Usage    string
	Required bool
	Value    Hash
}

var (
	_ flag.Value = (*Hash)(nil)
	_ cli.Flag   = HashFlag{}
)

// String implements the fmt.Stringer interface.
func (h Hash) String() string {
	if !h.IsSet {
		return ""
	}
	return "0x" + h.Value.StringLE()
}

// Set implements the flag.Value interface.
func (h *Hash) Set(s string) error {
	u, err := ParseHash(s)
	if err != nil {
		return cli.Exit(err, 1)
	}
	h.IsSet = true
	h.Value = u
	return nil
}

// String returns a readable representation of the flag for usage output.
func (f HashFlag) String() string {
	var names []string
	for _, name := range f.Names() {
		names = append(names, getNameHelp(name))
	}
	return strings.Join(names, ", ") + "\t" + f.Usage
}

// Names returns the names of the flag.
func (f HashFlag) Names() []string {
	return cli.FlagNames(f.Name, f.Aliases)
}

// IsSet checks if the flag was set to a non-default value.
func (f HashFlag) IsSet() bool {
	return f.Value.IsSet
}

// IsRequired returns whether the flag is required.
func (f HashFlag) IsRequired() bool {
	return f.Required
}

// IsVisible implements cli.VisibleFlag.
func (f HashFlag) IsVisible() bool {
	return true
}

// TakesValue implements cli.DocGenerationFlag.
func (f HashFlag) TakesValue() bool {
	return true
}

// GetUsage implements cli.DocGenerationFlag.
func (f HashFlag) GetUsage() string {
	return f.Usage
}

// GetValue implements cli.DocGenerationFlag.
func (f HashFlag) GetValue() string {
	return f.Value.String()
}

// Apply populates the flag given the flag set.
func (f HashFlag) Apply(set *flag.FlagSet) error {
	for _, name := range f.Names() {
		set.Var(&f.Value, name, f.Usage)
	}
	return nil
}

// HashFromContext returns the hash set for the flag with the given name.
func HashFromContext(ctx *cli.Context, name string) (util.Uint160, bool) {
	h, ok := ctx.Generic(name).(*Hash)
	if !ok || !h.IsSet {
		return util.Uint160{}, false
	}
	return h.Value, true
}

// ParseHash parses a Uint160 from either an LE string (optionally
// 0x-prefixed) or an address.
func ParseHash(s string) (util.Uint160, error) {
	const uint160size = 2 * util.Uint160Size
	switch len(s) {
	case uint160size, uint160size + 2:
		return util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
	default:
		return address.StringToUint160(s)
	}
}

func getNameHelp(name string) string {
	if len(name) == 1 {
		return fmt.Sprintf("-%s value", name)
	}
	return fmt.Sprintf("--%s value", name)
}
