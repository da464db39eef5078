package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/config/netmode"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultMockDecimals is the default number of decimals of the mock
	// price feed answers.
	DefaultMockDecimals = 8
	// DefaultMockInitialAnswer is the default initial answer of the mock
	// price feed, 2000 USD per GAS.
	DefaultMockInitialAnswer = 2000_00000000
	// MaxMockDecimals is the maximum number of decimals accepted by the mock
	// price feed contract.
	MaxMockDecimals = 18
)

// Version is the version of the FundMe CLI, set at build time.
var Version = "dev"

// ErrNoPriceFeed is returned for networks that have no price feed configured.
var ErrNoPriceFeed = errors.New("no price feed configured")

// Config is the top-level FundMe deployment configuration.
type Config struct {
	// DevelopmentNetworks lists networks (by name, see netmode.Magic) that
	// get a mock price feed deployed instead of using a configured one.
	DevelopmentNetworks []string           `yaml:"DevelopmentNetworks"`
	Networks            map[string]Network `yaml:"Networks"`
	MockFeed            MockFeed           `yaml:"MockFeed"`
	// Storage is used by the simulated chain, in-memory if not specified.
	Storage dbconfig.DBConfiguration `yaml:"Storage"`
}

// Network contains per-network settings.
type Network struct {
	// PriceFeed is the hash (LE string, optionally 0x-prefixed) or the
	// address of the price feed contract.
	PriceFeed          string `yaml:"PriceFeed"`
	BlockConfirmations uint32 `yaml:"BlockConfirmations"`
}

// MockFeed contains mock price feed deployment parameters.
type MockFeed struct {
	Decimals      int   `yaml:"Decimals"`
	InitialAnswer int64 `yaml:"InitialAnswer"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DevelopmentNetworks: []string{netmode.UnitTestNet.String(), netmode.PrivNet.String()},
		MockFeed: MockFeed{
			Decimals:      DefaultMockDecimals,
			InitialAnswer: DefaultMockInitialAnswer,
		},
		Storage: dbconfig.DBConfiguration{
			Type: dbconfig.InMemoryDB,
		},
	}
}

// LoadFile loads config from the provided path. Fields missing from the file
// keep their default values, unknown fields are an error.
func LoadFile(configPath string) (Config, error) {
	f, err := os.Open(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to load config: %w", err)
	}
	defer f.Close()

	config := Default()
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	err = decoder.Decode(&config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("config is invalid: %w", err)
	}
	return config, nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.MockFeed.Decimals < 0 || c.MockFeed.Decimals > MaxMockDecimals {
		return fmt.Errorf("MockFeed.Decimals should be in [0, %d] range, got %d", MaxMockDecimals, c.MockFeed.Decimals)
	}
	if c.MockFeed.InitialAnswer <= 0 {
		return fmt.Errorf("MockFeed.InitialAnswer should be positive, got %d", c.MockFeed.InitialAnswer)
	}
	for name, n := range c.Networks {
		if n.PriceFeed == "" {
			if !slices.Contains(c.DevelopmentNetworks, name) {
				return fmt.Errorf("network %s: %w", name, ErrNoPriceFeed)
			}
			continue
		}
		if _, err := parseHash(n.PriceFeed); err != nil {
			return fmt.Errorf("network %s: invalid PriceFeed: %w", name, err)
		}
	}
	switch c.Storage.Type {
	case "", dbconfig.InMemoryDB, dbconfig.BoltDB, dbconfig.LevelDB:
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	return nil
}

// IsDevelopment returns whether the given network needs a mock price feed.
func (c Config) IsDevelopment(m netmode.Magic) bool {
	return slices.Contains(c.DevelopmentNetworks, m.String())
}

// PriceFeed returns the price feed configured for the given network.
func (c Config) PriceFeed(m netmode.Magic) (util.Uint160, error) {
	n, ok := c.Networks[m.String()]
	if !ok || n.PriceFeed == "" {
		return util.Uint160{}, fmt.Errorf("%s: %w", m, ErrNoPriceFeed)
	}
	return parseHash(n.PriceFeed)
}

// BlockConfirmations returns the number of blocks to wait for after a
// transaction is accepted, at least one.
func (c Config) BlockConfirmations(m netmode.Magic) uint32 {
	n := c.Networks[m.String()].BlockConfirmations
	if n == 0 {
		return 1
	}
	return n
}

// parseHash accepts both LE hex strings (as printed by neo-go) and addresses.
func parseHash(s string) (util.Uint160, error) {
	h, err := util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
	if err == nil {
		return h, nil
	}
	h, err = address.StringToUint160(s)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("%q is neither a hash nor an address", s)
	}
	return h, nil
}
