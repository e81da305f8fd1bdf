// Package registry holds the static token to staking-contract mapping that
// drives every reconciliation cycle. A Registry is built once at startup and
// never mutated afterwards.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// maxDecimals bounds the declared precision of an asset. uint256 amounts
// never exceed 78 digits, so anything larger is a typo.
const maxDecimals = 77

// ErrInvalidEntry marks a registry configuration problem.
var ErrInvalidEntry = errors.New("registry: invalid entry")

// EntryConfig is the configuration form of an Entry. Decimals is a pointer
// so a missing value can be told apart from an explicit zero.
type EntryConfig struct {
	Key            string   `mapstructure:"key"`
	TokenAddress   string   `mapstructure:"token_address"`
	StakingAddress string   `mapstructure:"staking_address"`
	DisplayName    string   `mapstructure:"display_name"`
	ProjectName    string   `mapstructure:"project_name"`
	ChainName      string   `mapstructure:"chain_name"`
	Stablecoin     bool     `mapstructure:"stablecoin"`
	Categories     []string `mapstructure:"categories"`
	LogoURL        string   `mapstructure:"logo_url"`
	Decimals       *int32   `mapstructure:"decimals"`
}

// Entry describes one tracked token and the staking contract to read.
type Entry struct {
	Key            string
	TokenAddress   string
	StakingAddress string
	DisplayName    string
	ProjectName    string
	ChainName      string
	Stablecoin     bool
	Categories     []string
	LogoURL        string
	Decimals       int32
}

// Registry is an immutable, ordered set of entries.
type Registry struct {
	entries []Entry
	byKey   map[string]int
}

// New validates the configured entries and freezes them into a Registry.
func New(configs []EntryConfig) (*Registry, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: no tokens configured", ErrInvalidEntry)
	}

	reg := &Registry{
		entries: make([]Entry, 0, len(configs)),
		byKey:   make(map[string]int, len(configs)),
	}
	seenToken := make(map[string]string, len(configs))

	for i, cfg := range configs {
		entry, err := buildEntry(cfg)
		if err != nil {
			return nil, fmt.Errorf("registry.tokens[%d]: %w", i, err)
		}
		if _, dup := reg.byKey[entry.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidEntry, entry.Key)
		}
		if other, dup := seenToken[entry.TokenAddress]; dup {
			return nil, fmt.Errorf("%w: token address %s used by both %q and %q", ErrInvalidEntry, entry.TokenAddress, other, entry.Key)
		}
		seenToken[entry.TokenAddress] = entry.Key
		reg.byKey[entry.Key] = len(reg.entries)
		reg.entries = append(reg.entries, entry)
	}

	return reg, nil
}

func buildEntry(cfg EntryConfig) (Entry, error) {
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		return Entry{}, fmt.Errorf("%w: key is required", ErrInvalidEntry)
	}
	if !common.IsHexAddress(cfg.TokenAddress) {
		return Entry{}, fmt.Errorf("%w: %s: malformed token_address %q", ErrInvalidEntry, key, cfg.TokenAddress)
	}
	if !common.IsHexAddress(cfg.StakingAddress) {
		return Entry{}, fmt.Errorf("%w: %s: malformed staking_address %q", ErrInvalidEntry, key, cfg.StakingAddress)
	}
	if cfg.Decimals == nil {
		return Entry{}, fmt.Errorf("%w: %s: decimals must be declared", ErrInvalidEntry, key)
	}
	if *cfg.Decimals < 0 || *cfg.Decimals > maxDecimals {
		return Entry{}, fmt.Errorf("%w: %s: decimals %d out of range", ErrInvalidEntry, key, *cfg.Decimals)
	}

	display := cfg.DisplayName
	if display == "" {
		display = key
	}

	return Entry{
		Key:            key,
		TokenAddress:   CanonicalAddress(cfg.TokenAddress),
		StakingAddress: CanonicalAddress(cfg.StakingAddress),
		DisplayName:    display,
		ProjectName:    cfg.ProjectName,
		ChainName:      cfg.ChainName,
		Stablecoin:     cfg.Stablecoin,
		Categories:     append([]string(nil), cfg.Categories...),
		LogoURL:        cfg.LogoURL,
		Decimals:       *cfg.Decimals,
	}, nil
}

// CanonicalAddress returns the EIP-55 checksum form of a hex address.
func CanonicalAddress(addr string) string {
	return common.HexToAddress(addr).Hex()
}

// ParseAddress validates a user-supplied hex address and returns its
// canonical form.
func ParseAddress(addr string) (string, bool) {
	if !common.IsHexAddress(addr) {
		return "", false
	}
	return CanonicalAddress(addr), true
}

// Len reports the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns a copy of the entries in configuration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.clone()
	}
	return out
}

// Lookup finds an entry by its token key.
func (r *Registry) Lookup(key string) (Entry, bool) {
	idx, ok := r.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return r.entries[idx].clone(), true
}

func (e Entry) clone() Entry {
	e.Categories = append([]string(nil), e.Categories...)
	return e
}
