package mpt

import (
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/crypto/hash"
	"github.com/nspcc-dev/assetstate/pkg/util"
)

// Config selects the node hashing scheme of a trie. Tries built with
// different configs are incompatible even for the same key set.
type Config struct {
	// Name is used to select the config from configuration files.
	Name string
	// Hash returns the digest nodes are addressed with.
	Hash func([]byte) util.Uint256
}

// Predefined configurations.
var (
	Blake2bConfig = &Config{
		Name: "blake2b",
		Hash: hash.Blake2b256,
	}
	Keccak256Config = &Config{
		Name: "keccak256",
		Hash: hash.Keccak256,
	}
	DoubleSha256Config = &Config{
		Name: "sha256d",
		Hash: hash.DoubleSha256,
	}

	// DefaultConfig is used when no config is given explicitly.
	DefaultConfig = Blake2bConfig
)

// ConfigByName returns one of the predefined configurations. An empty name
// selects the DefaultConfig.
func ConfigByName(name string) (*Config, error) {
	switch name {
	case "":
		return DefaultConfig, nil
	case Blake2bConfig.Name:
		return Blake2bConfig, nil
	case Keccak256Config.Name:
		return Keccak256Config, nil
	case DoubleSha256Config.Name:
		return DoubleSha256Config, nil
	default:
		return nil, fmt.Errorf("unknown trie hash: %q", name)
	}
}
