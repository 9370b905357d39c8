package config

import (
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/core/storage/dbconfig"
)

// ApplicationConfiguration contains settings of the local instance.
type ApplicationConfiguration struct {
	DBConfiguration dbconfig.DBConfiguration `yaml:"DBConfiguration"`

	// LogLevel is one of debug, info, warn, error, dpanic, panic, fatal.
	LogLevel string `yaml:"LogLevel"`
	// LogPath is the log file, stdout is used if empty.
	LogPath string `yaml:"LogPath"`
	// LogEncoding is "console" (default) or "json".
	LogEncoding string `yaml:"LogEncoding"`

	Trie TrieConfiguration `yaml:"Trie"`
}

// Validate checks ApplicationConfiguration for internal consistency.
func (a *ApplicationConfiguration) Validate() error {
	switch a.DBConfiguration.Type {
	case dbconfig.InMemoryDB, dbconfig.LevelDB, dbconfig.BoltDB, dbconfig.BadgerDB, dbconfig.PebbleDB:
	default:
		return fmt.Errorf("unknown storage type '%s'", a.DBConfiguration.Type)
	}
	switch a.LogEncoding {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid LogEncoding '%s'", a.LogEncoding)
	}
	return a.Trie.Validate()
}
