/*
Package dbconfig is a micropackage that contains storage DB configuration options.
*/
package dbconfig

// Supported storage types.
const (
	BadgerDB   = "badgerdb"
	BoltDB     = "boltdb"
	InMemoryDB = "inmemory"
	LevelDB    = "leveldb"
	PebbleDB   = "pebble"
)

type (
	// DBConfiguration describes configuration for DB. Supported types:
	// [LevelDB], [BoltDB], [BadgerDB], [Pebble] or [InMemoryDB] (not
	// recommended for production usage).
	DBConfiguration struct {
		Type            string          `yaml:"Type"`
		LevelDBOptions  LevelDBOptions  `yaml:"LevelDBOptions"`
		BoltDBOptions   BoltDBOptions   `yaml:"BoltDBOptions"`
		BadgerDBOptions BadgerDBOptions `yaml:"BadgerDBOptions"`
		PebbleOptions   PebbleOptions   `yaml:"PebbleOptions"`
	}
	// LevelDBOptions configuration for LevelDB.
	LevelDBOptions struct {
		DataDirectoryPath string `yaml:"DataDirectoryPath"`
		ReadOnly          bool   `yaml:"ReadOnly"`
	}
	// BoltDBOptions configuration for BoltDB.
	BoltDBOptions struct {
		FilePath string `yaml:"FilePath"`
		ReadOnly bool   `yaml:"ReadOnly"`
	}
	// BadgerDBOptions configuration for BadgerDB.
	BadgerDBOptions struct {
		Dir      string `yaml:"BadgerDir"`
		InMemory bool   `yaml:"InMemory"`
	}
	// PebbleOptions configuration for Pebble.
	PebbleOptions struct {
		DataDirectoryPath string `yaml:"DataDirectoryPath"`
		InMemory          bool   `yaml:"InMemory"`
		ReadOnly          bool   `yaml:"ReadOnly"`
	}
)
