package storage

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/util"
)

// Version will attempt to get the current version stored in the
// underlying Store.
func Version(s Store) (string, error) {
	version, err := s.Get(SYSVersion.Bytes())
	return string(version), err
}

// PutVersion will store the given version in the underlying Store.
func PutVersion(s Store, v string) error {
	return s.PutChangeSet(map[string][]byte{string(SYSVersion.Bytes()): []byte(v)})
}

// CurrentRoot returns the last main trie root saved with PutCurrentRoot.
// An empty database has a zero root.
func CurrentRoot(s Store) (util.Uint256, error) {
	b, err := s.Get(SYSCurrentRoot.Bytes())
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return util.Uint256{}, nil
		}
		return util.Uint256{}, err
	}
	h, err := util.Uint256DecodeBytes(b)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("bad current root: %w", err)
	}
	return h, nil
}

// PutCurrentRoot stores the given main trie root.
func PutCurrentRoot(s Store, root util.Uint256) error {
	return s.PutChangeSet(map[string][]byte{string(SYSCurrentRoot.Bytes()): root.Bytes()})
}
