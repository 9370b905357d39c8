package stateroot

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/core/state"
	"github.com/nspcc-dev/assetstate/pkg/core/storage"
	"github.com/nspcc-dev/assetstate/pkg/io"
)

const prefixLocal = 0x02

var localKey = []byte{byte(storage.DataMPTAux), prefixLocal}

// addLocalStateRoot stores the entry, the local index and the current root
// at once.
func (s *Module) addLocalStateRoot(sr *state.MPTRoot) error {
	data, err := io.ToBytes(sr)
	if err != nil {
		return err
	}
	idx := make([]byte, 4)
	binary.LittleEndian.PutUint32(idx, sr.Index)
	err = s.Store.PutChangeSet(map[string][]byte{
		string(makeStateRootKey(sr.Index)):     data,
		string(localKey):                       idx,
		string(storage.SYSCurrentRoot.Bytes()): sr.Root.Bytes(),
	})
	if err != nil {
		return fmt.Errorf("failed to store state root %d: %w", sr.Index, err)
	}
	return nil
}

func (s *Module) getLocalIndex() (uint32, error) {
	data, err := s.Store.Get(localKey)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("invalid local index length %d", len(data))
	}
	return binary.LittleEndian.Uint32(data), nil
}

// GetStateRoot returns the journal entry with the given index.
func (s *Module) GetStateRoot(index uint32) (*state.MPTRoot, error) {
	return s.getStateRoot(makeStateRootKey(index))
}

func (s *Module) getStateRoot(key []byte) (*state.MPTRoot, error) {
	data, err := s.Store.Get(key)
	if err != nil {
		return nil, err
	}
	sr := new(state.MPTRoot)
	if err := io.FromBytes(data, sr); err != nil {
		return nil, err
	}
	return sr, nil
}

func makeStateRootKey(index uint32) []byte {
	key := make([]byte, 5)
	key[0] = byte(storage.DataMPTAux)
	binary.BigEndian.PutUint32(key[1:], index)
	return key
}

func isStateRootKey(k []byte) bool {
	return len(k) == 5 && k[0] == byte(storage.DataMPTAux)
}

// Roots returns all journal entries in index order.
func (s *Module) Roots() ([]*state.MPTRoot, error) {
	var (
		res []*state.MPTRoot
		err error
	)
	s.Store.Seek(storage.SeekRange{Prefix: storage.DataMPTAux.Bytes()}, func(k, v []byte) bool {
		if !isStateRootKey(k) {
			return true
		}
		sr := new(state.MPTRoot)
		if err = io.FromBytes(v, sr); err != nil {
			err = fmt.Errorf("invalid state root %x: %w", k, err)
			return false
		}
		res = append(res, sr)
		return true
	})
	return res, err
}

// Truncate removes journal entries keep returns false for. The current entry
// is always kept. It returns the number of entries removed.
func (s *Module) Truncate(keep func(*state.MPTRoot) bool) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	current := s.localIndex.Load()
	var removed int
	err := s.Store.SeekGC(storage.SeekRange{Prefix: storage.DataMPTAux.Bytes()}, func(k, v []byte) bool {
		if !isStateRootKey(k) {
			return true
		}
		sr := new(state.MPTRoot)
		if err := io.FromBytes(v, sr); err != nil {
			// Unreadable entries are dropped.
			removed++
			return false
		}
		if sr.Index == current || keep(sr) {
			return true
		}
		removed++
		return false
	})
	if err != nil {
		return 0, fmt.Errorf("failed to truncate root journal: %w", err)
	}
	return removed, nil
}
