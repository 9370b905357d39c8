package dataasset

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"go.uber.org/atomic"
)

// IDAllocator hands out sequential token ids. An id is only consumed if the
// write it's allocated for succeeds, so failed registrations leave no gaps.
type IDAllocator struct {
	mtx  sync.Mutex
	next atomic.Uint32
}

// NewIDAllocator returns an allocator starting from next.
func NewIDAllocator(next uint32) *IDAllocator {
	a := new(IDAllocator)
	a.next.Store(next)
	return a
}

// Next returns the id the next Allocate call will try.
func (a *IDAllocator) Next() uint32 {
	return a.next.Load()
}

// Allocate calls f with the next id and consumes it if f succeeds. Calls
// are serialized.
func (a *IDAllocator) Allocate(f func(id uint32) error) (uint32, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	id := a.next.Load()
	if id == math.MaxUint32 {
		return 0, ErrIDsExhausted
	}
	if err := f(id); err != nil {
		return 0, err
	}
	a.next.Store(id + 1)
	return id, nil
}

func encodeCounter(next uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, next)
}

func decodeCounter(data []byte) (uint32, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("%w: counter of length %d", ErrCorruptedRecord, len(data))
	}
	return binary.LittleEndian.Uint32(data), nil
}
