package game

import "sync"

// FidLocks serializes read-modify-write cycles per account. The store has no
// conditional-write primitive, so two concurrent mutations for the same fid
// would otherwise both read the same counters and lose one update. One
// FidLocks instance is shared by the economy and the settler.
type FidLocks struct {
	locks sync.Map // fid -> *sync.Mutex
}

// NewFidLocks creates an empty lock table.
func NewFidLocks() *FidLocks {
	return &FidLocks{}
}

// Lock acquires the per-fid mutex and returns its unlock func.
func (f *FidLocks) Lock(fid int64) func() {
	v, _ := f.locks.LoadOrStore(fid, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
