package simulation

import "sync/atomic"

// atomic64 is a small int64 counter, used for CacheDB's miss counters.
type atomic64 struct{ v int64 }

func (a *atomic64) add(d int64)  { atomic.AddInt64(&a.v, d) }
func (a *atomic64) get() int64   { return atomic.LoadInt64(&a.v) }
func (a *atomic64) reset()       { atomic.StoreInt64(&a.v, 0) }
