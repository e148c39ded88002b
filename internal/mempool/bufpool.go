package mempool

import (
	"sync"
)

// Sized pools for the int8 label planes used by contour scanning and the
// uint8 planes used by morphology. Buffers are bucketed by size class so
// masks of similar dimensions share storage.

var (
	int8Pools  sync.Map // key: size class (int), value: *sync.Pool
	uint8Pools sync.Map // key: size class (int), value: *sync.Pool
)

// sizeClass rounds n up to the next multiple of 4096 to reduce churn.
func sizeClass(n int) int {
	const step = 4096
	if n <= step {
		return step
	}
	r := (n + step - 1) / step
	return r * step
}

func poolFor[T any](pools *sync.Map, cls int) *sync.Pool {
	pAny, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return nil
	}
	return p
}

func get[T any](pools *sync.Map, n int) []T {
	cls := sizeClass(n)
	p := poolFor[T](pools, cls)
	if p == nil {
		return make([]T, n)
	}
	buf, ok := p.Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	// Callers rely on a clean plane: the scanner treats any non-zero cell as visited.
	clear(buf)
	return buf
}

func put[T any](pools *sync.Map, buf []T) {
	if buf == nil {
		return
	}
	p := poolFor[T](pools, sizeClass(cap(buf)))
	if p == nil {
		return
	}
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}

// GetInt8 returns a zeroed []int8 of length n. Return it with PutInt8.
func GetInt8(n int) []int8 { return get[int8](&int8Pools, n) }

// PutInt8 returns a buffer to the pool. It is safe to pass a nil slice.
func PutInt8(buf []int8) { put(&int8Pools, buf) }

// GetUint8 returns a zeroed []uint8 of length n. Return it with PutUint8.
func GetUint8(n int) []uint8 { return get[uint8](&uint8Pools, n) }

// PutUint8 returns a buffer to the pool. It is safe to pass a nil slice.
func PutUint8(buf []uint8) { put(&uint8Pools, buf) }
